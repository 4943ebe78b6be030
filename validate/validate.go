// ABOUTME: Pure field validators and normalizers for lead form input
// ABOUTME: Phone (NANP), email, name, and address checks that return errors, never throw
package validate

import (
	"fmt"
	"regexp"
	"strings"
)

// PhoneResult is the outcome of phone validation. Normalized holds the
// 10-digit NANP form when Valid is true.
type PhoneResult struct {
	Valid      bool
	Normalized string
	Err        error
}

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Phone validates a raw phone string. Punctuation and spacing are
// ignored; 11 digits with a leading 1 are accepted and the 1 stripped.
// NANP: neither the area code nor the exchange may start with 0 or 1,
// and N11 service codes are rejected as area codes.
func Phone(raw string) PhoneResult {
	digits := stripNonDigits(raw)

	if len(digits) == 11 && digits[0] == '1' {
		digits = digits[1:]
	}
	if len(digits) != 10 {
		return PhoneResult{Err: fmt.Errorf("phone number must have 10 digits, got %d", len(digits))}
	}
	if digits[0] == '0' || digits[0] == '1' {
		return PhoneResult{Err: fmt.Errorf("area code cannot start with %c", digits[0])}
	}
	if digits[1] == '1' && digits[2] == '1' {
		// N11 service codes (911, 411, ...) are not dialable area codes.
		return PhoneResult{Err: fmt.Errorf("area code %s is a reserved service code", digits[:3])}
	}
	if digits[3] == '0' || digits[3] == '1' {
		return PhoneResult{Err: fmt.Errorf("exchange code cannot start with %c", digits[3])}
	}

	return PhoneResult{Valid: true, Normalized: digits}
}

// FormatPhoneProgressive reformats a partially-typed phone value into
// the (XXX) XXX-XXXX display mask, truncating past 10 digits. Display
// only; it never validates.
func FormatPhoneProgressive(raw string) string {
	digits := stripNonDigits(raw)
	if len(digits) > 10 {
		digits = digits[:10]
	}

	switch {
	case len(digits) == 0:
		return ""
	case len(digits) <= 3:
		return "(" + digits
	case len(digits) <= 6:
		return fmt.Sprintf("(%s) %s", digits[:3], digits[3:])
	default:
		return fmt.Sprintf("(%s) %s-%s", digits[:3], digits[3:6], digits[6:])
	}
}

// Email validates an optional email field. Empty is valid; non-empty
// must match a local@domain.tld shape.
func Email(raw string) error {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}
	if !emailPattern.MatchString(trimmed) {
		return fmt.Errorf("invalid email address: %q", trimmed)
	}
	return nil
}

// Name validates trimmed length bounds.
func Name(raw string, min, max int) error {
	trimmed := strings.TrimSpace(raw)
	if len(trimmed) < min {
		return fmt.Errorf("name must be at least %d characters", min)
	}
	if max > 0 && len(trimmed) > max {
		return fmt.Errorf("name must be at most %d characters", max)
	}
	return nil
}

// Address validates a trimmed minimum length. Geocoding is the places
// provider's job, not the validator's.
func Address(raw string, minLen int) error {
	trimmed := strings.TrimSpace(raw)
	if len(trimmed) < minLen {
		return fmt.Errorf("address must be at least %d characters", minLen)
	}
	return nil
}

func stripNonDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
