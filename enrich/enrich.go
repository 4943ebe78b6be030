// ABOUTME: Property enrichment provider boundary
// ABOUTME: Lookup types and a REST client; the raw record stays opaque pass-through data
package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Result is a property lookup outcome. RawRecord is never interpreted
// locally; it is forwarded to the CRM as-is.
type Result struct {
	OwnerName         string          `json:"owner_name"`
	EstimatedValue    int64           `json:"estimated_value"`
	MaxEstimatedValue int64           `json:"max_estimated_value"`
	RawRecord         json.RawMessage `json:"raw_record"`
}

// Provider is the enrichment surface the engine consumes.
type Provider interface {
	LookupProperty(ctx context.Context, address string) (*Result, error)
}

// HTTPClient talks to a property-data REST service.
type HTTPClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewHTTPClient creates an enrichment client. A zero timeout defaults
// to 10s.
func NewHTTPClient(baseURL, apiKey string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

// LookupProperty fetches the property record for a full address.
func (c *HTTPClient) LookupProperty(ctx context.Context, address string) (*Result, error) {
	endpoint := fmt.Sprintf("%s/property?address=%s&key=%s",
		c.baseURL, url.QueryEscape(address), url.QueryEscape(c.apiKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("property lookup failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("property lookup: unexpected status %d", resp.StatusCode)
	}

	var out Result
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode property record: %w", err)
	}
	return &out, nil
}
