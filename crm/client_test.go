// ABOUTME: Unit tests for the CRM HTTP adapter
// ABOUTME: Exercises payload shape, error taxonomy, timeouts, and code verification against httptest servers
package crm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/quickclose/leadsync/models"
)

func testLead() models.Lead {
	return models.Lead{
		LocalID: "cookie-1",
		Name:    models.FieldValue{Value: "John Smith"},
		Phone:   models.FieldValue{Value: "4045551234"},
		Email:   models.FieldValue{Value: "john@example.com"},
		Street:  models.FieldValue{Value: "123 Main St"},
		City:    models.FieldValue{Value: "Atlanta"},
		Zip:     models.FieldValue{Value: "30303"},
		Attribution: models.Attribution{
			CampaignID: "camp-1",
			URL:        "https://example.com/lp?gclid=x",
		},
		LeadStage: models.StageContactProvided,
		QualifyingAnswers: []models.Answer{
			{Key: "condition", Value: "fair"},
		},
	}
}

func TestUpsertLeadPayloadAndID(t *testing.T) {
	var got registerPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/re/RegisterReUser" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("failed to decode payload: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "crm-42"})
	}))
	defer server.Close()

	client := NewClient(server.URL, "cash_offer", 0)
	id, err := client.UpsertLead(context.Background(), testLead())
	if err != nil {
		t.Fatalf("UpsertLead failed: %v", err)
	}
	if id != "crm-42" {
		t.Errorf("remote id = %q, want crm-42", id)
	}

	if got.Cookie != "cookie-1" {
		t.Errorf("cookie = %q", got.Cookie)
	}
	if got.PhoneNumber != "(404) 555-1234" {
		t.Errorf("phoneNumber = %q, want display format", got.PhoneNumber)
	}
	if got.StreetAddress != "123 Main St" {
		t.Errorf("streetAddress = %q", got.StreetAddress)
	}
	if got.LeadType != "cash_offer" {
		t.Errorf("leadType = %q", got.LeadType)
	}
	if got.Data["campaignId"] != "camp-1" {
		t.Errorf("data.campaignId = %v", got.Data["campaignId"])
	}
	if got.Data["q_condition"] != "fair" {
		t.Errorf("data.q_condition = %v", got.Data["q_condition"])
	}
}

func TestUpsertLeadErrorTaxonomy(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantKind  string
		retryable bool
	}{
		{"server error", http.StatusInternalServerError, "server", true},
		{"bad gateway", http.StatusBadGateway, "server", true},
		{"validation error", http.StatusBadRequest, "validation", false},
		{"unprocessable", http.StatusUnprocessableEntity, "validation", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tt.status)
			}))
			defer server.Close()

			client := NewClient(server.URL, "cash_offer", 0)
			_, err := client.UpsertLead(context.Background(), testLead())
			if err == nil {
				t.Fatal("expected error")
			}

			var srvErr *ServerError
			var valErr *ValidationError
			switch tt.wantKind {
			case "server":
				if !errors.As(err, &srvErr) {
					t.Fatalf("expected ServerError, got %T: %v", err, err)
				}
			case "validation":
				if !errors.As(err, &valErr) {
					t.Fatalf("expected ValidationError, got %T: %v", err, err)
				}
			}
			if IsRetryable(err) != tt.retryable {
				t.Errorf("IsRetryable = %v, want %v", IsRetryable(err), tt.retryable)
			}
		})
	}
}

func TestUpsertLeadTimeoutIsNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client := NewClient(server.URL, "cash_offer", 20*time.Millisecond)
	_, err := client.UpsertLead(context.Background(), testLead())

	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("expected NetworkError, got %T: %v", err, err)
	}
	if !IsRetryable(err) {
		t.Error("timeout should be retryable")
	}
}

func TestUpsertLeadConnectionRefused(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", "cash_offer", 100*time.Millisecond)
	_, err := client.UpsertLead(context.Background(), testLead())

	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("expected NetworkError, got %T: %v", err, err)
	}
}

func TestVerifyCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload verifyPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("failed to decode verify payload: %v", err)
		}
		if payload.Code == "123456" {
			_, _ = w.Write([]byte("{}"))
			return
		}
		http.Error(w, `{"error":"invalid code"}`, http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewClient(server.URL, "cash_offer", 0)

	ok, err := client.VerifyCode(context.Background(), "123456", "crm-42", "cookie-1")
	if err != nil || !ok {
		t.Fatalf("VerifyCode(valid) = %v, %v", ok, err)
	}

	// Wrong code is a rejection, not a transport error
	ok, err = client.VerifyCode(context.Background(), "000000", "crm-42", "cookie-1")
	if err != nil {
		t.Fatalf("VerifyCode(rejected) err = %v, want nil", err)
	}
	if ok {
		t.Error("rejected code should return verified=false")
	}
}

func TestSubmitEnrichmentRecord(t *testing.T) {
	var got []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/re/saverecord" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		body := make([]byte, r.ContentLength)
		_, _ = r.Body.Read(body)
		got = body
		_ = json.NewEncoder(w).Encode(map[string]any{"record": map[string]string{"ok": "yes"}})
	}))
	defer server.Close()

	client := NewClient(server.URL, "cash_offer", 0)
	record := json.RawMessage(`{"parcel":"abc","sqft":1200}`)
	if err := client.SubmitEnrichmentRecord(context.Background(), record); err != nil {
		t.Fatalf("SubmitEnrichmentRecord failed: %v", err)
	}
	if string(got) != string(record) {
		t.Errorf("record sent = %s, want %s (opaque pass-through)", got, record)
	}
}
