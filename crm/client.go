// ABOUTME: HTTP adapter for the remote lead-tracking CRM
// ABOUTME: Upserts leads, verifies SMS codes, and uploads enrichment records with a request timeout
package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/quickclose/leadsync/models"
	"github.com/quickclose/leadsync/validate"
)

// DefaultTimeout bounds every CRM request. Timeouts surface as
// NetworkError so the retry path engages.
const DefaultTimeout = 12 * time.Second

const (
	registerPath   = "/api/re/RegisterReUser"
	verifyCodePath = "/api/re/verifycode"
	saveRecordPath = "/api/re/saverecord"
)

// Client talks to the remote CRM. It is the only component in the
// module that performs network I/O.
type Client struct {
	baseURL  string
	leadType string
	http     *http.Client
}

// NewClient creates a CRM client for baseURL. leadType tags every
// registered lead with the funnel family. A zero timeout falls back to
// DefaultTimeout.
func NewClient(baseURL, leadType string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:  baseURL,
		leadType: leadType,
		http:     &http.Client{Timeout: timeout},
	}
}

// registerPayload is the wire shape of the lead upsert. Secondary
// fields travel in the data envelope.
type registerPayload struct {
	Name          string         `json:"name"`
	PhoneNumber   string         `json:"phoneNumber"`
	Email         string         `json:"email"`
	Cookie        string         `json:"cookie"`
	City          string         `json:"city"`
	Zip           string         `json:"zip"`
	StreetAddress string         `json:"streetAddress"`
	LeadType      string         `json:"leadType"`
	State         string         `json:"state"`
	URL           string         `json:"url"`
	Data          map[string]any `json:"data"`
}

type registerResponse struct {
	ID string `json:"id"`
}

// UpsertLead sends the full lead snapshot to the CRM and returns the
// remote lead ID. Safe to retry; the CRM upserts on the cookie, it does
// not recreate.
func (c *Client) UpsertLead(ctx context.Context, lead models.Lead) (string, error) {
	payload := registerPayload{
		Name:          lead.Name.Value,
		PhoneNumber:   validate.FormatPhoneProgressive(lead.Phone.Value),
		Email:         lead.Email.Value,
		Cookie:        lead.LocalID,
		City:          lead.City.Value,
		Zip:           lead.Zip.Value,
		StreetAddress: lead.Street.Value,
		LeadType:      c.leadType,
		State:         lead.LeadStage,
		URL:           lead.Attribution.URL,
		Data:          secondaryData(lead),
	}

	var resp registerResponse
	if err := c.post(ctx, registerPath, payload, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// secondaryData flattens attribution, enrichment, and qualifier
// progress into the data envelope.
func secondaryData(lead models.Lead) map[string]any {
	data := map[string]any{
		"campaignId":    lead.Attribution.CampaignID,
		"campaignName":  lead.Attribution.CampaignName,
		"adGroupId":     lead.Attribution.AdGroupID,
		"adGroupName":   lead.Attribution.AdGroupName,
		"keyword":       lead.Attribution.Keyword,
		"device":        lead.Attribution.Device,
		"gclid":         lead.Attribution.GCLID,
		"trafficSource": lead.Attribution.TrafficSource,
		"leadStage":     lead.LeadStage,
	}
	if lead.Enrichment.OwnerName != "" {
		data["ownerName"] = lead.Enrichment.OwnerName
	}
	if lead.Enrichment.EstimatedValue > 0 {
		data["estimatedValue"] = lead.Enrichment.EstimatedValue
	}
	if lead.Enrichment.MaxEstimatedValue > 0 {
		data["maxEstimatedValue"] = lead.Enrichment.MaxEstimatedValue
	}
	for _, a := range lead.QualifyingAnswers {
		data["q_"+a.Key] = a.Value
	}
	return data
}

type verifyPayload struct {
	Code   string `json:"code"`
	UserID string `json:"userId"`
	Cookie string `json:"cookie"`
}

// VerifyCode checks an SMS verification code against the CRM. A
// rejected code returns (false, nil): it is a user-correctable outcome,
// not a transport failure, and is never retried automatically.
func (c *Client) VerifyCode(ctx context.Context, code, remoteID, cookie string) (bool, error) {
	payload := verifyPayload{Code: code, UserID: remoteID, Cookie: cookie}

	err := c.post(ctx, verifyCodePath, payload, nil)
	if err != nil {
		var vErr *ValidationError
		if errors.As(err, &vErr) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

type saveRecordResponse struct {
	Record json.RawMessage `json:"record"`
}

// SubmitEnrichmentRecord uploads the opaque property record. Safe to
// retry.
func (c *Client) SubmitEnrichmentRecord(ctx context.Context, record json.RawMessage) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+saveRecordPath, bytes.NewReader(record))
	if err != nil {
		return fmt.Errorf("failed to build saverecord request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var resp saveRecordResponse
	return c.do(req, &resp)
}

// post marshals payload, issues the request, and decodes the response
// into out when non-nil.
func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return &NetworkError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &NetworkError{Err: err}
	}

	switch {
	case resp.StatusCode >= 500:
		return &ServerError{Status: resp.StatusCode, Body: string(body)}
	case resp.StatusCode >= 400:
		return &ValidationError{Status: resp.StatusCode, Body: string(body)}
	}

	if out != nil && len(body) > 0 {
		if err := json.Unmarshal(body, out); err != nil {
			return &ServerError{Status: resp.StatusCode, Body: fmt.Sprintf("undecodable response: %v", err)}
		}
	}
	return nil
}
