// ABOUTME: Address autocomplete provider boundary
// ABOUTME: Prediction and place-detail types plus a REST client implementation
package places

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Prediction is one autocomplete suggestion.
type Prediction struct {
	Description string `json:"description"`
	PlaceID     string `json:"place_id"`
}

// Details is the resolved place for a selected prediction. The engine
// consumes the formatted address and components only.
type Details struct {
	FormattedAddress string  `json:"formatted_address"`
	Street           string  `json:"street"`
	City             string  `json:"city"`
	Zip              string  `json:"zip"`
	Lat              float64 `json:"lat"`
	Lng              float64 `json:"lng"`
}

// Provider is the autocomplete surface the engine consumes.
type Provider interface {
	Predictions(ctx context.Context, text string) ([]Prediction, error)
	PlaceDetails(ctx context.Context, placeID string) (*Details, error)
}

// HTTPClient talks to a places-style REST service.
type HTTPClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewHTTPClient creates a places client. A zero timeout defaults to
// 10s.
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

// Predictions fetches autocomplete suggestions for partial input.
func (c *HTTPClient) Predictions(ctx context.Context, text string) ([]Prediction, error) {
	endpoint := fmt.Sprintf("%s/predictions?input=%s&key=%s",
		c.baseURL, url.QueryEscape(text), url.QueryEscape(c.apiKey))

	var out struct {
		Predictions []Prediction `json:"predictions"`
	}
	if err := c.getJSON(ctx, endpoint, &out); err != nil {
		return nil, fmt.Errorf("failed to fetch predictions: %w", err)
	}
	return out.Predictions, nil
}

// PlaceDetails resolves a selected prediction.
func (c *HTTPClient) PlaceDetails(ctx context.Context, placeID string) (*Details, error) {
	endpoint := fmt.Sprintf("%s/details?place_id=%s&key=%s",
		c.baseURL, url.QueryEscape(placeID), url.QueryEscape(c.apiKey))

	var out Details
	if err := c.getJSON(ctx, endpoint, &out); err != nil {
		return nil, fmt.Errorf("failed to fetch place details: %w", err)
	}
	return &out, nil
}

func (c *HTTPClient) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
