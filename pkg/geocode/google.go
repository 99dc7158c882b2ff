package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
)

const defaultGoogleGeocodeURL = "https://maps.googleapis.com/maps/api/geocode/json"

// GoogleProvider geocodes via the Google Geocoding API. Used as a fallback
// when Nominatim misses; gated on an API key being configured.
type GoogleProvider struct {
	key        string
	baseURL    string
	httpClient *http.Client
}

// GoogleOption configures the provider.
type GoogleOption func(*GoogleProvider)

// WithGoogleBaseURL overrides the API base URL (tests).
func WithGoogleBaseURL(u string) GoogleOption {
	return func(p *GoogleProvider) { p.baseURL = u }
}

// WithGoogleHTTPClient sets a custom HTTP client.
func WithGoogleHTTPClient(hc *http.Client) GoogleOption {
	return func(p *GoogleProvider) { p.httpClient = hc }
}

// NewGoogleProvider creates a GoogleProvider with the given API key.
func NewGoogleProvider(key string, opts ...GoogleOption) *GoogleProvider {
	p := &GoogleProvider{
		key:        key,
		baseURL:    defaultGoogleGeocodeURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name implements Provider.
func (p *GoogleProvider) Name() string { return "google" }

// Available implements Provider.
func (p *GoogleProvider) Available() bool { return p.key != "" }

// googleGeocodeResponse is the JSON response from the Google Geocoding API.
type googleGeocodeResponse struct {
	Results []struct {
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
	Status string `json:"status"`
}

// Geocode implements Provider.
func (p *GoogleProvider) Geocode(ctx context.Context, q Query) (*Result, error) {
	if p.key == "" {
		return nil, eris.New("google: api key not configured")
	}

	params := url.Values{
		"address": {q.text()},
		"key":     {p.key},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "google: build request")
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "google: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("google: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "google: read body")
	}

	var gr googleGeocodeResponse
	if err := json.Unmarshal(body, &gr); err != nil {
		return nil, eris.Wrap(err, "google: parse response")
	}

	if gr.Status != "OK" || len(gr.Results) == 0 {
		return &Result{Matched: false, Source: "google"}, nil
	}

	loc := gr.Results[0].Geometry.Location
	return &Result{
		Latitude:  loc.Lat,
		Longitude: loc.Lng,
		Source:    "google",
		Matched:   true,
	}, nil
}
