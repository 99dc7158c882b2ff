package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/schoolrail/schoolrail-cli/internal/resilience"
)

const defaultNominatimBaseURL = "https://nominatim.openstreetmap.org"

// NominatimProvider geocodes free-text queries against OSM Nominatim.
// Nominatim's usage policy allows at most 1 request/s, enforced here.
type NominatimProvider struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NominatimOption configures the provider.
type NominatimOption func(*NominatimProvider)

// WithNominatimBaseURL overrides the API base URL (tests, self-hosted).
func WithNominatimBaseURL(u string) NominatimOption {
	return func(p *NominatimProvider) { p.baseURL = u }
}

// WithNominatimHTTPClient sets a custom HTTP client.
func WithNominatimHTTPClient(hc *http.Client) NominatimOption {
	return func(p *NominatimProvider) { p.httpClient = hc }
}

// WithNominatimRateLimit overrides the requests-per-second limit.
func WithNominatimRateLimit(rps float64) NominatimOption {
	return func(p *NominatimProvider) { p.limiter = rate.NewLimiter(rate.Limit(rps), 1) }
}

// NewNominatimProvider creates a NominatimProvider.
func NewNominatimProvider(userAgent string, opts ...NominatimOption) *NominatimProvider {
	p := &NominatimProvider{
		baseURL:    defaultNominatimBaseURL,
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		limiter:    rate.NewLimiter(1, 1),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name implements Provider.
func (p *NominatimProvider) Name() string { return "nominatim" }

// Available implements Provider.
func (p *NominatimProvider) Available() bool { return true }

// nominatimPlace is one entry of the Nominatim search response. Coordinates
// come back as strings.
type nominatimPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Geocode implements Provider.
func (p *NominatimProvider) Geocode(ctx context.Context, q Query) (*Result, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "nominatim: rate limit")
	}

	params := url.Values{
		"q":      {q.text()},
		"format": {"json"},
		"limit":  {"1"},
	}
	reqURL := p.baseURL + "/search?" + params.Encode()

	cfg := resilience.DefaultRetryConfig()
	return resilience.DoVal(ctx, cfg, func(ctx context.Context) (*Result, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, eris.Wrap(err, "nominatim: build request")
		}
		req.Header.Set("User-Agent", p.userAgent)

		resp, err := p.httpClient.Do(req)
		if err != nil {
			return nil, resilience.NewTransientError(eris.Wrap(err, "nominatim: request"), 0)
		}
		defer resp.Body.Close() //nolint:errcheck

		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(
				eris.Errorf("nominatim: status %d", resp.StatusCode), resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, eris.Errorf("nominatim: status %d", resp.StatusCode)
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, eris.Wrap(err, "nominatim: read body")
		}

		var places []nominatimPlace
		if err := json.Unmarshal(body, &places); err != nil {
			return nil, eris.Wrap(err, "nominatim: parse response")
		}
		if len(places) == 0 {
			return &Result{Matched: false, Source: "nominatim"}, nil
		}

		lat, err := strconv.ParseFloat(places[0].Lat, 64)
		if err != nil {
			return nil, eris.Wrap(err, "nominatim: parse lat")
		}
		lon, err := strconv.ParseFloat(places[0].Lon, 64)
		if err != nil {
			return nil, eris.Wrap(err, "nominatim: parse lon")
		}

		return &Result{
			Latitude:  lat,
			Longitude: lon,
			Source:    "nominatim",
			Matched:   true,
		}, nil
	})
}
