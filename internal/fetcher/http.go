package fetcher

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/schoolrail/schoolrail-cli/internal/resilience"
)

// maxPageBytes caps how much of a source page we read. The ranked-school and
// station listing pages are well under this.
const maxPageBytes = 4 << 20

// HTTPOptions configures the HTTP fetcher.
type HTTPOptions struct {
	UserAgent    string
	Timeout      time.Duration
	MaxRetries   int
	RateLimiters map[string]*rate.Limiter
}

// DefaultRateLimiters returns per-host limiters for the hosts the pipeline
// scrapes. Wikipedia tolerates more than the school-ranking site does.
func DefaultRateLimiters() map[string]*rate.Limiter {
	return map[string]*rate.Limiter{
		"en.wikipedia.org":        rate.NewLimiter(5, 5),
		"bettereducation.com.au":  rate.NewLimiter(1, 2),
		"www.bettereducation.com": rate.NewLimiter(1, 2),
	}
}

// HTTPFetcher implements Fetcher using net/http with retry and per-host rate
// limiting.
type HTTPFetcher struct {
	client   *http.Client
	opts     HTTPOptions
	limiters map[string]*rate.Limiter
}

// NewHTTPFetcher creates an HTTPFetcher with the given options.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "schoolrail/1.0"
	}
	limiters := make(map[string]*rate.Limiter)
	for k, v := range opts.RateLimiters {
		limiters[k] = v
	}
	return &HTTPFetcher{
		client: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		opts:     opts,
		limiters: limiters,
	}
}

func (f *HTTPFetcher) limiterFor(rawURL string) *rate.Limiter {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rate.NewLimiter(2, 2)
	}
	if lim, ok := f.limiters[u.Host]; ok {
		return lim
	}
	return rate.NewLimiter(2, 2)
}

// do performs the request with rate limiting and transient-error retry.
// 429 and 5xx responses are retried; other non-2xx statuses surface to the
// caller as permanent fetch errors.
func (f *HTTPFetcher) do(ctx context.Context, req *http.Request) (*http.Response, error) {
	lim := f.limiterFor(req.URL.String())

	cfg := resilience.DefaultRetryConfig()
	cfg.MaxAttempts = f.opts.MaxRetries

	return resilience.DoVal(ctx, cfg, func(ctx context.Context) (*http.Response, error) {
		if err := lim.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "fetch: rate limiter wait")
		}

		resp, err := f.client.Do(req.Clone(ctx))
		if err != nil {
			return nil, resilience.NewTransientError(eris.Wrap(err, "fetch: request"), 0)
		}

		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			_ = resp.Body.Close()
			zap.L().Warn("transient http status, will retry",
				zap.String("url", req.URL.String()),
				zap.Int("status", resp.StatusCode),
			)
			return nil, resilience.NewTransientError(
				eris.Errorf("fetch: http %d from %s", resp.StatusCode, req.URL.String()),
				resp.StatusCode,
			)
		}

		return resp, nil
	})
}

// Download fetches the URL and returns the response body.
func (f *HTTPFetcher) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "fetch: create request")
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)

	resp, err := f.do(ctx, req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		return nil, eris.Errorf("fetch: unexpected status %d from %s", resp.StatusCode, rawURL)
	}

	return resp.Body, nil
}

// FetchPage fetches the URL and returns the document body as a string.
func (f *HTTPFetcher) FetchPage(ctx context.Context, rawURL string) (string, error) {
	body, err := f.Download(ctx, rawURL)
	if err != nil {
		return "", err
	}
	defer body.Close() //nolint:errcheck

	data, err := io.ReadAll(io.LimitReader(body, maxPageBytes))
	if err != nil {
		return "", eris.Wrap(err, "fetch: read body")
	}

	zap.L().Debug("fetched page", zap.String("url", rawURL), zap.Int("bytes", len(data)))
	return string(data), nil
}

// DownloadToFile fetches the URL and writes it to path.
func (f *HTTPFetcher) DownloadToFile(ctx context.Context, rawURL string, path string) (int64, error) {
	body, err := f.Download(ctx, rawURL)
	if err != nil {
		return 0, err
	}
	defer body.Close() //nolint:errcheck

	file, err := os.Create(path)
	if err != nil {
		return 0, eris.Wrap(err, "fetch: create file")
	}
	defer file.Close() //nolint:errcheck

	n, err := io.Copy(file, body)
	if err != nil {
		return n, eris.Wrap(err, "fetch: write file")
	}
	return n, nil
}
