package fetcher

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/lanceiro/radar-cli/internal/resilience"
)

// HTTPOptions configures the HTTP fetcher.
type HTTPOptions struct {
	UserAgent   string
	Timeout     time.Duration
	Retry       resilience.RetryConfig
	HostRates   map[string]rate.Limit // requests/sec overrides per host
	DefaultRate rate.Limit            // applied to hosts without an override
	Burst       int
}

// HTTPFetcher implements Fetcher using net/http. Each host gets its own
// limiter; a 429 from a host halves that host's rate for the rest of the
// process lifetime.
type HTTPFetcher struct {
	client *http.Client
	opts   HTTPOptions

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewHTTPFetcher creates a new HTTPFetcher with the given options.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "radar-cli/1.0"
	}
	if opts.DefaultRate == 0 {
		opts.DefaultRate = 5
	}
	if opts.Burst == 0 {
		opts.Burst = 5
	}
	transport := &http.Transport{
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     20,
		IdleConnTimeout:     90 * time.Second,
	}
	return &HTTPFetcher{
		client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		opts:     opts,
		limiters: make(map[string]*rate.Limiter),
	}
}

// limiterFor returns the limiter for a host, creating it on first use.
func (f *HTTPFetcher) limiterFor(host string) *rate.Limiter {
	f.mu.Lock()
	defer f.mu.Unlock()
	if lim, ok := f.limiters[host]; ok {
		return lim
	}
	r := f.opts.DefaultRate
	if override, ok := f.opts.HostRates[host]; ok {
		r = override
	}
	lim := rate.NewLimiter(r, f.opts.Burst)
	f.limiters[host] = lim
	return lim
}

// slowDown halves a host's rate after a 429, bottoming out at 1 req/4s.
func (f *HTTPFetcher) slowDown(host string) {
	lim := f.limiterFor(host)
	newRate := lim.Limit() / 2
	if newRate < 0.25 {
		newRate = 0.25
	}
	lim.SetLimit(newRate)
	zap.L().Warn("fetcher: host rate limited, slowing down",
		zap.String("host", host),
		zap.Float64("new_rate", float64(newRate)),
	)
}

// Download fetches the URL and returns the response body. Transient
// failures (429, 5xx, network errors) are retried with backoff.
func (f *HTTPFetcher) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: parse url %q", rawURL)
	}

	cfg := f.opts.Retry
	if cfg.OnRetry == nil {
		cfg.OnRetry = resilience.RetryLogger("fetcher", "download")
	}

	body, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) (io.ReadCloser, error) {
		if err := f.limiterFor(u.Host).Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "fetcher: rate limiter wait")
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, eris.Wrap(err, "fetcher: create request")
		}
		req.Header.Set("User-Agent", f.opts.UserAgent)

		resp, err := f.client.Do(req)
		if err != nil {
			return nil, resilience.NewTransientError(err, 0)
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			return resp.Body, nil
		case resp.StatusCode == http.StatusTooManyRequests:
			_ = resp.Body.Close()
			f.slowDown(u.Host)
			return nil, resilience.NewTransientError(
				eris.Errorf("fetcher: http 429 from %s", rawURL), resp.StatusCode)
		case resilience.IsTransientHTTPStatus(resp.StatusCode):
			_ = resp.Body.Close()
			return nil, resilience.NewTransientError(
				eris.Errorf("fetcher: http %d from %s", resp.StatusCode, rawURL), resp.StatusCode)
		default:
			_ = resp.Body.Close()
			return nil, eris.Errorf("fetcher: unexpected status %d from %s", resp.StatusCode, rawURL)
		}
	})
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: download %s", rawURL)
	}
	return body, nil
}

// DownloadToFile fetches the URL and writes it to the given path.
func (f *HTTPFetcher) DownloadToFile(ctx context.Context, rawURL string, path string) (int64, error) {
	body, err := f.Download(ctx, rawURL)
	if err != nil {
		return 0, err
	}
	defer body.Close() //nolint:errcheck

	file, err := os.Create(path)
	if err != nil {
		return 0, eris.Wrap(err, "fetcher: create file")
	}
	defer file.Close() //nolint:errcheck

	n, err := io.Copy(file, body)
	if err != nil {
		return n, eris.Wrap(err, "fetcher: write file")
	}

	return n, nil
}
