// Package fetcher performs the outbound HTTP calls to geocoding and data
// providers with per-host rate limiting and the resilience guard.
package fetcher

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/geoassist/internal/resilience"
)

// Fetcher is the outbound HTTP surface used by provider clients.
type Fetcher interface {
	// GetJSON fetches rawURL and decodes the JSON body into v.
	GetJSON(ctx context.Context, rawURL string, v any) error
	// GetText fetches rawURL and returns the raw body.
	GetText(ctx context.Context, rawURL string) ([]byte, error)
	// PostForm posts form to rawURL and returns the raw body.
	PostForm(ctx context.Context, rawURL string, form url.Values) ([]byte, error)
}

// HTTPOptions configures the HTTP fetcher.
type HTTPOptions struct {
	UserAgent      string
	AcceptLanguage string
	Timeout        time.Duration
	MaxBodyBytes   int64
	RateLimiters   map[string]*AdaptiveLimiter
	Guard          *resilience.Guard
}

// AdaptiveLimiter wraps a rate.Limiter that backs off on 429.
// On 429 it halves the rate (down to ceiling/4); each success recovers 20%
// up to the configured ceiling, which is never exceeded.
type AdaptiveLimiter struct {
	mu          sync.Mutex
	limiter     *rate.Limiter
	ceiling     rate.Limit
	floor       rate.Limit
	currentRate rate.Limit
}

// NewAdaptiveLimiter creates a limiter starting at, and capped by, ceiling.
func NewAdaptiveLimiter(ceiling rate.Limit, burst int) *AdaptiveLimiter {
	return &AdaptiveLimiter{
		limiter:     rate.NewLimiter(ceiling, burst),
		ceiling:     ceiling,
		floor:       ceiling / 4,
		currentRate: ceiling,
	}
}

// Wait blocks until the limiter allows an event.
func (a *AdaptiveLimiter) Wait(ctx context.Context) error {
	return a.limiter.Wait(ctx)
}

// OnSuccess moves the rate 20% back toward the ceiling.
func (a *AdaptiveLimiter) OnSuccess() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.currentRate >= a.ceiling {
		return
	}
	newRate := a.currentRate * 1.2
	if newRate > a.ceiling {
		newRate = a.ceiling
	}
	a.currentRate = newRate
	a.limiter.SetLimit(newRate)
}

// OnRateLimit halves the rate after a 429.
func (a *AdaptiveLimiter) OnRateLimit(host string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	newRate := a.currentRate * 0.5
	if newRate < a.floor {
		newRate = a.floor
	}
	a.currentRate = newRate
	a.limiter.SetLimit(newRate)
	zap.L().Warn("adaptive rate limit: reducing rate after 429",
		zap.String("host", host),
		zap.Float64("new_rate", float64(newRate)),
	)
}

// Limit returns the current rate limit.
func (a *AdaptiveLimiter) Limit() rate.Limit {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.currentRate
}

// DefaultRateLimiters returns limiters for hosts with published usage
// policies. Nominatim allows one request per second.
func DefaultRateLimiters() map[string]*AdaptiveLimiter {
	return map[string]*AdaptiveLimiter{
		"nominatim.openstreetmap.org": NewAdaptiveLimiter(1, 1),
		"query.wikidata.org":          NewAdaptiveLimiter(5, 5),
		"overpass-api.de":             NewAdaptiveLimiter(2, 2),
		"api.waqi.info":               NewAdaptiveLimiter(10, 10),
	}
}

// HTTPFetcher implements Fetcher using net/http.
type HTTPFetcher struct {
	client   *http.Client
	opts     HTTPOptions
	limiters map[string]*AdaptiveLimiter
	fallback *rate.Limiter
}

// NewHTTPFetcher creates a new HTTPFetcher with the given options.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "geoassist/1.0"
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 8 << 20
	}
	limiters := opts.RateLimiters
	if limiters == nil {
		limiters = DefaultRateLimiters()
	}
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
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
		limiters: limiters,
		fallback: rate.NewLimiter(20, 20),
	}
}

// WithClient swaps the underlying HTTP client. Used by tests to redirect
// provider hosts to a local server.
func (f *HTTPFetcher) WithClient(c *http.Client) *HTTPFetcher {
	cp := *f
	cp.client = c
	return &cp
}

// GetJSON implements Fetcher.
func (f *HTTPFetcher) GetJSON(ctx context.Context, rawURL string, v any) error {
	body, err := f.send(ctx, http.MethodGet, rawURL, nil, "application/json")
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return eris.Wrapf(err, "decode json from %s", hostOf(rawURL))
	}
	return nil
}

// GetText implements Fetcher.
func (f *HTTPFetcher) GetText(ctx context.Context, rawURL string) ([]byte, error) {
	return f.send(ctx, http.MethodGet, rawURL, nil, "")
}

// PostForm implements Fetcher.
func (f *HTTPFetcher) PostForm(ctx context.Context, rawURL string, form url.Values) ([]byte, error) {
	return f.send(ctx, http.MethodPost, rawURL, form, "")
}

func (f *HTTPFetcher) send(ctx context.Context, method, rawURL string, form url.Values, accept string) ([]byte, error) {
	host := hostOf(rawURL)
	return resilience.Do(ctx, f.opts.Guard, host, func(ctx context.Context) ([]byte, error) {
		var body io.Reader
		if form != nil {
			body = strings.NewReader(form.Encode())
		}
		req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
		if err != nil {
			return nil, eris.Wrap(err, "create request")
		}
		req.Header.Set("User-Agent", f.opts.UserAgent)
		if f.opts.AcceptLanguage != "" {
			req.Header.Set("Accept-Language", f.opts.AcceptLanguage)
		}
		if accept != "" {
			req.Header.Set("Accept", accept)
		}
		if form != nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
		return f.do(ctx, req, host)
	})
}

func (f *HTTPFetcher) do(ctx context.Context, req *http.Request, host string) ([]byte, error) {
	adaptive := f.limiters[host]
	if adaptive != nil {
		if err := adaptive.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "rate limiter wait")
		}
	} else if err := f.fallback.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "rate limiter wait")
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		zap.L().Debug("http request failed",
			zap.String("host", host),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return nil, eris.Wrapf(err, "%s %s", req.Method, host)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode == http.StatusTooManyRequests && adaptive != nil {
		adaptive.OnRateLimit(host)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		zap.L().Debug("upstream returned non-2xx",
			zap.String("host", host),
			zap.Int("status", resp.StatusCode),
		)
		return nil, &resilience.StatusError{Host: host, StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.opts.MaxBodyBytes))
	if err != nil {
		return nil, eris.Wrapf(err, "read body from %s", host)
	}
	if adaptive != nil {
		adaptive.OnSuccess()
	}
	return data, nil
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	return u.Host
}
