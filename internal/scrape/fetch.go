// Package scrape fetches a company website's contact pages and pulls
// email addresses and named people out of them.
package scrape

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/Xprriacst/google-maps-scraper/internal/resilience"
)

const (
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	defaultTimeout   = 10 * time.Second
	defaultRPS       = 2
	maxBodyBytes     = 2 << 20
)

// FetcherConfig tunes a Fetcher. Zero values select the defaults.
type FetcherConfig struct {
	Timeout           time.Duration
	RequestsPerSecond float64
	UserAgent         string
}

// Fetcher downloads HTML pages, pacing requests per host.
type Fetcher struct {
	client *http.Client
	ua     string
	rps    float64

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewFetcher creates a Fetcher. A nil client gets one with cfg.Timeout.
func NewFetcher(cfg FetcherConfig, client *http.Client) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = defaultRPS
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Fetcher{
		client:   client,
		ua:       cfg.UserAgent,
		rps:      cfg.RequestsPerSecond,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (f *Fetcher) limiter(host string) *rate.Limiter {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.limiters[host]
	if !ok {
		l = rate.NewLimiter(rate.Limit(f.rps), 1)
		f.limiters[host] = l
	}
	return l
}

// Fetch downloads and parses one page. Non-200 responses, bot walls and
// non-HTML bodies are errors.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (*Page, error) {
	u, err := url.Parse(pageURL)
	if err != nil || u.Host == "" {
		return nil, eris.Errorf("scrape: invalid url %q", pageURL)
	}
	if err := f.limiter(strings.ToLower(u.Hostname())).Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "scrape: rate limit")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "scrape: create request")
	}
	req.Header.Set("User-Agent", f.ua)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "fr-FR,fr;q=0.9,en;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "scrape: get %s", pageURL)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, eris.Wrap(err, "scrape: read body")
	}

	if blocked, bt := DetectBlock(resp, body); blocked {
		return nil, eris.Errorf("scrape: %s blocked (%s)", pageURL, bt)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, resilience.StatusError("scrape", resp.StatusCode, nil)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "html") {
		return nil, eris.Errorf("scrape: %s is %s, not html", pageURL, ct)
	}

	// Redirects may have moved us; links resolve against the final URL.
	final := pageURL
	if resp.Request != nil && resp.Request.URL != nil {
		final = resp.Request.URL.String()
	}
	page, err := Parse(final, body)
	if err != nil {
		return nil, err
	}
	page.StatusCode = resp.StatusCode
	return page, nil
}
