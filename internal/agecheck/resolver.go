// Package agecheck resolves and caches account creation dates from the
// Reddit profile page, under a shared rate budget.
package agecheck

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	gocache "github.com/patrickmn/go-cache"

	"reddit_filter/internal/model"
)

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

const (
	// cacheTTL is how long a resolved creation date stays live.
	cacheTTL = 1 * time.Hour

	// rateFloor is the safety margin kept in the rate budget: no request
	// is issued once the reported remaining budget is at or below it.
	rateFloor = 20

	// defaultRemaining seeds the budget before the first response
	// reports real headers; Reddit's window is roughly 500 requests.
	defaultRemaining = 500

	maxBodySize = 2 * 1024 * 1024
)

// Option configures a Resolver.
type Option func(*Resolver)

// WithProfileURL overrides the profile page URL template. The template
// must contain one %s verb for the account handle.
func WithProfileURL(tmpl string) Option {
	return func(r *Resolver) { r.profileURL = tmpl }
}

// WithSessionCookie sets the ambient session cookie sent with profile
// requests.
func WithSessionCookie(cookie string) Option {
	return func(r *Resolver) { r.sessionCookie = cookie }
}

// WithUserAgent overrides the request User-Agent.
func WithUserAgent(ua string) Option {
	return func(r *Resolver) { r.userAgent = ua }
}

// Resolver fetches account creation dates with a TTL cache, a per-handle
// in-flight guard, and a rate-budget safety floor.
type Resolver struct {
	client        HTTPClient
	log           *slog.Logger
	cache         *gocache.Cache
	profileURL    string
	sessionCookie string
	userAgent     string

	mu       sync.Mutex
	inflight map[string]bool
	rate     model.RateLimitState
	paused   bool
}

// New creates a Resolver with the given HTTP client.
func New(client HTTPClient, log *slog.Logger, opts ...Option) *Resolver {
	r := &Resolver{
		client:     client,
		log:        log,
		cache:      gocache.New(cacheTTL, 10*time.Minute),
		profileURL: "https://old.reddit.com/user/%s",
		userAgent:  "reddit-filter/1.0",
		inflight:   make(map[string]bool),
		rate:       model.RateLimitState{Remaining: defaultRemaining},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SetPaused mirrors the global API-pause flag from the settings.
func (r *Resolver) SetPaused(paused bool) {
	r.mu.Lock()
	r.paused = paused
	r.mu.Unlock()
}

// Budget returns a copy of the current rate-limit state.
func (r *Resolver) Budget() model.RateLimitState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rate
}

// BudgetHealthy reports whether the remaining rate budget is above the
// safety floor.
func (r *Resolver) BudgetHealthy() bool {
	return r.Budget().Remaining > rateFloor
}

// CreationDate resolves the creation date of an account. The boolean is
// false when the date is unavailable: pause flag set, budget exhausted, a
// request for the handle already in flight, or any network/parse failure.
// Unavailability is never an error; the caller keeps the post.
func (r *Resolver) CreationDate(ctx context.Context, handle string) (time.Time, bool) {
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return time.Time{}, false
	}

	if v, ok := r.cache.Get(handle); ok {
		return v.(time.Time), true
	}

	r.mu.Lock()
	if r.paused || r.rate.Remaining <= rateFloor || r.inflight[handle] {
		r.mu.Unlock()
		return time.Time{}, false
	}
	r.inflight[handle] = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		delete(r.inflight, handle)
		r.mu.Unlock()
	}()

	created, err := r.fetch(ctx, handle)
	if err != nil {
		r.log.Debug("age lookup failed", "handle", handle, "error", err)
		return time.Time{}, false
	}

	r.cache.Set(handle, created, gocache.DefaultExpiration)
	return created, true
}

func (r *Resolver) fetch(ctx context.Context, handle string) (time.Time, error) {
	url := fmt.Sprintf(r.profileURL, handle)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return time.Time{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", r.userAgent)
	req.Header.Set("Accept", "text/html")
	if r.sessionCookie != "" {
		req.Header.Set("Cookie", r.sessionCookie)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return time.Time{}, fmt.Errorf("http get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	r.updateRateLimit(resp.Header)

	if resp.StatusCode != http.StatusOK {
		return time.Time{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return time.Time{}, fmt.Errorf("read body: %w", err)
	}

	created, err := extractCreationDate(strings.NewReader(string(body)))
	if err != nil {
		return time.Time{}, fmt.Errorf("extract creation date: %w", err)
	}
	return created, nil
}

// updateRateLimit records the rate headers from the latest response.
// Reddit reports Remaining/Used as decimals and Reset as seconds until
// the window rolls over.
func (r *Resolver) updateRateLimit(h http.Header) {
	remaining, okRemaining := parseRateValue(h.Get("X-Ratelimit-Remaining"))
	used, okUsed := parseRateValue(h.Get("X-Ratelimit-Used"))
	reset, okReset := parseRateValue(h.Get("X-Ratelimit-Reset"))

	if !okRemaining && !okUsed && !okReset {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if okRemaining {
		r.rate.Remaining = remaining
	}
	if okUsed {
		r.rate.Used = used
	}
	if okReset {
		r.rate.ResetAt = time.Now().Add(time.Duration(reset) * time.Second)
	}
}

func parseRateValue(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return int(f), true
}

// extractCreationDate pulls the account creation timestamp out of the
// profile page. Two strategies are tried in order: the age block of the
// profile sidebar, then any timestamped element as a fallback.
func extractCreationDate(body io.Reader) (time.Time, error) {
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse html: %w", err)
	}

	if ts, ok := doc.Find("span.age time").First().Attr("datetime"); ok {
		if t, err := parseTimestamp(ts); err == nil {
			return t, nil
		}
	}

	if ts, ok := doc.Find("time[datetime]").First().Attr("datetime"); ok {
		if t, err := parseTimestamp(ts); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("no parseable creation date in profile page")
}

func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	// Some renderings drop the zone designator.
	return time.Parse("2006-01-02T15:04:05", s)
}
