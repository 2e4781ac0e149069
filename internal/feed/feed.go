// Package feed maintains the visible snapshot of a Reddit listing feed.
//
// The source downloads the configured listing on an interval, derives post
// attributes from each entry, and signals a structure change whenever new
// items appear. Hiding a post removes it from the snapshot and pins it
// hidden across refreshes.
package feed

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"

	"reddit_filter/internal/filter"
	"reddit_filter/internal/model"
)

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

const maxBodySize = 5 * 1024 * 1024

var permalinkSubreddit = regexp.MustCompile(`/r/([^/]+)/`)

// Source fetches a listing feed and owns the visible post snapshot.
type Source struct {
	client    HTTPClient
	url       string
	log       *slog.Logger
	refresh   time.Duration
	userAgent string

	mu      sync.Mutex
	posts   []model.Post
	hidden  map[string]bool
	changes chan struct{}
}

// Option configures a Source.
type Option func(*Source)

// WithRefreshInterval overrides the default 60s refresh interval.
func WithRefreshInterval(d time.Duration) Option {
	return func(s *Source) { s.refresh = d }
}

// WithUserAgent overrides the request User-Agent.
func WithUserAgent(ua string) Option {
	return func(s *Source) { s.userAgent = ua }
}

// NewSource creates a Source for the given listing URL.
func NewSource(client HTTPClient, url string, log *slog.Logger, opts ...Option) *Source {
	s := &Source{
		client:    client,
		url:       url,
		log:       log,
		refresh:   60 * time.Second,
		userAgent: "reddit-filter/1.0",
		hidden:    make(map[string]bool),
		changes:   make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run refreshes the feed on the configured interval, blocking until ctx
// is cancelled. Fetch failures are logged; the previous snapshot stays.
func (s *Source) Run(ctx context.Context) {
	if err := s.Refresh(ctx); err != nil {
		s.log.Error("refresh feed", "url", s.url, "error", err)
	}

	ticker := time.NewTicker(s.refresh)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Refresh(ctx); err != nil {
				s.log.Error("refresh feed", "url", s.url, "error", err)
			}
		}
	}
}

// Refresh fetches the listing once and rebuilds the snapshot. A change
// is signalled when entries appear that the previous snapshot lacked.
func (s *Source) Refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("http get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}

	parsed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return fmt.Errorf("parse feed: %w", err)
	}

	s.mu.Lock()
	known := make(map[string]bool, len(s.posts))
	for _, p := range s.posts {
		known[p.ID] = true
	}

	var posts []model.Post
	added := false
	for _, item := range parsed.Items {
		p := postFromItem(item)
		if s.hidden[p.ID] {
			continue
		}
		if !known[p.ID] {
			added = true
		}
		posts = append(posts, p)
	}
	s.posts = posts
	s.mu.Unlock()

	if added {
		s.signal()
	}
	return nil
}

// Posts returns a copy of the current visible snapshot.
func (s *Source) Posts() []model.Post {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Post, len(s.posts))
	copy(out, s.posts)
	return out
}

// Count returns the number of visible posts.
func (s *Source) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.posts)
}

// Hide removes a post from the snapshot. Hidden posts do not come back
// on later refreshes. Reports whether the post was visible.
func (s *Source) Hide(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.hidden[id] = true
	for i, p := range s.posts {
		if p.ID == id {
			s.posts = append(s.posts[:i], s.posts[i+1:]...)
			return true
		}
	}
	return false
}

// Changes returns the structure-change notification channel.
func (s *Source) Changes() <-chan struct{} {
	return s.changes
}

func (s *Source) signal() {
	select {
	case s.changes <- struct{}{}:
	default:
	}
}

// postFromItem derives post attributes from one feed entry. Entries come
// in two shapes: category-labeled ones carry the subreddit directly,
// bare ones only reveal it through the permalink path. A missing
// attribute stays empty rather than failing the refresh.
func postFromItem(item *gofeed.Item) model.Post {
	p := model.Post{
		ID:        itemID(item),
		Title:     strings.TrimSpace(item.Title),
		Permalink: item.Link,
	}

	if len(item.Categories) > 0 && strings.TrimSpace(item.Categories[0]) != "" {
		p.Subreddit = filter.Canonical(item.Categories[0])
	} else if m := permalinkSubreddit.FindStringSubmatch(item.Link); m != nil {
		p.Subreddit = filter.Canonical(m[1])
	}

	if item.Author != nil {
		p.Author = normalizeHandle(item.Author.Name)
	}
	return p
}

// itemID returns the entry ID, falling back to a hash of title+link for
// feeds that omit one.
func itemID(item *gofeed.Item) string {
	if item.GUID != "" {
		return item.GUID
	}
	h := sha256.Sum256([]byte(item.Title + "|" + item.Link))
	return fmt.Sprintf("sha256:%x", h[:16])
}

// normalizeHandle strips the "/u/" prefix Reddit puts on author names.
func normalizeHandle(name string) string {
	name = strings.TrimSpace(name)
	name = strings.TrimPrefix(name, "/")
	name = strings.TrimPrefix(name, "u/")
	return name
}
