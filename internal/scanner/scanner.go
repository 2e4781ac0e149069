// Package scanner classifies feed posts and removes the ones that match
// the configured rules.
package scanner

import (
	"context"
	"log/slog"
	"time"

	"reddit_filter/internal/agecheck"
	"reddit_filter/internal/counter"
	"reddit_filter/internal/filter"
	"reddit_filter/internal/model"
)

// Feed is the post snapshot the scanner works on.
type Feed interface {
	Posts() []model.Post
	Hide(id string) bool
}

// AgeResolver resolves account creation dates.
type AgeResolver interface {
	CreationDate(ctx context.Context, handle string) (time.Time, bool)
	BudgetHealthy() bool
}

// Scanner runs the removal decision over the current feed snapshot.
type Scanner struct {
	feed     Feed
	resolver AgeResolver
	counters *counter.Tracker
	log      *slog.Logger
	now      func() time.Time
}

// New creates a Scanner.
func New(feed Feed, resolver AgeResolver, counters *counter.Tracker, log *slog.Logger) *Scanner {
	return &Scanner{
		feed:     feed,
		resolver: resolver,
		counters: counters,
		log:      log,
		now:      time.Now,
	}
}

// SetNowFunc overrides the clock, for tests.
func (s *Scanner) SetNowFunc(now func() time.Time) {
	s.now = now
}

// Scan runs two passes over the snapshot and returns the removal count.
//
// Pass 1 removes keyword and subreddit matches synchronously and queues
// age-check candidates. Pass 2 resolves account ages out of the critical
// path; an unavailable age keeps the post. Every removal increments and
// persists the counters.
func (s *Scanner) Scan(ctx context.Context, settings model.FilterSettings) int {
	if !settings.Enabled {
		return 0
	}

	removed := 0
	var pending []model.Post

	for _, post := range s.feed.Posts() {
		if kw, ok := filter.MatchKeyword(post.Title, settings.Keywords); ok {
			if s.remove(ctx, post, "keyword", kw) {
				removed++
			}
			continue
		}
		if filter.IsBlockedSubreddit(post.Subreddit, settings.BlockedSubreddits) {
			if s.remove(ctx, post, "subreddit", post.Subreddit) {
				removed++
			}
			continue
		}
		if s.wantsAgeCheck(settings, post) {
			pending = append(pending, post)
		}
	}

	for _, post := range pending {
		if ctx.Err() != nil {
			return removed
		}
		createdAt, ok := s.resolver.CreationDate(ctx, post.Author)
		if !ok {
			s.log.Debug("account age unavailable, keeping post", "post_id", post.ID, "author", post.Author)
			continue
		}
		if agecheck.TooYoung(createdAt, settings.MinAccountAgeMonths, s.now()) {
			if s.remove(ctx, post, "account_age", post.Author) {
				removed++
			}
		}
	}

	return removed
}

func (s *Scanner) wantsAgeCheck(settings model.FilterSettings, post model.Post) bool {
	return settings.MinAccountAgeMonths > 0 &&
		!settings.APIPaused &&
		post.Author != "" &&
		s.resolver.BudgetHealthy()
}

func (s *Scanner) remove(ctx context.Context, post model.Post, reason, matched string) bool {
	if !s.feed.Hide(post.ID) {
		return false
	}
	s.log.Info("removed post",
		"post_id", post.ID,
		"title", post.Title,
		"subreddit", post.Subreddit,
		"reason", reason,
		"matched", matched,
	)
	s.counters.Record(ctx)
	return true
}
