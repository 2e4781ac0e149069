// Package model defines the domain types used across the application.
package model

import "time"

// FilterSettings holds the user-configurable filtering rules.
// Persisted as a JSON blob under a fixed storage key and re-broadcast
// to the engine after every mutation.
type FilterSettings struct {
	Keywords            []string `json:"keywords"`
	BlockedSubreddits   []string `json:"blockedSubreddits"`
	Enabled             bool     `json:"enabled"`
	MinAccountAgeMonths int      `json:"minAccountAgeMonths"`
	APIPaused           bool     `json:"apiPaused"`
}

// CounterState tracks removal statistics.
// DailyRemoved resets to zero whenever the current date differs from
// LastResetDate; TotalRemoved never resets.
type CounterState struct {
	TotalRemoved  int    `json:"totalRemoved"`
	DailyRemoved  int    `json:"dailyRemoved"`
	LastResetDate string `json:"lastResetDate"`
}

// RateLimitState reflects the most recent rate-limit headers reported by
// the profile endpoint. Mutated only by the age resolver.
type RateLimitState struct {
	Remaining int
	Used      int
	ResetAt   time.Time
}

// Post is a transient view over one feed item. Attributes are derived
// when the feed snapshot is built and are never persisted.
type Post struct {
	ID        string
	Title     string
	Subreddit string
	Author    string
	Permalink string
}
