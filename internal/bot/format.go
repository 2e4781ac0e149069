package bot

import (
	"fmt"
	"strings"

	"reddit_filter/internal/model"
)

// FormatStatus formats the current rules and counters for display.
func FormatStatus(cfg model.FilterSettings, counters model.CounterState) string {
	var b strings.Builder

	state := "enabled"
	if !cfg.Enabled {
		state = "disabled"
	}
	fmt.Fprintf(&b, "Filtering: %s\n", state)

	if cfg.MinAccountAgeMonths > 0 {
		fmt.Fprintf(&b, "Minimum account age: %d month(s)\n", cfg.MinAccountAgeMonths)
	} else {
		b.WriteString("Minimum account age: off\n")
	}

	api := "active"
	if cfg.APIPaused {
		api = "paused"
	}
	fmt.Fprintf(&b, "Age lookups: %s\n", api)

	fmt.Fprintf(&b, "Keywords: %d\n", len(cfg.Keywords))
	fmt.Fprintf(&b, "Blocked subreddits: %d\n", len(cfg.BlockedSubreddits))

	b.WriteString("\n")
	b.WriteString(FormatCounters(counters))
	return b.String()
}

// FormatKeywords formats the keyword block-list.
func FormatKeywords(keywords []string) string {
	if len(keywords) == 0 {
		return "No keywords blocked. Use /block <word> to add one."
	}
	var b strings.Builder
	b.WriteString("Blocked keywords:\n")
	for i, kw := range keywords {
		fmt.Fprintf(&b, "%d. %s\n", i+1, kw)
	}
	return b.String()
}

// FormatSubreddits formats the subreddit block-list.
func FormatSubreddits(subs []string) string {
	if len(subs) == 0 {
		return "No subreddits blocked. Use /blocksub <name> to add one."
	}
	var b strings.Builder
	b.WriteString("Blocked subreddits:\n")
	for i, s := range subs {
		fmt.Fprintf(&b, "%d. %s\n", i+1, s)
	}
	return b.String()
}

// FormatCounters formats the removal counters.
func FormatCounters(c model.CounterState) string {
	return fmt.Sprintf("Removed today: %d\nRemoved total: %d", c.DailyRemoved, c.TotalRemoved)
}
