package bot

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"reddit_filter/internal/filter"
)

var subredditName = regexp.MustCompile(`^[A-Za-z0-9_]{2,21}$`)

// ParseKeywordArg extracts a keyword or phrase from command arguments.
func ParseKeywordArg(args string) (string, error) {
	kw := strings.TrimSpace(args)
	if kw == "" {
		return "", fmt.Errorf("keyword is required")
	}
	return kw, nil
}

// ParseSubredditArg extracts a subreddit in canonical "r/name" form.
// Accepts "name", "r/name", and "/r/name".
func ParseSubredditArg(args string) (string, error) {
	s := strings.TrimSpace(args)
	if s == "" {
		return "", fmt.Errorf("usage: <subreddit>, e.g. r/politics")
	}
	canon := filter.Canonical(s)
	if !subredditName.MatchString(strings.TrimPrefix(canon, "r/")) {
		return "", fmt.Errorf("invalid subreddit name %q", s)
	}
	return canon, nil
}

// ParseMinAgeArg extracts a minimum account age in months.
func ParseMinAgeArg(args string) (int, error) {
	s := strings.TrimSpace(args)
	if s == "" {
		return 0, fmt.Errorf("usage: /minage <months> (0 disables the check)")
	}
	months, err := strconv.Atoi(strings.Fields(s)[0])
	if err != nil || months < 0 || months > 600 {
		return 0, fmt.Errorf("months must be between 0 and 600")
	}
	return months, nil
}
