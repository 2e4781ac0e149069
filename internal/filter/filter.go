// Package filter implements the post matching rules.
package filter

import (
	"regexp"
	"strings"
)

// MatchKeyword tests a post title against the keyword block-list.
// Matching is whole-word and case-insensitive; list entries are treated
// as literal text, so regex metacharacters never change the match.
// The first matching keyword in list order is returned.
func MatchKeyword(title string, keywords []string) (string, bool) {
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(kw) + `\b`)
		if err != nil {
			continue
		}
		if re.MatchString(title) {
			return kw, true
		}
	}
	return "", false
}

// IsBlockedSubreddit reports whether name matches an entry of the
// block-list exactly, after both sides are canonicalized. There is no
// substring or prefix matching: "r/politics" does not block "r/politics2".
func IsBlockedSubreddit(name string, blocked []string) bool {
	if name == "" {
		return false
	}
	canon := Canonical(name)
	for _, b := range blocked {
		if strings.EqualFold(canon, Canonical(b)) {
			return true
		}
	}
	return false
}

// Canonical normalizes a subreddit name to the "r/name" form.
func Canonical(name string) string {
	name = strings.TrimSpace(name)
	name = strings.TrimPrefix(name, "/")
	if !strings.HasPrefix(strings.ToLower(name), "r/") {
		return "r/" + name
	}
	// Preserve the name part as given; only the prefix is normalized.
	return "r/" + name[2:]
}
