// Package config handles application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	TelegramBotToken string
	DatabasePath     string
	LogLevel         string
	AllowedUsers     []int64

	FeedURL            string
	FeedRefreshSeconds int
	ProfileURLTemplate string
	SessionCookie      string
	UserAgent          string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}

	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		dbPath = "./data/filter.db"
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	feedURL := os.Getenv("FEED_URL")
	if feedURL == "" {
		feedURL = "https://old.reddit.com/new/.rss"
	}

	refresh := 60
	if raw := os.Getenv("FEED_REFRESH_SECONDS"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 5 {
			return nil, fmt.Errorf("FEED_REFRESH_SECONDS must be an integer >= 5, got %q", raw)
		}
		refresh = n
	}

	profileURL := os.Getenv("PROFILE_URL_TEMPLATE")
	if profileURL == "" {
		profileURL = "https://old.reddit.com/user/%s"
	}
	if !strings.Contains(profileURL, "%s") {
		return nil, fmt.Errorf("PROFILE_URL_TEMPLATE must contain a %%s placeholder for the handle")
	}

	userAgent := os.Getenv("USER_AGENT")
	if userAgent == "" {
		userAgent = "reddit-filter/1.0"
	}

	var allowedUsers []int64
	if raw := os.Getenv("ALLOWED_USERS"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			uid, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid user ID %q in ALLOWED_USERS: %w", s, err)
			}
			allowedUsers = append(allowedUsers, uid)
		}
	}

	return &Config{
		TelegramBotToken:   token,
		DatabasePath:       dbPath,
		LogLevel:           logLevel,
		AllowedUsers:       allowedUsers,
		FeedURL:            feedURL,
		FeedRefreshSeconds: refresh,
		ProfileURLTemplate: profileURL,
		SessionCookie:      os.Getenv("SESSION_COOKIE"),
		UserAgent:          userAgent,
	}, nil
}

// FeedRefreshInterval returns the feed refresh interval as a duration.
func (c *Config) FeedRefreshInterval() time.Duration {
	return time.Duration(c.FeedRefreshSeconds) * time.Second
}

// IsUserAllowed checks whether a user ID is in the allow list.
// Returns true if the allow list is empty (all users permitted).
func (c *Config) IsUserAllowed(userID int64) bool {
	if len(c.AllowedUsers) == 0 {
		return true
	}
	for _, id := range c.AllowedUsers {
		if id == userID {
			return true
		}
	}
	return false
}
