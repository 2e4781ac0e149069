package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"reddit_filter/internal/agecheck"
	"reddit_filter/internal/bot"
	"reddit_filter/internal/bus"
	"reddit_filter/internal/config"
	"reddit_filter/internal/counter"
	"reddit_filter/internal/engine"
	"reddit_filter/internal/feed"
	"reddit_filter/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)

	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			log.Error("create data directory", "path", dir, "error", err)
			os.Exit(1)
		}
	}

	store, err := storage.NewSQLite(cfg.DatabasePath)
	if err != nil {
		log.Error("open database", "path", cfg.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	msgBus := bus.NewInProc(log)

	httpClient := &http.Client{Timeout: 30 * time.Second}

	source := feed.NewSource(httpClient, cfg.FeedURL, log,
		feed.WithRefreshInterval(cfg.FeedRefreshInterval()),
		feed.WithUserAgent(cfg.UserAgent),
	)

	resolver := agecheck.New(httpClient, log,
		agecheck.WithProfileURL(cfg.ProfileURLTemplate),
		agecheck.WithSessionCookie(cfg.SessionCookie),
		agecheck.WithUserAgent(cfg.UserAgent),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	tracker := counter.New(ctx, store, log)
	eng := engine.New(store, source, resolver, msgBus, tracker, log)

	b, err := bot.New(cfg.TelegramBotToken, store, msgBus, cfg, log)
	if err != nil {
		log.Error("create bot", "error", err)
		os.Exit(1)
	}

	log.Info("starting reddit filter", "feed_url", cfg.FeedURL)

	go source.Run(ctx)
	go eng.Run(ctx)

	b.Run(ctx)

	log.Info("stopped")
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
