// Package engine wires the feed, scanner, and watcher into a restartable
// filtering session driven by bus messages.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"reddit_filter/internal/bus"
	"reddit_filter/internal/counter"
	"reddit_filter/internal/model"
	"reddit_filter/internal/scanner"
	"reddit_filter/internal/settings"
	"reddit_filter/internal/storage"
	"reddit_filter/internal/watcher"
)

// Feed is the engine's view of the feed source.
type Feed interface {
	scanner.Feed
	Count() int
	Changes() <-chan struct{}
}

// AgeResolver extends the scanner's resolver with the pause mirror.
type AgeResolver interface {
	scanner.AgeResolver
	SetPaused(paused bool)
}

// Engine owns the filtering session lifecycle. A session is one loaded
// settings snapshot plus a running watcher; a settings update tears the
// session down and starts a fresh one.
type Engine struct {
	store    storage.Store
	feed     Feed
	resolver AgeResolver
	bus      bus.Bus
	msgs     <-chan bus.Message
	counters *counter.Tracker
	log      *slog.Logger

	debounce time.Duration
	poll     time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithDebounce overrides the watcher debounce window.
func WithDebounce(d time.Duration) Option {
	return func(e *Engine) { e.debounce = d }
}

// WithPollInterval overrides the watcher fallback poll interval.
func WithPollInterval(d time.Duration) Option {
	return func(e *Engine) { e.poll = d }
}

// New creates an Engine.
func New(store storage.Store, feed Feed, resolver AgeResolver, b bus.Bus, counters *counter.Tracker, log *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		feed:     feed,
		resolver: resolver,
		bus:      b,
		counters: counters,
		log:      log,
		debounce: 100 * time.Millisecond,
		poll:     5 * time.Second,
	}
	// Subscribe at construction time so no message sent between New and
	// Run is lost.
	e.msgs = b.Subscribe()
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run starts the first session and serves bus messages until ctx is
// cancelled. It blocks.
func (e *Engine) Run(ctx context.Context) {
	e.counters.OnChange(func(state model.CounterState) {
		e.bus.Send(bus.Message{Type: bus.CountersUpdated, Counters: state})
	})

	stop := e.startSession(ctx)
	defer func() { stop() }()

	for {
		select {
		case <-ctx.Done():
			return

		case msg := <-e.msgs:
			switch msg.Type {
			case bus.SettingsUpdated:
				e.log.Info("settings updated, reinitializing")
				stop()
				stop = e.startSession(ctx)

			case bus.RequestCounters:
				e.bus.Send(bus.Message{Type: bus.CountersUpdated, Counters: e.counters.State()})

			case bus.APIPauseToggled:
				e.log.Info("api pause toggled", "paused", msg.Paused)
			}
		}
	}
}

// startSession loads the settings, mirrors the pause flag into the
// resolver, and starts a watcher over the feed. The returned stop
// function detaches the watcher synchronously: it cancels the session
// context and waits for the watcher goroutine to exit, so no orphaned
// callback can touch a torn-down session.
func (e *Engine) startSession(ctx context.Context) func() {
	cfg := settings.Load(ctx, e.store, e.log)
	e.resolver.SetPaused(cfg.APIPaused)

	e.log.Info("session started",
		"enabled", cfg.Enabled,
		"keywords", len(cfg.Keywords),
		"blocked_subreddits", len(cfg.BlockedSubreddits),
		"min_account_age_months", cfg.MinAccountAgeMonths,
		"api_paused", cfg.APIPaused,
	)

	scan := scanner.New(e.feed, e.resolver, e.counters, e.log)
	w := watcher.New(
		e.feed.Changes(),
		e.feed.Count,
		func(ctx context.Context) {
			if n := scan.Scan(ctx, cfg); n > 0 {
				e.log.Info("scan complete", "removed", n)
			}
		},
		e.log,
		watcher.WithDebounce(e.debounce),
		watcher.WithPollInterval(e.poll),
	)

	sessionCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		// One scan up front so an already-populated feed gets filtered
		// without waiting for the first change notification. Running it
		// here keeps every scan on the watcher goroutine.
		if n := scan.Scan(sessionCtx, cfg); n > 0 {
			e.log.Info("initial scan complete", "removed", n)
		}
		w.Run(sessionCtx)
	}()

	return func() {
		cancel()
		wg.Wait()
	}
}
