// Package watcher turns feed structure changes into debounced scans.
package watcher

import (
	"context"
	"log/slog"
	"time"
)

const (
	defaultDebounce = 100 * time.Millisecond
	defaultPoll     = 5 * time.Second
)

// Watcher listens for structure-change notifications, coalesces bursts
// behind a short debounce window, and falls back to a periodic count
// poll for changes whose notification was missed. Both triggers funnel
// into the same scan entry point; scans run sequentially on the
// watcher's own goroutine, so they can never overlap.
type Watcher struct {
	changes  <-chan struct{}
	count    func() int
	scan     func(ctx context.Context)
	log      *slog.Logger
	debounce time.Duration
	poll     time.Duration
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce overrides the debounce window.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// WithPollInterval overrides the fallback poll interval.
func WithPollInterval(d time.Duration) Option {
	return func(w *Watcher) { w.poll = d }
}

// New creates a Watcher over the given change source.
func New(changes <-chan struct{}, count func() int, scan func(ctx context.Context), log *slog.Logger, opts ...Option) *Watcher {
	w := &Watcher{
		changes:  changes,
		count:    count,
		scan:     scan,
		log:      log,
		debounce: defaultDebounce,
		poll:     defaultPoll,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run blocks until ctx is cancelled. Timers are stopped before return,
// so no scan fires after teardown.
func (w *Watcher) Run(ctx context.Context) {
	debounce := time.NewTimer(w.debounce)
	if !debounce.Stop() {
		<-debounce.C
	}
	armed := false

	poll := time.NewTicker(w.poll)
	defer poll.Stop()
	defer debounce.Stop()

	lastCount := w.count()

	for {
		select {
		case <-ctx.Done():
			return

		case <-w.changes:
			// Coalesce bursts: restart the window on every notification.
			if armed && !debounce.Stop() {
				<-debounce.C
			}
			debounce.Reset(w.debounce)
			armed = true

		case <-debounce.C:
			armed = false
			w.scan(ctx)
			lastCount = w.count()

		case <-poll.C:
			n := w.count()
			if n > lastCount {
				w.log.Debug("poll detected feed growth", "count", n, "last", lastCount)
				w.scan(ctx)
			}
			lastCount = n
		}
	}
}
