package engine

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"reddit_filter/internal/bus"
	"reddit_filter/internal/counter"
	"reddit_filter/internal/model"
	"reddit_filter/internal/settings"
	"reddit_filter/internal/storage"
)

// --- mocks ---

type fakeFeed struct {
	mu      sync.Mutex
	posts   []model.Post
	changes chan struct{}
}

func newFakeFeed(posts ...model.Post) *fakeFeed {
	return &fakeFeed{posts: posts, changes: make(chan struct{}, 1)}
}

func (f *fakeFeed) Posts() []model.Post {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Post, len(f.posts))
	copy(out, f.posts)
	return out
}

func (f *fakeFeed) Hide(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, p := range f.posts {
		if p.ID == id {
			f.posts = append(f.posts[:i], f.posts[i+1:]...)
			return true
		}
	}
	return false
}

func (f *fakeFeed) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.posts)
}

func (f *fakeFeed) Changes() <-chan struct{} { return f.changes }

func (f *fakeFeed) add(p model.Post) {
	f.mu.Lock()
	f.posts = append(f.posts, p)
	f.mu.Unlock()
	select {
	case f.changes <- struct{}{}:
	default:
	}
}

type fakeResolver struct {
	mu     sync.Mutex
	paused bool
}

func (r *fakeResolver) CreationDate(context.Context, string) (time.Time, bool) {
	return time.Time{}, false
}

func (r *fakeResolver) BudgetHealthy() bool { return true }

func (r *fakeResolver) SetPaused(paused bool) {
	r.mu.Lock()
	r.paused = paused
	r.mu.Unlock()
}

func (r *fakeResolver) isPaused() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.paused
}

// --- helpers ---

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T) *storage.SQLite {
	t.Helper()
	s, err := storage.NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func startEngine(t *testing.T, store storage.Store, feed Feed, resolver AgeResolver, b bus.Bus) context.CancelFunc {
	t.Helper()
	log := discardLogger()
	tracker := counter.New(context.Background(), store, log)
	e := New(store, feed, resolver, b, tracker, log,
		WithDebounce(10*time.Millisecond),
		WithPollInterval(time.Hour),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		e.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return cancel
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

// --- tests ---

func TestNewPostsGetFiltered(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	cfg := settings.Default()
	cfg.Keywords = []string{"election"}
	if err := settings.Save(ctx, store, cfg); err != nil {
		t.Fatalf("seed settings: %v", err)
	}

	feed := newFakeFeed()
	b := bus.NewInProc(discardLogger())
	startEngine(t, store, feed, &fakeResolver{}, b)

	feed.add(model.Post{ID: "p1", Title: "election megathread", Subreddit: "r/news", Author: "x"})
	feed.add(model.Post{ID: "p2", Title: "harmless", Subreddit: "r/news", Author: "y"})

	waitFor(t, func() bool {
		for _, p := range feed.Posts() {
			if p.ID == "p1" {
				return false
			}
		}
		return true
	}, "matching post was never removed")

	if feed.Count() != 1 {
		t.Errorf("Count() = %d, want 1 surviving post", feed.Count())
	}
}

func TestSettingsUpdatedReinitializesSession(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	if err := settings.Save(ctx, store, settings.Default()); err != nil {
		t.Fatalf("seed settings: %v", err)
	}

	feed := newFakeFeed(model.Post{ID: "p1", Title: "crypto giveaway", Subreddit: "r/news", Author: "x"})
	b := bus.NewInProc(discardLogger())
	startEngine(t, store, feed, &fakeResolver{}, b)

	// No keywords yet; the post survives the initial scan.
	time.Sleep(50 * time.Millisecond)
	if feed.Count() != 1 {
		t.Fatalf("post removed before any keyword was configured")
	}

	cfg := settings.Default()
	cfg.Keywords = []string{"crypto"}
	if err := settings.Save(ctx, store, cfg); err != nil {
		t.Fatalf("save settings: %v", err)
	}
	b.Send(bus.Message{Type: bus.SettingsUpdated})

	// The new session's initial scan picks up the fresh rules.
	waitFor(t, func() bool { return feed.Count() == 0 }, "post not removed after settings update")
}

func TestSettingsUpdateMirrorsPauseFlag(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	if err := settings.Save(ctx, store, settings.Default()); err != nil {
		t.Fatalf("seed settings: %v", err)
	}

	feed := newFakeFeed()
	resolver := &fakeResolver{}
	b := bus.NewInProc(discardLogger())
	startEngine(t, store, feed, resolver, b)

	cfg := settings.Default()
	cfg.APIPaused = true
	if err := settings.Save(ctx, store, cfg); err != nil {
		t.Fatalf("save settings: %v", err)
	}
	b.Send(bus.Message{Type: bus.SettingsUpdated})

	waitFor(t, resolver.isPaused, "pause flag never reached the resolver")
}

func TestRequestCountersPushesState(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	if err := settings.Save(ctx, store, settings.Default()); err != nil {
		t.Fatalf("seed settings: %v", err)
	}

	feed := newFakeFeed()
	b := bus.NewInProc(discardLogger())
	sub := b.Subscribe()
	startEngine(t, store, feed, &fakeResolver{}, b)

	b.Send(bus.Message{Type: bus.RequestCounters})

	deadline := time.After(2 * time.Second)
	for {
		select {
		case msg := <-sub:
			if msg.Type == bus.CountersUpdated {
				return
			}
		case <-deadline:
			t.Fatal("no countersUpdated push after requestCounters")
		}
	}
}

func TestRemovalPushesCountersUpdate(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	cfg := settings.Default()
	cfg.Keywords = []string{"spam"}
	if err := settings.Save(ctx, store, cfg); err != nil {
		t.Fatalf("seed settings: %v", err)
	}

	feed := newFakeFeed()
	b := bus.NewInProc(discardLogger())
	sub := b.Subscribe()
	startEngine(t, store, feed, &fakeResolver{}, b)

	feed.add(model.Post{ID: "p1", Title: "pure spam here", Subreddit: "r/news", Author: "x"})

	deadline := time.After(2 * time.Second)
	for {
		select {
		case msg := <-sub:
			if msg.Type == bus.CountersUpdated && msg.Counters.TotalRemoved == 1 {
				return
			}
		case <-deadline:
			t.Fatal("no countersUpdated push after a removal")
		}
	}
}
