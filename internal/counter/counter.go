// Package counter tracks and persists removal statistics.
package counter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"reddit_filter/internal/model"
	"reddit_filter/internal/storage"
)

// Key is the fixed storage key for the counters blob.
const Key = "removal_counters"

const dateLayout = "2006-01-02"

// Tracker owns the counter state. Removals increment both counters and
// persist the blob; persistence failures are logged and the in-memory
// state stays authoritative.
type Tracker struct {
	store storage.Store
	log   *slog.Logger
	now   func() time.Time

	mu       sync.Mutex
	state    model.CounterState
	onChange func(model.CounterState)
}

// New creates a Tracker and loads the persisted state, if any.
func New(ctx context.Context, store storage.Store, log *slog.Logger) *Tracker {
	t := &Tracker{
		store: store,
		log:   log,
		now:   time.Now,
	}

	blob, err := store.Load(ctx, Key)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		t.state = model.CounterState{LastResetDate: t.today()}
	case err != nil:
		log.Error("load counters", "error", err)
		t.state = model.CounterState{LastResetDate: t.today()}
	default:
		if err := json.Unmarshal(blob, &t.state); err != nil {
			log.Error("decode counters blob", "error", err)
			t.state = model.CounterState{LastResetDate: t.today()}
		}
	}
	return t
}

// OnChange registers a callback invoked after every persisted mutation.
// Used by the engine to push counter updates to the control surface.
func (t *Tracker) OnChange(fn func(model.CounterState)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onChange = fn
}

// SetNowFunc overrides the clock, for tests.
func (t *Tracker) SetNowFunc(now func() time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.now = now
}

// Record registers one removal: the daily counter is reset if the
// calendar date changed, both counters are incremented, and the state is
// persisted and broadcast.
func (t *Tracker) Record(ctx context.Context) {
	t.mu.Lock()

	t.resetIfNewDayLocked()
	t.state.TotalRemoved++
	t.state.DailyRemoved++

	state := t.state
	onChange := t.onChange
	t.mu.Unlock()

	t.persist(ctx, state)
	if onChange != nil {
		onChange(state)
	}
}

// State returns a copy of the current counter state, applying the daily
// reset first so readers never observe a stale daily count.
func (t *Tracker) State() model.CounterState {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resetIfNewDayLocked()
	return t.state
}

func (t *Tracker) resetIfNewDayLocked() {
	today := t.today()
	if t.state.LastResetDate != today {
		t.state.DailyRemoved = 0
		t.state.LastResetDate = today
	}
}

func (t *Tracker) today() string {
	return t.now().UTC().Format(dateLayout)
}

func (t *Tracker) persist(ctx context.Context, state model.CounterState) {
	blob, err := json.Marshal(state)
	if err != nil {
		t.log.Error("encode counters", "error", err)
		return
	}
	if err := t.store.Save(ctx, Key, blob); err != nil {
		// In-memory state stays authoritative; see the storage contract.
		t.log.Error("save counters", "error", err)
	}
}
