package bot

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/go-cmp/cmp"

	"reddit_filter/internal/bus"
	"reddit_filter/internal/config"
	"reddit_filter/internal/counter"
	"reddit_filter/internal/model"
	"reddit_filter/internal/settings"
	"reddit_filter/internal/storage"
)

// --- mocks ---

type sentMsg struct {
	ChatID int64
	Text   string
}

type mockAPI struct {
	mu   sync.Mutex
	sent []sentMsg
}

func (m *mockAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		m.mu.Lock()
		m.sent = append(m.sent, sentMsg{ChatID: msg.ChatID, Text: msg.Text})
		m.mu.Unlock()
	}
	return tgbotapi.Message{}, nil
}

func (m *mockAPI) GetUpdatesChan(_ tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return make(tgbotapi.UpdatesChannel)
}

func (m *mockAPI) StopReceivingUpdates() {}

func (m *mockAPI) lastText() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return ""
	}
	return m.sent[len(m.sent)-1].Text
}

// --- helpers ---

func newTestBot(t *testing.T) (*Bot, *mockAPI, *storage.SQLite, <-chan bus.Message) {
	t.Helper()
	store, err := storage.NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	msgBus := bus.NewInProc(log)
	sub := msgBus.Subscribe()

	api := &mockAPI{}
	b := &Bot{
		api:   api,
		store: store,
		bus:   msgBus,
		cfg:   &config.Config{},
		log:   log,
	}
	return b, api, store, sub
}

func currentSettings(t *testing.T, store storage.Store) model.FilterSettings {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return settings.Load(context.Background(), store, log)
}

func drainTypes(sub <-chan bus.Message) []bus.Type {
	var out []bus.Type
	for {
		select {
		case msg := <-sub:
			out = append(out, msg.Type)
		default:
			return out
		}
	}
}

// --- tests ---

func TestBlockAddsKeywordAndAnnounces(t *testing.T) {
	ctx := context.Background()
	b, api, store, sub := newTestBot(t)

	b.handleBlock(ctx, 1, "election")

	got := currentSettings(t, store)
	if diff := cmp.Diff([]string{"election"}, got.Keywords); diff != "" {
		t.Errorf("keywords mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]bus.Type{bus.SettingsUpdated}, drainTypes(sub)); diff != "" {
		t.Errorf("bus messages mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(api.lastText(), "added") {
		t.Errorf("unexpected reply: %q", api.lastText())
	}
}

func TestBlockDuplicateKeyword(t *testing.T) {
	ctx := context.Background()
	b, api, store, sub := newTestBot(t)

	b.handleBlock(ctx, 1, "election")
	drainTypes(sub)

	b.handleBlock(ctx, 1, "ELECTION")

	got := currentSettings(t, store)
	if len(got.Keywords) != 1 {
		t.Errorf("keywords = %v, want one entry", got.Keywords)
	}
	if msgs := drainTypes(sub); len(msgs) != 0 {
		t.Errorf("duplicate add sent bus messages: %v", msgs)
	}
	if !strings.Contains(api.lastText(), "already blocked") {
		t.Errorf("unexpected reply: %q", api.lastText())
	}
}

func TestUnblockRemovesKeyword(t *testing.T) {
	ctx := context.Background()
	b, api, store, sub := newTestBot(t)

	b.handleBlock(ctx, 1, "election")
	b.handleBlock(ctx, 1, "scam")
	drainTypes(sub)

	b.handleUnblock(ctx, 1, "election")

	got := currentSettings(t, store)
	if diff := cmp.Diff([]string{"scam"}, got.Keywords); diff != "" {
		t.Errorf("keywords mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]bus.Type{bus.SettingsUpdated}, drainTypes(sub)); diff != "" {
		t.Errorf("bus messages mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(api.lastText(), "removed") {
		t.Errorf("unexpected reply: %q", api.lastText())
	}
}

func TestUnblockUnknownKeyword(t *testing.T) {
	ctx := context.Background()
	b, api, _, sub := newTestBot(t)

	b.handleUnblock(ctx, 1, "nothing")

	if msgs := drainTypes(sub); len(msgs) != 0 {
		t.Errorf("no-op unblock sent bus messages: %v", msgs)
	}
	if !strings.Contains(api.lastText(), "not in the keyword list") {
		t.Errorf("unexpected reply: %q", api.lastText())
	}
}

func TestBlockSubCanonicalizes(t *testing.T) {
	ctx := context.Background()
	b, _, store, sub := newTestBot(t)

	b.handleBlockSub(ctx, 1, "politics")

	got := currentSettings(t, store)
	if diff := cmp.Diff([]string{"r/politics"}, got.BlockedSubreddits); diff != "" {
		t.Errorf("subreddits mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]bus.Type{bus.SettingsUpdated}, drainTypes(sub)); diff != "" {
		t.Errorf("bus messages mismatch (-want +got):\n%s", diff)
	}
}

func TestBlockSubRejectsInvalidName(t *testing.T) {
	ctx := context.Background()
	b, api, store, sub := newTestBot(t)

	b.handleBlockSub(ctx, 1, "not a subreddit!")

	got := currentSettings(t, store)
	if len(got.BlockedSubreddits) != 0 {
		t.Errorf("invalid name was stored: %v", got.BlockedSubreddits)
	}
	if msgs := drainTypes(sub); len(msgs) != 0 {
		t.Errorf("invalid name sent bus messages: %v", msgs)
	}
	if !strings.Contains(api.lastText(), "invalid subreddit") {
		t.Errorf("unexpected reply: %q", api.lastText())
	}
}

func TestUnblockSubMatchesCaseInsensitively(t *testing.T) {
	ctx := context.Background()
	b, _, store, sub := newTestBot(t)

	b.handleBlockSub(ctx, 1, "r/Politics")
	drainTypes(sub)

	b.handleUnblockSub(ctx, 1, "politics")

	got := currentSettings(t, store)
	if len(got.BlockedSubreddits) != 0 {
		t.Errorf("subreddit not removed: %v", got.BlockedSubreddits)
	}
}

func TestMinAge(t *testing.T) {
	ctx := context.Background()
	b, api, store, sub := newTestBot(t)

	b.handleMinAge(ctx, 1, "12")
	if got := currentSettings(t, store); got.MinAccountAgeMonths != 12 {
		t.Errorf("MinAccountAgeMonths = %d, want 12", got.MinAccountAgeMonths)
	}
	drainTypes(sub)

	b.handleMinAge(ctx, 1, "0")
	if got := currentSettings(t, store); got.MinAccountAgeMonths != 0 {
		t.Errorf("MinAccountAgeMonths = %d, want 0", got.MinAccountAgeMonths)
	}
	if !strings.Contains(api.lastText(), "disabled") {
		t.Errorf("unexpected reply: %q", api.lastText())
	}
}

func TestEnableDisable(t *testing.T) {
	ctx := context.Background()
	b, _, store, sub := newTestBot(t)

	b.handleEnable(ctx, 1, false)
	if got := currentSettings(t, store); got.Enabled {
		t.Error("filtering still enabled after /off")
	}
	if diff := cmp.Diff([]bus.Type{bus.SettingsUpdated}, drainTypes(sub)); diff != "" {
		t.Errorf("bus messages mismatch (-want +got):\n%s", diff)
	}

	b.handleEnable(ctx, 1, true)
	if got := currentSettings(t, store); !got.Enabled {
		t.Error("filtering still disabled after /on")
	}
}

func TestPauseAPISendsBothMessages(t *testing.T) {
	ctx := context.Background()
	b, _, store, sub := newTestBot(t)

	b.handlePauseAPI(ctx, 1, true)

	if got := currentSettings(t, store); !got.APIPaused {
		t.Error("APIPaused not persisted")
	}
	want := []bus.Type{bus.SettingsUpdated, bus.APIPauseToggled}
	if diff := cmp.Diff(want, drainTypes(sub)); diff != "" {
		t.Errorf("bus messages mismatch (-want +got):\n%s", diff)
	}
}

func TestStatsShowsCounters(t *testing.T) {
	ctx := context.Background()
	b, api, store, sub := newTestBot(t)

	blob, _ := json.Marshal(model.CounterState{TotalRemoved: 42, DailyRemoved: 7, LastResetDate: "2026-08-23"})
	if err := store.Save(ctx, counter.Key, blob); err != nil {
		t.Fatalf("seed counters: %v", err)
	}

	b.handleStats(ctx, 1)

	if !strings.Contains(api.lastText(), "Removed today: 7") || !strings.Contains(api.lastText(), "Removed total: 42") {
		t.Errorf("unexpected reply: %q", api.lastText())
	}
	if diff := cmp.Diff([]bus.Type{bus.RequestCounters}, drainTypes(sub)); diff != "" {
		t.Errorf("bus messages mismatch (-want +got):\n%s", diff)
	}
}

func TestStatusBeforeAnyRemoval(t *testing.T) {
	ctx := context.Background()
	b, api, _, _ := newTestBot(t)

	b.handleStatus(ctx, 1)

	text := api.lastText()
	if !strings.Contains(text, "Filtering: enabled") {
		t.Errorf("status missing enabled line: %q", text)
	}
	if !strings.Contains(text, "Removed total: 0") {
		t.Errorf("status missing counters: %q", text)
	}
}
