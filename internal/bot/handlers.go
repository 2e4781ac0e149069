package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"reddit_filter/internal/bus"
	"reddit_filter/internal/counter"
	"reddit_filter/internal/filter"
	"reddit_filter/internal/model"
	"reddit_filter/internal/settings"
	"reddit_filter/internal/storage"
)

func (b *Bot) handleStart(chatID int64) {
	b.reply(chatID, `Welcome to Reddit Filter!

Posts matching your rules disappear from the feed automatically.

Quick start:
1. /block <word> — hide posts whose title contains the word
2. /blocksub <name> — hide a whole subreddit
3. /minage <months> — hide posts from young accounts

Use /help for the full command reference.`)
}

func (b *Bot) handleHelp(chatID int64) {
	b.reply(chatID, `Rules:
/block <word> — add a keyword (whole-word match in titles)
/unblock <word> — remove a keyword
/keywords — list keywords
/blocksub <name> — block a subreddit (exact name)
/unblocksub <name> — unblock a subreddit
/subs — list blocked subreddits
/minage <months> — minimum account age, 0 disables

Engine:
/on — enable filtering
/off — disable filtering
/pauseapi — stop account-age lookups
/resumeapi — resume account-age lookups

Info:
/status — current rules and counters
/stats — removal counters`)
}

func (b *Bot) handleStatus(ctx context.Context, chatID int64) {
	cfg := settings.Load(ctx, b.store, b.log)
	counters := b.loadCounters(ctx)
	b.reply(chatID, FormatStatus(cfg, counters))
}

func (b *Bot) handleKeywords(ctx context.Context, chatID int64) {
	cfg := settings.Load(ctx, b.store, b.log)
	b.reply(chatID, FormatKeywords(cfg.Keywords))
}

func (b *Bot) handleBlock(ctx context.Context, chatID int64, args string) {
	kw, err := ParseKeywordArg(args)
	if err != nil {
		b.reply(chatID, "Usage: /block <word or phrase>")
		return
	}

	cfg := settings.Load(ctx, b.store, b.log)
	for _, existing := range cfg.Keywords {
		if strings.EqualFold(existing, kw) {
			b.reply(chatID, fmt.Sprintf("%q is already blocked.", kw))
			return
		}
	}

	cfg.Keywords = append(cfg.Keywords, kw)
	if !b.saveAndAnnounce(ctx, chatID, cfg) {
		return
	}
	b.reply(chatID, fmt.Sprintf("Keyword %q added (%d total).", kw, len(cfg.Keywords)))
}

func (b *Bot) handleUnblock(ctx context.Context, chatID int64, args string) {
	kw, err := ParseKeywordArg(args)
	if err != nil {
		b.reply(chatID, "Usage: /unblock <word or phrase>")
		return
	}

	cfg := settings.Load(ctx, b.store, b.log)
	kept := cfg.Keywords[:0]
	removed := false
	for _, existing := range cfg.Keywords {
		if strings.EqualFold(existing, kw) {
			removed = true
			continue
		}
		kept = append(kept, existing)
	}
	if !removed {
		b.reply(chatID, fmt.Sprintf("%q is not in the keyword list.", kw))
		return
	}

	cfg.Keywords = kept
	if !b.saveAndAnnounce(ctx, chatID, cfg) {
		return
	}
	b.reply(chatID, fmt.Sprintf("Keyword %q removed.", kw))
}

func (b *Bot) handleSubs(ctx context.Context, chatID int64) {
	cfg := settings.Load(ctx, b.store, b.log)
	b.reply(chatID, FormatSubreddits(cfg.BlockedSubreddits))
}

func (b *Bot) handleBlockSub(ctx context.Context, chatID int64, args string) {
	sub, err := ParseSubredditArg(args)
	if err != nil {
		b.reply(chatID, err.Error())
		return
	}

	cfg := settings.Load(ctx, b.store, b.log)
	if filter.IsBlockedSubreddit(sub, cfg.BlockedSubreddits) {
		b.reply(chatID, fmt.Sprintf("%s is already blocked.", sub))
		return
	}

	cfg.BlockedSubreddits = append(cfg.BlockedSubreddits, sub)
	if !b.saveAndAnnounce(ctx, chatID, cfg) {
		return
	}
	b.reply(chatID, fmt.Sprintf("Subreddit %s blocked (%d total).", sub, len(cfg.BlockedSubreddits)))
}

func (b *Bot) handleUnblockSub(ctx context.Context, chatID int64, args string) {
	sub, err := ParseSubredditArg(args)
	if err != nil {
		b.reply(chatID, err.Error())
		return
	}

	cfg := settings.Load(ctx, b.store, b.log)
	kept := cfg.BlockedSubreddits[:0]
	removed := false
	for _, existing := range cfg.BlockedSubreddits {
		if strings.EqualFold(filter.Canonical(existing), sub) {
			removed = true
			continue
		}
		kept = append(kept, existing)
	}
	if !removed {
		b.reply(chatID, fmt.Sprintf("%s is not blocked.", sub))
		return
	}

	cfg.BlockedSubreddits = kept
	if !b.saveAndAnnounce(ctx, chatID, cfg) {
		return
	}
	b.reply(chatID, fmt.Sprintf("Subreddit %s unblocked.", sub))
}

func (b *Bot) handleMinAge(ctx context.Context, chatID int64, args string) {
	months, err := ParseMinAgeArg(args)
	if err != nil {
		b.reply(chatID, err.Error())
		return
	}

	cfg := settings.Load(ctx, b.store, b.log)
	cfg.MinAccountAgeMonths = months
	if !b.saveAndAnnounce(ctx, chatID, cfg) {
		return
	}
	if months == 0 {
		b.reply(chatID, "Account-age check disabled.")
		return
	}
	b.reply(chatID, fmt.Sprintf("Minimum account age set to %d month(s).", months))
}

func (b *Bot) handleEnable(ctx context.Context, chatID int64, enabled bool) {
	cfg := settings.Load(ctx, b.store, b.log)
	cfg.Enabled = enabled
	if !b.saveAndAnnounce(ctx, chatID, cfg) {
		return
	}
	if enabled {
		b.reply(chatID, "Filtering enabled.")
		return
	}
	b.reply(chatID, "Filtering disabled.")
}

func (b *Bot) handlePauseAPI(ctx context.Context, chatID int64, paused bool) {
	cfg := settings.Load(ctx, b.store, b.log)
	cfg.APIPaused = paused
	if !b.saveAndAnnounce(ctx, chatID, cfg) {
		return
	}
	b.bus.Send(bus.Message{Type: bus.APIPauseToggled, Paused: paused})
	if paused {
		b.reply(chatID, "Account-age lookups paused.")
		return
	}
	b.reply(chatID, "Account-age lookups resumed.")
}

func (b *Bot) handleStats(ctx context.Context, chatID int64) {
	// Nudge the engine so an always-open client sees a fresh push too.
	b.bus.Send(bus.Message{Type: bus.RequestCounters})
	b.reply(chatID, FormatCounters(b.loadCounters(ctx)))
}

// saveAndAnnounce persists the settings and broadcasts the update. On a
// storage failure the user is told and no notification goes out.
func (b *Bot) saveAndAnnounce(ctx context.Context, chatID int64, cfg model.FilterSettings) bool {
	if err := settings.Save(ctx, b.store, cfg); err != nil {
		b.log.Error("save settings", "error", err)
		b.reply(chatID, fmt.Sprintf("Failed to save settings: %v", err))
		return false
	}
	b.bus.Send(bus.Message{Type: bus.SettingsUpdated})
	return true
}

func (b *Bot) loadCounters(ctx context.Context) model.CounterState {
	blob, err := b.store.Load(ctx, counter.Key)
	if errors.Is(err, storage.ErrNotFound) {
		return model.CounterState{}
	}
	if err != nil {
		b.log.Error("load counters", "error", err)
		return model.CounterState{}
	}

	var state model.CounterState
	if err := json.Unmarshal(blob, &state); err != nil {
		b.log.Error("decode counters blob", "error", err)
		return model.CounterState{}
	}
	return state
}
