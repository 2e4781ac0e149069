// Package bot is the Telegram control surface for the filtering engine.
// It plays the role the popup UI has in a browser deployment: it mutates
// the persisted rules and announces every change on the bus.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"reddit_filter/internal/bus"
	"reddit_filter/internal/config"
	"reddit_filter/internal/storage"
)

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Bot handles user commands that inspect and mutate the filter rules.
type Bot struct {
	api   telegramAPI
	store storage.Store
	bus   bus.Bus
	cfg   *config.Config
	log   *slog.Logger
}

// New creates a Bot with the given Telegram token, storage, and bus.
func New(token string, store storage.Store, b bus.Bus, cfg *config.Config, log *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	return &Bot{
		api:   api,
		store: store,
		bus:   b,
		cfg:   cfg,
		log:   log,
	}, nil
}

// Run starts the bot's long-polling loop, blocking until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update := <-updates:
			if update.Message == nil || !update.Message.IsCommand() {
				continue
			}
			if !b.cfg.IsUserAllowed(update.Message.From.ID) {
				b.reply(update.Message.Chat.ID, "Access denied.")
				continue
			}
			b.handleCommand(ctx, update.Message)
		}
	}
}

func (b *Bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send message", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	cmd := msg.Command()
	args := strings.TrimSpace(msg.CommandArguments())
	chatID := msg.Chat.ID

	b.log.Debug("command", "cmd", cmd, "args", args, "chat_id", chatID)

	switch cmd {
	case "start":
		b.handleStart(chatID)
	case "help":
		b.handleHelp(chatID)
	case "status":
		b.handleStatus(ctx, chatID)
	case "keywords":
		b.handleKeywords(ctx, chatID)
	case "block":
		b.handleBlock(ctx, chatID, args)
	case "unblock":
		b.handleUnblock(ctx, chatID, args)
	case "subs":
		b.handleSubs(ctx, chatID)
	case "blocksub":
		b.handleBlockSub(ctx, chatID, args)
	case "unblocksub":
		b.handleUnblockSub(ctx, chatID, args)
	case "minage":
		b.handleMinAge(ctx, chatID, args)
	case "on":
		b.handleEnable(ctx, chatID, true)
	case "off":
		b.handleEnable(ctx, chatID, false)
	case "pauseapi":
		b.handlePauseAPI(ctx, chatID, true)
	case "resumeapi":
		b.handlePauseAPI(ctx, chatID, false)
	case "stats":
		b.handleStats(ctx, chatID)
	default:
		b.reply(chatID, "Unknown command. Use /help for a list of commands.")
	}
}
