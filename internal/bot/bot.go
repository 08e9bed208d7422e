package bot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Houeta/pricewatch/internal/models"
	"github.com/Houeta/pricewatch/internal/repository"
	"gopkg.in/telebot.v4"
)

// handlerTimeout bounds the work done for a single command, extraction included.
const handlerTimeout = 2 * time.Minute

// Bot contains the bot API instance and other information.
type Bot struct {
	bot     API
	log     *slog.Logger
	tracker Tracker
	subs    repository.Subscriptions
}

func NewBot(
	log *slog.Logger,
	token string,
	poller time.Duration,
	tracker Tracker,
	subs repository.Subscriptions,
) (*Bot, error) {
	bot, err := telebot.NewBot(telebot.Settings{
		Token:  token,
		Poller: &telebot.LongPoller{Timeout: poller},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Telegram bot: %w", err)
	}
	log.Info("Authorized on account", "account", bot.Me.Username)

	botInstance := &Bot{bot: bot, log: log, tracker: tracker, subs: subs}

	botInstance.registerRoutes()

	return botInstance, nil
}

// Start launches the bot to listen for updates.
func (b *Bot) Start() {
	b.log.Info("Telegram bot is starting...")
	b.bot.Start()
}

// Stop gracefully stops the Telegram bot and logs the action.
func (b *Bot) Stop() {
	b.log.Info("Telegram bot is stopped...")
	b.bot.Stop()
}

// registerRoutes configures all routes (commands).
func (b *Bot) registerRoutes() {
	b.bot.Handle("/start", b.startHandler)
	b.bot.Handle("/track", b.trackHandler)
	b.bot.Handle("/list", b.listHandler)
	b.bot.Handle("/untrack", b.untrackHandler)
	b.bot.Handle("/alerts", b.alertsHandler)
}

// NotifyPriceDrop tells the owner of the item about a lower price if the
// owner's chat is subscribed to alerts.
func (b *Bot) NotifyPriceDrop(ctx context.Context, change models.PriceChange) error {
	const op = "bot.NotifyPriceDrop"

	chatID := change.Item.OwnerID

	subscribed, err := b.subs.IsSubscribed(ctx, chatID)
	if err != nil {
		return fmt.Errorf("%s: failed to check subscription: %w", op, err)
	}
	if !subscribed {
		b.log.DebugContext(ctx, "Chat is not subscribed, alert dropped", "op", op, "chat", chatID)
		return nil
	}

	if _, err = b.bot.Send(&telebot.Chat{ID: chatID}, formatDrop(change)); err != nil {
		return fmt.Errorf("%s: failed to send alert to chat %d: %w", op, chatID, err)
	}

	b.log.InfoContext(ctx, "Price drop alert sent", "op", op, "chat", chatID, "item", change.Item.ID)

	return nil
}
