package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Houeta/pricewatch/internal/extractor"
	"github.com/Houeta/pricewatch/internal/models"
	"github.com/Houeta/pricewatch/internal/platform"
	"github.com/Houeta/pricewatch/internal/repository"
	"github.com/shopspring/decimal"
	"gopkg.in/telebot.v4"
)

const helpText = `I watch Amazon and Flipkart prices for you.

/track <url> - start tracking a product
/list - show tracked products
/untrack <id> - stop tracking a product
/alerts on|off - price drop alerts`

// startHandler process command /start.
func (b *Bot) startHandler(ctx telebot.Context) error {
	b.log.Info("User started the bot", "username", username(ctx), "chat", ctx.Chat().ID)

	if err := ctx.Send(helpText); err != nil {
		return fmt.Errorf("failed to send greeting message: %w", err)
	}

	return nil
}

// trackHandler process command /track <url>.
func (b *Bot) trackHandler(ctx telebot.Context) error {
	rawURL := strings.TrimSpace(ctx.Message().Payload)
	if rawURL == "" {
		return reply(ctx, "Usage: /track <product url>")
	}

	reqCtx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	item, err := b.tracker.TrackProduct(reqCtx, ctx.Chat().ID, rawURL)
	if err != nil {
		b.log.Warn("Track command failed", "chat", ctx.Chat().ID, "url", rawURL, "error", err)
		return reply(ctx, trackErrorText(err))
	}

	return reply(ctx, "Tracking "+formatItem(*item))
}

// listHandler process command /list.
func (b *Bot) listHandler(ctx telebot.Context) error {
	reqCtx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	items, err := b.tracker.ListProducts(reqCtx, ctx.Chat().ID)
	if err != nil {
		b.log.Error("List command failed", "chat", ctx.Chat().ID, "error", err)
		return reply(ctx, "Could not load your products, try again later.")
	}

	if len(items) == 0 {
		return reply(ctx, "You are not tracking anything yet. Send /track <url> to start.")
	}

	blocks := make([]string, 0, len(items))
	for _, item := range items {
		blocks = append(blocks, formatItem(item))
	}

	return reply(ctx, strings.Join(blocks, "\n\n"))
}

// untrackHandler process command /untrack <id>.
func (b *Bot) untrackHandler(ctx telebot.Context) error {
	id := strings.TrimSpace(ctx.Message().Payload)
	if id == "" {
		return reply(ctx, "Usage: /untrack <id>")
	}

	reqCtx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	err := b.tracker.RemoveProduct(reqCtx, ctx.Chat().ID, id)
	switch {
	case errors.Is(err, repository.ErrItemNotFound):
		return reply(ctx, "No tracked product with id "+id)
	case err != nil:
		b.log.Error("Untrack command failed", "chat", ctx.Chat().ID, "id", id, "error", err)
		return reply(ctx, "Could not remove the product, try again later.")
	}

	return reply(ctx, "Stopped tracking "+id)
}

// alertsHandler process command /alerts on|off.
func (b *Bot) alertsHandler(ctx telebot.Context) error {
	chatID := ctx.Chat().ID

	reqCtx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	var err error
	switch strings.ToLower(strings.TrimSpace(ctx.Message().Payload)) {
	case "on":
		if err = b.subs.SubscribeChat(reqCtx, chatID); err == nil {
			return reply(ctx, "Price drop alerts are on.")
		}
	case "off":
		if err = b.subs.UnsubscribeChat(reqCtx, chatID); err == nil {
			return reply(ctx, "Price drop alerts are off.")
		}
	default:
		subscribed, serr := b.subs.IsSubscribed(reqCtx, chatID)
		if serr != nil {
			err = serr
			break
		}
		state := "off"
		if subscribed {
			state = "on"
		}
		return reply(ctx, fmt.Sprintf("Alerts are %s. Usage: /alerts on|off", state))
	}

	b.log.Error("Alerts command failed", "chat", chatID, "error", err)

	return reply(ctx, "Could not update alert settings, try again later.")
}

func reply(ctx telebot.Context, text string) error {
	if err := ctx.Send(text); err != nil {
		return fmt.Errorf("failed to send reply: %w", err)
	}

	return nil
}

func username(ctx telebot.Context) string {
	if sender := ctx.Sender(); sender != nil {
		return sender.Username
	}

	return ""
}

func trackErrorText(err error) string {
	switch {
	case errors.Is(err, platform.ErrUnsupportedPlatform):
		return "Only Amazon and Flipkart product links are supported."
	case errors.Is(err, platform.ErrInvalidURL):
		return "That does not look like a product link."
	case errors.Is(err, extractor.ErrExtractionFailed):
		return "Could not read the product page right now, try again later."
	default:
		return "Something went wrong, try again later."
	}
}

func formatPrice(p float64) string {
	return decimal.NewFromFloat(p).StringFixed(2)
}

func formatItem(item models.TrackedItem) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "%s\n", item.DisplayName)
	fmt.Fprintf(&sb, "Price: %s", formatPrice(item.CurrentPrice))
	if item.PreviousPrice > 0 {
		fmt.Fprintf(&sb, " (was %s)", formatPrice(item.PreviousPrice))
	}
	fmt.Fprintf(&sb, "\nRecommendation: %s\n", item.Recommendation)
	fmt.Fprintf(&sb, "%s\nID: %s", item.CanonicalURL, item.ID)

	return sb.String()
}

func formatDrop(change models.PriceChange) string {
	return fmt.Sprintf("Price drop: %s\n%s -> %s\nRecommendation: %s\n%s",
		change.Item.DisplayName,
		formatPrice(change.Old),
		formatPrice(change.New),
		change.Item.Recommendation,
		change.Item.CanonicalURL,
	)
}
