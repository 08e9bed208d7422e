package bot

import (
	"context"

	"github.com/Houeta/pricewatch/internal/models"
	"gopkg.in/telebot.v4"
)

type API interface {
	// Handle lets you set the handler for some command name or one of the supported endpoints. It also applies middleware if such passed to the function.
	Handle(endpoint interface{}, h telebot.HandlerFunc, m ...telebot.MiddlewareFunc)
	// Start brings bot into motion by consuming incoming updates (see Bot.Updates channel).
	Start()
	// Stop gracefully shuts the poller down.
	Stop()
	// Send delivers a message to the recipient outside of an update context.
	Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error)
}

// Tracker is the CRUD side of the application used by the command handlers.
type Tracker interface {
	TrackProduct(ctx context.Context, ownerID int64, rawURL string) (*models.TrackedItem, error)
	ListProducts(ctx context.Context, ownerID int64) ([]models.TrackedItem, error)
	RemoveProduct(ctx context.Context, ownerID int64, id string) error
}
