// Package repository defines the storage contract for tracked items.
package repository

import (
	"context"
	"errors"

	"github.com/Houeta/pricewatch/internal/models"
)

var (
	// ErrItemNotFound is returned when no tracked item matches the lookup.
	ErrItemNotFound = errors.New("tracked item not found")
	// ErrItemExists is returned by Create when the owner already tracks the URL.
	ErrItemExists = errors.New("tracked item already exists")
	// ErrStaleItem is returned by Update when the item changed since it was read.
	ErrStaleItem = errors.New("tracked item was modified concurrently")
	// ErrPersistence marks storage failures surfaced to callers of the services.
	ErrPersistence = errors.New("persistence error")
)

// Store persists tracked items together with their price history.
type Store interface {
	FindAll(ctx context.Context) ([]models.TrackedItem, error)
	FindByKey(ctx context.Context, canonicalURL string, ownerID int64) (*models.TrackedItem, error)
	FindByID(ctx context.Context, id string) (*models.TrackedItem, error)
	FindByOwner(ctx context.Context, ownerID int64) ([]models.TrackedItem, error)
	// Create inserts a new item with its whole history.
	Create(ctx context.Context, item *models.TrackedItem) error
	// Update writes an item read at item.Version and appends the samples that
	// follow the stored history. It never inserts the item; a removed item
	// yields ErrItemNotFound and a concurrently updated one ErrStaleItem.
	// On success item.Version is advanced.
	Update(ctx context.Context, item *models.TrackedItem) error
	DeleteByID(ctx context.Context, id string) error
}

// Subscriptions stores the chats that opted in to price-drop alerts.
type Subscriptions interface {
	SubscribeChat(ctx context.Context, chatID int64) error
	UnsubscribeChat(ctx context.Context, chatID int64) error
	IsSubscribed(ctx context.Context, chatID int64) (bool, error)
	GetSubscribedChats(ctx context.Context) ([]int64, error)
}
