package sqlite

import (
	"context"
	"fmt"
)

// SubscribeChat opts the chat in to price-drop alerts. Subscribing twice is a no-op.
func (r *Repository) SubscribeChat(ctx context.Context, chatID int64) error {
	return r.execSubscription(ctx, "repository.sqlite.SubscribeChat",
		"INSERT OR IGNORE INTO subscriptions (chat_id) VALUES (?)", chatID)
}

// UnsubscribeChat opts the chat out of price-drop alerts.
func (r *Repository) UnsubscribeChat(ctx context.Context, chatID int64) error {
	return r.execSubscription(ctx, "repository.sqlite.UnsubscribeChat",
		"DELETE FROM subscriptions WHERE chat_id = ?", chatID)
}

func (r *Repository) execSubscription(ctx context.Context, op, query string, chatID int64) error {
	if _, err := r.db.ExecContext(ctx, query, chatID); err != nil {
		return fmt.Errorf("%s: chat %d: %w", op, chatID, err)
	}

	r.log.DebugContext(ctx, "Subscription updated", "op", op, "chat", chatID)

	return nil
}

// IsSubscribed reports whether the chat receives price-drop alerts.
func (r *Repository) IsSubscribed(ctx context.Context, chatID int64) (bool, error) {
	const op = "repository.sqlite.IsSubscribed"

	var subscribed bool
	err := r.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM subscriptions WHERE chat_id = ?)", chatID).Scan(&subscribed)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return subscribed, nil
}

// GetSubscribedChats returns the IDs of all subscribed chats in ascending order.
func (r *Repository) GetSubscribedChats(ctx context.Context) ([]int64, error) {
	const opn = "repository.sqlite.GetSubscribedChats"

	rows, err := r.db.QueryContext(ctx, "SELECT chat_id FROM subscriptions ORDER BY chat_id")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opn, err)
	}
	defer rows.Close()

	var chats []int64
	for rows.Next() {
		var chatID int64
		if err = rows.Scan(&chatID); err != nil {
			return nil, fmt.Errorf("%s: failed to scan chat_id: %w", opn, err)
		}
		chats = append(chats, chatID)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows iteration error: %w", opn, err)
	}

	return chats, nil
}
