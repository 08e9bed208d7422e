package postgres

import (
	"context"
	"fmt"
)

// SubscribeChat opts the chat in to price-drop alerts.
func (r *Repository) SubscribeChat(ctx context.Context, chatID int64) error {
	const op = "repository.postgres.SubscribeChat"
	_, err := r.pool.Exec(ctx, "INSERT INTO subscriptions (chat_id) VALUES ($1) ON CONFLICT DO NOTHING", chatID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// UnsubscribeChat opts the chat out of price-drop alerts.
func (r *Repository) UnsubscribeChat(ctx context.Context, chatID int64) error {
	const op = "repository.postgres.UnsubscribeChat"
	_, err := r.pool.Exec(ctx, "DELETE FROM subscriptions WHERE chat_id = $1", chatID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// IsSubscribed reports whether the chat receives price-drop alerts.
func (r *Repository) IsSubscribed(ctx context.Context, chatID int64) (bool, error) {
	const op = "repository.postgres.IsSubscribed"

	var exists bool
	err := r.pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM subscriptions WHERE chat_id = $1)", chatID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return exists, nil
}

// GetSubscribedChats returns all subscribed chat IDs.
func (r *Repository) GetSubscribedChats(ctx context.Context) ([]int64, error) {
	const opn = "repository.postgres.GetSubscribedChats"
	rows, err := r.pool.Query(ctx, "SELECT chat_id FROM subscriptions ORDER BY chat_id")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opn, err)
	}
	defer rows.Close()

	var chatIDs []int64
	for rows.Next() {
		var id int64
		if err = rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%s: failed to scan chat_id: %w", opn, err)
		}
		chatIDs = append(chatIDs, id)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows iteration error: %w", opn, err)
	}

	return chatIDs, nil
}
