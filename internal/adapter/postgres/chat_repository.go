package postgres

import (
	"context"
	"fmt"

	"github.com/YelzhanWeb/restaurant/internal/domain"
	"github.com/YelzhanWeb/restaurant/internal/interfaces"
)

type chatRepository struct {
	db DB
}

func NewChatRepository(db DB) interfaces.ChatRepository {
	return &chatRepository{db: db}
}

func (r *chatRepository) FindByID(ctx context.Context, id string) (*domain.Chat, error) {
	query := `
		SELECT id, order_id, client_id, deliverer_id, created_at
		FROM chats
		WHERE id = $1
	`

	var chat domain.Chat
	err := r.db.QueryRow(ctx, query, id).Scan(&chat.ID, &chat.OrderID, &chat.ClientID, &chat.DelivererID, &chat.CreatedAt)
	if err != nil {
		return nil, mapError(err, "chat "+id)
	}

	// Load messages
	rows, err := r.db.Query(ctx, `SELECT sender, text, created_at FROM chat_messages WHERE chat_id = $1 ORDER BY id`, id)
	if err != nil {
		return nil, mapError(err, "chat messages")
	}
	defer rows.Close()

	for rows.Next() {
		var msg domain.ChatMessage
		if err := rows.Scan(&msg.Sender, &msg.Text, &msg.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan chat message: %w", err)
		}
		chat.Messages = append(chat.Messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "chat messages")
	}

	return &chat, nil
}

func (r *chatRepository) AppendMessage(ctx context.Context, chatID string, msg domain.ChatMessage) error {
	query := `
		INSERT INTO chat_messages (chat_id, sender, text, created_at)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := r.db.Exec(ctx, query, chatID, msg.Sender, msg.Text, msg.Timestamp); err != nil {
		return mapError(err, "chat "+chatID)
	}
	return nil
}
