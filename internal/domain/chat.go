package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

const MaxMessageLength = 2000

// Chat is the conversation between a customer and the deliverer of one order
type Chat struct {
	ID          string
	OrderID     string
	ClientID    string
	DelivererID string
	Messages    []ChatMessage
	CreatedAt   time.Time
}

type ChatMessage struct {
	Sender    string
	Text      string
	Timestamp time.Time
}

// NewChatMessage validates and timestamps a message.
func NewChatMessage(sender, text string) (ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return ChatMessage{}, Validation("message text is required")
	}
	if utf8.RuneCountInString(text) > MaxMessageLength {
		return ChatMessage{}, Validation("message exceeds %d characters", MaxMessageLength)
	}
	return ChatMessage{Sender: sender, Text: text, Timestamp: time.Now().UTC()}, nil
}

// HasParticipant reports whether userID is the client or the deliverer.
func (c *Chat) HasParticipant(userID string) bool {
	return userID != "" && (c.ClientID == userID || c.DelivererID == userID)
}
