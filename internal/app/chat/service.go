package chat

import (
	"context"

	"github.com/YelzhanWeb/restaurant/internal/adapter/logger"
	"github.com/YelzhanWeb/restaurant/internal/app/access"
	"github.com/YelzhanWeb/restaurant/internal/domain"
	"github.com/YelzhanWeb/restaurant/internal/interfaces"
)

type Service struct {
	chats  interfaces.ChatRepository
	guard  *access.Guard
	logger logger.Logger
}

func NewService(chats interfaces.ChatRepository, users interfaces.UserRepository, logger logger.Logger) *Service {
	return &Service{
		chats:  chats,
		guard:  access.NewGuard(users),
		logger: logger,
	}
}

// Join authorises a subscription to the chat room. Only the two participants
// and admins may follow a chat.
func (s *Service) Join(ctx context.Context, p domain.Principal, chatID string) (*domain.Chat, error) {
	_, chat, err := s.load(ctx, p, chatID)
	return chat, err
}

func (s *Service) History(ctx context.Context, p domain.Principal, chatID string) (*domain.Chat, error) {
	_, chat, err := s.load(ctx, p, chatID)
	return chat, err
}

// Send appends a message to the chat log and returns the room event for it.
func (s *Service) Send(ctx context.Context, p domain.Principal, chatID, text string) (*interfaces.SentMessage, error) {
	user, chat, err := s.load(ctx, p, chatID)
	if err != nil {
		return nil, err
	}

	msg, err := domain.NewChatMessage(user.ID, text)
	if err != nil {
		return nil, err
	}
	if err := s.chats.AppendMessage(ctx, chat.ID, msg); err != nil {
		return nil, err
	}

	s.logger.Debug("chat_message_sent", "Chat message stored", "", map[string]interface{}{
		"chat_id": chat.ID,
		"sender":  user.ID,
	})

	return &interfaces.SentMessage{
		ChatID:  chat.ID,
		Message: msg,
		Events: []domain.Event{
			domain.NewEvent(domain.EventChatMessage, domain.ChatRoom(chat.ID), map[string]interface{}{
				"chatId":      chat.ID,
				"sender":      msg.Sender,
				"text":        msg.Text,
				"imagesFiles": []string{},
				"otherFiles":  []string{},
				"timestamp":   msg.Timestamp,
			}),
		},
	}, nil
}

func (s *Service) load(ctx context.Context, p domain.Principal, chatID string) (*domain.User, *domain.Chat, error) {
	user, err := s.guard.Require(ctx, p)
	if err != nil {
		return nil, nil, err
	}

	chat, err := s.chats.FindByID(ctx, chatID)
	if err != nil {
		return nil, nil, err
	}
	if user.Role != domain.RoleAdmin && !chat.HasParticipant(user.ID) {
		return nil, nil, domain.Unauthorized("not a participant of this chat")
	}
	return user, chat, nil
}
