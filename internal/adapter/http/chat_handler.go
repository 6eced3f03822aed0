package http

import (
	"net/http"

	"github.com/YelzhanWeb/restaurant/internal/adapter/logger"
	"github.com/YelzhanWeb/restaurant/internal/interfaces"
	"github.com/go-chi/chi/v5"
)

type ChatHandler struct {
	service interfaces.ChatService
	logger  logger.Logger
}

func NewChatHandler(service interfaces.ChatService, logger logger.Logger) *ChatHandler {
	return &ChatHandler{service: service, logger: logger}
}

func (h *ChatHandler) GetChat(w http.ResponseWriter, r *http.Request) {
	chat, err := h.service.History(r.Context(), principal(r), chi.URLParam(r, "chatId"))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"chat": toChatResponse(chat)})
}
