package http

import (
	"context"
	"net/http"

	"github.com/YelzhanWeb/restaurant/internal/adapter/logger"
	"github.com/YelzhanWeb/restaurant/internal/domain"
	"github.com/YelzhanWeb/restaurant/internal/interfaces"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type DeliveryHandler struct {
	service     interfaces.DeliveryService
	broadcaster interfaces.EventBroadcaster
	logger      logger.Logger
}

func NewDeliveryHandler(service interfaces.DeliveryService, broadcaster interfaces.EventBroadcaster, logger logger.Logger) *DeliveryHandler {
	return &DeliveryHandler{
		service:     service,
		broadcaster: broadcaster,
		logger:      logger,
	}
}

func (h *DeliveryHandler) ListAvailable(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.ListAvailable(r.Context(), principal(r))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":  len(orders),
		"orders": toOrderResponses(orders),
	})
}

// TakeOrder answers a lost race with 404 so clients treat the order as gone.
func (h *DeliveryHandler) TakeOrder(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, "order_taken", h.service.TakeOrder, map[domain.Kind]int{
		domain.KindConflict: http.StatusNotFound,
	})
}

func (h *DeliveryHandler) ReleaseOrder(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, "order_released", h.service.ReleaseOrder, nil)
}

func (h *DeliveryHandler) MarkDelivered(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, "order_delivered", h.service.MarkDelivered, nil)
}

type claimStep func(ctx context.Context, p domain.Principal, orderID string) (*interfaces.DeliveryOutcome, error)

func (h *DeliveryHandler) run(w http.ResponseWriter, r *http.Request, action string, step claimStep, overrides map[domain.Kind]int) {
	var req DelivererRequest
	if !decodeOptional(w, r, &req) {
		return
	}

	p := principal(r)
	if err := checkBodyID(p, "delivererId", req.DelivererID); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	orderID := chi.URLParam(r, "orderId")
	outcome, err := step(r.Context(), p, orderID)
	if err != nil {
		respondErrorStatus(w, r, h.logger, err, overrides[domain.KindOf(err)])
		return
	}

	h.broadcaster.Broadcast(r.Context(), outcome.Events...)

	h.logger.Info(action, "Delivery step completed", middleware.GetReqID(r.Context()), map[string]interface{}{
		"order_id":     orderID,
		"deliverer_id": p.UserID,
		"status":       outcome.Order.Status,
	})

	respondJSON(w, http.StatusOK, map[string]interface{}{"order": toOrderResponse(outcome.Order)})
}
