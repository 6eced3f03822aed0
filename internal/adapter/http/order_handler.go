package http

import (
	"net/http"

	"github.com/YelzhanWeb/restaurant/internal/adapter/logger"
	"github.com/YelzhanWeb/restaurant/internal/domain"
	"github.com/YelzhanWeb/restaurant/internal/interfaces"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type OrderHandler struct {
	service     interfaces.OrderService
	broadcaster interfaces.EventBroadcaster
	logger      logger.Logger
}

func NewOrderHandler(service interfaces.OrderService, broadcaster interfaces.EventBroadcaster, logger logger.Logger) *OrderHandler {
	return &OrderHandler{
		service:     service,
		broadcaster: broadcaster,
		logger:      logger,
	}
}

func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if !decode(w, r, &req) {
		return
	}

	order, err := h.service.CreateOrder(r.Context(), principal(r), req.command())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	h.logger.Info("order_created", "Order created", middleware.GetReqID(r.Context()), map[string]interface{}{
		"order_number": order.Number,
		"customer_id":  order.CustomerID,
		"items":        len(order.Items),
	})

	respondJSON(w, http.StatusCreated, map[string]interface{}{"order": toOrderResponse(order)})
}

func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	var filter interfaces.OrderFilter
	applied := map[string]string{}

	// Фильтр по статусу необязателен
	if raw := r.URL.Query().Get("status"); raw != "" {
		status, err := domain.ParseStatus(raw)
		if err != nil {
			respondError(w, r, h.logger, err)
			return
		}
		filter.Status = &status
		applied["status"] = raw
	}

	orders, err := h.service.ListOrders(r.Context(), principal(r), filter)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":  len(orders),
		"filter": applied,
		"orders": toOrderResponses(orders),
	})
}

func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.service.GetOrder(r.Context(), principal(r), chi.URLParam(r, "orderId"))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"order": toOrderResponse(order)})
}

func (h *OrderHandler) ListCustomerOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.ListCustomerOrders(r.Context(), principal(r), chi.URLParam(r, "customerId"))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":  len(orders),
		"orders": toOrderResponses(orders),
	})
}

func (h *OrderHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	logs, err := h.service.GetHistory(r.Context(), principal(r), chi.URLParam(r, "orderId"))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	history := make([]StatusLogResponse, len(logs))
	for i, l := range logs {
		history[i] = StatusLogResponse{
			Status:    l.Status,
			ChangedBy: l.ChangedBy,
			ChangedAt: l.ChangedAt,
			Notes:     l.Notes,
		}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"history": history})
}

func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateStatusRequest
	if !decode(w, r, &req) {
		return
	}

	p := principal(r)
	if err := checkBodyID(p, "adminId", req.AdminID); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	change, err := h.service.UpdateStatus(r.Context(), p, interfaces.UpdateStatusCommand{
		OrderID: chi.URLParam(r, "orderId"),
		Status:  req.Status,
	})
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	h.broadcaster.Broadcast(r.Context(), change.Events...)

	h.logger.Info("order_status_updated", "Order status updated", middleware.GetReqID(r.Context()), map[string]interface{}{
		"order_number":    change.OrderNumber,
		"previous_status": change.PreviousStatus,
		"new_status":      change.NewStatus,
	})

	respondJSON(w, http.StatusOK, StatusChangeResponse{
		OrderNumber:    change.OrderNumber,
		PreviousStatus: change.PreviousStatus,
		NewStatus:      change.NewStatus,
	})
}

func (h *OrderHandler) ConfirmReceipt(w http.ResponseWriter, r *http.Request) {
	var req ConfirmReceiptRequest
	if !decodeOptional(w, r, &req) {
		return
	}

	p := principal(r)
	if err := checkBodyID(p, "customerId", req.CustomerID); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	outcome, err := h.service.ConfirmReceipt(r.Context(), p, chi.URLParam(r, "orderId"))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	h.broadcaster.Broadcast(r.Context(), outcome.Events...)
	respondJSON(w, http.StatusOK, map[string]interface{}{"order": toOrderResponse(outcome.Order)})
}
