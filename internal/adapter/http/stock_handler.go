package http

import (
	"net/http"

	"github.com/YelzhanWeb/restaurant/internal/adapter/logger"
	"github.com/YelzhanWeb/restaurant/internal/interfaces"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type StockHandler struct {
	service interfaces.InventoryService
	logger  logger.Logger
}

func NewStockHandler(service interfaces.InventoryService, logger logger.Logger) *StockHandler {
	return &StockHandler{service: service, logger: logger}
}

func (h *StockHandler) ListStocks(w http.ResponseWriter, r *http.Request) {
	stocks, err := h.service.ListStocks(r.Context(), principal(r))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	out := make([]StockResponse, len(stocks))
	for i, s := range stocks {
		out[i] = toStockResponse(s)
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"count": len(out), "stocks": out})
}

func (h *StockHandler) GetStock(w http.ResponseWriter, r *http.Request) {
	stock, err := h.service.GetStock(r.Context(), principal(r), chi.URLParam(r, "stockId"))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"stock": toStockResponse(stock)})
}

func (h *StockHandler) CreateStock(w http.ResponseWriter, r *http.Request) {
	var req StockRequest
	if !decode(w, r, &req) {
		return
	}

	stock, err := h.service.CreateStock(r.Context(), principal(r), req.command())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	h.logger.Info("stock_created", "Stock created", middleware.GetReqID(r.Context()), map[string]interface{}{
		"stock_id": stock.ID,
		"name":     stock.Name,
	})
	respondJSON(w, http.StatusCreated, map[string]interface{}{"stock": toStockResponse(stock)})
}

func (h *StockHandler) UpdateStock(w http.ResponseWriter, r *http.Request) {
	var req StockRequest
	if !decode(w, r, &req) {
		return
	}

	stock, err := h.service.UpdateStock(r.Context(), principal(r), chi.URLParam(r, "stockId"), req.command())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"stock": toStockResponse(stock)})
}

func (h *StockHandler) DeleteStock(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "stockId")
	if err := h.service.DeleteStock(r.Context(), principal(r), id); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	h.logger.Info("stock_deleted", "Stock deleted", middleware.GetReqID(r.Context()), map[string]interface{}{
		"stock_id": id,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (h *StockHandler) Restock(w http.ResponseWriter, r *http.Request) {
	var req RestockRequest
	if !decode(w, r, &req) {
		return
	}

	stock, err := h.service.Restock(r.Context(), principal(r), chi.URLParam(r, "stockId"), req.Amount)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	h.logger.Info("stock_restocked", "Stock restocked", middleware.GetReqID(r.Context()), map[string]interface{}{
		"stock_id": stock.ID,
		"amount":   req.Amount,
		"quantity": stock.Quantity,
	})
	respondJSON(w, http.StatusOK, map[string]interface{}{"stock": toStockResponse(stock)})
}
