package http

import (
	"net/http"

	"github.com/YelzhanWeb/restaurant/internal/adapter/logger"
	"github.com/YelzhanWeb/restaurant/internal/interfaces"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type ProductHandler struct {
	service interfaces.CatalogService
	logger  logger.Logger
}

func NewProductHandler(service interfaces.CatalogService, logger logger.Logger) *ProductHandler {
	return &ProductHandler{service: service, logger: logger}
}

func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.ListProducts(r.Context())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	out := make([]ProductResponse, len(products))
	for i, p := range products {
		out[i] = toProductResponse(p)
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"count": len(out), "products": out})
}

func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.service.GetProduct(r.Context(), chi.URLParam(r, "productId"))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"product": toProductResponse(product)})
}

func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if !decode(w, r, &req) {
		return
	}

	product, err := h.service.CreateProduct(r.Context(), principal(r), req.command())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	h.logger.Info("product_created", "Product created", middleware.GetReqID(r.Context()), map[string]interface{}{
		"product_id": product.ID,
		"name":       product.Name,
	})
	respondJSON(w, http.StatusCreated, map[string]interface{}{"product": toProductResponse(product)})
}

func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if !decode(w, r, &req) {
		return
	}

	product, err := h.service.UpdateProduct(r.Context(), principal(r), chi.URLParam(r, "productId"), req.command())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"product": toProductResponse(product)})
}

func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "productId")
	if err := h.service.DeleteProduct(r.Context(), principal(r), id); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	h.logger.Info("product_deleted", "Product deleted", middleware.GetReqID(r.Context()), map[string]interface{}{
		"product_id": id,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (h *ProductHandler) RateProduct(w http.ResponseWriter, r *http.Request) {
	var req RatingRequest
	if !decode(w, r, &req) {
		return
	}

	p := principal(r)
	if err := checkBodyID(p, "customerId", req.CustomerID); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	product, err := h.service.RateProduct(r.Context(), p, chi.URLParam(r, "productId"), req.Rating)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"product": toProductResponse(product)})
}

// TopOrdered lists the caller's most ordered products; admins may pass customerId.
func (h *ProductHandler) TopOrdered(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	customerID := r.URL.Query().Get("customerId")
	if customerID == "" {
		customerID = p.UserID
	}

	top, err := h.service.TopOrdered(r.Context(), p, customerID)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	out := make([]TopProductResponse, len(top))
	for i, t := range top {
		out[i] = TopProductResponse{ProductResponse: toProductResponse(t.Product), Quantity: t.Quantity}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"count": len(out), "products": out})
}
