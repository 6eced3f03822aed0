package http

import (
	"net/http"

	"github.com/YelzhanWeb/restaurant/internal/adapter/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Handlers groups everything mounted by NewRouter.
type Handlers struct {
	Orders    *OrderHandler
	Delivery  *DeliveryHandler
	Products  *ProductHandler
	Stocks    *StockHandler
	Chats     *ChatHandler
	WebSocket http.Handler
}

type RouterOptions struct {
	AllowedOrigins []string
	Verifier       TokenVerifier
}

func NewRouter(h Handlers, opts RouterOptions, logger logger.Logger) http.Handler {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(LoggingMiddleware(logger))
	router.Use(RecoveryMiddleware(logger))

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	router.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(opts.Verifier, logger))

		r.Route("/api", func(r chi.Router) {
			r.Route("/orders", func(r chi.Router) {
				r.Post("/", h.Orders.CreateOrder)
				r.Get("/", h.Orders.ListOrders)
				r.Get("/customer/{customerId}", h.Orders.ListCustomerOrders)
				r.Get("/{orderId}", h.Orders.GetOrder)
				r.Get("/{orderId}/history", h.Orders.GetHistory)
				r.Patch("/{orderId}/status", h.Orders.UpdateStatus)
				r.Post("/{orderId}/confirm-receipt", h.Orders.ConfirmReceipt)
			})

			r.Route("/deliverer", func(r chi.Router) {
				r.Get("/available-orders", h.Delivery.ListAvailable)
				r.Post("/take-order/{orderId}", h.Delivery.TakeOrder)
				r.Post("/release-order/{orderId}", h.Delivery.ReleaseOrder)
				r.Post("/mark-delivered/{orderId}", h.Delivery.MarkDelivered)
			})

			r.Route("/products", func(r chi.Router) {
				r.Get("/", h.Products.ListProducts)
				r.Post("/", h.Products.CreateProduct)
				r.Get("/top-ordered", h.Products.TopOrdered)
				r.Get("/{productId}", h.Products.GetProduct)
				r.Put("/{productId}", h.Products.UpdateProduct)
				r.Delete("/{productId}", h.Products.DeleteProduct)
				r.Post("/{productId}/rating", h.Products.RateProduct)
			})

			r.Route("/stocks", func(r chi.Router) {
				r.Get("/", h.Stocks.ListStocks)
				r.Post("/", h.Stocks.CreateStock)
				r.Get("/{stockId}", h.Stocks.GetStock)
				r.Put("/{stockId}", h.Stocks.UpdateStock)
				r.Delete("/{stockId}", h.Stocks.DeleteStock)
				r.Post("/{stockId}/restock", h.Stocks.Restock)
			})

			r.Get("/chats/{chatId}", h.Chats.GetChat)
		})

		if h.WebSocket != nil {
			r.Handle("/ws", h.WebSocket)
		}
	})

	return otelhttp.NewHandler(router, "restaurant-api",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}
