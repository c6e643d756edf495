package http

import (
	"net/http"
	"time"

	"github.com/fjod/go_foodcart/internal/auth"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type RouterDeps struct {
	Tokens         TokenParser
	Carts          CartService
	Orders         OrderService
	StoreOrders    StoreOrderService
	RequestTimeout time.Duration
}

func NewRouter(deps RouterDeps) http.Handler {
	cartHandler := NewCartHandler(deps.Carts, deps.RequestTimeout)
	ordersHandler := NewOrdersHandler(deps.Orders, deps.RequestTimeout)
	storeOrdersHandler := NewStoreOrdersHandler(deps.StoreOrders, deps.RequestTimeout)

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.Timeout(deps.RequestTimeout))
	r.Use(middleware.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(AuthMiddleware(deps.Tokens))

		r.Group(func(r chi.Router) {
			r.Use(RequireRole(auth.RoleUser))

			r.Route("/carts", func(r chi.Router) {
				r.Get("/", cartHandler.GetCart)
				r.Post("/", cartHandler.AddItem)
				r.Patch("/items/{foodId}", cartHandler.UpdateQuantity)
				r.Delete("/items/{foodId}", cartHandler.RemoveItem)
			})

			r.Route("/orders", func(r chi.Router) {
				r.Post("/", ordersHandler.CreateOrder)
				r.Get("/", ordersHandler.ListOrders)
				r.Get("/{orderId}", ordersHandler.GetOrder)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(RequireRole(auth.RoleShop))

			r.Get("/stores/orders/{storeId}", storeOrdersHandler.ListOrders)
			r.Patch("/stores/orders/{storeId}/{orderId}/status", storeOrdersHandler.UpdateStatus)
		})
	})

	return otelhttp.NewHandler(r, "foodcart")
}
