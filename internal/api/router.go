package api

import (
	"net/http"

	"github.com/example/ec-storefront/internal/api/middleware"
	"github.com/example/ec-storefront/internal/auth"
	"github.com/example/ec-storefront/internal/metrics"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
)

type RouterConfig struct {
	Handlers      *Handlers
	AdminHandlers *AdminHandlers
	JWTService    *auth.JWTService
	Metrics       *metrics.ServerMetrics
	// Gatherer backs /metrics; the route is omitted when nil.
	Gatherer prometheus.Gatherer
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()
	r.Use(middleware.LogMiddleware(cfg.Metrics), middleware.RequireJSON)

	h := cfg.Handlers
	r.HandleFunc("/healthz", h.Healthz).Methods(http.MethodGet).Name("healthz")
	if cfg.Gatherer != nil {
		r.Handle("/metrics", metrics.Handler(cfg.Gatherer)).Methods(http.MethodGet).Name("metrics")
	}

	// Storefront
	r.HandleFunc("/products", h.ListProducts).Methods(http.MethodGet).Name("list_products")
	r.HandleFunc("/products/{id:[0-9]+}", h.GetProduct).Methods(http.MethodGet).Name("get_product")
	r.HandleFunc("/categories", h.ListCategories).Methods(http.MethodGet).Name("list_categories")
	r.HandleFunc("/cart", h.GetCart).Methods(http.MethodGet).Name("get_cart")
	r.HandleFunc("/cart/items", h.AddToCart).Methods(http.MethodPost).Name("add_to_cart")
	r.HandleFunc("/cart/items/{id:[0-9]+}/remove", h.RemoveOneFromCart).Methods(http.MethodPost).Name("remove_from_cart")
	r.HandleFunc("/cart/items/{id:[0-9]+}", h.DeleteFromCart).Methods(http.MethodDelete).Name("delete_from_cart")
	r.HandleFunc("/checkout", h.Checkout).Methods(http.MethodPost).Name("checkout")

	// Admin
	a := cfg.AdminHandlers
	r.HandleFunc("/admin/login", a.Login).Methods(http.MethodPost).Name("admin_login")

	admin := r.PathPrefix("/admin").Subrouter()
	admin.Use(middleware.AuthMiddleware(cfg.JWTService), middleware.RequireRole(auth.RoleAdmin))
	admin.HandleFunc("/products", a.CreateProduct).Methods(http.MethodPost).Name("admin_create_product")
	admin.HandleFunc("/products/{id:[0-9]+}", a.UpdateProduct).Methods(http.MethodPut).Name("admin_update_product")
	admin.HandleFunc("/products/{id:[0-9]+}", a.DeleteProduct).Methods(http.MethodDelete).Name("admin_delete_product")
	admin.HandleFunc("/categories/refresh", a.RefreshCategories).Methods(http.MethodPost).Name("admin_refresh_categories")

	return r
}
