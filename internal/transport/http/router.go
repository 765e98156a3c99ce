package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type RouterConfig struct {
	Logger         *zap.Logger
	CORSOrigins    []string
	RequestTimeout time.Duration
	// AdminToken enables the /admin routes when non-empty.
	AdminToken string
}

type Services struct {
	Catalog ProductLister
	Users   UserChecker
	Ledger  OrderPlacer
	Orders  OrderGetter
	Admin   AdminService
	DB      Pinger
}

func NewRouter(cfg RouterConfig, svc Services) http.Handler {
	r := chi.NewRouter()
	r.Use(RequestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)
	r.Use(CORS(cfg.CORSOrigins))
	if cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
	}

	r.NotFound(NotFoundHandler().ServeHTTP)
	r.MethodNotAllowed(MethodNotAllowedHandler().ServeHTTP)

	r.Get("/health", HealthHandler)
	if svc.DB != nil {
		r.Get("/ready", ReadyHandler(svc.DB))
	}

	r.Get("/products", HandleListProducts(svc.Catalog))
	r.Post("/orders", HandleCreateOrder(svc.Users, svc.Ledger))
	r.Get("/orders/{id}", HandleGetOrder(svc.Orders))

	if cfg.AdminToken != "" && svc.Admin != nil {
		r.Route("/admin", func(r chi.Router) {
			r.Use(RequireAdminToken(cfg.AdminToken))
			r.Post("/users", HandleAdminCreateUser(svc.Admin))
			r.Post("/products", HandleAdminCreateProduct(svc.Admin))
			r.Put("/products/{id}/price", HandleAdminUpdatePrice(svc.Admin))
			r.Delete("/orders/{id}", HandleAdminDeleteOrder(svc.Admin))
		})
	}
	return r
}
