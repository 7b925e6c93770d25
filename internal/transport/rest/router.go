package rest

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/key-management/internal/auth"
	"github.com/frahmantamala/key-management/internal/history"
	"github.com/frahmantamala/key-management/internal/key"
	"github.com/frahmantamala/key-management/internal/ledger"
	"github.com/frahmantamala/key-management/internal/metrics"
	"github.com/frahmantamala/key-management/internal/transport/middleware"
	"github.com/frahmantamala/key-management/internal/transport/swagger"
	"github.com/frahmantamala/key-management/internal/user"
	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
)

type Handlers struct {
	Auth    *auth.Handler
	Users   *user.Handler
	Keys    *key.Handler
	History *history.Handler
	Ledger  *ledger.Handler
}

type RouterConfig struct {
	Checks      map[string]Checker
	Metrics     *metrics.Metrics
	MetricsPath string
	OpenAPIPath string
	Logger      *slog.Logger
}

func RegisterAllRoutes(router *chi.Mux, h Handlers, cfg RouterConfig) {
	healthHandler := NewHealthHandler(cfg.Checks)

	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(cfg.Logger))
	router.Use(middleware.LoggingMiddleware(cfg.Logger))
	if cfg.Metrics != nil {
		router.Use(cfg.Metrics.Middleware)
		router.Method(http.MethodGet, cfg.MetricsPath, cfg.Metrics.Handler())
	}

	openAPIPath := cfg.OpenAPIPath
	if openAPIPath == "" {
		openAPIPath = "./api/openapi.yml"
	}
	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, openAPIPath)
	})
	router.Handle("/swagger/*", swagger.Handler())

	requireAdmin := auth.RequireAdmin(cfg.Logger)

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		r.Post("/auth/login", h.Auth.Login)

		r.Group(func(pr chi.Router) {
			pr.Use(h.Auth.AuthMiddleware)

			pr.Get("/auth/me", h.Auth.Me)
			pr.Get("/keys", h.Keys.ListKeys)
			pr.Post("/keys/issue", h.Ledger.IssueToSelf)
			pr.Post("/keys/return", h.Ledger.ReturnKey)
			pr.Get("/history", h.History.GetHistory)

			pr.Group(func(ar chi.Router) {
				ar.Use(requireAdmin)

				ar.Post("/keys", h.Keys.CreateKey)
				ar.Delete("/keys/{id}", h.Keys.DeleteKey)
				ar.Post("/keys/{barcode}/issue", h.Ledger.IssueByCard)
				ar.Get("/stats", h.Ledger.GetStats)

				ar.Route("/users", func(ur chi.Router) {
					ur.Get("/", h.Users.ListUsers)
					ur.Post("/", h.Users.CreateUser)
					ur.Get("/password", h.Users.GeneratePassword)
					ur.Get("/{id}", h.Users.GetUser)
					ur.Put("/{id}", h.Users.UpdateUser)
					ur.Delete("/{id}", h.Users.DeleteUser)
					ur.Post("/{id}/toggle", h.Users.ToggleActive)
				})
			})
		})
	})
}
