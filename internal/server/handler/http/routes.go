package http

import (
	"net/http"

	"github.com/atinyakov/teashop/internal/middleware"
	"go.uber.org/zap"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter constructs the HTTP handler that serves the shop API.
//
// Routes:
//
//	GET    /                     → plain-text banner
//	GET    /health               → {"status":"ok"}
//	POST   /api/auth/login       → authHandler.Login
//	GET    /api/data             → ledgerHandler.Data          (auth)
//	POST   /api/today            → ledgerHandler.UpdateToday   (auth)
//	POST   /api/close            → ledgerHandler.Close         (auth)
//	GET    /api/reports          → ledgerHandler.Reports       (auth)
//	GET    /api/reports/export   → ledgerHandler.ExportReports (auth)
//	DELETE /api/reports/{id}     → ledgerHandler.DeleteReport  (auth)
//
// Middleware chain (applied in order):
//  1. RequestID and Recoverer
//  2. WithRequestLogging(logger)
//  3. CORS for allowedOrigins; preflight requests are answered here
//  4. AllowContentType("application/json") for requests with a body
//  5. auth on the protected group
func NewRouter(
	authHandler *AuthHandler,
	ledgerHandler *LedgerHandler,
	auth func(http.Handler) http.Handler,
	allowedOrigins []string,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.WithRequestLogging(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	}))
	r.Use(chiMiddleware.AllowContentType("application/json"))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("Tea-shop backend"))
	})
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		// Public endpoints
		r.Post("/auth/login", authHandler.Login)

		// Protected group: requires a valid bearer token
		r.Group(func(r chi.Router) {
			r.Use(auth)
			r.Get("/data", ledgerHandler.Data)
			r.Post("/today", ledgerHandler.UpdateToday)
			r.Post("/close", ledgerHandler.Close)
			r.Get("/reports", ledgerHandler.Reports)
			r.Get("/reports/export", ledgerHandler.ExportReports)
			r.Delete("/reports/{id}", ledgerHandler.DeleteReport)
		})
	})

	return r
}
