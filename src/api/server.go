package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/rentease/rentledger/src/config"
)

// NewRouter assembles the HTTP routes for the ledger.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/bills", h.CreateBill)
		r.Post("/payments", h.ApplyPayment)
		r.Post("/rent-status", h.RentStatus)
		r.Get("/tenants/{tenantID}/outstanding", h.TenantOutstanding)
		r.Get("/landlords/{landlordID}/outstanding", h.LandlordOutstanding)
	})

	return r
}

// NewServer builds the http.Server with the configured timeouts.
func NewServer(cfg config.ServerConfig, handler http.Handler, logger *zap.Logger) *http.Server {
	addr := fmt.Sprintf(":%d", cfg.Port)
	logger.Info("http server configured", zap.String("addr", addr))
	return &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}
