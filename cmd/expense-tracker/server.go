package main

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/Flashmaxi/expense-tracker/internal/auth"
	"github.com/Flashmaxi/expense-tracker/internal/bitcoin"
	"github.com/Flashmaxi/expense-tracker/internal/finance/interfaces"
	"github.com/Flashmaxi/expense-tracker/internal/middleware"
	"github.com/Flashmaxi/expense-tracker/internal/user"
)

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.WithError(err).Warn("Could not encode response")
	}
}

func respondError(w http.ResponseWriter, status int, message string, errors ...[]string) {
	payload := map[string]interface{}{
		"status":  "error",
		"message": message,
		"code":    status,
	}
	if len(errors) > 0 && len(errors[0]) > 0 {
		payload["errors"] = errors[0]
	}
	respondJSON(w, status, payload)
}

type HealthChecker interface {
	Health(ctx context.Context) map[string]string
}

type Server struct {
	router             *http.ServeMux
	health             HealthChecker
	authHandler        *auth.Handler
	authService        auth.Service
	userHandler        *user.Handler
	categoryHandler    *interfaces.CategoryHandler
	transactionHandler *interfaces.TransactionHandler
	bitcoinHandler     *bitcoin.Handler
	metricsHandler     http.Handler
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats := s.health.Health(r.Context())
	if stats["status"] != "up" {
		respondJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":   "ERROR",
			"message":  "Database unavailable",
			"database": stats,
		})
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "OK",
		"message":  "Expense Tracker API is running",
		"database": stats,
	})
}

// muxErrorWriter turns the mux's own plain-text 404 and 405 answers into
// JSON envelopes. The Allow header of a 405 is kept.
type muxErrorWriter struct {
	http.ResponseWriter
	replaced bool
}

func (w *muxErrorWriter) WriteHeader(status int) {
	plain := strings.HasPrefix(w.Header().Get("Content-Type"), "text/plain")
	switch {
	case plain && status == http.StatusNotFound:
		w.replaced = true
		respondError(w.ResponseWriter, status, "Route not found")
	case plain && status == http.StatusMethodNotAllowed:
		w.replaced = true
		respondError(w.ResponseWriter, status, "Method not allowed")
	default:
		w.ResponseWriter.WriteHeader(status)
	}
}

func (w *muxErrorWriter) Write(b []byte) (int, error) {
	if w.replaced {
		return len(b), nil
	}
	return w.ResponseWriter.Write(b)
}

func (w *muxErrorWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func jsonMuxErrors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(&muxErrorWriter{ResponseWriter: w}, r)
	})
}

func (s *Server) RegisterRoutes() {
	protected := s.authService.JWTAccessTokenMiddleware()
	router := http.NewServeMux()

	router.HandleFunc("GET /api/health", s.handleHealth)
	if s.metricsHandler != nil {
		router.Handle("GET /metrics", s.metricsHandler)
	}

	// auth
	router.HandleFunc("POST /api/auth/register", s.authHandler.HandleRegister)
	router.HandleFunc("POST /api/auth/login", s.authHandler.HandleLogin)
	router.HandleFunc("POST /api/auth/request-reset", s.authHandler.RequestPasswordResetHandler)
	router.HandleFunc("POST /api/auth/reset-password", s.authHandler.ResetPasswordHandler)
	router.HandleFunc("GET /api/auth/check-setup", s.authHandler.HandleCheckSetup)
	router.HandleFunc("POST /api/auth/setup-password", s.authHandler.HandleSetupPassword)
	router.HandleFunc("POST /api/auth/login-with-password", s.authHandler.HandleLoginWithPassword)
	router.HandleFunc("POST /api/auth/auto-login", s.authHandler.HandleAutoLogin)
	router.HandleFunc("POST /api/auth/2fa/verify", s.authHandler.HandleVerifyTwoFactor)
	router.HandleFunc("GET /api/auth/currencies", s.userHandler.HandleGetCurrencies)

	router.Handle("GET /api/auth/profile", protected(http.HandlerFunc(s.userHandler.HandleGetUserProfile)))
	router.Handle("PUT /api/auth/currency", protected(http.HandlerFunc(s.userHandler.HandleUpdateCurrency)))
	router.Handle("POST /api/auth/2fa/register", protected(http.HandlerFunc(s.authHandler.HandleRegisterTwoFactor)))
	router.Handle("POST /api/auth/2fa/confirm", protected(http.HandlerFunc(s.authHandler.HandleConfirmTwoFactor)))
	router.Handle("DELETE /api/auth/2fa", protected(http.HandlerFunc(s.authHandler.HandleDisableTwoFactor)))

	// categories
	categoryID := s.categoryHandler.CategoryIDMiddleware
	router.Handle("POST /api/categories", protected(http.HandlerFunc(s.categoryHandler.CreateCategory)))
	router.Handle("GET /api/categories", protected(http.HandlerFunc(s.categoryHandler.GetCategories)))
	router.Handle("GET /api/categories/{id}", protected(categoryID(http.HandlerFunc(s.categoryHandler.GetCategory))))
	router.Handle("PUT /api/categories/{id}", protected(categoryID(http.HandlerFunc(s.categoryHandler.UpdateCategory))))
	router.Handle("DELETE /api/categories/{id}", protected(categoryID(http.HandlerFunc(s.categoryHandler.DeleteCategory))))

	// transactions
	transactionID := s.transactionHandler.TransactionIDMiddleware
	router.Handle("POST /api/transactions", protected(http.HandlerFunc(s.transactionHandler.CreateTransaction)))
	router.Handle("GET /api/transactions", protected(http.HandlerFunc(s.transactionHandler.GetTransactions)))
	router.Handle("GET /api/transactions/summary", protected(http.HandlerFunc(s.transactionHandler.GetSummary)))
	router.Handle("GET /api/transactions/category-summary", protected(http.HandlerFunc(s.transactionHandler.GetCategorySummary)))
	router.Handle("GET /api/transactions/monthly-trends", protected(http.HandlerFunc(s.transactionHandler.GetMonthlyTrends)))
	router.Handle("GET /api/transactions/export", protected(http.HandlerFunc(s.transactionHandler.ExportTransactions)))
	router.Handle("GET /api/transactions/{id}", protected(transactionID(http.HandlerFunc(s.transactionHandler.GetTransaction))))
	router.Handle("PUT /api/transactions/{id}", protected(transactionID(http.HandlerFunc(s.transactionHandler.UpdateTransaction))))
	router.Handle("DELETE /api/transactions/{id}", protected(transactionID(http.HandlerFunc(s.transactionHandler.DeleteTransaction))))

	// bitcoin
	router.Handle("GET /api/bitcoin/price", protected(http.HandlerFunc(s.bitcoinHandler.HandleGetPrice)))
	router.Handle("GET /api/bitcoin/convert", protected(http.HandlerFunc(s.bitcoinHandler.HandleConvert)))

	s.router = router
}

// Handler wraps the router with CORS, request logging and metrics, from
// the outside in.
func (s *Server) Handler(frontendURL string, httpMetrics *middleware.HTTPMetrics) http.Handler {
	handler := jsonMuxErrors(s.router)
	if httpMetrics != nil {
		handler = httpMetrics.Middleware(handler)
	}
	handler = middleware.Logging(handler)
	return middleware.CORS(frontendURL)(handler)
}
