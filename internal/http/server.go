// Package http exposes the treasury ledger as a JSON API.
package http

import (
	"context"
	"net/http"
	"time"

	"tesoreria/internal/attach"
	"tesoreria/internal/auth"
	"tesoreria/internal/middleware/ratelimit"
	"tesoreria/internal/middleware/security"
	"tesoreria/internal/middleware/trace"
	"tesoreria/internal/services"
	"tesoreria/internal/storage"
)

type Server struct {
	httpServer *http.Server
	limiter    *ratelimit.Limiter

	transactions *services.TransactionService
	ledger       *services.LedgerService
	catalog      *services.CatalogService
	importer     *services.CatalogImporter
	storage      *storage.SQLiteRepository
	blobs        *attach.Store
}

// Options bundles the dependencies of the API server.
type Options struct {
	Addr         string
	JWTSecret    string
	Transactions *services.TransactionService
	Ledger       *services.LedgerService
	Catalog      *services.CatalogService
	Importer     *services.CatalogImporter
	Storage      *storage.SQLiteRepository
	Blobs        *attach.Store
	RateLimit    ratelimit.Config
}

func NewServer(opts Options) *Server {
	s := &Server{
		limiter:      ratelimit.NewLimiter(opts.RateLimit),
		transactions: opts.Transactions,
		ledger:       opts.Ledger,
		catalog:      opts.Catalog,
		importer:     opts.Importer,
		storage:      opts.Storage,
		blobs:        opts.Blobs,
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	api := http.NewServeMux()

	api.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	api.HandleFunc("GET /api/transactions", s.handleListTransactions)
	api.HandleFunc("GET /api/transactions/{id}", s.handleGetTransaction)
	api.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)
	api.HandleFunc("GET /api/transactions/{id}/summary", s.handleTransactionSummary)

	api.HandleFunc("GET /api/transactions/{id}/payments", s.handleListPayments)
	api.HandleFunc("POST /api/transactions/{id}/payments", s.handleAddPayment)
	api.HandleFunc("DELETE /api/payments/{id}", s.handleDeletePayment)

	api.HandleFunc("POST /api/transactions/{id}/attachments", s.handleUploadTransactionAttachment)
	api.HandleFunc("GET /api/transactions/{id}/attachments", s.handleListTransactionAttachments)
	api.HandleFunc("POST /api/payments/{id}/attachments", s.handleUploadPaymentAttachment)
	api.HandleFunc("GET /api/payments/{id}/attachments", s.handleListPaymentAttachments)
	api.HandleFunc("GET /api/attachments/{path...}", s.handleDownloadAttachment)

	api.HandleFunc("POST /api/recurring-expenses", s.handleCreateRecurring)
	api.HandleFunc("GET /api/recurring-expenses", s.handleListRecurring)
	api.HandleFunc("GET /api/recurring-expenses/{id}", s.handleGetRecurring)
	api.HandleFunc("PUT /api/recurring-expenses/{id}/active", s.handleSetRecurringActive)

	api.HandleFunc("GET /api/generals", s.handleListGenerals)
	api.HandleFunc("POST /api/generals", s.handleCreateGeneral)
	api.HandleFunc("DELETE /api/generals/{id}", s.handleDeleteGeneral)
	api.HandleFunc("GET /api/concepts", s.handleListConcepts)
	api.HandleFunc("POST /api/concepts", s.handleCreateConcept)
	api.HandleFunc("DELETE /api/concepts/{id}", s.handleDeleteConcept)
	api.HandleFunc("GET /api/subconcepts", s.handleListSubconcepts)
	api.HandleFunc("POST /api/subconcepts", s.handleCreateSubconcept)
	api.HandleFunc("DELETE /api/subconcepts/{id}", s.handleDeleteSubconcept)
	api.HandleFunc("GET /api/providers", s.handleListProviders)
	api.HandleFunc("POST /api/providers", s.handleCreateProvider)
	api.HandleFunc("DELETE /api/providers/{id}", s.handleDeleteProvider)

	api.HandleFunc("POST /api/import/catalog", s.handleImportCatalog)

	mux.Handle("/api/", auth.Middleware(opts.JWTSecret)(api))

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	tracer := trace.NewMiddleware(security.ExtractClientIP)
	rateLimited := s.limiter.Middleware(security.ExtractClientIP)

	handler := tracer.Middleware(headers.Middleware(rateLimited(mux)))

	s.httpServer = &http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Handler exposes the full middleware chain, used by tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.limiter.Stop()
	return s.httpServer.Shutdown(ctx)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady reports readiness only when the database answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.storage == nil {
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
		return
	}
	if err := s.storage.Ping(r.Context()); err != nil {
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
