package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/zombor/expense-reports/internal/receipt"
	"github.com/zombor/expense-reports/internal/report"
	"github.com/zombor/expense-reports/internal/scanning"
)

// ReceiptService is the receipt workflow the API exposes
type ReceiptService interface {
	UploadImage(owner, filename string, data []byte) (string, error)
	AnalyzeImage(ctx context.Context, owner, imageRef string) (*scanning.Fields, error)
	CreateReceipt(owner string, in receipt.CreateInput) (*receipt.Receipt, error)
	ListReceipts(owner string) ([]*receipt.Receipt, error)
	DeleteReceipt(owner, id string) error
}

// ReportService is the report workflow the API exposes
type ReportService interface {
	RequestReport(ctx context.Context, owner, startDate, endDate, format string) (*report.Report, error)
	ListReports(owner string) ([]*report.Report, error)
	FetchArtifact(owner, reportID, fileName string) ([]byte, *report.Report, error)
}

// Server handles HTTP requests for receipts and reports
type Server struct {
	receipts ReceiptService
	reports  ReportService
	auth     *Authenticator
	mux      *http.ServeMux
}

// NewServer creates a new Server with default mux
func NewServer(receipts ReceiptService, reports ReportService, auth *Authenticator) *Server {
	return NewServerWithMux(receipts, reports, auth, http.NewServeMux())
}

// NewServerWithMux creates a new Server with a custom mux for testing
func NewServerWithMux(receipts ReceiptService, reports ReportService, auth *Authenticator, mux *http.ServeMux) *Server {
	s := &Server{
		receipts: receipts,
		reports:  reports,
		auth:     auth,
		mux:      mux,
	}
	s.registerRoutes()
	return s
}

// corsMiddleware adds CORS headers to every response and answers preflight
// requests directly.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setCORSHeaders(w)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// requireOwner rejects requests without a valid token and passes the owner
// on through the request context.
func (s *Server) requireOwner(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := s.auth.Owner(r)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
			return
		}
		next(w, r.WithContext(withOwner(r.Context(), owner)))
	}
}

// registerRoutes registers all API routes on the server's mux
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("POST /api/upload", s.requireOwner(s.handleUpload))

	s.mux.HandleFunc("POST /api/receipts/analyze", s.requireOwner(s.handleAnalyzeReceipt))
	s.mux.HandleFunc("DELETE /api/receipts/{id}", s.requireOwner(s.handleDeleteReceipt))
	s.mux.HandleFunc("DELETE /api/receipts", s.requireOwner(s.handleDeleteReceipt))
	s.mux.HandleFunc("GET /api/receipts", s.requireOwner(s.handleListReceipts))
	s.mux.HandleFunc("POST /api/receipts", s.requireOwner(s.handleCreateReceipt))

	s.mux.HandleFunc("GET /api/reports/{userId}/{reportId}/{file}", s.requireOwner(s.handleGetArtifact))
	s.mux.HandleFunc("GET /api/reports", s.requireOwner(s.handleListReports))
	s.mux.HandleFunc("POST /api/reports", s.requireOwner(s.handleCreateReport))
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	corsMiddleware(s.mux).ServeHTTP(w, r)
}

// Start serves on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting server", "address", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	slog.Info("Shutting down server")
	return srv.Shutdown(shutdownCtx)
}
