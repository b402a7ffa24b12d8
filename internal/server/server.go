package server

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/zombor/billed/internal/bill"
	"github.com/zombor/billed/internal/scanning"
	"github.com/zombor/billed/internal/views"
)

// Store is what the HTTP host needs from the bill store
type Store interface {
	views.Store
	Get(ctx context.Context, id string) (*bill.Bill, error)
	ReceiptFile(ctx context.Context, id string) ([]byte, string, error)
}

// BasicAuth holds basic authentication credentials
type BasicAuth struct {
	Username string
	Password string
}

// Enabled reports whether credentials were configured
func (a BasicAuth) Enabled() bool {
	return a.Username != "" || a.Password != ""
}

// Options configures a Server
type Options struct {
	BasicAuth BasicAuth
	// Employee is the session user when basic auth is off
	Employee views.User
	// Scanner is optional; receipt scanning is disabled when nil
	Scanner   scanning.Scanner
	RateLimit RateLimiterConfig
}

// Server hosts the bill list and new-bill form over HTTP
type Server struct {
	store     Store
	scanner   scanning.Scanner
	basicAuth BasicAuth
	employee  views.User
	limiter   *RateLimiter
	mux       *http.ServeMux
}

// NewServer creates a new Server with default mux
func NewServer(store Store, opts Options) *Server {
	return NewServerWithMux(store, opts, http.NewServeMux())
}

// NewServerWithMux creates a new Server with a custom mux for testing
func NewServerWithMux(store Store, opts Options, mux *http.ServeMux) *Server {
	employee := opts.Employee
	if employee.Type == "" {
		employee.Type = "Employee"
	}

	s := &Server{
		store:     store,
		scanner:   opts.Scanner,
		basicAuth: opts.BasicAuth,
		employee:  employee,
		mux:       mux,
	}
	if opts.RateLimit.RequestsPerSecond > 0 {
		s.limiter = NewRateLimiter(opts.RateLimit)
	}
	s.registerRoutes()
	return s
}

// credentials returns the basic auth pair sent with r, if any
func credentials(r *http.Request) (string, string, bool) {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Basic ") {
		return "", "", false
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(auth, "Basic "))
	if err != nil {
		return "", "", false
	}

	user, pass, ok := strings.Cut(string(decoded), ":")
	return user, pass, ok
}

// authenticate checks basic auth credentials
func (s *Server) authenticate(r *http.Request) bool {
	if !s.basicAuth.Enabled() {
		return true // No auth required if not configured
	}

	user, pass, ok := credentials(r)
	return ok && user == s.basicAuth.Username && pass == s.basicAuth.Password
}

// session returns the signed-in employee for r.
// With basic auth on, the username is the employee's email.
func (s *Server) session(r *http.Request) views.Session {
	if s.basicAuth.Enabled() {
		if user, _, ok := credentials(r); ok && user != "" {
			return views.StaticSession{Type: s.employee.Type, Email: user}
		}
	}
	return views.StaticSession(s.employee)
}

// corsMiddleware adds CORS headers to responses
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setCORSHeaders(w)

		// Handle preflight OPTIONS requests
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// requireAuth middleware
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.authenticate(r) {
			w.Header().Set("WWW-Authenticate", `Basic realm="Billed"`)
			corsError(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// limited applies the per-client rate limit, when one is configured
func (s *Server) limited(next http.HandlerFunc) http.HandlerFunc {
	if s.limiter == nil {
		return next
	}
	return s.limiter.Middleware(s.clientKey, next)
}

// registerRoutes registers all routes on the server's mux
func (s *Server) registerRoutes() {
	// UI
	s.mux.HandleFunc("GET /bills/actions/new-bill", s.requireAuth(s.handleNewBillIntent))
	s.mux.HandleFunc("GET /bills/new", s.requireAuth(s.handleNewBillForm))
	s.mux.HandleFunc("POST /bills/new", s.requireAuth(s.limited(s.handleSubmitNewBill)))
	s.mux.HandleFunc("GET /bills/{id}/receipt", s.requireAuth(s.handleViewReceipt))
	s.mux.HandleFunc("GET /bills", s.requireAuth(s.handleBills))

	// API
	s.mux.HandleFunc("GET /api/bills/{id}", s.requireAuth(s.handleGetBill))
	s.mux.HandleFunc("GET /api/bills", s.requireAuth(s.handleListBills))
	s.mux.HandleFunc("POST /api/bills", s.requireAuth(s.limited(s.handleCreateBill)))
	s.mux.HandleFunc("POST /api/receipts/scan", s.requireAuth(s.limited(s.handleScanReceipt)))

	s.mux.HandleFunc("GET /{$}", s.requireAuth(s.handleRoot))
}

// Handler returns the mux wrapped with CORS handling
func (s *Server) Handler() http.Handler {
	return s.corsMiddleware(s.mux)
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
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
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close releases the rate limiter's background cleanup
func (s *Server) Close() {
	if s.limiter != nil {
		s.limiter.Stop()
	}
}

// ServeHTTP implements http.Handler for testing
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Handler().ServeHTTP(w, r)
}
