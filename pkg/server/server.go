package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/NYTimes/gziphandler"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/levenlabs/go-lflag"

	"github.com/solarfleet/solarfleet/pkg/log"
	"github.com/solarfleet/solarfleet/pkg/scheduler"
	"github.com/solarfleet/solarfleet/pkg/storage"
	"github.com/solarfleet/solarfleet/pkg/vendor"
)

// Adapters resolves a vendor tag to its adapter.
type Adapters interface {
	Adapter(tag string) (vendor.Adapter, error)
}

// Refresher runs one fleet refresh.
type Refresher interface {
	Run(ctx context.Context) (scheduler.RunResult, error)
}

// Server exposes the refresh trigger and the on-demand plant endpoints.
type Server struct {
	adapters  Adapters
	storage   storage.Database
	refresher Refresher
	location  *time.Location

	listenAddr string
	httpServer *http.Server

	refreshAudience string
	refreshEmail    string
	verifyToken     tokenVerifier
	serverName      string
}

// New returns a Server without authentication on the refresh trigger.
func New(a Adapters, s storage.Database, r Refresher) *Server {
	return &Server{
		adapters:   a,
		storage:    s,
		refresher:  r,
		location:   time.UTC,
		listenAddr: ":8080",
		serverName: "solarfleet",
	}
}

// Configured initializes the Server with dependencies.
// It uses lflag to register command-line flags for configuration.
func Configured(a Adapters, s storage.Database, r Refresher) *Server {
	srv := New(a, s, r)
	revision := os.Getenv("K_REVISION")
	if revision != "" {
		srv.serverName = revision
	}

	// get the port from PORT when running in cloud run
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	listenAddr := lflag.String("http-listen", ":"+port, "HTTP server listen address")
	refreshAudience := lflag.String("refresh-audience", "", "audience to validate on id tokens sent to /api/refresh, empty disables the check")
	refreshEmail := lflag.String("refresh-email", "", "service account email allowed to call /api/refresh")
	tz := lflag.String("api-timezone", "America/Sao_Paulo", "IANA timezone used for default dates in the API")

	lflag.Do(func() {
		srv.listenAddr = *listenAddr
		loc, err := time.LoadLocation(*tz)
		if err != nil {
			log.Ctx(context.Background()).Error("invalid api-timezone", slog.String("tz", *tz), slog.Any("error", err))
			os.Exit(1)
		}
		srv.location = loc
		if *refreshAudience == "" {
			return
		}
		if *refreshEmail == "" {
			log.Ctx(context.Background()).Error("refresh-email is required when refresh-audience is set")
			os.Exit(1)
		}
		provider, err := oidc.NewProvider(context.Background(), "https://accounts.google.com")
		if err != nil {
			log.Ctx(context.Background()).Error("failed to initialize Google OIDC provider", slog.Any("error", err))
			os.Exit(1)
		}
		srv.refreshAudience = *refreshAudience
		srv.refreshEmail = *refreshEmail
		srv.verifyToken = oidcVerifier(provider.Verifier(&oidc.Config{ClientID: *refreshAudience}))
	})

	return srv
}

func (s *Server) setupHandler() http.Handler {
	apiMux := http.NewServeMux()
	apiMux.HandleFunc("POST /api/refresh", s.requireRefreshToken(s.handleRefresh))
	apiMux.HandleFunc("GET /api/plants/{id}/parameters", s.handlePlantParameters)
	apiMux.HandleFunc("GET /api/plants/{id}/errors", s.handlePlantErrors)
	apiMux.HandleFunc("GET /api/plants/{id}/chart", s.handlePlantChart)
	apiMux.HandleFunc("POST /api/notifications/{id}/read", s.handleMarkNotificationRead)

	mux := http.NewServeMux()
	mux.Handle("/api/", s.requestLogMiddleware(apiMux))
	mux.HandleFunc("/healthz", s.handleHealthz)
	return s.revisionMiddleware(gziphandler.GzipHandler(securityHeadersMiddleware(mux)))
}

// Run starts the HTTP server and blocks until the context is canceled or an error occurs.
// It also handles graceful shutdown when the context is done.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:        s.listenAddr,
		Handler:     s.setupHandler(),
		ReadTimeout: 15 * time.Second,
		// a refresh polls the whole fleet before answering
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  15 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		defer close(errChan)
		log.Ctx(ctx).InfoContext(ctx, "starting server", slog.String("addr", s.listenAddr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Ctx(ctx).InfoContext(ctx, "shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to write response", slog.Any("error", err))
		panic(http.ErrAbortHandler)
	}
}

func writeJSONError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(struct {
		Error string `json:"error"`
	}{Error: msg}); err != nil {
		slog.Warn("failed to write error response", slog.Any("error", err))
		panic(http.ErrAbortHandler)
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("ok")); err != nil {
		panic(http.ErrAbortHandler)
	}
}

func (s *Server) requestLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := log.With(r.Context(), log.Ctx(r.Context()).With(slog.String("reqPath", r.URL.Path)))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) revisionMiddleware(next http.Handler) http.Handler {
	if s.serverName == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Server", s.serverName)
		next.ServeHTTP(w, r)
	})
}

func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}
