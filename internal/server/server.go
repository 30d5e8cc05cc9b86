package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/gymvault/gymvault/internal/auth"
	"github.com/gymvault/gymvault/internal/backup"
	"github.com/gymvault/gymvault/internal/logging"
	"github.com/gymvault/gymvault/internal/metrics"
	"github.com/gymvault/gymvault/internal/model"
	"github.com/gymvault/gymvault/internal/state"
)

// Manager is the slice of the backup lifecycle the API exposes.
type Manager interface {
	CreateBackup(ctx context.Context, destPath string) (model.BackupRecord, error)
	CreateBackupEnhanced(ctx context.Context, opts backup.EnhancedOptions) (model.BackupRecord, error)
	Restore(ctx context.Context, sourcePath string) error
	Repair(ctx context.Context) error
	ScheduleRecurringBackup(cfg model.ScheduleConfig) error
	ActiveSchedule(ctx context.Context) model.ScheduleView
	SuggestBackupPath() string
}

var _ Manager = (*backup.Manager)(nil)

// Options wires the server's collaborators.
type Options struct {
	Manager     Manager
	Runs        *state.DB
	Logs        *logging.Logger
	Auth        *auth.Auth
	Listen      string
	CORSOrigins []string // extra allowed origins beyond the localhost defaults
}

// Server is the HTTP façade over the backup manager. The gym desktop app is
// the primary client; every operation it needs maps to one route.
type Server struct {
	opts   Options
	router chi.Router
}

func New(opts Options) *Server {
	s := &Server{opts: opts}
	s.router = s.buildRouter()
	return s
}

// Handler returns the assembled router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// The desktop app normally talks to us on the same machine, so localhost
	// origins cover development; production origins come from the config.
	corsOrigins := []string{
		"http://localhost:3000",
		"http://localhost:5173",
		"http://localhost:8080",
		"http://127.0.0.1:3000",
		"http://127.0.0.1:5173",
		"http://127.0.0.1:8080",
	}
	corsOrigins = append(corsOrigins, s.opts.CORSOrigins...)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", handleHealth())
		r.Post("/auth/login", handleLogin(s.opts.Auth))

		r.Group(func(r chi.Router) {
			r.Use(s.opts.Auth.Middleware)

			r.Post("/auth/logout", handleLogout(s.opts.Auth))

			r.Post("/backup", handleBackup(s.opts.Manager))
			r.Post("/backup/enhanced", handleBackupEnhanced(s.opts.Manager))
			r.Get("/backup/path", handleBackupPath(s.opts.Manager))
			r.Post("/restore", handleRestore(s.opts.Manager))
			r.Post("/repair", handleRepair(s.opts.Manager))

			r.Put("/schedule", handleSetSchedule(s.opts.Manager))
			r.Get("/schedule", handleGetSchedule(s.opts.Manager))
			r.Get("/runs", handleGetRuns(s.opts.Runs))
			r.Get("/logs", handleGetLogs(s.opts.Logs))

			r.Post("/drive/auth-url", handleDriveAuthURL())
			r.Post("/drive/exchange", handleDriveExchange())
		})
	})

	r.Handle("/metrics", metrics.Handler())

	return r
}

// Start serves until ctx is canceled, then drains in-flight requests.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Listen,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
