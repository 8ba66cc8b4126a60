package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/alejandroruanova/esg-pipeline/internal/core/domain"
	"github.com/alejandroruanova/esg-pipeline/internal/core/services/dashboard"
	"github.com/alejandroruanova/esg-pipeline/internal/core/services/pipeline"
)

// Version is reported by the health endpoint
const Version = "0.1.0"

// CompanyStore reads companies
type CompanyStore interface {
	List(ctx context.Context) ([]domain.Company, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Company, error)
}

// DashboardBuilder assembles the company overview
type DashboardBuilder interface {
	Build(ctx context.Context, companyID uuid.UUID) (*dashboard.Dashboard, error)
}

// EmissionLister lists the emission records of a company
type EmissionLister interface {
	ListByCompany(ctx context.Context, companyID uuid.UUID) ([]domain.EmissionRecord, error)
}

// DisclosureLister lists the stored gap assessment of a company
type DisclosureLister interface {
	ListByCompany(ctx context.Context, companyID uuid.UUID) ([]domain.Disclosure, error)
}

// IngestionHistory lists the newest ingestion log entries
type IngestionHistory interface {
	History(ctx context.Context, limit int) ([]domain.IngestionLog, error)
}

// PipelineRunner runs the pipeline inline
type PipelineRunner interface {
	Run(ctx context.Context, companyID uuid.UUID, opts pipeline.Options) (*pipeline.Result, error)
}

// PipelineDispatcher hands a pipeline run to the worker queue
type PipelineDispatcher interface {
	EnqueuePipeline(ctx context.Context, companyID uuid.UUID, period string) (string, error)
}

// HealthChecker reports the state of a backing store. A "status" other than
// "up" marks the service degraded.
type HealthChecker interface {
	Health(ctx context.Context) map[string]interface{}
}

// Deps lists the collaborators of the server. Dispatcher is optional: without
// it pipeline requests run inline through Runner.
type Deps struct {
	Companies   CompanyStore
	Dashboards  DashboardBuilder
	Emissions   EmissionLister
	Disclosures DisclosureLister
	Ingestion   IngestionHistory
	Runner      PipelineRunner
	Dispatcher  PipelineDispatcher
	OutputDir   string
	Checks      map[string]HealthChecker
}

// Server exposes the pipeline read models and the pipeline trigger over HTTP
type Server struct {
	deps   Deps
	logger *slog.Logger
}

// NewServer creates the HTTP API
func NewServer(deps Deps, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{deps: deps, logger: logger}
}

// Routes builds the router
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	r.Route("/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Route("/companies", func(r chi.Router) {
			r.Get("/", s.handleListCompanies)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/dashboard", s.handleDashboard)
				r.Get("/emissions", s.handleEmissions)
				r.Get("/disclosures", s.handleDisclosures)
				r.Post("/pipeline", s.handleRunPipeline)
			})
		})
		r.Get("/ingestion/history", s.handleIngestionHistory)
	})

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Routes(),
		WriteTimeout: 150 * time.Second,
		ReadTimeout:  40 * time.Second,
		IdleTimeout:  time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server started", slog.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("shutting down http server")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("duration", time.Since(start)),
			slog.String("request_id", middleware.GetReqID(r.Context())))
	})
}
