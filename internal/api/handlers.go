package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/alejandroruanova/esg-pipeline/internal/core/domain"
	"github.com/alejandroruanova/esg-pipeline/internal/core/services/dashboard"
	"github.com/alejandroruanova/esg-pipeline/internal/core/services/pipeline"
)

const (
	defaultHistoryLimit = 10
	maxHistoryLimit     = 500
)

// PipelineRequest is the optional body of a pipeline trigger
type PipelineRequest struct {
	Period string `json:"period"`
}

// PipelineQueued is returned when the run was handed to the worker
type PipelineQueued struct {
	TaskID string `json:"task_id"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status, code := "available", http.StatusOK
	checks := make(map[string]interface{}, len(s.deps.Checks))
	for name, c := range s.deps.Checks {
		h := c.Health(r.Context())
		if h["status"] != "up" {
			status, code = "degraded", http.StatusServiceUnavailable
		}
		checks[name] = h
	}

	data := map[string]interface{}{
		"status":  status,
		"version": Version,
	}
	if len(checks) > 0 {
		data["checks"] = checks
	}
	if err := writeJSON(w, code, data); err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) handleListCompanies(w http.ResponseWriter, r *http.Request) {
	companies, err := s.deps.Companies.List(r.Context())
	if err != nil {
		s.logger.Error("failed to list companies", slog.Any("error", err))
		writeAppError(w, err)
		return
	}
	if companies == nil {
		companies = []domain.Company{}
	}
	writeJSON(w, http.StatusOK, &Response[[]domain.Company]{Success: true, Data: companies})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	id, ok := companyID(w, r)
	if !ok {
		return
	}

	d, err := s.deps.Dashboards.Build(r.Context(), id)
	if err != nil {
		s.logger.Error("failed to build dashboard",
			slog.String("company_id", id.String()),
			slog.Any("error", err))
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, &Response[*dashboard.Dashboard]{Success: true, Data: d})
}

func (s *Server) handleEmissions(w http.ResponseWriter, r *http.Request) {
	id, ok := s.existingCompany(w, r)
	if !ok {
		return
	}

	records, err := s.deps.Emissions.ListByCompany(r.Context(), id)
	if err != nil {
		s.logger.Error("failed to list emissions", slog.Any("error", err))
		writeAppError(w, err)
		return
	}
	if records == nil {
		records = []domain.EmissionRecord{}
	}
	writeJSON(w, http.StatusOK, &Response[[]domain.EmissionRecord]{Success: true, Data: records})
}

func (s *Server) handleDisclosures(w http.ResponseWriter, r *http.Request) {
	id, ok := s.existingCompany(w, r)
	if !ok {
		return
	}

	disclosures, err := s.deps.Disclosures.ListByCompany(r.Context(), id)
	if err != nil {
		s.logger.Error("failed to list disclosures", slog.Any("error", err))
		writeAppError(w, err)
		return
	}
	if disclosures == nil {
		disclosures = []domain.Disclosure{}
	}
	writeJSON(w, http.StatusOK, &Response[[]domain.Disclosure]{Success: true, Data: disclosures})
}

func (s *Server) handleIngestionHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		l, err := strconv.Atoi(v)
		if err != nil || l < 1 {
			writeJSONError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(l, maxHistoryLimit)
	}

	entries, err := s.deps.Ingestion.History(r.Context(), limit)
	if err != nil {
		s.logger.Error("failed to load ingestion history", slog.Any("error", err))
		writeAppError(w, err)
		return
	}
	if entries == nil {
		entries = []domain.IngestionLog{}
	}
	writeJSON(w, http.StatusOK, &Response[[]domain.IngestionLog]{Success: true, Data: entries})
}

// handleRunPipeline enqueues a chained run when a dispatcher is configured,
// otherwise runs every step before responding
func (s *Server) handleRunPipeline(w http.ResponseWriter, r *http.Request) {
	id, ok := s.existingCompany(w, r)
	if !ok {
		return
	}

	var req PipelineRequest
	if err := readJSON(w, r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	if s.deps.Dispatcher != nil {
		taskID, err := s.deps.Dispatcher.EnqueuePipeline(r.Context(), id, req.Period)
		if err != nil {
			s.logger.Error("failed to enqueue pipeline",
				slog.String("company_id", id.String()),
				slog.Any("error", err))
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusAccepted, &Response[PipelineQueued]{
			Success: true,
			Message: "pipeline queued",
			Data:    PipelineQueued{TaskID: taskID},
		})
		return
	}

	res, err := s.deps.Runner.Run(r.Context(), id, pipeline.Options{Period: req.Period, OutputDir: s.deps.OutputDir})
	if err != nil {
		s.logger.Error("pipeline run failed",
			slog.String("company_id", id.String()),
			slog.Any("error", err))
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, &Response[*pipeline.Result]{Success: true, Message: "pipeline complete", Data: res})
}

func companyID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid company id")
		return uuid.Nil, false
	}
	return id, true
}

// existingCompany parses the id and fails with 404 when the company is unknown
func (s *Server) existingCompany(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, ok := companyID(w, r)
	if !ok {
		return uuid.Nil, false
	}
	if _, err := s.deps.Companies.FindByID(r.Context(), id); err != nil {
		writeAppError(w, err)
		return uuid.Nil, false
	}
	return id, true
}
