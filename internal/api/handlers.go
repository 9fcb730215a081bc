package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mariusadrian77/Acties-Dutch-Groceries/internal/database"
	"github.com/mariusadrian77/Acties-Dutch-Groceries/internal/fetch"
	"github.com/mariusadrian77/Acties-Dutch-Groceries/internal/jobs"
)

type Handlers struct {
	db     *database.DB
	jobs   *jobs.Manager
	api    *fetch.APIClient
	logger *slog.Logger
}

func NewHandlers(db *database.DB, jobManager *jobs.Manager, apiClient *fetch.APIClient, logger *slog.Logger) *Handlers {
	return &Handlers{
		db:     db,
		jobs:   jobManager,
		api:    apiClient,
		logger: logger,
	}
}

// CreateJobRequest represents a new crawl job request
type CreateJobRequest struct {
	TaxonomyID string `json:"taxonomy_id"`
	Query      string `json:"query"`
	Source     string `json:"source"`
	BonusOnly  bool   `json:"bonus_only"`
	MaxPages   int    `json:"max_pages"`
}

// CreateJobResponse represents the job creation response
type CreateJobResponse struct {
	JobID   string `json:"job_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// CreateJob handles new crawl job creation
func (h *Handlers) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req CreateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.TaxonomyID == "" && req.Query == "" {
		h.respondError(w, http.StatusBadRequest, "either taxonomy_id or query is required")
		return
	}

	if req.Source == "" {
		req.Source = jobs.SourceHTML
	}
	if req.Source != jobs.SourceHTML && req.Source != jobs.SourceAPI {
		h.respondError(w, http.StatusBadRequest, "source must be html or api")
		return
	}

	job, err := h.jobs.CreateJob(r.Context(), req.TaxonomyID, req.Query, req.Source, req.BonusOnly, req.MaxPages)
	if err != nil {
		h.logger.Error("failed to create job", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to create job")
		return
	}

	h.respondJSON(w, http.StatusCreated, CreateJobResponse{
		JobID:   job.ID,
		Status:  job.Status,
		Message: "Job created successfully",
	})
}

// GetJob handles job status retrieval
func (h *Handlers) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	if jobID == "" {
		h.respondError(w, http.StatusBadRequest, "job ID is required")
		return
	}

	job, err := h.jobs.GetJob(r.Context(), jobID)
	if errors.Is(err, jobs.ErrJobNotFound) {
		h.respondError(w, http.StatusNotFound, "job not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to get job", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to get job")
		return
	}

	h.respondJSON(w, http.StatusOK, job)
}

// ListJobs handles listing all jobs
func (h *Handlers) ListJobs(w http.ResponseWriter, r *http.Request) {
	jobList, err := h.jobs.ListJobs(r.Context())
	if err != nil {
		h.logger.Error("failed to list jobs", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to list jobs")
		return
	}

	h.respondJSON(w, http.StatusOK, jobList)
}

// GetProduct handles stored product lookup by webshop id
func (h *Handlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")
	if productID == "" {
		h.respondError(w, http.StatusBadRequest, "product ID is required")
		return
	}

	product, err := h.db.GetProduct(r.Context(), productID)
	if err != nil {
		h.respondError(w, http.StatusNotFound, "product not found")
		return
	}

	h.respondJSON(w, http.StatusOK, product)
}

// GetBonusPeriods proxies the promotion windows currently advertised
// upstream. Live data, not stored state.
func (h *Handlers) GetBonusPeriods(w http.ResponseWriter, r *http.Request) {
	periods, err := h.api.BonusPeriods(r.Context())
	if err != nil {
		h.logger.Error("failed to fetch bonus periods", "error", err)
		h.respondError(w, http.StatusBadGateway, "failed to fetch bonus periods")
		return
	}

	h.respondJSON(w, http.StatusOK, periods)
}

// GetStats handles statistics retrieval
func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.jobs.GetStats(r.Context())
	if err != nil {
		h.logger.Error("failed to get stats", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to get stats")
		return
	}

	h.respondJSON(w, http.StatusOK, stats)
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
