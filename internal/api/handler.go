package api

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.opentelemetry.io/otel/attribute"

	"github.com/zombar/newsintel/internal/database"
	"github.com/zombar/newsintel/internal/models"
	"github.com/zombar/newsintel/internal/pipeline"
	"github.com/zombar/newsintel/internal/searchclient"
	"github.com/zombar/newsintel/internal/tracing"
	"github.com/zombar/newsintel/internal/usage"
	"github.com/zombar/newsintel/pkg/logging"
)

// requestTimeout bounds the synchronous handlers.
const requestTimeout = 30 * time.Second

// Enqueuer is the queue client surface the handler needs.
type Enqueuer interface {
	EnqueueProcessAnalysis(ctx context.Context, reportID string, req models.AnalysisRequest) (string, error)
}

// Handler handles HTTP requests
type Handler struct {
	db          *database.DB
	pipe        *pipeline.Pipeline
	search      *searchclient.Client
	tracker     *usage.Tracker
	queueClient Enqueuer
	logger      *slog.Logger
	mux         *http.ServeMux
}

// Config wires the handler's collaborators. Search and QueueClient may be
// nil; the corresponding endpoints then reject requests that need them.
type Config struct {
	DB          *database.DB
	Pipeline    *pipeline.Pipeline
	Search      *searchclient.Client
	Tracker     *usage.Tracker
	QueueClient Enqueuer
}

// NewHandler creates a new API handler with CORS support and metrics
func NewHandler(cfg Config) http.Handler {
	h := &Handler{
		db:          cfg.DB,
		pipe:        cfg.Pipeline,
		search:      cfg.Search,
		tracker:     cfg.Tracker,
		queueClient: cfg.QueueClient,
		logger:      slog.Default(),
		mux:         http.NewServeMux(),
	}

	h.setupRoutes()

	// Setup CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	return c.Handler(h.mux)
}

// setupRoutes configures all API routes
func (h *Handler) setupRoutes() {
	h.mux.Handle("/metrics", promhttp.Handler()) // Prometheus metrics endpoint
	h.mux.HandleFunc("/api/analysis", h.handleAnalysis)
	h.mux.HandleFunc("/api/analysis/async", h.handleAnalysisAsync)
	h.mux.HandleFunc("/api/jobs/", h.handleJobStatus)
	h.mux.HandleFunc("/api/reports", h.handleListReports)
	h.mux.HandleFunc("/api/reports/", h.handleReportOperations)
	h.mux.HandleFunc("/api/sessions", h.handleStartSession)
	h.mux.HandleFunc("/api/usage/dashboard", h.handleUsageDashboard)
	h.mux.HandleFunc("/api/usage/analytics", h.handleUsageAnalytics)
	h.mux.HandleFunc("/health", h.handleHealth)
}

// handleHealth handles health check requests
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// decodeAnalysisRequest parses and validates the shared request body for the
// sync and async analysis endpoints.
func (h *Handler) decodeAnalysisRequest(w http.ResponseWriter, r *http.Request) (models.AnalysisRequest, bool) {
	var req models.AnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return req, false
	}

	if req.CompanyName == "" && req.Industry == "" && req.Product == "" && len(req.RawDocuments) == 0 {
		respondError(w, "At least one of company_name, industry, product or raw_documents is required", http.StatusBadRequest)
		return req, false
	}

	return req, true
}

// pipelineFor returns the analysis pipeline to use for this request. An
// X-Search-Key header overrides the configured search credentials; it is
// ignored when the request carries its own documents and nothing needs
// fetching.
func (h *Handler) pipelineFor(r *http.Request, req models.AnalysisRequest) (*pipeline.Pipeline, error) {
	key := r.Header.Get("X-Search-Key")
	if key == "" || len(req.RawDocuments) > 0 {
		return h.pipe, nil
	}
	if h.search == nil {
		return nil, errors.New("search API not configured")
	}
	return pipeline.NewWithFetcher(h.search.WithAPIKey(key)), nil
}

// handleAnalysis runs the pipeline synchronously and persists the report.
func (h *Handler) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	req, ok := h.decodeAnalysisRequest(w, r)
	if !ok {
		return
	}

	if len(req.RawDocuments) == 0 && h.search == nil && r.Header.Get("X-Search-Key") == "" {
		respondError(w, "No raw_documents supplied and no search API configured", http.StatusBadRequest)
		return
	}

	tracing.SetSpanAttributes(r.Context(),
		attribute.String("analysis.company", req.CompanyName),
		attribute.Int("analysis.raw_documents", len(req.RawDocuments)))

	pipe, err := h.pipelineFor(r, req)
	if err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	reportID := generateID()

	resultChan := make(chan models.Report)
	errorChan := make(chan error)

	go func() {
		report := pipe.Analyze(r.Context(), req)

		stored := &models.StoredReport{
			ID:        reportID,
			Request:   req,
			Report:    report,
			CreatedAt: time.Now(),
		}
		if err := h.db.SaveReport(stored); err != nil {
			errorChan <- err
			return
		}
		resultChan <- report
	}()

	select {
	case report := <-resultChan:
		h.trackAnalysis(r, req, report.NewsAnalysis.TotalArticles > 0)
		respondJSON(w, map[string]interface{}{
			"report_id": reportID,
			"report":    report,
		}, http.StatusOK)
	case err := <-errorChan:
		logging.HTTPErrorLogger(h.logger, http.StatusInternalServerError, err, r)
		h.trackAnalysis(r, req, false)
		respondError(w, err.Error(), http.StatusInternalServerError)
	case <-time.After(requestTimeout):
		respondError(w, "Request timeout", http.StatusRequestTimeout)
	}
}

// handleAnalysisAsync enqueues an analysis job and returns immediately.
func (h *Handler) handleAnalysisAsync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if h.queueClient == nil {
		respondError(w, "Async processing not enabled", http.StatusServiceUnavailable)
		return
	}

	req, ok := h.decodeAnalysisRequest(w, r)
	if !ok {
		return
	}

	reportID := generateID()

	taskID, err := h.queueClient.EnqueueProcessAnalysis(r.Context(), reportID, req)
	if err != nil {
		logging.HTTPErrorLogger(h.logger, http.StatusInternalServerError, err, r)
		respondError(w, fmt.Sprintf("Failed to enqueue analysis: %v", err), http.StatusInternalServerError)
		return
	}

	logging.LogRequest(h.logger, r, "analysis_enqueued",
		slog.String("job_id", reportID),
		slog.String("task_id", taskID))

	respondJSON(w, map[string]interface{}{
		"job_id":  reportID,
		"task_id": taskID,
		"status":  "queued",
		"message": "Analysis queued for processing",
	}, http.StatusAccepted)
}

// handleJobStatus reports on an async job. The job ID is the report ID, so a
// stored report means the job completed.
func (h *Handler) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	jobID := r.URL.Path[len("/api/jobs/"):]
	if idx := strings.Index(jobID, "/"); idx != -1 {
		jobID = jobID[:idx]
	}

	if jobID == "" {
		respondError(w, "Job ID is required", http.StatusBadRequest)
		return
	}

	stored, err := h.db.GetReport(jobID)
	if err != nil {
		if err.Error() == "report not found" {
			respondJSON(w, map[string]interface{}{
				"job_id":  jobID,
				"status":  "not_found",
				"message": "Report not found - the job may still be queued or has expired",
			}, http.StatusNotFound)
			return
		}
		respondError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	respondJSON(w, map[string]interface{}{
		"job_id":     jobID,
		"status":     "completed",
		"created_at": stored.CreatedAt,
		"report":     stored.Report,
	}, http.StatusOK)
}

// handleListReports lists stored reports, optionally filtered by entity.
func (h *Handler) handleListReports(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if entity := r.URL.Query().Get("entity"); entity != "" {
		h.listReportsByEntity(w, entity)
		return
	}

	limit := 10
	offset := 0

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}

	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			offset = o
		}
	}

	resultChan := make(chan []*models.StoredReport)
	errorChan := make(chan error)

	go func() {
		reports, err := h.db.ListReports(limit, offset)
		if err != nil {
			errorChan <- err
			return
		}
		resultChan <- reports
	}()

	select {
	case reports := <-resultChan:
		respondJSON(w, reports, http.StatusOK)
	case err := <-errorChan:
		respondError(w, err.Error(), http.StatusInternalServerError)
	case <-time.After(requestTimeout):
		respondError(w, "Request timeout", http.StatusRequestTimeout)
	}
}

// listReportsByEntity returns reports whose request mentioned the entity.
func (h *Handler) listReportsByEntity(w http.ResponseWriter, entity string) {
	resultChan := make(chan []*models.StoredReport)
	errorChan := make(chan error)

	go func() {
		reports, err := h.db.GetReportsByEntity(entity)
		if err != nil {
			errorChan <- err
			return
		}
		resultChan <- reports
	}()

	select {
	case reports := <-resultChan:
		respondJSON(w, reports, http.StatusOK)
	case err := <-errorChan:
		respondError(w, err.Error(), http.StatusInternalServerError)
	case <-time.After(requestTimeout):
		respondError(w, "Request timeout", http.StatusRequestTimeout)
	}
}

// handleReportOperations handles GET and DELETE for specific reports
func (h *Handler) handleReportOperations(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Path[len("/api/reports/"):]
	if id == "" {
		respondError(w, "Report ID is required", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.getReport(w, id)
	case http.MethodDelete:
		h.deleteReport(w, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// getReport retrieves a specific report
func (h *Handler) getReport(w http.ResponseWriter, id string) {
	resultChan := make(chan *models.StoredReport)
	errorChan := make(chan error)

	go func() {
		stored, err := h.db.GetReport(id)
		if err != nil {
			errorChan <- err
			return
		}
		resultChan <- stored
	}()

	select {
	case stored := <-resultChan:
		respondJSON(w, stored, http.StatusOK)
	case err := <-errorChan:
		if err.Error() == "report not found" {
			respondError(w, err.Error(), http.StatusNotFound)
		} else {
			respondError(w, err.Error(), http.StatusInternalServerError)
		}
	case <-time.After(requestTimeout):
		respondError(w, "Request timeout", http.StatusRequestTimeout)
	}
}

// deleteReport deletes a specific report
func (h *Handler) deleteReport(w http.ResponseWriter, id string) {
	errorChan := make(chan error)
	doneChan := make(chan bool)

	go func() {
		if err := h.db.DeleteReport(id); err != nil {
			errorChan <- err
			return
		}
		doneChan <- true
	}()

	select {
	case <-doneChan:
		w.WriteHeader(http.StatusNoContent)
	case err := <-errorChan:
		if err.Error() == "report not found" {
			respondError(w, err.Error(), http.StatusNotFound)
		} else {
			respondError(w, err.Error(), http.StatusInternalServerError)
		}
	case <-time.After(requestTimeout):
		respondError(w, "Request timeout", http.StatusRequestTimeout)
	}
}

// handleStartSession starts a usage tracking session.
func (h *Handler) handleStartSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		UserID string `json:"user_id"`
	}
	// Empty or malformed body means an anonymous session
	_ = json.NewDecoder(r.Body).Decode(&req)

	sessionID := h.tracker.StartSession(req.UserID)
	respondJSON(w, map[string]string{"session_id": sessionID}, http.StatusCreated)
}

// handleUsageDashboard returns the point-in-time usage snapshot.
func (h *Handler) handleUsageDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	respondJSON(w, h.tracker.DashboardMetrics(), http.StatusOK)
}

// handleUsageAnalytics returns the trailing-window usage summary.
func (h *Handler) handleUsageAnalytics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	days := 7
	if daysStr := r.URL.Query().Get("days"); daysStr != "" {
		if d, err := strconv.Atoi(daysStr); err == nil && d > 0 {
			days = d
		}
	}

	report := h.tracker.AnalyticsReport(days)

	// The in-memory tracker starts empty on every boot; the durable records
	// keep the window totals honest across restarts.
	since := time.Now().AddDate(0, 0, -days)
	if total, successful, err := h.db.SearchCountsSince(since); err == nil && total > report.TotalSearches {
		report.TotalSearches = total
		report.SuccessfulSearches = successful
	}

	respondJSON(w, report, http.StatusOK)
}

// trackAnalysis records the request against a session when the caller
// identifies one, in memory and durably.
func (h *Handler) trackAnalysis(r *http.Request, req models.AnalysisRequest, success bool) {
	sessionID := r.Header.Get("X-Session-ID")
	if sessionID == "" {
		return
	}

	entity := req.CompanyName
	if entity == "" {
		entity = req.Industry
	}
	if entity == "" {
		entity = req.Product
	}
	if entity == "" {
		entity = "raw_documents"
	}

	h.tracker.TrackSearch(sessionID, entity, success)

	if err := h.db.SaveSearchRecord(sessionID, entity, success); err != nil {
		h.logger.Error("failed to persist search record", "error", err, "session_id", sessionID)
	}
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}

// generateID generates a UUID for a report
func generateID() string {
	uuid := make([]byte, 16)
	_, err := rand.Read(uuid)
	if err != nil {
		// Fallback to timestamp-based ID if random generation fails
		return time.Now().Format("20060102150405") + "-" + strconv.FormatInt(time.Now().UnixNano()%1000000, 10)
	}

	// Set version (4) and variant bits according to RFC 4122
	uuid[6] = (uuid[6] & 0x0f) | 0x40 // Version 4
	uuid[8] = (uuid[8] & 0x3f) | 0x80 // Variant bits

	return fmt.Sprintf("%s-%s-%s-%s-%s",
		hex.EncodeToString(uuid[0:4]),
		hex.EncodeToString(uuid[4:6]),
		hex.EncodeToString(uuid[6:8]),
		hex.EncodeToString(uuid[8:10]),
		hex.EncodeToString(uuid[10:16]))
}
