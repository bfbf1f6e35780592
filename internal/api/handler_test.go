package api

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/zombar/newsintel/internal/database"
	"github.com/zombar/newsintel/internal/models"
	"github.com/zombar/newsintel/internal/pipeline"
	"github.com/zombar/newsintel/internal/usage"
)

// mockEnqueuer implements the queue client interface for testing
type mockEnqueuer struct {
	enqueued []string
	err      error
}

func (m *mockEnqueuer) EnqueueProcessAnalysis(ctx context.Context, reportID string, req models.AnalysisRequest) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.enqueued = append(m.enqueued, reportID)
	return "task-" + reportID, nil
}

func setupTestHandler(t *testing.T) (*Handler, *database.DB) {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	handler := &Handler{
		db:          db,
		pipe:        pipeline.New(),
		tracker:     usage.NewTracker(usage.Config{}),
		queueClient: &mockEnqueuer{},
		logger:      slog.Default(),
		mux:         http.NewServeMux(),
	}
	handler.setupRoutes()

	return handler, db
}

func analysisBody(t *testing.T) *bytes.Buffer {
	t.Helper()

	body, err := json.Marshal(models.AnalysisRequest{
		CompanyName: "Acme",
		RawDocuments: []models.RawDocument{
			{
				Title:         "Acme posts record profit growth",
				URL:           "https://www.reuters.com/acme",
				Summary:       "Record quarterly results beat expectations across every segment.",
				PublishedDate: "2024-11-01",
			},
		},
	})
	if err != nil {
		t.Fatalf("failed to marshal request: %v", err)
	}
	return bytes.NewBuffer(body)
}

func TestHandleHealth(t *testing.T) {
	handler, _ := setupTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	handler.mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}

	var resp map[string]string
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("status field = %q, want ok", resp["status"])
	}
}

func TestHandleAnalysis(t *testing.T) {
	handler, db := setupTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/analysis", analysisBody(t))
	w := httptest.NewRecorder()
	handler.mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var resp struct {
		ReportID string        `json:"report_id"`
		Report   models.Report `json:"report"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if resp.ReportID == "" {
		t.Fatal("expected a report ID")
	}
	if resp.Report.CompanyName != "Acme" {
		t.Errorf("report company = %q", resp.Report.CompanyName)
	}
	if resp.Report.NewsAnalysis.TotalArticles != 1 {
		t.Errorf("total articles = %d, want 1", resp.Report.NewsAnalysis.TotalArticles)
	}

	// The report is persisted under the returned ID
	stored, err := db.GetReport(resp.ReportID)
	if err != nil {
		t.Fatalf("stored report lookup failed: %v", err)
	}
	if stored.Request.CompanyName != "Acme" {
		t.Errorf("stored request company = %q", stored.Request.CompanyName)
	}
}

func TestHandleAnalysisValidation(t *testing.T) {
	handler, _ := setupTestHandler(t)

	tests := []struct {
		name     string
		body     string
		expected int
	}{
		{"invalid json", "{not json", http.StatusBadRequest},
		{"empty request", "{}", http.StatusBadRequest},
		{"entities but no documents and no search", `{"company_name":"Acme"}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/analysis", bytes.NewBufferString(tt.body))
			w := httptest.NewRecorder()
			handler.mux.ServeHTTP(w, req)

			if w.Code != tt.expected {
				t.Errorf("status = %d, want %d", w.Code, tt.expected)
			}
		})
	}
}

func TestHandleAnalysisSearchKeyWithRawDocuments(t *testing.T) {
	handler, _ := setupTestHandler(t)

	// No search client is configured, but the documents are supplied inline
	// so the stray key changes nothing.
	req := httptest.NewRequest(http.MethodPost, "/api/analysis", analysisBody(t))
	req.Header.Set("X-Search-Key", "unused-key")
	w := httptest.NewRecorder()
	handler.mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
}

func TestHandleAnalysisMethodNotAllowed(t *testing.T) {
	handler, _ := setupTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/analysis", nil)
	w := httptest.NewRecorder()
	handler.mux.ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", w.Code)
	}
}

func TestHandleAnalysisAsync(t *testing.T) {
	handler, _ := setupTestHandler(t)
	mock := handler.queueClient.(*mockEnqueuer)

	req := httptest.NewRequest(http.MethodPost, "/api/analysis/async", analysisBody(t))
	w := httptest.NewRecorder()
	handler.mux.ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202: %s", w.Code, w.Body.String())
	}

	var resp map[string]string
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["status"] != "queued" {
		t.Errorf("status field = %q, want queued", resp["status"])
	}
	if resp["job_id"] == "" {
		t.Error("expected a job ID")
	}
	if len(mock.enqueued) != 1 || mock.enqueued[0] != resp["job_id"] {
		t.Errorf("enqueued = %v, want [%s]", mock.enqueued, resp["job_id"])
	}
}

func TestHandleAnalysisAsyncDisabled(t *testing.T) {
	handler, _ := setupTestHandler(t)
	handler.queueClient = nil

	req := httptest.NewRequest(http.MethodPost, "/api/analysis/async", analysisBody(t))
	w := httptest.NewRecorder()
	handler.mux.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

func TestHandleJobStatus(t *testing.T) {
	handler, db := setupTestHandler(t)

	stored := &models.StoredReport{
		ID:        "job-1",
		Request:   models.AnalysisRequest{CompanyName: "Acme"},
		Report:    models.Report{CompanyName: "Acme"},
		CreatedAt: time.Now(),
	}
	if err := db.SaveReport(stored); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/jobs/job-1", nil)
	w := httptest.NewRecorder()
	handler.mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp struct {
		Status string        `json:"status"`
		Report models.Report `json:"report"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != "completed" {
		t.Errorf("status = %q, want completed", resp.Status)
	}
	if resp.Report.CompanyName != "Acme" {
		t.Errorf("report company = %q", resp.Report.CompanyName)
	}
}

func TestHandleJobStatusPending(t *testing.T) {
	handler, _ := setupTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/jobs/unknown-job", nil)
	w := httptest.NewRecorder()
	handler.mux.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}

	var resp map[string]string
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["status"] != "not_found" {
		t.Errorf("status field = %q, want not_found", resp["status"])
	}
}

func TestReportOperations(t *testing.T) {
	handler, db := setupTestHandler(t)

	stored := &models.StoredReport{
		ID:        "r1",
		Request:   models.AnalysisRequest{CompanyName: "Acme"},
		Report:    models.Report{CompanyName: "Acme"},
		CreatedAt: time.Now(),
	}
	if err := db.SaveReport(stored); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	// List
	req := httptest.NewRequest(http.MethodGet, "/api/reports", nil)
	w := httptest.NewRecorder()
	handler.mux.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("list status = %d, want 200", w.Code)
	}

	// List filtered by entity
	req = httptest.NewRequest(http.MethodGet, "/api/reports?entity=acme", nil)
	w = httptest.NewRecorder()
	handler.mux.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("entity list status = %d, want 200", w.Code)
	}
	var list []*models.StoredReport
	if err := json.NewDecoder(w.Body).Decode(&list); err != nil {
		t.Fatalf("failed to decode list: %v", err)
	}
	if len(list) != 1 || list[0].ID != "r1" {
		t.Errorf("entity list = %v", list)
	}

	// Get
	req = httptest.NewRequest(http.MethodGet, "/api/reports/r1", nil)
	w = httptest.NewRecorder()
	handler.mux.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("get status = %d, want 200", w.Code)
	}

	// Delete
	req = httptest.NewRequest(http.MethodDelete, "/api/reports/r1", nil)
	w = httptest.NewRecorder()
	handler.mux.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Errorf("delete status = %d, want 204", w.Code)
	}

	// Get after delete
	req = httptest.NewRequest(http.MethodGet, "/api/reports/r1", nil)
	w = httptest.NewRecorder()
	handler.mux.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", w.Code)
	}
}

func TestSessionsAndUsage(t *testing.T) {
	handler, _ := setupTestHandler(t)

	// Start a session
	req := httptest.NewRequest(http.MethodPost, "/api/sessions", bytes.NewBufferString(`{"user_id":"analyst"}`))
	w := httptest.NewRecorder()
	handler.mux.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("session status = %d, want 201", w.Code)
	}

	var session map[string]string
	if err := json.NewDecoder(w.Body).Decode(&session); err != nil {
		t.Fatalf("failed to decode session: %v", err)
	}
	sessionID := session["session_id"]
	if sessionID == "" {
		t.Fatal("expected a session ID")
	}

	// Run an analysis attributed to the session
	req = httptest.NewRequest(http.MethodPost, "/api/analysis", analysisBody(t))
	req.Header.Set("X-Session-ID", sessionID)
	w = httptest.NewRecorder()
	handler.mux.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("analysis status = %d, want 200", w.Code)
	}

	// Dashboard reflects the tracked search
	req = httptest.NewRequest(http.MethodGet, "/api/usage/dashboard", nil)
	w = httptest.NewRecorder()
	handler.mux.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("dashboard status = %d, want 200", w.Code)
	}

	var dashboard usage.Dashboard
	if err := json.NewDecoder(w.Body).Decode(&dashboard); err != nil {
		t.Fatalf("failed to decode dashboard: %v", err)
	}
	if dashboard.Overview.TotalSearches != 1 {
		t.Errorf("total searches = %d, want 1", dashboard.Overview.TotalSearches)
	}
	if len(dashboard.TopEntities) == 0 || dashboard.TopEntities[0].Name != "Acme" {
		t.Errorf("top entities = %v", dashboard.TopEntities)
	}

	// Analytics over the default window
	req = httptest.NewRequest(http.MethodGet, "/api/usage/analytics?days=7", nil)
	w = httptest.NewRecorder()
	handler.mux.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("analytics status = %d, want 200", w.Code)
	}

	var analytics usage.Analytics
	if err := json.NewDecoder(w.Body).Decode(&analytics); err != nil {
		t.Fatalf("failed to decode analytics: %v", err)
	}
	if analytics.TotalSearches != 1 {
		t.Errorf("analytics total = %d, want 1", analytics.TotalSearches)
	}
}

func TestUsageAnalyticsDurableCounts(t *testing.T) {
	handler, db := setupTestHandler(t)

	// Records persisted before a restart: the fresh tracker knows nothing
	// about them, the analytics window still must.
	for _, success := range []bool{true, true, false} {
		if err := db.SaveSearchRecord("old-session", "Acme", success); err != nil {
			t.Fatalf("save search record failed: %v", err)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/usage/analytics?days=7", nil)
	w := httptest.NewRecorder()
	handler.mux.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("analytics status = %d, want 200", w.Code)
	}

	var analytics usage.Analytics
	if err := json.NewDecoder(w.Body).Decode(&analytics); err != nil {
		t.Fatalf("failed to decode analytics: %v", err)
	}
	if analytics.TotalSearches != 3 {
		t.Errorf("total searches = %d, want 3", analytics.TotalSearches)
	}
	if analytics.SuccessfulSearches != 2 {
		t.Errorf("successful searches = %d, want 2", analytics.SuccessfulSearches)
	}
}

func TestGenerateID(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := generateID()
		if len(id) != 36 {
			t.Fatalf("id length = %d, want 36", len(id))
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}
