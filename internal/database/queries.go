package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/zombar/newsintel/internal/models"
)

// SaveReport persists a stored report together with its entity index rows.
func (db *DB) SaveReport(stored *models.StoredReport) error {
	requestJSON, err := json.Marshal(stored.Request)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	reportJSON, err := json.Marshal(stored.Report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO reports (id, request, report, created_at)
		VALUES (?, ?, ?, ?)
	`, stored.ID, requestJSON, reportJSON, stored.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert report: %w", err)
	}

	for _, entity := range reportEntities(stored.Request) {
		_, err = tx.Exec(`
			INSERT INTO report_entities (report_id, entity)
			VALUES (?, ?)
		`, stored.ID, entity)
		if err != nil {
			return fmt.Errorf("failed to insert report entity: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetReport retrieves a stored report by ID
func (db *DB) GetReport(id string) (*models.StoredReport, error) {
	var (
		requestJSON string
		reportJSON  string
		createdAt   time.Time
	)

	err := db.conn.QueryRow(`
		SELECT request, report, created_at
		FROM reports
		WHERE id = ?
	`, id).Scan(&requestJSON, &reportJSON, &createdAt)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("report not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	return scanStoredReport(id, requestJSON, reportJSON, createdAt)
}

// ListReports retrieves reports ordered newest first, with pagination.
func (db *DB) ListReports(limit, offset int) ([]*models.StoredReport, error) {
	rows, err := db.conn.Query(`
		SELECT id, request, report, created_at
		FROM reports
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}
	defer rows.Close()

	return collectReports(rows)
}

// GetReportsByEntity retrieves all reports whose request named the given
// company, industry, or product. Matching is case-insensitive.
func (db *DB) GetReportsByEntity(entity string) ([]*models.StoredReport, error) {
	rows, err := db.conn.Query(`
		SELECT DISTINCT r.id, r.request, r.report, r.created_at
		FROM reports r
		INNER JOIN report_entities e ON r.id = e.report_id
		WHERE e.entity = ?
		ORDER BY r.created_at DESC
	`, strings.ToLower(entity))
	if err != nil {
		return nil, fmt.Errorf("failed to query reports by entity: %w", err)
	}
	defer rows.Close()

	return collectReports(rows)
}

// DeleteReport deletes a stored report by ID
func (db *DB) DeleteReport(id string) error {
	result, err := db.conn.Exec(`DELETE FROM reports WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete report: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("report not found")
	}

	// Entity rows cascade only when foreign keys are enabled; clean up
	// explicitly so behavior does not depend on the connection pragma.
	if _, err := db.conn.Exec(`DELETE FROM report_entities WHERE report_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete report entities: %w", err)
	}

	return nil
}

// reportEntities lists the lowercased entity index terms for a request.
func reportEntities(req models.AnalysisRequest) []string {
	var entities []string
	for _, entity := range []string{req.CompanyName, req.Industry, req.Product} {
		if entity != "" {
			entities = append(entities, strings.ToLower(entity))
		}
	}
	return entities
}

func collectReports(rows *sql.Rows) ([]*models.StoredReport, error) {
	var reports []*models.StoredReport
	for rows.Next() {
		var (
			id          string
			requestJSON string
			reportJSON  string
			createdAt   time.Time
		)

		if err := rows.Scan(&id, &requestJSON, &reportJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		stored, err := scanStoredReport(id, requestJSON, reportJSON, createdAt)
		if err != nil {
			return nil, err
		}
		reports = append(reports, stored)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration failed: %w", err)
	}

	return reports, nil
}

func scanStoredReport(id, requestJSON, reportJSON string, createdAt time.Time) (*models.StoredReport, error) {
	var request models.AnalysisRequest
	if err := json.Unmarshal([]byte(requestJSON), &request); err != nil {
		return nil, fmt.Errorf("failed to unmarshal request: %w", err)
	}

	var report models.Report
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}

	return &models.StoredReport{
		ID:        id,
		Request:   request,
		Report:    report,
		CreatedAt: createdAt,
	}, nil
}

// SaveSearchRecord appends a durable usage record for a tracked search.
func (db *DB) SaveSearchRecord(sessionID, entity string, success bool) error {
	_, err := db.conn.Exec(
		"INSERT INTO usage_searches (session_id, entity, success, created_at) VALUES (?, ?, ?, ?)",
		sessionID, entity, success, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to save search record: %w", err)
	}
	return nil
}

// SearchCountsSince returns total and successful search counts recorded at or
// after the given time.
func (db *DB) SearchCountsSince(since time.Time) (total, successful int, err error) {
	err = db.conn.QueryRow(
		"SELECT COUNT(*), COALESCE(SUM(success), 0) FROM usage_searches WHERE created_at >= ?",
		since,
	).Scan(&total, &successful)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count search records: %w", err)
	}
	return total, successful, nil
}
