package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/zombar/newsintel/internal/models"
)

// handleProcessAnalysis runs the full analysis pipeline for an enqueued
// request and persists the resulting report.
func (w *Worker) handleProcessAnalysis(ctx context.Context, t *asynq.Task) error {
	var payload ProcessAnalysisPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		w.logger.Error("failed to unmarshal task payload", "error", err)
		return fmt.Errorf("invalid task payload: %w", err)
	}

	reportID := payload.ReportID
	req := payload.Request

	retryCount, _ := asynq.GetRetryCount(ctx)

	// Calculate queue wait time
	var queueWaitTime time.Duration
	if payload.EnqueuedAt > 0 {
		enqueuedTime := time.Unix(0, payload.EnqueuedAt)
		queueWaitTime = time.Since(enqueuedTime)
	}

	w.logger.Info("processing analysis job",
		"report_id", reportID,
		"company", req.CompanyName,
		"industry", req.Industry,
		"raw_documents", len(req.RawDocuments),
		"retry_count", retryCount,
		"queue_wait_seconds", queueWaitTime.Seconds(),
	)

	// Recreate trace context from payload if available
	var span trace.Span
	if payload.TraceID != "" && payload.SpanID != "" {
		traceID, err := trace.TraceIDFromHex(payload.TraceID)
		if err == nil {
			spanID, err := trace.SpanIDFromHex(payload.SpanID)
			if err == nil {
				remoteSpanCtx := trace.NewSpanContext(trace.SpanContextConfig{
					TraceID:    traceID,
					SpanID:     spanID,
					TraceFlags: trace.FlagsSampled,
					Remote:     true,
				})

				ctx = trace.ContextWithRemoteSpanContext(ctx, remoteSpanCtx)

				ctx, span = otel.Tracer("newsintel").Start(ctx, "asynq.task.process",
					trace.WithSpanKind(trace.SpanKindConsumer),
					trace.WithAttributes(
						attribute.String("task.type", TypeProcessAnalysis),
						attribute.String("report.id", reportID),
						attribute.Int("raw_documents.count", len(req.RawDocuments)),
						attribute.Int("retry_count", retryCount),
						attribute.Float64("queue.wait_time_seconds", queueWaitTime.Seconds()),
						attribute.Int64("enqueued_at", payload.EnqueuedAt),
					),
				)
				defer span.End()

				span.AddEvent("task_processing_started", trace.WithAttributes(
					attribute.Float64("wait_time_seconds", queueWaitTime.Seconds()),
				))
			}
		}
	} else {
		if existingSpan := trace.SpanFromContext(ctx); existingSpan.SpanContext().IsValid() {
			existingSpan.SetAttributes(
				attribute.String("report.id", reportID),
				attribute.Int("raw_documents.count", len(req.RawDocuments)),
				attribute.Float64("queue.wait_time_seconds", queueWaitTime.Seconds()),
			)
		}
	}

	// Record analysis duration with exemplar linking to the trace
	timer := time.Now()
	status := "success"
	defer func() {
		duration := time.Since(timer).Seconds()
		w.businessMetrics.ObserveDurationWithExemplar(ctx, w.businessMetrics.AnalysisDuration, duration, status)
		w.businessMetrics.AnalysesTotal.WithLabelValues(status).Inc()
	}()

	report := w.pipe.Analyze(ctx, req)

	w.businessMetrics.DocumentsProcessedTotal.Add(float64(report.NewsAnalysis.TotalArticles))
	w.businessMetrics.DuplicatesDroppedTotal.Add(float64(report.NewsAnalysis.DuplicatesRemoved))
	w.businessMetrics.InsightsGeneratedTotal.Add(float64(len(report.KeyInsights)))

	stored := &models.StoredReport{
		ID:        reportID,
		Request:   req,
		Report:    report,
		CreatedAt: time.Now(),
	}

	if err := w.db.SaveReport(stored); err != nil {
		status = "error"
		return fmt.Errorf("failed to save report: %w", err)
	}

	w.logger.Info("analysis report saved",
		"report_id", reportID,
		"articles", report.NewsAnalysis.TotalArticles,
		"insights", len(report.KeyInsights),
	)

	return nil
}
