package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

// Business operations recorded by RecordBusinessMetric
const (
	OpBulletAnalyzed   = "bullet_analyzed"
	OpJobMatched       = "job_matched"
	OpResumeExtracted  = "resume_extracted"
	OpPDFDownloaded    = "pdf_downloaded"
	OpBulletsGenerated = "bullets_generated"
)

// Metrics holds all custom metrics
type Metrics struct {
	// LLM calls
	LLMRequests metric.Int64Counter
	LLMDuration metric.Float64Histogram
	LLMTokens   metric.Int64Counter

	SSEEvents      metric.Int64Counter
	BusinessOps    metric.Int64Counter
	SessionsActive metric.Int64UpDownCounter
	RateLimitHits  metric.Int64Counter
	PromptReloads  metric.Int64Counter
}

// TokenUsage is the token accounting of one LLM call
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

func newMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	if m.LLMRequests, err = meter.Int64Counter(
		"resumekit_llm_requests_total",
		metric.WithDescription("Total number of LLM requests"),
	); err != nil {
		return nil, fmt.Errorf("failed to create LLM request count metric: %w", err)
	}

	if m.LLMDuration, err = meter.Float64Histogram(
		"resumekit_llm_request_duration_seconds",
		metric.WithDescription("Time spent waiting on LLM requests"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("failed to create LLM duration metric: %w", err)
	}

	if m.LLMTokens, err = meter.Int64Counter(
		"resumekit_llm_tokens_total",
		metric.WithDescription("Tokens consumed by LLM requests"),
		metric.WithUnit("tokens"),
	); err != nil {
		return nil, fmt.Errorf("failed to create LLM token metric: %w", err)
	}

	if m.SSEEvents, err = meter.Int64Counter(
		"resumekit_sse_events_total",
		metric.WithDescription("Server-sent events written to clients"),
	); err != nil {
		return nil, fmt.Errorf("failed to create SSE event metric: %w", err)
	}

	if m.BusinessOps, err = meter.Int64Counter(
		"resumekit_business_operations_total",
		metric.WithDescription("Completed user-facing operations"),
	); err != nil {
		return nil, fmt.Errorf("failed to create business operations metric: %w", err)
	}

	if m.SessionsActive, err = meter.Int64UpDownCounter(
		"resumekit_sessions_active",
		metric.WithDescription("Resume builder sessions currently stored"),
	); err != nil {
		return nil, fmt.Errorf("failed to create active sessions metric: %w", err)
	}

	if m.RateLimitHits, err = meter.Int64Counter(
		"resumekit_rate_limit_hits_total",
		metric.WithDescription("Total number of rate limit hits"),
	); err != nil {
		return nil, fmt.Errorf("failed to create rate limit hits metric: %w", err)
	}

	if m.PromptReloads, err = meter.Int64Counter(
		"resumekit_prompt_reloads_total",
		metric.WithDescription("Total number of prompt file reloads"),
	); err != nil {
		return nil, fmt.Errorf("failed to create prompt reload metric: %w", err)
	}

	return m, nil
}

// TrackLLMCall wraps one LLM call in a span and records its duration, outcome and token usage
func (om *Manager) TrackLLMCall(ctx context.Context, provider, operation string, fn func(context.Context) (*TokenUsage, error)) error {
	ctx, span := om.Tracer("resumekit.llm").Start(ctx, "llm."+operation)
	defer span.End()

	start := time.Now()
	usage, err := fn(ctx)
	duration := time.Since(start).Seconds()

	attrs := []attribute.KeyValue{
		attribute.String("provider", provider),
		attribute.String("operation", operation),
		attribute.String("status", statusOf(err)),
	}
	span.SetAttributes(attrs...)

	if usage != nil {
		span.SetAttributes(
			attribute.Int64("llm.tokens.input", usage.InputTokens),
			attribute.Int64("llm.tokens.output", usage.OutputTokens),
			attribute.Int64("llm.tokens.total", usage.TotalTokens),
		)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	if m := om.getMetrics(); m != nil {
		m.LLMRequests.Add(ctx, 1, metric.WithAttributes(attrs...))
		m.LLMDuration.Record(ctx, duration, metric.WithAttributes(attrs...))
		if usage != nil {
			m.recordTokens(ctx, usage, attrs)
		}
	}

	return err
}

func (m *Metrics) recordTokens(ctx context.Context, usage *TokenUsage, attrs []attribute.KeyValue) {
	for _, tt := range []struct {
		tokenType string
		value     int64
	}{
		{"input", usage.InputTokens},
		{"output", usage.OutputTokens},
	} {
		tokenAttrs := append(append([]attribute.KeyValue{}, attrs...), attribute.String("token_type", tt.tokenType))
		m.LLMTokens.Add(ctx, tt.value, metric.WithAttributes(tokenAttrs...))
	}
}

// RecordBusinessMetric counts one completed operation
func (om *Manager) RecordBusinessMetric(ctx context.Context, operation string, success bool, attributes ...attribute.KeyValue) {
	m := om.getMetrics()
	if m == nil {
		return
	}
	attrs := append([]attribute.KeyValue{
		attribute.String("operation", operation),
		attribute.Bool("success", success),
	}, attributes...)
	m.BusinessOps.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordSSEEvent counts one event written to a client
func (om *Manager) RecordSSEEvent(ctx context.Context, event string) {
	if m := om.getMetrics(); m != nil {
		m.SSEEvents.Add(ctx, 1, metric.WithAttributes(attribute.String("event", event)))
	}
}

// AddActiveSessions moves the active session gauge by delta
func (om *Manager) AddActiveSessions(ctx context.Context, delta int64) {
	if m := om.getMetrics(); m != nil {
		m.SessionsActive.Add(ctx, delta)
	}
}

// RecordRateLimitHit counts one rejected request
func (om *Manager) RecordRateLimitHit(ctx context.Context, attributes ...attribute.KeyValue) {
	if m := om.getMetrics(); m != nil {
		m.RateLimitHits.Add(ctx, 1, metric.WithAttributes(attributes...))
	}
}

// RecordPromptReload counts one prompt reload attempt
func (om *Manager) RecordPromptReload(ctx context.Context, success bool) {
	if m := om.getMetrics(); m != nil {
		m.PromptReloads.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", success)))
	}
}

func (om *Manager) getMetrics() *Metrics {
	if om == nil {
		return nil
	}
	return om.metrics
}

func statusOf(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
