// Copyright 2026 © The Activa Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/activa-ai/activa/pkg/errors"
)

// RunMetrics tracks pipeline run outcomes for production monitoring.
type RunMetrics struct {
	// runCounter tracks completed and failed runs
	runCounter metric.Int64Counter

	// runDuration tracks end-to-end run latency
	runDuration metric.Float64Histogram

	// stageErrorCounter tracks stage failures by stage and error code
	stageErrorCounter metric.Int64Counter

	// retryCounter tracks retry attempts against external collaborators
	retryCounter metric.Int64Counter
}

// NewRunMetrics creates a run metrics tracker with OTEL meters.
func NewRunMetrics() (*RunMetrics, error) {
	meter := otel.Meter("activa/pipeline")

	runCounter, err := meter.Int64Counter(
		"activa.runs.total",
		metric.WithDescription("Pipeline runs by outcome"),
	)
	if err != nil {
		return nil, err
	}

	runDuration, err := meter.Float64Histogram(
		"activa.runs.duration_ms",
		metric.WithDescription("End-to-end pipeline run duration in milliseconds"),
	)
	if err != nil {
		return nil, err
	}

	stageErrorCounter, err := meter.Int64Counter(
		"activa.stage.errors.total",
		metric.WithDescription("Stage failures by stage name and error code"),
	)
	if err != nil {
		return nil, err
	}

	retryCounter, err := meter.Int64Counter(
		"activa.retries.total",
		metric.WithDescription("Retry attempts against external collaborators"),
	)
	if err != nil {
		return nil, err
	}

	return &RunMetrics{
		runCounter:        runCounter,
		runDuration:       runDuration,
		stageErrorCounter: stageErrorCounter,
		retryCounter:      retryCounter,
	}, nil
}

// RecordRun records one completed or failed run with its duration.
func (rm *RunMetrics) RecordRun(ctx context.Context, success bool, elapsed time.Duration) {
	if rm == nil {
		return
	}
	outcome := "completed"
	if !success {
		outcome = "failed"
	}
	rm.runCounter.Add(ctx, 1,
		metric.WithAttributes(attribute.String("outcome", outcome)),
	)
	rm.runDuration.Record(ctx, float64(elapsed.Milliseconds()),
		metric.WithAttributes(attribute.String("outcome", outcome)),
	)
}

// RecordStageError increments the stage failure counter.
func (rm *RunMetrics) RecordStageError(ctx context.Context, stage string, err error) {
	if rm == nil || err == nil {
		return
	}
	ae := errors.AsError(err)
	rm.stageErrorCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String(AttrStageName, stage),
			attribute.String(AttrErrorCode, string(ae.Code)),
			attribute.Bool(AttrErrorRecoverable, ae.Recoverable),
		),
	)
}

// RecordRetry records one retry attempt against an external collaborator.
func (rm *RunMetrics) RecordRetry(ctx context.Context, target string, attempt int) {
	if rm == nil {
		return
	}
	rm.retryCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("target", target),
			attribute.Int("attempt", attempt),
		),
	)
}
