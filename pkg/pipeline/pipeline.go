// SPDX-License-Identifier: Apache-2.0

// Package pipeline implements the fixed-order classification pipeline:
// profile fetch, taxonomy load, then field, sub-field and role
// classification over one shared state store.
//
// Stages run strictly sequentially within a run; each stage may read any key
// written by an earlier stage and must never read a key written by a later
// one. Runs are independent: each owns its state store, so many runs may
// execute concurrently without locking.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/activa-ai/activa/pkg/errors"
	"github.com/activa-ai/activa/pkg/state"
	"github.com/activa-ai/activa/pkg/telemetry"
)

// Stage is one step of the pipeline. Run mutates the shared store in place
// and returns a terminal error to abort the whole run.
type Stage interface {
	Name() string
	Run(ctx context.Context, st *state.Store) error
}

// Pipeline runs a fixed ordered list of stages over one shared state store.
type Pipeline struct {
	stages  []Stage
	tracer  trace.Tracer
	metrics *telemetry.RunMetrics
	logger  *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithMetrics attaches run metrics.
func WithMetrics(m *telemetry.RunMetrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithLogger sets the base logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// New creates a pipeline over the given stages, in order.
func New(stages []Stage, opts ...Option) *Pipeline {
	p := &Pipeline{
		stages: stages,
		tracer: otel.Tracer("activa/pipeline"),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// Run executes every stage in order against st. The first stage error aborts
// the run; the returned error carries the failing stage name and the subject
// identifier. On success the store holds everything MapToResponse needs.
func (p *Pipeline) Run(ctx context.Context, st *state.Store) error {
	clientID := st.GetString(state.KeyClientID)
	logger := telemetry.RunLogger(p.logger, clientID, st.TraceID())

	ctx, runSpan := p.tracer.Start(ctx, "Pipeline.Run",
		trace.WithAttributes(telemetry.RunAttributes(clientID, st.TraceID())...),
	)
	defer runSpan.End()

	start := time.Now()
	logger.InfoContext(ctx, "pipeline run start")

	for _, stage := range p.stages {
		if err := p.runStage(ctx, stage, st, logger); err != nil {
			p.metrics.RecordStageError(ctx, stage.Name(), err)
			p.metrics.RecordRun(ctx, false, time.Since(start))
			logger.ErrorContext(ctx, "pipeline run aborted", "stage", stage.Name(), "error", err)
			return errors.AsError(err).
				WithContext("stage", stage.Name()).
				WithContext("client_id", clientID)
		}
	}

	p.metrics.RecordRun(ctx, true, time.Since(start))
	logger.InfoContext(ctx, "pipeline run done",
		"field", st.GetString(state.KeyField),
		"role", st.GetString(state.KeyRole),
		"state_keys", len(st.Keys()),
	)
	return nil
}

func (p *Pipeline) runStage(ctx context.Context, stage Stage, st *state.Store, logger *slog.Logger) error {
	ctx, span := p.tracer.Start(ctx, "Pipeline.Stage",
		trace.WithAttributes(telemetry.StageAttributes(stage.Name(), st.GetString(state.KeyClientID))...),
	)
	defer span.End()

	start := time.Now()
	err := stage.Run(ctx, st)
	elapsed := time.Since(start)
	span.SetAttributes(attribute.Int64(telemetry.AttrStageDurationMs, elapsed.Milliseconds()))

	if err != nil {
		span.RecordError(err)
		return err
	}
	logger.DebugContext(ctx, "stage done", "stage", stage.Name(), "elapsed", elapsed)
	return nil
}
