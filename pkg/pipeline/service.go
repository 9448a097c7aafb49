// SPDX-License-Identifier: Apache-2.0
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/activa-ai/activa/pkg/audit"
	"github.com/activa-ai/activa/pkg/state"
)

// Service wraps the pipeline with the per-run lifecycle: state creation,
// response mapping and run auditing. The HTTP and batch frontends both go
// through it.
type Service struct {
	pipeline *Pipeline
	store    audit.Store
	logger   *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithAuditStore enables run record persistence.
func WithAuditStore(store audit.Store) ServiceOption {
	return func(s *Service) { s.store = store }
}

// WithServiceLogger sets the base logger. Defaults to slog.Default().
func WithServiceLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) { s.logger = l }
}

// NewService creates the run service.
func NewService(p *Pipeline, opts ...ServiceOption) *Service {
	s := &Service{pipeline: p}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Scan runs the full pipeline for one subject and returns the mapped
// response. An empty traceID gets a generated one. Audit persistence is
// best-effort: a failing store is logged, never surfaced to the caller.
func (s *Service) Scan(ctx context.Context, clientID int64, traceID string) (ScanResponse, error) {
	st := state.New(clientID, traceID)
	start := time.Now()

	if err := s.pipeline.Run(ctx, st); err != nil {
		s.record(ctx, audit.RunRecord{
			ClientID:  clientID,
			TraceID:   st.TraceID(),
			Status:    audit.StatusError,
			Error:     err.Error(),
			StartedAt: start,
			Duration:  time.Since(start),
		})
		return ScanResponse{}, err
	}

	resp, err := MapToResponse(st)
	if err != nil {
		return ScanResponse{}, err
	}
	s.record(ctx, audit.RunRecord{
		ClientID:    clientID,
		TraceID:     st.TraceID(),
		Status:      audit.StatusOK,
		Field:       resp.Field,
		Role:        resp.Role,
		GeneratedAt: resp.GeneratedAt,
		StartedAt:   start,
		Duration:    time.Since(start),
	})
	return resp, nil
}

func (s *Service) record(ctx context.Context, rec audit.RunRecord) {
	if s.store == nil {
		return
	}
	if err := s.store.Record(ctx, rec); err != nil {
		s.logger.WarnContext(ctx, "audit record failed", "client_id", rec.ClientID, "error", err)
	}
}
