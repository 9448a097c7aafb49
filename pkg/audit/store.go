// SPDX-License-Identifier: Apache-2.0

// Package audit persists one record per classification run so operators can
// inspect what was answered and how long it took.
package audit

import (
	"context"
	"sync"
	"time"
)

// Run statuses.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// RunRecord is the persisted outcome of one classification run.
type RunRecord struct {
	ClientID    int64
	TraceID     string
	Status      string
	Field       string
	Role        string
	GeneratedAt string
	Error       string
	StartedAt   time.Time
	Duration    time.Duration
}

// Filter limits run record queries.
type Filter struct {
	ClientID int64
	Status   string
	Limit    int
}

// Store persists run records.
type Store interface {
	Record(ctx context.Context, rec RunRecord) error
	List(ctx context.Context, filter Filter) ([]RunRecord, error)
}

// MemoryStore keeps run records in memory. It backs tests and deployments
// that do not configure a database.
type MemoryStore struct {
	mu      sync.Mutex
	records []RunRecord
}

// NewMemoryStore returns an in-memory run store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Record appends a run record.
func (s *MemoryStore) Record(_ context.Context, rec RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

// List returns filtered run records in insertion order.
func (s *MemoryStore) List(_ context.Context, filter Filter) ([]RunRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RunRecord, 0, len(s.records))
	for _, rec := range s.records {
		if filter.ClientID != 0 && rec.ClientID != filter.ClientID {
			continue
		}
		if filter.Status != "" && rec.Status != filter.Status {
			continue
		}
		out = append(out, rec)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

// normalizeTime keeps persisted timestamps in UTC.
func normalizeTime(value time.Time) time.Time {
	if value.IsZero() {
		return value
	}
	return value.UTC()
}
