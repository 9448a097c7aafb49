// Copyright 2026 © The Activa Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/activa-ai/activa/pkg/errors"
)

func TestNewRunMetrics(t *testing.T) {
	rm, err := NewRunMetrics()
	if err != nil {
		t.Fatalf("NewRunMetrics: %v", err)
	}
	if rm == nil {
		t.Fatal("expected non-nil metrics")
	}

	// Recording against the default (noop) meter provider must not panic.
	ctx := context.Background()
	rm.RecordRun(ctx, true, 120*time.Millisecond)
	rm.RecordRun(ctx, false, 80*time.Millisecond)
	rm.RecordStageError(ctx, "profile", errors.New(errors.CodeUpstream, "503", nil))
	rm.RecordRetry(ctx, "profile_source", 1)
}

func TestRunMetricsNilReceiver(t *testing.T) {
	var rm *RunMetrics
	ctx := context.Background()
	rm.RecordRun(ctx, true, time.Millisecond)
	rm.RecordStageError(ctx, "role_classify", errors.New(errors.CodeContractViolation, "bad label", nil))
	rm.RecordRetry(ctx, "classifier", 2)
}

func TestStageAttributes(t *testing.T) {
	attrs := StageAttributes("field_classify", "2383")
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
	if string(attrs[0].Key) != AttrStageName {
		t.Errorf("unexpected first attribute: %v", attrs[0].Key)
	}
}

func TestRunAttributes(t *testing.T) {
	attrs := RunAttributes("2383", "trace-9")
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
	attrs = RunAttributes("2383", "")
	if len(attrs) != 1 {
		t.Fatalf("expected trace id to be omitted when empty, got %d attrs", len(attrs))
	}
}
