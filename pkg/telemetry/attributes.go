// Copyright 2026 © The Activa Authors
// SPDX-License-Identifier: Apache-2.0

// Package telemetry provides OpenTelemetry integration for the
// classification service.
package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Semantic conventions for Activa telemetry.
// These follow OpenTelemetry naming conventions where applicable.
const (
	// Run attributes
	AttrRunClientID = "activa.run.client_id"
	AttrRunTraceID  = "activa.run.trace_id"

	// Stage attributes
	AttrStageName       = "activa.stage.name"
	AttrStageDurationMs = "activa.stage.duration_ms"

	// Classification attributes
	AttrAllowedCount = "activa.classify.allowed_count"
	AttrLabel        = "activa.classify.label"

	// LLM attributes (standard gen_ai conventions)
	AttrLLMModel        = "gen_ai.request.model"
	AttrLLMProvider     = "gen_ai.system"
	AttrLLMTokensInput  = "gen_ai.usage.input_tokens"
	AttrLLMTokensOutput = "gen_ai.usage.output_tokens"

	// Error attributes
	AttrErrorCode        = "activa.error.code"
	AttrErrorRecoverable = "activa.error.recoverable"
)

// RunAttributes returns common attributes for run-level spans.
func RunAttributes(clientID, traceID string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(AttrRunClientID, clientID),
	}
	if traceID != "" {
		attrs = append(attrs, attribute.String(AttrRunTraceID, traceID))
	}
	return attrs
}

// StageAttributes returns attributes for stage spans.
func StageAttributes(stage, clientID string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrStageName, stage),
		attribute.String(AttrRunClientID, clientID),
	}
}
