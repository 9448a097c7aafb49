// SPDX-License-Identifier: Apache-2.0
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/activa-ai/activa/pkg/errors"
	"github.com/activa-ai/activa/pkg/pipeline"
)

type scannerFunc func(ctx context.Context, clientID int64, traceID string) (pipeline.ScanResponse, error)

func (f scannerFunc) Scan(ctx context.Context, clientID int64, traceID string) (pipeline.ScanResponse, error) {
	return f(ctx, clientID, traceID)
}

func newTestServer(fn scannerFunc) *httptest.Server {
	return httptest.NewServer(New(fn, nil).Handler())
}

func TestHealth(t *testing.T) {
	ts := newTestServer(nil)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("body = %v", body)
	}
}

func TestScanSuccess(t *testing.T) {
	var gotClientID int64
	var gotTraceID string
	ts := newTestServer(func(ctx context.Context, clientID int64, traceID string) (pipeline.ScanResponse, error) {
		gotClientID, gotTraceID = clientID, traceID
		return pipeline.ScanResponse{
			ClientID:    clientID,
			GeneratedAt: "2026-08-31T10:00:00-04:00",
			Field:       "Comercio",
			Role:        "Vendedor",
		}, nil
	})
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/agent/scan", "application/json",
		strings.NewReader(`{"client_id": 4521, "trace_id": "trace-9"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if gotClientID != 4521 || gotTraceID != "trace-9" {
		t.Errorf("scanner got %d / %q", gotClientID, gotTraceID)
	}
	var body pipeline.ScanResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Field != "Comercio" || body.Role != "Vendedor" {
		t.Errorf("body = %+v", body)
	}
}

func TestScanMalformedBody(t *testing.T) {
	ts := newTestServer(nil)
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/agent/scan", "application/json", strings.NewReader("{not json"))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestScanMissingClientID(t *testing.T) {
	ts := newTestServer(nil)
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/agent/scan", "application/json", strings.NewReader(`{"trace_id": "t"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["error"] != "client_id is required" {
		t.Errorf("error = %q", body["error"])
	}
}

func TestScanPipelineFailure(t *testing.T) {
	ts := newTestServer(func(ctx context.Context, clientID int64, traceID string) (pipeline.ScanResponse, error) {
		return pipeline.ScanResponse{}, errors.New(errors.CodeContractViolation, "label outside allowed set", nil).
			WithContext("stage", "field_classify")
	})
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/agent/scan", "application/json", strings.NewReader(`{"client_id": 1}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["error"] != "label outside allowed set" {
		t.Errorf("error = %q", body["error"])
	}
	if !strings.Contains(body["traceback"], "field_classify") {
		t.Errorf("traceback = %q, want stage context", body["traceback"])
	}
}

func TestScanMethodNotAllowed(t *testing.T) {
	ts := newTestServer(nil)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/agent/scan")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", resp.StatusCode)
	}
}
