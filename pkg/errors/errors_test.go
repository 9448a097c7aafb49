// SPDX-License-Identifier: Apache-2.0
package errors

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestNew(t *testing.T) {
	cause := errors.New("network timeout")
	ae := New(CodeTimeout, "profile fetch timed out", cause)

	if ae.Code != CodeTimeout {
		t.Errorf("expected CodeTimeout, got %v", ae.Code)
	}
	if ae.Message != "profile fetch timed out" {
		t.Errorf("expected message 'profile fetch timed out', got %q", ae.Message)
	}
	if ae.Err != cause {
		t.Errorf("expected cause to be preserved")
	}
	if !errors.Is(ae, cause) {
		t.Errorf("expected errors.Is to work with wrapped error")
	}
}

func TestWithContext(t *testing.T) {
	ae := New(CodeContractViolation, "label outside allowed set", nil)
	ae.WithContext("stage", "role_classify").
		WithContext("label", "Gerente General")

	if ae.Context["stage"] != "role_classify" {
		t.Errorf("expected context stage to be 'role_classify'")
	}
	if ae.Context["label"] == nil {
		t.Errorf("expected context label to be set")
	}
}

func TestWithRecoverable(t *testing.T) {
	ae := New(CodeUpstream, "profile source returned 503", nil)
	if ae.Recoverable {
		t.Errorf("expected recoverable to be false by default")
	}

	ae.WithRecoverable(true)
	if !ae.Recoverable {
		t.Errorf("expected recoverable to be true after WithRecoverable")
	}
}

func TestError(t *testing.T) {
	tests := []struct {
		name     string
		ae       *Error
		expected string
	}{
		{
			name:     "with cause",
			ae:       New(CodeTimeout, "operation timed out", errors.New("deadline exceeded")),
			expected: "[TIMEOUT] operation timed out: deadline exceeded",
		},
		{
			name:     "without cause",
			ae:       New(CodeNotOk, "profile source signaled failure", nil),
			expected: "[NOT_OK] profile source signaled failure",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.ae.Error()
			if got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestAsError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ErrorCode
	}{
		{
			name:     "nil error",
			err:      nil,
			expected: "",
		},
		{
			name:     "already typed",
			err:      New(CodeProtocol, "malformed payload", nil),
			expected: CodeProtocol,
		},
		{
			name:     "generic error",
			err:      errors.New("generic error"),
			expected: CodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ae := AsError(tt.err)
			if tt.expected == "" {
				if ae != nil {
					t.Errorf("expected nil for nil error")
				}
			} else {
				if ae == nil {
					t.Errorf("expected non-nil Error")
				} else if ae.Code != tt.expected {
					t.Errorf("expected %v, got %v", tt.expected, ae.Code)
				}
			}
		})
	}
}

func TestIsRecoverable(t *testing.T) {
	if IsRecoverable(nil) {
		t.Errorf("nil error must not be recoverable")
	}
	if !IsRecoverable(errors.New("plain network error")) {
		t.Errorf("untyped errors are recoverable by default")
	}
	if IsRecoverable(New(CodeNotOk, "ok=false", nil)) {
		t.Errorf("NOT_OK must not be recoverable by default")
	}
	if !IsRecoverable(New(CodeUpstream, "503", nil).WithRecoverable(true)) {
		t.Errorf("explicitly recoverable error reported as non-recoverable")
	}
}

func TestMarshalJSON(t *testing.T) {
	ae := New(CodeUpstream, "profile fetch failed", errors.New("network error"))
	ae.WithContext("client_id", 2383).
		WithRecoverable(true)

	data, err := json.Marshal(ae)
	if err != nil {
		t.Fatalf("unexpected error marshaling: %v", err)
	}

	var result map[string]interface{}
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("unexpected error unmarshaling: %v", err)
	}

	if result["code"] != "UPSTREAM_ERROR" {
		t.Errorf("expected code 'UPSTREAM_ERROR', got %v", result["code"])
	}
	if result["recoverable"] != true {
		t.Errorf("expected recoverable true")
	}
}

func TestStatusCode(t *testing.T) {
	tests := []struct {
		code     ErrorCode
		expected int
	}{
		{CodeInvalidInput, 400},
		{CodeTimeout, 408},
		{CodeUpstream, 502},
		{CodeNotOk, 502},
		{CodeInternal, 500},
		{CodeContractViolation, 500},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			ae := New(tt.code, "test", nil)
			if ae.StatusCode != tt.expected {
				t.Errorf("expected status %d, got %d", tt.expected, ae.StatusCode)
			}
		})
	}
}
