// SPDX-License-Identifier: Apache-2.0
package classifier

import (
	"context"
	"strings"
	"testing"

	"github.com/activa-ai/activa/pkg/errors"
	"github.com/activa-ai/activa/pkg/llm"
)

func TestClassifyReturnsAllowedLabel(t *testing.T) {
	labeler := NewLLMLabeler(&llm.MockProvider{Response: "Transporte"}, "test-model")

	label, err := labeler.Classify(context.Background(), "field",
		map[string]string{"activity_declared": "Repartidor delivery"},
		[]string{"Transporte", "Salud"})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if label != "Transporte" {
		t.Errorf("expected 'Transporte', got %q", label)
	}
}

func TestClassifyTrimsWhitespace(t *testing.T) {
	labeler := NewLLMLabeler(&llm.MockProvider{Response: "  Salud \n"}, "test-model")

	label, err := labeler.Classify(context.Background(), "field", nil, []string{"Salud"})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if label != "Salud" {
		t.Errorf("expected 'Salud', got %q", label)
	}
}

func TestClassifyContractViolation(t *testing.T) {
	labeler := NewLLMLabeler(&llm.MockProvider{Response: "Something invented"}, "test-model")

	_, err := labeler.Classify(context.Background(), "role", nil, []string{"Dueño", "Socio"})
	if errors.CodeOf(err) != errors.CodeContractViolation {
		t.Errorf("expected CONTRACT_VIOLATION, got %v", err)
	}
}

func TestClassifyEmptyAllowedSet(t *testing.T) {
	labeler := NewLLMLabeler(&llm.MockProvider{Response: "anything"}, "test-model")

	_, err := labeler.Classify(context.Background(), "field", nil, nil)
	if errors.CodeOf(err) != errors.CodeInvalidInput {
		t.Errorf("expected INVALID_INPUT, got %v", err)
	}
}

func TestClassifyBackendFailureIsRecoverable(t *testing.T) {
	labeler := NewLLMLabeler(&llm.FailingMockProvider{}, "test-model")

	_, err := labeler.Classify(context.Background(), "field", nil, []string{"A"})
	ae := errors.AsError(err)
	if ae.Code != errors.CodeClassifier {
		t.Errorf("expected CLASSIFIER_ERROR, got %v", ae.Code)
	}
	if !ae.Recoverable {
		t.Errorf("backend failures should be recoverable")
	}
}

func TestPromptCarriesSignalsAndLabels(t *testing.T) {
	mock := llm.NewScriptedMockProvider("Transporte")
	labeler := NewLLMLabeler(mock, "test-model")

	_, err := labeler.Classify(context.Background(), "field",
		map[string]string{
			"employer":          "Yango",
			"activity_declared": "Repartidor delivery",
		},
		[]string{"Transporte"})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}

	if len(mock.Requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(mock.Requests))
	}
	prompt := mock.Requests[0].Messages[1].Content
	for _, want := range []string{"employer: Yango", "activity_declared: Repartidor delivery", "- Transporte"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}
