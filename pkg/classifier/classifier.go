// SPDX-License-Identifier: Apache-2.0

// Package classifier turns an LLM provider into a closed-vocabulary label
// picker. The decision procedure is opaque; the hard contract enforced here
// is that the returned label is always a member of the allowed set.
package classifier

import (
	"context"
	"sort"
	"strings"

	"github.com/activa-ai/activa/pkg/errors"
	"github.com/activa-ai/activa/pkg/llm"
)

// Labeler picks exactly one label from an allowed set, given a view of the
// run state as prompt context.
type Labeler interface {
	Classify(ctx context.Context, task string, promptCtx map[string]string, allowed []string) (string, error)
}

// LLMLabeler implements Labeler on top of an llm.Provider.
type LLMLabeler struct {
	provider llm.Provider
	model    string
}

// NewLLMLabeler creates a labeler backed by the given provider and model.
func NewLLMLabeler(provider llm.Provider, model string) *LLMLabeler {
	return &LLMLabeler{provider: provider, model: model}
}

const systemInstruction = `You classify a person's economic activity.
You MUST answer with EXACTLY one label copied verbatim from the ALLOWED LABELS list.
Never invent labels, never output free text, never add punctuation or quotes around the label.
If exactly one label is allowed, answer with that label.
Signal priority: activity_declared first, then employer, then sector.`

// Classify asks the provider for one label out of allowed. It returns a
// CONTRACT_VIOLATION when the reply is not an exact member of the set.
func (l *LLMLabeler) Classify(ctx context.Context, task string, promptCtx map[string]string, allowed []string) (string, error) {
	if len(allowed) == 0 {
		return "", errors.New(errors.CodeInvalidInput, "allowed label set is empty", nil).
			WithContext("task", task)
	}

	resp, err := l.provider.Chat(ctx, llm.ChatRequest{
		Model: l.model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: systemInstruction},
			{Role: llm.RoleUser, Content: buildPrompt(task, promptCtx, allowed)},
		},
		// Zero temperature keeps label selection as deterministic as the
		// backend allows.
	})
	if err != nil {
		if ae, ok := err.(*errors.Error); ok {
			return "", ae
		}
		return "", errors.New(errors.CodeClassifier, "classifier backend failed", err).
			WithContext("task", task).
			WithRecoverable(true)
	}

	label := strings.TrimSpace(resp.Content)
	for _, candidate := range allowed {
		if label == candidate {
			return label, nil
		}
	}
	return "", errors.New(errors.CodeContractViolation, "classifier returned label outside allowed set", nil).
		WithContext("task", task).
		WithContext("label", label).
		WithContext("allowed_count", len(allowed))
}

func buildPrompt(task string, promptCtx map[string]string, allowed []string) string {
	var b strings.Builder
	b.WriteString("TASK: ")
	b.WriteString(task)
	b.WriteString("\n\nINPUT:\n")
	for _, key := range sortedKeys(promptCtx) {
		b.WriteString("  ")
		b.WriteString(key)
		b.WriteString(": ")
		b.WriteString(promptCtx[key])
		b.WriteString("\n")
	}
	b.WriteString("\nALLOWED LABELS:\n")
	for _, label := range allowed {
		b.WriteString("  - ")
		b.WriteString(label)
		b.WriteString("\n")
	}
	b.WriteString("\nAnswer with exactly one allowed label.")
	return b.String()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
