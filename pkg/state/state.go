// SPDX-License-Identifier: Apache-2.0

// Package state implements the per-run shared state store. One Store instance
// is created per pipeline run, passed by reference through every stage, and
// discarded once the response has been produced. Stages within a run execute
// sequentially, so the Store does no locking of its own.
package state

import (
	"sort"
	"strconv"

	"github.com/google/uuid"

	"github.com/activa-ai/activa/pkg/errors"
)

// Well-known state keys written and read by the pipeline stages.
const (
	KeyClientID         = "client_id"
	KeyTraceID          = "trace_id"
	KeyEmployer         = "employer"
	KeySector           = "sector"
	KeyActivityDeclared = "activity_declared"
	KeyField            = "field"
	KeySubField         = "sub_field"
	KeyRole             = "role"
	KeyTaxFields        = "tax_fields"
	KeyTaxRoles         = "tax_roles"
	KeyFieldToSubFields = "field_to_sub_fields"
	KeyFieldToRoles     = "field_to_roles"
	KeyFieldSubToRoles  = "field_sub_to_roles"
	KeyAllowedSubFields = "allowed_sub_fields"
	KeyAllowedRoles     = "allowed_roles"
	KeyGeneratedAt      = "generated_at"
)

// Store is an ordered string-keyed mapping shared by all stages of one run.
// Iteration order is insertion order, matching the additive write pattern of
// the pipeline (earlier stages' keys come first).
type Store struct {
	keys   []string
	values map[string]any
}

// New creates a run Store seeded with client_id and trace_id. An empty
// traceID gets a generated UUID; both keys are immutable afterwards.
func New(clientID int64, traceID string) *Store {
	if traceID == "" {
		traceID = uuid.NewString()
	}
	s := &Store{values: make(map[string]any)}
	s.Set(KeyClientID, strconv.FormatInt(clientID, 10))
	s.Set(KeyTraceID, traceID)
	return s
}

// Get returns the value for key and whether it is present.
func (s *Store) Get(key string) (any, bool) {
	v, ok := s.values[key]
	return v, ok
}

// Set writes key to value, overwriting any previous value. Reseeding the run
// identity keys is a contract violation and is ignored with the original
// value kept; the pipeline guarantees they are written exactly once at start.
func (s *Store) Set(key string, value any) {
	if key == KeyClientID || key == KeyTraceID {
		if _, seeded := s.values[key]; seeded {
			return
		}
	}
	if _, ok := s.values[key]; !ok {
		s.keys = append(s.keys, key)
	}
	s.values[key] = value
}

// Merge sets every key in partial, overwriting existing values.
func (s *Store) Merge(partial map[string]any) {
	for _, k := range sortedKeys(partial) {
		s.Set(k, partial[k])
	}
}

// Append appends value to the list stored at key. An absent key starts as an
// empty list; a non-list existing value is coerced into a single-element list
// first. String lists written through Set keep their elements.
func (s *Store) Append(key string, value any) {
	existing, ok := s.values[key]
	var list []any
	if ok {
		switch l := existing.(type) {
		case []any:
			list = l
		case []string:
			list = make([]any, len(l))
			for i, elem := range l {
				list[i] = elem
			}
		default:
			list = []any{existing}
		}
	}
	s.Set(key, append(list, value))
}

// Keys returns all keys in insertion order.
func (s *Store) Keys() []string {
	out := make([]string, len(s.keys))
	copy(out, s.keys)
	return out
}

// GetString returns the string value for key, or "" when absent or not a
// string.
func (s *Store) GetString(key string) string {
	if v, ok := s.values[key]; ok {
		if str, isStr := v.(string); isStr {
			return str
		}
	}
	return ""
}

// GetStringSlice returns the []string value for key, or nil when absent or of
// another type.
func (s *Store) GetStringSlice(key string) []string {
	if v, ok := s.values[key]; ok {
		if sl, isSlice := v.([]string); isSlice {
			return sl
		}
	}
	return nil
}

// GetStringMap returns the map[string][]string value for key, or nil when
// absent or of another type.
func (s *Store) GetStringMap(key string) map[string][]string {
	if v, ok := s.values[key]; ok {
		if m, isMap := v.(map[string][]string); isMap {
			return m
		}
	}
	return nil
}

// ClientID returns the seeded client identifier.
func (s *Store) ClientID() (int64, error) {
	raw := s.GetString(KeyClientID)
	if raw == "" {
		return 0, errors.New(errors.CodeContractViolation, "state missing client_id", nil)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, errors.New(errors.CodeContractViolation, "state client_id is not numeric", err).
			WithContext("client_id", raw)
	}
	return id, nil
}

// TraceID returns the seeded trace identifier.
func (s *Store) TraceID() string {
	return s.GetString(KeyTraceID)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// Stable order keeps Merge deterministic regardless of map iteration.
	sort.Strings(keys)
	return keys
}
