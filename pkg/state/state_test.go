// SPDX-License-Identifier: Apache-2.0
package state

import "testing"

func TestNewSeedsIdentity(t *testing.T) {
	s := New(2383, "trace-1")
	if got := s.GetString(KeyClientID); got != "2383" {
		t.Errorf("expected client_id '2383', got %q", got)
	}
	if got := s.TraceID(); got != "trace-1" {
		t.Errorf("expected trace_id 'trace-1', got %q", got)
	}
	id, err := s.ClientID()
	if err != nil {
		t.Fatalf("ClientID: %v", err)
	}
	if id != 2383 {
		t.Errorf("expected client id 2383, got %d", id)
	}
}

func TestNewGeneratesTraceID(t *testing.T) {
	s := New(1, "")
	if s.TraceID() == "" {
		t.Errorf("expected generated trace_id")
	}
}

func TestIdentityKeysImmutable(t *testing.T) {
	s := New(7, "trace-7")
	s.Set(KeyClientID, "999")
	s.Set(KeyTraceID, "other")
	if got := s.GetString(KeyClientID); got != "7" {
		t.Errorf("client_id must not be overwritten, got %q", got)
	}
	if got := s.TraceID(); got != "trace-7" {
		t.Errorf("trace_id must not be overwritten, got %q", got)
	}
}

func TestSetAndGet(t *testing.T) {
	s := New(1, "t")
	s.Set(KeyField, "Transporte")
	v, ok := s.Get(KeyField)
	if !ok || v != "Transporte" {
		t.Errorf("expected 'Transporte', got %v (present=%v)", v, ok)
	}
	if _, ok := s.Get("missing"); ok {
		t.Errorf("expected absent key")
	}
}

func TestKeysInsertionOrder(t *testing.T) {
	s := New(1, "t")
	s.Set(KeyEmployer, "Fidalga")
	s.Set(KeySector, "comercio")
	s.Set(KeyEmployer, "Fidalga SA") // overwrite keeps position

	want := []string{KeyClientID, KeyTraceID, KeyEmployer, KeySector}
	got := s.Keys()
	if len(got) != len(want) {
		t.Fatalf("expected %d keys, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("key %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestMerge(t *testing.T) {
	s := New(1, "t")
	s.Merge(map[string]any{
		"employer_norm": "fidalga",
		"sector_norm":   "comercio",
	})
	if got := s.GetString("employer_norm"); got != "fidalga" {
		t.Errorf("expected 'fidalga', got %q", got)
	}
	if got := s.GetString("sector_norm"); got != "comercio" {
		t.Errorf("expected 'comercio', got %q", got)
	}
}

func TestAppend(t *testing.T) {
	s := New(1, "t")

	s.Append("notes", "first")
	if v, _ := s.Get("notes"); len(v.([]any)) != 1 {
		t.Errorf("expected single-element list after first append")
	}

	s.Append("notes", "second")
	list := mustList(t, s, "notes")
	if len(list) != 2 || list[0] != "first" || list[1] != "second" {
		t.Errorf("unexpected list: %v", list)
	}
}

func TestAppendCoercesScalar(t *testing.T) {
	s := New(1, "t")
	s.Set("marker", "scalar")
	s.Append("marker", "next")
	list := mustList(t, s, "marker")
	if len(list) != 2 || list[0] != "scalar" || list[1] != "next" {
		t.Errorf("expected scalar coerced into list head, got %v", list)
	}
}

func TestAppendOntoStringSlice(t *testing.T) {
	s := New(1, "t")
	s.Set(KeyTaxFields, []string{"Transporte", "Salud"})
	s.Append(KeyTaxFields, "Comercio")
	list := mustList(t, s, KeyTaxFields)
	if len(list) != 3 || list[0] != "Transporte" || list[1] != "Salud" || list[2] != "Comercio" {
		t.Errorf("expected string-slice elements kept, got %v", list)
	}
}

func TestTypedAccessors(t *testing.T) {
	s := New(1, "t")
	s.Set(KeyTaxFields, []string{"Transporte", "Salud"})
	s.Set(KeyFieldToRoles, map[string][]string{"Transporte": {"Dueño"}})

	if sl := s.GetStringSlice(KeyTaxFields); len(sl) != 2 {
		t.Errorf("expected 2 fields, got %v", sl)
	}
	if m := s.GetStringMap(KeyFieldToRoles); len(m["Transporte"]) != 1 {
		t.Errorf("expected role map entry, got %v", m)
	}

	// Wrong-type reads degrade to zero values, never panic.
	if got := s.GetString(KeyTaxFields); got != "" {
		t.Errorf("expected empty string for non-string value, got %q", got)
	}
	if got := s.GetStringSlice(KeyFieldToRoles); got != nil {
		t.Errorf("expected nil slice for map value, got %v", got)
	}
}

func mustList(t *testing.T, s *Store, key string) []any {
	t.Helper()
	v, ok := s.Get(key)
	if !ok {
		t.Fatalf("key %q absent", key)
	}
	list, isList := v.([]any)
	if !isList {
		t.Fatalf("key %q is not a list: %T", key, v)
	}
	return list
}
