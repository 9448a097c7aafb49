// SPDX-License-Identifier: Apache-2.0
package taxonomy

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/activa-ai/activa/pkg/errors"
)

func testConfig() *Config {
	return &Config{
		AllFields: []string{"A", "Q"},
		FieldToSubFields: map[string][]string{
			"A": {"B", "C"},
		},
		FieldSubToRoles: map[string][]string{
			"A||B": {"r1"},
		},
		FieldToRoles: map[string][]string{
			"A": {"r1", "r2"},
		},
		AllRoles: []string{"r1", "r2", "r3"},
	}
}

func TestRoleCandidatesPrecedence(t *testing.T) {
	cfg := testConfig()

	tests := []struct {
		name     string
		field    string
		subField string
		want     []string
	}{
		{"field and sub-field match", "A", "B", []string{"r1"}},
		{"sub-field misses, field matches", "A", "Z", []string{"r1", "r2"}},
		{"global fallback", "Q", "", []string{"r1", "r2", "r3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := cfg.RoleCandidates(tt.field, tt.subField)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestRoleCandidatesEmptyFallbackIsFatal(t *testing.T) {
	cfg := &Config{}
	_, err := cfg.RoleCandidates("X", "Y")
	if errors.CodeOf(err) != errors.CodeConfiguration {
		t.Errorf("expected CONFIGURATION_ERROR, got %v", err)
	}
}

func TestSubFieldCandidates(t *testing.T) {
	cfg := testConfig()

	if got := cfg.SubFieldCandidates("A"); !reflect.DeepEqual(got, []string{"B", "C"}) {
		t.Errorf("expected [B C], got %v", got)
	}
	if got := cfg.SubFieldCandidates("Q"); got != nil {
		t.Errorf("expected nil for unmapped field, got %v", got)
	}
	if got := cfg.SubFieldCandidates(""); got != nil {
		t.Errorf("expected nil for empty field, got %v", got)
	}
}

func TestSubFieldCandidatesEmptyMapping(t *testing.T) {
	cfg := &Config{FieldToSubFields: map[string][]string{}}
	if got := cfg.SubFieldCandidates("anything"); got != nil {
		t.Errorf("expected nil candidate set, got %v", got)
	}
}

func TestSubFieldCandidatesSingleElement(t *testing.T) {
	cfg := &Config{FieldToSubFields: map[string][]string{"A": {"only"}}}
	got := cfg.SubFieldCandidates("A")
	if !reflect.DeepEqual(got, []string{"only"}) {
		t.Errorf("single-element candidate set must still be returned, got %v", got)
	}
}

func TestValidateRejectsSeparatorInLabel(t *testing.T) {
	cfg := testConfig()
	cfg.AllFields = append(cfg.AllFields, "bad||label")
	if err := cfg.Validate(); errors.CodeOf(err) != errors.CodeConfiguration {
		t.Errorf("expected CONFIGURATION_ERROR, got %v", err)
	}
}

func TestValidateRejectsEmptyEntry(t *testing.T) {
	cfg := testConfig()
	cfg.FieldToRoles["empty"] = nil
	if err := cfg.Validate(); errors.CodeOf(err) != errors.CodeConfiguration {
		t.Errorf("expected CONFIGURATION_ERROR, got %v", err)
	}
}

func TestValidateAccepts(t *testing.T) {
	if err := testConfig().Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("fields.yaml", "fields:\n  - Transporte\n  - Salud\n")
	write("roles.yaml", "roles:\n  - Dueño\n  - Técnico / operativo\n")
	write("hierarchy.yaml", `
field_to_sub_fields:
  Transporte:
    - Carga
    - Pasajeros
field_to_roles:
  Salud:
    - Dueño
field_sub_to_roles:
  Transporte||Carga:
    - Técnico / operativo
`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.AllFields) != 2 || cfg.AllFields[0] != "Transporte" {
		t.Errorf("unexpected fields: %v", cfg.AllFields)
	}
	if len(cfg.AllRoles) != 2 {
		t.Errorf("unexpected roles: %v", cfg.AllRoles)
	}
	roles, err := cfg.RoleCandidates("Transporte", "Carga")
	if err != nil {
		t.Fatalf("RoleCandidates: %v", err)
	}
	if len(roles) != 1 || roles[0] != "Técnico / operativo" {
		t.Errorf("unexpected candidates: %v", roles)
	}
}

func TestLoadAbsentFilesAreEmpty(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.AllFields) != 0 || len(cfg.AllRoles) != 0 {
		t.Errorf("expected empty taxonomies, got %v / %v", cfg.AllFields, cfg.AllRoles)
	}
	if cfg.FieldToSubFields == nil || cfg.FieldToRoles == nil || cfg.FieldSubToRoles == nil {
		t.Errorf("expected initialized empty maps")
	}
}

func TestLoadMalformedDocument(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "fields.yaml"), []byte("fields: {not: [a list"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Load(dir)
	if errors.CodeOf(err) != errors.CodeConfiguration {
		t.Errorf("expected CONFIGURATION_ERROR, got %v", err)
	}
}
