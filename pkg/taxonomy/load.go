// SPDX-License-Identifier: Apache-2.0
package taxonomy

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/activa-ai/activa/pkg/errors"
)

// Taxonomy document file names, relative to the configured directory.
const (
	fieldsFile    = "fields.yaml"
	rolesFile     = "roles.yaml"
	hierarchyFile = "hierarchy.yaml"
)

type fieldsDoc struct {
	Fields []string `yaml:"fields"`
}

type rolesDoc struct {
	Roles []string `yaml:"roles"`
}

type hierarchyDoc struct {
	FieldToSubFields map[string][]string `yaml:"field_to_sub_fields"`
	FieldToRoles     map[string][]string `yaml:"field_to_roles"`
	FieldSubToRoles  map[string][]string `yaml:"field_sub_to_roles"`
}

// Load reads the taxonomy documents from dir. Absent files yield empty
// structures — a valid-but-degenerate configuration — while malformed YAML is
// a configuration error. The result is validated before being returned.
func Load(dir string) (*Config, error) {
	var fields fieldsDoc
	if err := readYAML(filepath.Join(dir, fieldsFile), &fields); err != nil {
		return nil, err
	}
	var roles rolesDoc
	if err := readYAML(filepath.Join(dir, rolesFile), &roles); err != nil {
		return nil, err
	}
	var hierarchy hierarchyDoc
	if err := readYAML(filepath.Join(dir, hierarchyFile), &hierarchy); err != nil {
		return nil, err
	}

	cfg := &Config{
		AllFields:        fields.Fields,
		FieldToSubFields: hierarchy.FieldToSubFields,
		FieldToRoles:     hierarchy.FieldToRoles,
		FieldSubToRoles:  hierarchy.FieldSubToRoles,
		AllRoles:         roles.Roles,
	}
	if cfg.FieldToSubFields == nil {
		cfg.FieldToSubFields = map[string][]string{}
	}
	if cfg.FieldToRoles == nil {
		cfg.FieldToRoles = map[string][]string{}
	}
	if cfg.FieldSubToRoles == nil {
		cfg.FieldSubToRoles = map[string][]string{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func readYAML(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.New(errors.CodeConfiguration, "cannot read taxonomy document", err).
			WithContext("path", path)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return errors.New(errors.CodeConfiguration, "malformed taxonomy document", err).
			WithContext("path", path)
	}
	return nil
}
