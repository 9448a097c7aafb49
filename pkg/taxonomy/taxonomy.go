// SPDX-License-Identifier: Apache-2.0

// Package taxonomy holds the closed label vocabularies and the allowed-label
// resolver. The resolver only computes candidate sets; picking one label from
// a set is always delegated to the classifier.
package taxonomy

import (
	"strings"

	"github.com/activa-ai/activa/pkg/errors"
)

// roleKeySeparator joins field and sub-field into a composite role-map key.
// Taxonomy labels must never contain this substring; Validate enforces it.
const roleKeySeparator = "||"

// Config is the hierarchical taxonomy configuration for one run. Once loaded
// it is treated as read-only; Resolve methods never mutate it.
type Config struct {
	// AllFields is the full closed set of field labels.
	AllFields []string

	// FieldToSubFields maps a field to its sub-field labels.
	FieldToSubFields map[string][]string

	// FieldSubToRoles maps "field||sub_field" to role labels.
	FieldSubToRoles map[string][]string

	// FieldToRoles maps a field alone to role labels.
	FieldToRoles map[string][]string

	// AllRoles is the global role fallback. It must be non-empty whenever
	// role resolution can reach it.
	AllRoles []string
}

// RoleKey builds the composite key used by FieldSubToRoles.
func RoleKey(field, subField string) string {
	return field + roleKeySeparator + subField
}

// SubFieldCandidates resolves the allowed sub-field set for a field. A nil
// result means no sub-field applies — a valid terminal outcome, not an error.
// Single-element lists are returned as-is: auto-selection is a classifier
// concern, the resolver only computes the candidate set.
func (c *Config) SubFieldCandidates(field string) []string {
	if field == "" {
		return nil
	}
	subs := c.FieldToSubFields[field]
	if len(subs) == 0 {
		return nil
	}
	return subs
}

// RoleCandidates resolves the allowed role set for (field, subField) in
// strict precedence: exact field+sub-field entry, then field-only entry, then
// the global role set. An empty final fallback is a fatal configuration
// error: it would leave the role stage with nothing to choose from.
func (c *Config) RoleCandidates(field, subField string) ([]string, error) {
	if field != "" && subField != "" {
		if roles, ok := c.FieldSubToRoles[RoleKey(field, subField)]; ok && len(roles) > 0 {
			return roles, nil
		}
	}
	if field != "" {
		if roles, ok := c.FieldToRoles[field]; ok && len(roles) > 0 {
			return roles, nil
		}
	}
	if len(c.AllRoles) == 0 {
		return nil, errors.New(errors.CodeConfiguration, "role fallback set is empty", nil).
			WithContext("field", field).
			WithContext("sub_field", subField)
	}
	return c.AllRoles, nil
}

// Validate checks configuration-time invariants: no label may contain the
// composite-key separator, and any mapping entry present must be non-empty.
func (c *Config) Validate() error {
	for _, label := range c.AllFields {
		if err := checkLabel("fields", label); err != nil {
			return err
		}
	}
	for _, label := range c.AllRoles {
		if err := checkLabel("roles", label); err != nil {
			return err
		}
	}
	for field, subs := range c.FieldToSubFields {
		if err := checkLabel("field_to_sub_fields", field); err != nil {
			return err
		}
		if len(subs) == 0 {
			return emptyEntryErr("field_to_sub_fields", field)
		}
		for _, sub := range subs {
			if err := checkLabel("field_to_sub_fields", sub); err != nil {
				return err
			}
		}
	}
	for field, roles := range c.FieldToRoles {
		if err := checkLabel("field_to_roles", field); err != nil {
			return err
		}
		if len(roles) == 0 {
			return emptyEntryErr("field_to_roles", field)
		}
	}
	for key, roles := range c.FieldSubToRoles {
		if strings.Count(key, roleKeySeparator) != 1 {
			return errors.New(errors.CodeConfiguration, "malformed composite role key", nil).
				WithContext("key", key)
		}
		if len(roles) == 0 {
			return emptyEntryErr("field_sub_to_roles", key)
		}
	}
	return nil
}

func checkLabel(document, label string) error {
	if strings.Contains(label, roleKeySeparator) {
		return errors.New(errors.CodeConfiguration, "taxonomy label contains reserved separator", nil).
			WithContext("document", document).
			WithContext("label", label)
	}
	return nil
}

func emptyEntryErr(document, key string) error {
	return errors.New(errors.CodeConfiguration, "taxonomy entry present but empty", nil).
		WithContext("document", document).
		WithContext("key", key)
}
