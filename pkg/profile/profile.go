// SPDX-License-Identifier: Apache-2.0

// Package profile fetches the raw subject signals from the external profile
// service. The client reports typed errors so the resilient-fetch policy can
// distinguish transient upstream failures from protocol-level ones.
package profile

import (
	"github.com/activa-ai/activa/pkg/normalize"
	"github.com/activa-ai/activa/pkg/state"
)

// Profile holds the free-text signals for one subject. Every field is
// optional; absent signals normalize to "".
type Profile struct {
	Employer         string `json:"employer"`
	Sector           string `json:"sector"`
	ActivityDeclared string `json:"activity_declared"`
}

// Normalized returns the normalized forms of the three signals, keyed the way
// the pipeline stores them.
func (p Profile) Normalized() map[string]any {
	return map[string]any{
		state.KeyEmployer + "_norm":         normalize.Text(p.Employer),
		state.KeySector + "_norm":           normalize.Text(p.Sector),
		state.KeyActivityDeclared + "_norm": normalize.Text(p.ActivityDeclared),
	}
}
