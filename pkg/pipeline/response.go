// SPDX-License-Identifier: Apache-2.0
package pipeline

import (
	"time"

	"github.com/activa-ai/activa/pkg/state"
)

// Default labels applied when a classification stage produced no value.
const (
	DefaultField = "Indefinido"
	DefaultRole  = "No definido"
)

// responseZone is the fixed UTC-4 offset stamped on generated_at, matching
// the consumers' local reporting timezone.
var responseZone = time.FixedZone("UTC-4", -4*60*60)

// ScanInputs echoes the raw profile signals the classification was based on.
type ScanInputs struct {
	Employer         string `json:"employer"`
	Sector           string `json:"sector"`
	ActivityDeclared string `json:"activity_declared"`
}

// ScanResponse is the external result contract of one pipeline run.
type ScanResponse struct {
	ClientID    int64      `json:"client_id"`
	GeneratedAt string     `json:"generated_at"`
	Inputs      ScanInputs `json:"inputs"`
	Field       string     `json:"field"`
	Role        string     `json:"role"`
}

// MapToResponse projects the final run state onto the response contract.
// Absent labels default to DefaultField/DefaultRole; a missing client_id is a
// contract violation and is never defaulted.
func MapToResponse(st *state.Store) (ScanResponse, error) {
	clientID, err := st.ClientID()
	if err != nil {
		return ScanResponse{}, err
	}

	generatedAt := st.GetString(state.KeyGeneratedAt)
	if generatedAt == "" {
		generatedAt = time.Now().In(responseZone).Format(time.RFC3339)
	}

	field := st.GetString(state.KeyField)
	if field == "" {
		field = DefaultField
	}
	role := st.GetString(state.KeyRole)
	if role == "" {
		role = DefaultRole
	}

	return ScanResponse{
		ClientID:    clientID,
		GeneratedAt: generatedAt,
		Inputs: ScanInputs{
			Employer:         st.GetString(state.KeyEmployer),
			Sector:           st.GetString(state.KeySector),
			ActivityDeclared: st.GetString(state.KeyActivityDeclared),
		},
		Field: field,
		Role:  role,
	}, nil
}
