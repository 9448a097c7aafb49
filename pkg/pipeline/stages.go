// SPDX-License-Identifier: Apache-2.0
package pipeline

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/activa-ai/activa/pkg/classifier"
	"github.com/activa-ai/activa/pkg/profile"
	"github.com/activa-ai/activa/pkg/resilience"
	"github.com/activa-ai/activa/pkg/state"
	"github.com/activa-ai/activa/pkg/taxonomy"
	"github.com/activa-ai/activa/pkg/telemetry"
)

// Stage names, used in spans, metrics and wrapped errors.
const (
	StageProfile  = "profile"
	StageTaxonomy = "taxonomy_load"
	StageField    = "field_classify"
	StageSubField = "sub_field_classify"
	StageRole     = "role_classify"
)

// Classification task identifiers passed to the labeler prompt.
const (
	taskField    = "classify the person's economic field"
	taskSubField = "classify the person's economic sub-field within the already chosen field"
	taskRole     = "classify the person's employment role"
)

// ProfileStage fetches the subject profile through the retry policy and
// writes the raw signals plus their normalized forms into the store.
type ProfileStage struct {
	Source  profile.Source
	Retry   resilience.RetryConfig
	Metrics *telemetry.RunMetrics
}

func (s *ProfileStage) Name() string { return StageProfile }

func (s *ProfileStage) Run(ctx context.Context, st *state.Store) error {
	clientID, err := st.ClientID()
	if err != nil {
		return err
	}

	result, err := withRetryMetrics(ctx, s.Retry, s.Metrics, s.Name()).
		DoWithResult(ctx, func() (interface{}, error) {
			return s.Source.FetchProfile(ctx, clientID)
		})
	if err != nil {
		return err
	}

	p := result.(profile.Profile)
	st.Set(state.KeyEmployer, p.Employer)
	st.Set(state.KeySector, p.Sector)
	st.Set(state.KeyActivityDeclared, p.ActivityDeclared)
	st.Merge(p.Normalized())
	return nil
}

// Loader supplies the taxonomy configuration for a run.
type Loader interface {
	Taxonomy(ctx context.Context) (*taxonomy.Config, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context) (*taxonomy.Config, error)

func (f LoaderFunc) Taxonomy(ctx context.Context) (*taxonomy.Config, error) {
	return f(ctx)
}

// TaxonomyStage loads the label vocabularies and hierarchy maps into the
// store. Downstream stages treat them as read-only.
type TaxonomyStage struct {
	Loader Loader
}

func (s *TaxonomyStage) Name() string { return StageTaxonomy }

func (s *TaxonomyStage) Run(ctx context.Context, st *state.Store) error {
	cfg, err := s.Loader.Taxonomy(ctx)
	if err != nil {
		return err
	}
	st.Set(state.KeyTaxFields, cfg.AllFields)
	st.Set(state.KeyTaxRoles, cfg.AllRoles)
	st.Set(state.KeyFieldToSubFields, cfg.FieldToSubFields)
	st.Set(state.KeyFieldToRoles, cfg.FieldToRoles)
	st.Set(state.KeyFieldSubToRoles, cfg.FieldSubToRoles)
	return nil
}

// ClassifyConfig bundles what every classification stage needs: the labeler,
// the retry policy around it, a per-call timeout and the run metrics.
type ClassifyConfig struct {
	Labeler classifier.Labeler
	Retry   resilience.RetryConfig
	Timeout time.Duration
	Metrics *telemetry.RunMetrics
}

func (c ClassifyConfig) pick(ctx context.Context, stage, task string, st *state.Store, allowed []string) (string, error) {
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(attribute.Int(telemetry.AttrAllowedCount, len(allowed)))

	promptCtx := promptContext(st)
	result, err := withRetryMetrics(ctx, c.Retry, c.Metrics, stage).
		DoWithResult(ctx, func() (interface{}, error) {
			return resilience.WithTimeoutResult(ctx, resilience.TimeoutConfig{Duration: c.Timeout},
				func(ctx context.Context) (interface{}, error) {
					return c.Labeler.Classify(ctx, task, promptCtx, allowed)
				})
		})
	if err != nil {
		return "", err
	}
	label := result.(string)
	span.SetAttributes(attribute.String(telemetry.AttrLabel, label))
	return label, nil
}

// FieldStage picks the economic field out of the whole field taxonomy. An
// empty taxonomy is not an error: the stage writes nothing and the response
// mapper applies the default label.
type FieldStage struct {
	ClassifyConfig
}

func (s *FieldStage) Name() string { return StageField }

func (s *FieldStage) Run(ctx context.Context, st *state.Store) error {
	allowed := st.GetStringSlice(state.KeyTaxFields)
	if len(allowed) == 0 {
		return nil
	}
	label, err := s.pick(ctx, s.Name(), taskField, st, allowed)
	if err != nil {
		return err
	}
	st.Set(state.KeyField, label)
	return nil
}

// SubFieldStage narrows the field into a sub-field when the hierarchy defines
// one. Nil candidates are a valid terminal outcome: sub_field stays unset and
// role resolution falls through to the field-only mapping.
type SubFieldStage struct {
	ClassifyConfig
}

func (s *SubFieldStage) Name() string { return StageSubField }

func (s *SubFieldStage) Run(ctx context.Context, st *state.Store) error {
	cfg := taxonomyFromState(st)
	allowed := cfg.SubFieldCandidates(st.GetString(state.KeyField))
	if allowed == nil {
		return nil
	}
	st.Set(state.KeyAllowedSubFields, allowed)
	label, err := s.pick(ctx, s.Name(), taskSubField, st, allowed)
	if err != nil {
		return err
	}
	st.Set(state.KeySubField, label)
	return nil
}

// RoleStage resolves the allowed role set for the chosen (field, sub_field)
// pair and picks the role. Resolution falling through to an empty global set
// is a configuration error and aborts the run.
type RoleStage struct {
	ClassifyConfig
}

func (s *RoleStage) Name() string { return StageRole }

func (s *RoleStage) Run(ctx context.Context, st *state.Store) error {
	cfg := taxonomyFromState(st)
	allowed, err := cfg.RoleCandidates(st.GetString(state.KeyField), st.GetString(state.KeySubField))
	if err != nil {
		return err
	}
	st.Set(state.KeyAllowedRoles, allowed)
	label, err := s.pick(ctx, s.Name(), taskRole, st, allowed)
	if err != nil {
		return err
	}
	st.Set(state.KeyRole, label)
	return nil
}

// taxonomyFromState rebuilds the resolver view from the keys TaxonomyStage
// wrote. Missing keys come back as empty structures, which the resolver
// already treats as terminal or fallback cases.
func taxonomyFromState(st *state.Store) *taxonomy.Config {
	return &taxonomy.Config{
		AllFields:        st.GetStringSlice(state.KeyTaxFields),
		AllRoles:         st.GetStringSlice(state.KeyTaxRoles),
		FieldToSubFields: st.GetStringMap(state.KeyFieldToSubFields),
		FieldToRoles:     st.GetStringMap(state.KeyFieldToRoles),
		FieldSubToRoles:  st.GetStringMap(state.KeyFieldSubToRoles),
	}
}

// promptContext projects the store onto the signals the labeler prompt uses:
// normalized inputs first, falling back to the raw value when normalization
// is absent, plus the labels chosen by earlier stages.
func promptContext(st *state.Store) map[string]string {
	pctx := make(map[string]string)
	for _, key := range []string{state.KeyEmployer, state.KeySector, state.KeyActivityDeclared} {
		value := st.GetString(key + "_norm")
		if value == "" {
			value = st.GetString(key)
		}
		pctx[key] = value
	}
	for _, key := range []string{state.KeyField, state.KeySubField} {
		if value := st.GetString(key); value != "" {
			pctx[key] = value
		}
	}
	return pctx
}

// withRetryMetrics chains a retry-metric observer onto the configured
// OnRetry hook without losing the caller's own hook.
func withRetryMetrics(ctx context.Context, rc resilience.RetryConfig, m *telemetry.RunMetrics, target string) resilience.RetryConfig {
	prev := rc.OnRetry
	return rc.WithOnRetry(func(attempt int, err error) {
		if prev != nil {
			prev(attempt, err)
		}
		m.RecordRetry(ctx, target, attempt)
	})
}
