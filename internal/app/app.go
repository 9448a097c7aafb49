// SPDX-License-Identifier: Apache-2.0

// Package app wires together all service components. This is the composition
// root: every dependency is created and connected here.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/activa-ai/activa/pkg/audit"
	"github.com/activa-ai/activa/pkg/classifier"
	"github.com/activa-ai/activa/pkg/config"
	"github.com/activa-ai/activa/pkg/llm"
	"github.com/activa-ai/activa/pkg/pipeline"
	"github.com/activa-ai/activa/pkg/profile"
	"github.com/activa-ai/activa/pkg/resilience"
	"github.com/activa-ai/activa/pkg/server"
	"github.com/activa-ai/activa/pkg/taxonomy"
	"github.com/activa-ai/activa/pkg/telemetry"
)

// Version is stamped at build time.
var Version = "dev"

// App holds the service state.
type App struct {
	cfg    *config.Config
	logger *slog.Logger
	db     *sql.DB
}

// New creates the application.
func New(cfg *config.Config) (*App, error) {
	logger := telemetry.ConfigureSlog(os.Stdout, cfg.Log.Level, cfg.Log.Format)
	return &App{cfg: cfg, logger: logger}, nil
}

// Run starts the HTTP service and blocks until ctx is cancelled, then shuts
// down gracefully within the configured budget.
func (a *App) Run(ctx context.Context) error {
	if a.cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitWithConfig("activad", Version, telemetry.Config{
			Exporter:     a.cfg.Telemetry.Exporter,
			OTLPEndpoint: a.cfg.Telemetry.OTLPEndpoint,
			OTLPInsecure: a.cfg.Telemetry.OTLPInsecure,
		})
		if err != nil {
			return fmt.Errorf("init telemetry: %w", err)
		}
		defer shutdown(context.Background())
	}

	a.logger.Info("starting activad",
		"version", Version,
		"addr", a.cfg.Server.Addr,
		"llm_provider", a.cfg.LLM.Provider,
		"taxonomy_dir", a.cfg.Taxonomy.Dir,
	)

	svc, err := a.buildService(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	httpServer := &http.Server{
		Addr:    a.cfg.Server.Addr,
		Handler: server.New(svc, a.logger).Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	a.logger.Info("shutting down", "timeout", a.cfg.ShutdownTimeout())
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout())
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// buildService assembles the run service: taxonomy, profile source, labeler,
// stages and optional audit store.
func (a *App) buildService(ctx context.Context) (*pipeline.Service, error) {
	// Taxonomies are loaded and validated once at startup so configuration
	// errors surface before the first request.
	taxCfg, err := taxonomy.Load(a.cfg.Taxonomy.Dir)
	if err != nil {
		return nil, fmt.Errorf("load taxonomies: %w", err)
	}
	loader := pipeline.LoaderFunc(func(context.Context) (*taxonomy.Config, error) {
		return taxCfg, nil
	})

	provider, err := a.buildProvider()
	if err != nil {
		return nil, err
	}
	labeler := classifier.NewLLMLabeler(provider, a.cfg.LLM.Model)

	metrics, err := telemetry.NewRunMetrics()
	if err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	maxAttempts, base, max, jitter := a.cfg.RetryPolicy()
	retry := resilience.DefaultRetryConfig().
		WithMaxAttempts(maxAttempts).
		WithBaseBackoff(base).
		WithMaxBackoff(max)
	retry.Jitter = jitter

	source := profile.NewHTTPSource(
		a.cfg.ProfileSource.BaseURL,
		a.cfg.ProfileSource.AuthHeader,
		a.cfg.ProfileTimeout(),
	)
	cc := pipeline.ClassifyConfig{
		Labeler: labeler,
		Retry:   retry,
		Timeout: a.cfg.LLMTimeout(),
		Metrics: metrics,
	}
	p := pipeline.New([]pipeline.Stage{
		&pipeline.ProfileStage{Source: source, Retry: retry, Metrics: metrics},
		&pipeline.TaxonomyStage{Loader: loader},
		&pipeline.FieldStage{ClassifyConfig: cc},
		&pipeline.SubFieldStage{ClassifyConfig: cc},
		&pipeline.RoleStage{ClassifyConfig: cc},
	},
		pipeline.WithMetrics(metrics),
		pipeline.WithLogger(a.logger),
	)

	opts := []pipeline.ServiceOption{pipeline.WithServiceLogger(a.logger)}
	if a.cfg.Audit.Enabled {
		store, err := a.buildAuditStore()
		if err != nil {
			return nil, err
		}
		opts = append(opts, pipeline.WithAuditStore(store))
	}
	return pipeline.NewService(p, opts...), nil
}

func (a *App) buildProvider() (llm.Provider, error) {
	switch a.cfg.LLM.Provider {
	case "mock":
		return &llm.MockProvider{Response: "Indefinido"}, nil
	case "ollama":
		return llm.NewOllama(a.cfg.LLM.BaseURL), nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", a.cfg.LLM.Provider)
	}
}

func (a *App) buildAuditStore() (audit.Store, error) {
	db, err := sql.Open("sqlite", a.cfg.Audit.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}
	a.db = db
	store, err := audit.NewSQLiteStore(db)
	if err != nil {
		return nil, fmt.Errorf("init audit store: %w", err)
	}
	return store, nil
}

func (a *App) close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("closing audit db", "error", err)
		}
	}
}
