// SPDX-License-Identifier: Apache-2.0

// Package main provides the entrypoint for the classification service.
// This file should remain minimal - all logic goes in internal/app.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/activa-ai/activa/internal/app"
	"github.com/activa-ai/activa/pkg/config"
)

func main() {
	cfgPath := flag.String("config", "", "path to config file")
	flag.Parse()

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("failed to create app: %v", err)
	}

	if err := application.Run(ctx); err != nil {
		log.Fatalf("app error: %v", err)
	}
}
