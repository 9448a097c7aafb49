// SPDX-License-Identifier: Apache-2.0

// Package main provides the bulk classification driver. It reads subject
// identifiers from a CSV file, scans each one against a running activad
// instance and writes the labels to an output CSV.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/activa-ai/activa/internal/batch"
	"github.com/activa-ai/activa/pkg/telemetry"
)

func main() {
	baseURL := flag.String("base-url", "http://localhost:8080", "base URL of the running service")
	endpoint := flag.String("endpoint", "/agent/scan", "scan endpoint path")
	inPath := flag.String("in", "", "input CSV with a client_id column (required)")
	outPath := flag.String("out", "", "output CSV path (default results_YYYYMMDD_HHMMSS.csv)")
	workers := flag.Int("workers", 4, "concurrent scan requests")
	timeout := flag.Duration("timeout", 120*time.Second, "per-request timeout")
	logLevel := flag.String("log-level", "info", "log level")
	flag.Parse()

	if *inPath == "" {
		flag.Usage()
		os.Exit(2)
	}
	if *outPath == "" {
		*outPath = fmt.Sprintf("results_%s.csv", time.Now().Format("20060102_150405"))
	}

	logger := telemetry.ConfigureSlog(os.Stderr, *logLevel, "text")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	in, err := os.Open(*inPath)
	if err != nil {
		log.Fatalf("open input: %v", err)
	}
	ids, err := batch.ReadClientIDs(in, logger)
	in.Close()
	if err != nil {
		log.Fatalf("read input: %v", err)
	}
	if len(ids) == 0 {
		log.Fatalf("no valid client ids in %s", *inPath)
	}
	logger.Info("starting batch", "clients", len(ids), "workers", *workers, "out", *outPath)

	runner := &batch.Runner{
		Client:   &http.Client{Timeout: *timeout},
		BaseURL:  *baseURL,
		Endpoint: *endpoint,
		Workers:  *workers,
		Logger:   logger,
	}
	results := runner.Run(ctx, ids)

	out, err := os.Create(*outPath)
	if err != nil {
		log.Fatalf("create output: %v", err)
	}
	defer out.Close()
	if err := batch.WriteResults(out, results); err != nil {
		log.Fatalf("write output: %v", err)
	}
	logger.Info("batch done", "rows", len(results), "out", *outPath)
}
