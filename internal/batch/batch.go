// SPDX-License-Identifier: Apache-2.0

// Package batch drives bulk classification: it reads subject identifiers
// from CSV, fans them out to the scan endpoint through a bounded worker pool
// and writes one result row per input identifier, in input order.
package batch

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Result is one output row. Field and Role stay empty when the scan failed.
type Result struct {
	ClientID int64
	Field    string
	Role     string
}

// ReadClientIDs parses the input CSV, which must carry a client_id header
// column. Duplicates are dropped keeping the first occurrence; rows with a
// non-numeric client_id are logged and skipped.
func ReadClientIDs(r io.Reader, logger *slog.Logger) ([]int64, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	idCol := -1
	for i, name := range header {
		if strings.TrimSpace(name) == "client_id" {
			idCol = i
			break
		}
	}
	if idCol < 0 {
		return nil, fmt.Errorf("input is missing the client_id column")
	}

	var ids []int64
	seen := make(map[int64]bool)
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			logger.Warn("skipping malformed row", "line", line, "error", err)
			continue
		}
		if idCol >= len(record) {
			logger.Warn("skipping short row", "line", line)
			continue
		}
		raw := strings.TrimSpace(record[idCol])
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			logger.Warn("skipping row with invalid client_id", "line", line, "client_id", raw)
			continue
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids, nil
}

// Runner posts scan requests against a running service.
type Runner struct {
	Client   *http.Client
	BaseURL  string
	Endpoint string
	Workers  int
	Logger   *slog.Logger
}

type scanReply struct {
	Field string `json:"field"`
	Role  string `json:"role"`
}

// Run classifies every id through the bounded pool. The returned slice is
// aligned with ids; failed lookups keep empty labels and are logged, they do
// not abort the batch.
func (r *Runner) Run(ctx context.Context, ids []int64) []Result {
	results := make([]Result, len(ids))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers())
	for i, id := range ids {
		results[i].ClientID = id
		g.Go(func() error {
			reply, err := r.scan(ctx, id)
			if err != nil {
				r.logger().Warn("scan failed", "client_id", id, "error", err)
				return nil
			}
			results[i].Field = reply.Field
			results[i].Role = reply.Role
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (r *Runner) scan(ctx context.Context, id int64) (scanReply, error) {
	body, err := json.Marshal(map[string]int64{"client_id": id})
	if err != nil {
		return scanReply{}, err
	}
	url := strings.TrimRight(r.BaseURL, "/") + r.Endpoint
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return scanReply{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client().Do(req)
	if err != nil {
		return scanReply{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return scanReply{}, fmt.Errorf("scan returned status %d", resp.StatusCode)
	}
	var reply scanReply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return scanReply{}, fmt.Errorf("decode scan response: %w", err)
	}
	return reply, nil
}

// WriteResults writes the output CSV: client_id,field,role in input order.
func WriteResults(w io.Writer, results []Result) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"client_id", "field", "role"}); err != nil {
		return err
	}
	for _, res := range results {
		row := []string{strconv.FormatInt(res.ClientID, 10), res.Field, res.Role}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func (r *Runner) workers() int {
	if r.Workers > 0 {
		return r.Workers
	}
	return 4
}

func (r *Runner) client() *http.Client {
	if r.Client != nil {
		return r.Client
	}
	return http.DefaultClient
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}
