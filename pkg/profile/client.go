// SPDX-License-Identifier: Apache-2.0
package profile

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/activa-ai/activa/pkg/errors"
)

// Source looks up the raw signals for a subject.
type Source interface {
	FetchProfile(ctx context.Context, clientID int64) (Profile, error)
}

// HTTPSource is the HTTP client for the profile lookup service. The service
// accepts POST {"client_id": <id>} and answers
// {"ok": true, "result": {"employer": ..., "sector": ..., "activity_declared": ...}}.
type HTTPSource struct {
	baseURL    string
	authHeader string
	client     *http.Client
}

// NewHTTPSource creates a profile client. authHeader, when non-empty, is sent
// verbatim as the Authorization header.
func NewHTTPSource(baseURL, authHeader string, timeout time.Duration) *HTTPSource {
	if timeout == 0 {
		timeout = 25 * time.Second
	}
	return &HTTPSource{
		baseURL:    strings.TrimRight(baseURL, "/"),
		authHeader: authHeader,
		client:     &http.Client{Timeout: timeout},
	}
}

type fetchRequest struct {
	ClientID int64 `json:"client_id"`
}

type fetchResponse struct {
	Ok     bool    `json:"ok"`
	Result Profile `json:"result"`
}

// FetchProfile retrieves the subject signals. Error taxonomy:
//   - transport failures and timeouts: recoverable UPSTREAM_ERROR/TIMEOUT
//   - non-2xx status: recoverable UPSTREAM_ERROR
//   - malformed payload: PROTOCOL_ERROR, not retried
//   - ok=false: NOT_OK, not retried
func (s *HTTPSource) FetchProfile(ctx context.Context, clientID int64) (Profile, error) {
	body, err := json.Marshal(fetchRequest{ClientID: clientID})
	if err != nil {
		return Profile{}, errors.New(errors.CodeInternal, "failed to marshal profile request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL, bytes.NewReader(body))
	if err != nil {
		return Profile{}, errors.New(errors.CodeInternal, "failed to create profile request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.authHeader != "" {
		req.Header.Set("Authorization", s.authHeader)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return Profile{}, errors.New(errors.CodeUpstream, "profile source unreachable", err).
			WithContext("client_id", clientID).
			WithRecoverable(true)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Profile{}, errors.New(errors.CodeUpstream, "profile source returned non-success status", nil).
			WithContext("client_id", clientID).
			WithContext("status", resp.StatusCode).
			WithRecoverable(true)
	}

	var payload fetchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Profile{}, errors.New(errors.CodeProtocol, "malformed profile payload", err).
			WithContext("client_id", clientID)
	}

	if !payload.Ok {
		return Profile{}, errors.New(errors.CodeNotOk, "profile source signaled failure", nil).
			WithContext("client_id", clientID)
	}

	return payload.Result, nil
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context, clientID int64) (Profile, error)

func (f SourceFunc) FetchProfile(ctx context.Context, clientID int64) (Profile, error) {
	return f(ctx, clientID)
}
