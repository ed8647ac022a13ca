// Package geo provides the ZIP to county/state lookup consumed by the
// coverage normalizer and lead ingestion.
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"leadrouter_backend/internal/coverage"
	"leadrouter_backend/platform/apperr"
	"leadrouter_backend/platform/logger"
)

// HTTPResolver resolves ZIPs against an external lookup API returning
// {"county": "...", "state": "..."} per ZIP.
type HTTPResolver struct {
	baseURL string
	client  *http.Client
	log     *logger.Logger
}

// NewHTTPResolver creates a resolver for the configured lookup endpoint.
func NewHTTPResolver(baseURL string, log *logger.Logger) *HTTPResolver {
	return &HTTPResolver{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Second},
		log:     log,
	}
}

type lookupResponse struct {
	County string `json:"county"`
	State  string `json:"state"`
}

// Resolve implements coverage.GeoLookup.
func (r *HTTPResolver) Resolve(ctx context.Context, zip string) (coverage.Place, error) {
	reqURL := fmt.Sprintf("%s/zip/%s", r.baseURL, zip)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return coverage.Place{}, err
	}

	resp, err := r.client.Do(req)
	if err != nil {
		r.log.Error("geo lookup request failed", "zip", zip, "error", err)
		return coverage.Place{}, apperr.Wrap(apperr.KindUnavailable, "geo lookup unreachable", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusNotFound {
		return coverage.Place{}, apperr.NotFound("zip not found: " + zip)
	}
	if resp.StatusCode != http.StatusOK {
		r.log.Error("geo lookup upstream error", "zip", zip, "status", resp.StatusCode)
		return coverage.Place{}, apperr.Unavailable(fmt.Sprintf("geo lookup upstream error: %d", resp.StatusCode))
	}

	var payload lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return coverage.Place{}, apperr.Wrap(apperr.KindUnavailable, "geo lookup payload invalid", err)
	}
	if payload.County == "" || payload.State == "" {
		return coverage.Place{}, apperr.NotFound("zip has no county/state: " + zip)
	}

	return coverage.Place{County: payload.County, State: payload.State}, nil
}

// Compile-time check that HTTPResolver implements coverage.GeoLookup
var _ coverage.GeoLookup = (*HTTPResolver)(nil)
