// Package geoip maps a remote address to a country label. Lookups are
// best-effort: callers degrade to an unknown label on any error.
package geoip

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	ErrNoCountry = errors.New("no country in response")
	ErrLookup    = errors.New("lookup failed")
)

type Resolver interface {
	Resolve(ctx context.Context, addr string) (string, error)
}

// ResolverFunc adapts a plain function to Resolver.
type ResolverFunc func(ctx context.Context, addr string) (string, error)

func (f ResolverFunc) Resolve(ctx context.Context, addr string) (string, error) {
	return f(ctx, addr)
}

// HTTPResolver queries an ip-api style JSON endpoint.
// The endpoint is a format string with one %s verb for the address.
type HTTPResolver struct {
	endpoint string
	client   *http.Client
}

func NewHTTPResolver(endpoint string) *HTTPResolver {
	return &HTTPResolver{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (r *HTTPResolver) Resolve(ctx context.Context, addr string) (string, error) {
	url := fmt.Sprintf(r.endpoint, addr)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrLookup, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", ErrLookup, resp.StatusCode)
	}

	var body struct {
		Status  string `json:"status"`
		Country string `json:"country"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if body.Status != "" && body.Status != "success" {
		return "", ErrNoCountry
	}
	if body.Country == "" {
		return "", ErrNoCountry
	}
	return body.Country, nil
}
