package homeassistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/hearth-home/hearth-core/internal/infrastructure/config"
	"github.com/hearth-home/hearth-core/internal/plan"
)

const defaultTimeout = 10 * time.Second

// Client talks to the Home Assistant REST API.
//
// It covers the two operations the engine needs: fetching a registry
// snapshot (states and services) and invoking a service call against
// an entity. Safe for concurrent use.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New creates a client from config. The base URL must not end with a
// trailing slash; Validate in the config package enforces the scheme.
func New(cfg config.HomeAssistantConfig) *Client {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: cfg.URL,
		token:   cfg.Token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Snapshot fetches a fresh registry view: all entity states plus the
// services each domain exposes. Called once per request, never cached
// across requests.
func (c *Client) Snapshot(ctx context.Context) (*Snapshot, error) {
	var entities []Entity
	if err := c.get(ctx, "/api/states", &entities); err != nil {
		return nil, err
	}

	var rawServices []struct {
		Domain   string                     `json:"domain"`
		Services map[string]json.RawMessage `json:"services"`
	}
	if err := c.get(ctx, "/api/services", &rawServices); err != nil {
		return nil, err
	}

	services := make(map[string][]string, len(rawServices))
	for _, d := range rawServices {
		names := make([]string, 0, len(d.Services))
		for name := range d.Services {
			names = append(names, name)
		}
		sort.Strings(names)
		services[d.Domain] = names
	}

	snapshot := &Snapshot{
		Entities: entities,
		Services: services,
	}
	snapshot.buildIndex()
	return snapshot, nil
}

// Invoke calls a Home Assistant service against one entity.
// Device calls are never cancelled once issued; pass a context that
// survives request cancellation.
func (c *Client) Invoke(ctx context.Context, domain, service, entityID string, data map[string]plan.Value) error {
	body := make(map[string]interface{}, len(data)+1)
	body["entity_id"] = entityID
	for k, v := range data {
		body[k] = v.Interface()
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding service call: %w", err)
	}

	path := fmt.Sprintf("/api/services/%s/%s", domain, service)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close() //nolint:errcheck // Best effort drain

	if err := checkStatus(resp); err != nil {
		return fmt.Errorf("calling %s.%s on %s: %w", domain, service, entityID, err)
	}
	return nil
}

// HealthCheck verifies the API is reachable and the token is accepted.
func (c *Client) HealthCheck(ctx context.Context) error {
	var status struct {
		Message string `json:"message"`
	}
	return c.get(ctx, "/api/", &status)
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close() //nolint:errcheck // Best effort drain

	if err := checkStatus(resp); err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding response: %w", ErrRequestFailed, err)
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
}

func checkStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return ErrUnauthorized
	case resp.StatusCode >= 400:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: status %d: %s", ErrRequestFailed, resp.StatusCode, bytes.TrimSpace(body))
	}
	return nil
}
