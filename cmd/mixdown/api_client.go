package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"mixdown/internal/dispatch"
	"mixdown/internal/server"
)

// apiClient talks to the daemon's HTTP API.
type apiClient struct {
	base  *url.URL
	token string
	http  *http.Client
}

func newAPIClient(address, token string) (*apiClient, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, errors.New("daemon address is empty; set [paths].api_bind or pass --server")
	}
	if !strings.Contains(address, "://") {
		address = "http://" + address
	}
	base, err := url.Parse(address)
	if err != nil {
		return nil, fmt.Errorf("parse daemon address: %w", err)
	}
	base.Path = ""
	base.RawQuery = ""
	base.Fragment = ""

	return &apiClient{
		base:  base,
		token: token,
		// Dispatches block until the whole batch completes, so the
		// client tolerates long waits.
		http: &http.Client{Timeout: 15 * time.Minute},
	}, nil
}

func (c *apiClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	endpoint := c.base.ResolveReference(&url.URL{Path: path})
	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return wrapConnectError(err, c.base.Host)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	var payload struct {
		Error string `json:"error"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(raw, &payload); err == nil && payload.Error != "" {
		return fmt.Errorf("daemon returned %d: %s", resp.StatusCode, payload.Error)
	}
	return fmt.Errorf("daemon returned status %d", resp.StatusCode)
}

func wrapConnectError(err error, host string) error {
	return fmt.Errorf("connect to daemon at %s: %w (is mixdownd running?)", host, err)
}

func (c *apiClient) Status(ctx context.Context) (server.StatusView, error) {
	var status server.StatusView
	err := c.do(ctx, http.MethodGet, "/api/status", nil, &status)
	return status, err
}

func (c *apiClient) Modules(ctx context.Context) ([]server.ModuleView, error) {
	var payload struct {
		Modules []server.ModuleView `json:"modules"`
	}
	err := c.do(ctx, http.MethodGet, "/api/modules", nil, &payload)
	return payload.Modules, err
}

func (c *apiClient) Sessions(ctx context.Context) ([]server.SessionView, error) {
	var payload struct {
		Sessions []server.SessionView `json:"sessions"`
	}
	err := c.do(ctx, http.MethodGet, "/api/sessions", nil, &payload)
	return payload.Sessions, err
}

func (c *apiClient) CreateSession(ctx context.Context, name string) (server.SessionView, error) {
	var view server.SessionView
	err := c.do(ctx, http.MethodPost, "/api/sessions", map[string]string{"name": name}, &view)
	return view, err
}

func (c *apiClient) DeleteSession(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/sessions/"+id, nil, nil)
}

func (c *apiClient) Files(ctx context.Context, sessionID string) ([]server.FileView, error) {
	var payload struct {
		Files []server.FileView `json:"files"`
	}
	err := c.do(ctx, http.MethodGet, "/api/sessions/"+sessionID+"/files", nil, &payload)
	return payload.Files, err
}

func (c *apiClient) Dispatch(ctx context.Context, sessionID, moduleID string, targetIDs []string, params map[string]any) (dispatch.Result, error) {
	var result dispatch.Result
	body := map[string]any{
		"module_id":  moduleID,
		"target_ids": targetIDs,
		"params":     params,
	}
	err := c.do(ctx, http.MethodPost, "/api/sessions/"+sessionID+"/dispatch", body, &result)
	return result, err
}
