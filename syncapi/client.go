// Package syncapi is the typed client for the browser sync endpoints.
//
// Every call is a single request with a fixed timeout and the sync token in
// the x-api-key header. Nothing is retried.
package syncapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/hazyhaar/hyperaide-sync/cookie"
)

// BasePath is the API prefix shared by all endpoints.
const BasePath = "/api/v1/browser_sync"

// HeaderToken carries the sync token on every request.
const HeaderToken = "x-api-key"

const defaultRejection = "No cookies provided"

// maxResponseBytes caps a buffered response body.
const maxResponseBytes = 4 << 20

// Config configures a Client.
type Config struct {
	// BaseURL is the API origin, e.g. "https://api.hyperaide.com".
	BaseURL string

	// ControlTimeout bounds start, reset and status. Default: 30s.
	ControlTimeout time.Duration

	// UploadTimeout bounds complete. Default: 60s.
	UploadTimeout time.Duration

	HTTPClient *http.Client
	Logger     *slog.Logger
}

func (c *Config) defaults() {
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.ControlTimeout <= 0 {
		c.ControlTimeout = 30 * time.Second
	}
	if c.UploadTimeout <= 0 {
		c.UploadTimeout = 60 * time.Second
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Client talks to the sync API.
type Client struct {
	cfg Config
}

// New creates a Client. The base URL is fixed for the client's lifetime.
func New(cfg Config) *Client {
	cfg.defaults()
	return &Client{cfg: cfg}
}

// BaseURL returns the API origin the client targets.
func (c *Client) BaseURL() string { return c.cfg.BaseURL }

// Start validates token and opens a sync session.
func (c *Client) Start(ctx context.Context, token string) (*StartResult, error) {
	resp, err := c.do(ctx, "start", http.MethodPost, BasePath+"/start", token, nil, c.cfg.ControlTimeout)
	if err != nil {
		return nil, err
	}
	var out StartResult
	if err := decodeOK(resp, "start", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Complete uploads the classified cookies and visited domains. A 400 answer
// is not an error: the returned result has no sites and Rejected set.
func (c *Client) Complete(ctx context.Context, token string, cookies []cookie.Cookie, visitedDomains []string) (*SyncResult, error) {
	if cookies == nil {
		cookies = []cookie.Cookie{}
	}
	if visitedDomains == nil {
		visitedDomains = []string{}
	}
	body, err := json.Marshal(CompleteRequest{Cookies: cookies, VisitedDomains: visitedDomains})
	if err != nil {
		return nil, fmt.Errorf("syncapi: complete: marshal: %w", err)
	}

	resp, err := c.do(ctx, "complete", http.MethodPost, BasePath+"/complete", token, body, c.cfg.UploadTimeout)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusBadRequest {
		defer resp.Body.Close()
		msg := rejectionMessage(resp)
		c.cfg.Logger.Warn("syncapi: complete rejected", "reason", msg)
		return &SyncResult{ConnectedSites: []Site{}, Rejected: msg}, nil
	}

	var out SyncResult
	if err := decodeOK(resp, "complete", &out); err != nil {
		return nil, err
	}
	if out.ConnectedSites == nil {
		out.ConnectedSites = []Site{}
	}
	return &out, nil
}

// Reset disconnects every synced site for token.
func (c *Client) Reset(ctx context.Context, token string) error {
	resp, err := c.do(ctx, "reset", http.MethodDelete, BasePath, token, nil, c.cfg.ControlTimeout)
	if err != nil {
		return err
	}
	return decodeOK(resp, "reset", nil)
}

// Status returns the current sync state for token.
func (c *Client) Status(ctx context.Context, token string) (*StatusResult, error) {
	resp, err := c.do(ctx, "status", http.MethodGet, BasePath, token, nil, c.cfg.ControlTimeout)
	if err != nil {
		return nil, err
	}
	var out StatusResult
	if err := decodeOK(resp, "status", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// do sends one request. The returned response body is fully buffered so the
// per-call timeout can be released before decoding.
func (c *Client) do(ctx context.Context, op, method, path, token string, body []byte, timeout time.Duration) (*http.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, rd)
	if err != nil {
		return nil, fmt.Errorf("syncapi: %s: new request: %w", op, err)
	}
	req.Header.Set(HeaderToken, token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}
	if len(data) > maxResponseBytes {
		return nil, fmt.Errorf("syncapi: %s: response exceeds %d bytes", op, maxResponseBytes)
	}
	resp.Body = io.NopCloser(bytes.NewReader(data))

	c.cfg.Logger.Debug("syncapi: request done",
		"op", op, "status", resp.StatusCode, "duration", time.Since(start))
	return resp, nil
}

func decodeOK(resp *http.Response, op string, out any) error {
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrInvalidToken
	case resp.StatusCode != http.StatusOK:
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &ServerError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("syncapi: %s: decode response: %w", op, err)
	}
	return nil
}

func rejectionMessage(resp *http.Response) string {
	mt, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mt != "application/json" {
		return defaultRejection
	}
	var eb errorBody
	if err := json.NewDecoder(resp.Body).Decode(&eb); err != nil || eb.Error == "" {
		return defaultRejection
	}
	return eb.Error
}
