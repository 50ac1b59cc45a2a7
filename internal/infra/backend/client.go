package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yanqian/ask-console/internal/domain/page"
)

const (
	defaultUserAgent = "ask-console/1.0"
	maxErrorBody     = 64 << 10
	maxResponseBody  = 4 << 20
)

// Paths names the backend endpoints.
type Paths struct {
	ResponseTypes string
	Ask           string
	ReloadConfig  string
	ReloadData    string
}

// DefaultPaths are the routes served by the answer backend.
func DefaultPaths() Paths {
	return Paths{
		ResponseTypes: "/api/response-types",
		Ask:           "/api/ask",
		ReloadConfig:  "/api/reload-config",
		ReloadData:    "/api/reload-data",
	}
}

// Client talks to the answer backend. It never retries.
type Client struct {
	baseURL    string
	paths      Paths
	userAgent  string
	httpClient *http.Client
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithTimeout overrides the per-request timeout of the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if strings.TrimSpace(ua) != "" {
			c.userAgent = ua
		}
	}
}

// WithPaths overrides endpoint paths; empty fields keep their defaults.
func WithPaths(p Paths) Option {
	return func(c *Client) {
		if p.ResponseTypes != "" {
			c.paths.ResponseTypes = p.ResponseTypes
		}
		if p.Ask != "" {
			c.paths.Ask = p.Ask
		}
		if p.ReloadConfig != "" {
			c.paths.ReloadConfig = p.ReloadConfig
		}
		if p.ReloadData != "" {
			c.paths.ReloadData = p.ReloadData
		}
	}
}

// NewClient builds an API client rooted at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		paths:      DefaultPaths(),
		userAgent:  defaultUserAgent,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// ResponseTypes lists the selectable answer modes.
func (c *Client) ResponseTypes(ctx context.Context) ([]page.ResponseTypeOption, error) {
	var out page.ResponseTypesResponse
	if err := c.do(ctx, http.MethodGet, c.paths.ResponseTypes, nil, nil, &out); err != nil {
		return nil, fmt.Errorf("response types: %w", err)
	}
	return out.ResponseTypes, nil
}

// Ask posts a question. csrfToken is echoed in the X-CSRFToken header.
func (c *Client) Ask(ctx context.Context, req page.AskRequest, csrfToken string) (page.AskResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return page.AskResponse{}, fmt.Errorf("encode ask request: %w", err)
	}
	headers := http.Header{}
	headers.Set("Content-Type", "application/json")
	if csrfToken != "" {
		headers.Set("X-CSRFToken", csrfToken)
	}
	var out page.AskResponse
	if err := c.do(ctx, http.MethodPost, c.paths.Ask, headers, body, &out); err != nil {
		return page.AskResponse{}, err
	}
	return out, nil
}

// Reload triggers a config or data refresh on the backend.
func (c *Client) Reload(ctx context.Context, target page.ReloadTarget) (page.ReloadResponse, error) {
	var path string
	switch target {
	case page.ReloadConfig:
		path = c.paths.ReloadConfig
	case page.ReloadData:
		path = c.paths.ReloadData
	default:
		return page.ReloadResponse{}, fmt.Errorf("unknown reload target %q", target)
	}
	var out page.ReloadResponse
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return page.ReloadResponse{}, fmt.Errorf("reload %s: %w", target, err)
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, headers http.Header, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	for k, values := range headers {
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &page.StatusError{StatusCode: resp.StatusCode, Body: string(payload)}
	}

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

var _ page.Backend = (*Client)(nil)
