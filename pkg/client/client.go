// Package client talks to the hosted wavespace backend: the REST data API,
// the auth API and (through pkg/realtime) the change feed.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Client is the wavespace backend client. It is safe for concurrent use.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client

	mu        sync.RWMutex
	session   *Session
	onSession func(*Session)
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default 30s-timeout HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithSession restores a previously persisted session.
func WithSession(s *Session) Option {
	return func(c *Client) { c.session = s }
}

// OnSessionChange registers fn to run whenever the session is set or
// cleared (nil). It is typically used to persist the session to disk.
func OnSessionChange(fn func(*Session)) Option {
	return func(c *Client) { c.onSession = fn }
}

// New creates a new API client for the project at baseURL.
func New(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL is the project URL the client was created with.
func (c *Client) BaseURL() string { return c.baseURL }

// APIKey is the project's anonymous key.
func (c *Client) APIKey() string { return c.apiKey }

// Session returns the current session, or nil when signed out.
func (c *Client) Session() *Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// AccessToken is the bearer token requests are sent with: the session's
// access token, or the anonymous key when signed out.
func (c *Client) AccessToken() string {
	if s := c.Session(); s != nil && s.AccessToken != "" {
		return s.AccessToken
	}
	return c.apiKey
}

func (c *Client) setSession(s *Session) {
	c.mu.Lock()
	c.session = s
	fn := c.onSession
	c.mu.Unlock()
	if fn != nil {
		fn(s)
	}
}

type request struct {
	method string
	path   string
	body   any
	prefer []string
	// bearer overrides the session token when set.
	bearer string
}

// response carries the headers callers need besides the decoded body.
type response struct {
	header http.Header
}

func (c *Client) doRequest(ctx context.Context, r request, out any) (*response, error) {
	var reqBody io.Reader
	if r.body != nil {
		data, err := json.Marshal(r.body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("apikey", c.apiKey)
	bearer := r.bearer
	if bearer == "" {
		bearer = c.AccessToken()
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	if len(r.prefer) > 0 {
		req.Header.Set("Prefer", strings.Join(r.prefer, ","))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close

	if resp.StatusCode >= 400 {
		respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // 1 MB max error body
		if readErr != nil {
			return nil, &HTTPError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("failed to read body: %v", readErr)}
		}
		return nil, parseHTTPError(resp.StatusCode, respBody)
	}

	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
			return nil, fmt.Errorf("decode response: %w", err)
		}
	}
	return &response{header: resp.Header}, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	_, err := c.doRequest(ctx, request{method: http.MethodGet, path: path}, out)
	return err
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	_, err := c.doRequest(ctx, request{method: http.MethodPost, path: path, body: body}, out)
	return err
}
