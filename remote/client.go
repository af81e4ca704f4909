// Package remote is the HTTP plumbing for the storefront API. Repositories
// build on it for request construction, bearer-credential injection, error
// decoding, and the defensive unwrapping the API's list responses need.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const defaultTimeout = 15 * time.Second

// HeaderSource supplies the request headers carrying the bearer credential.
// The auth store implements it; an unauthenticated client passes nil.
type HeaderSource interface {
	AuthHeaders(contentType string) http.Header
}

// APIError is a non-2xx response, with the message the API put in its body
// when one was present.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("remote: HTTP %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("remote: HTTP %d", e.StatusCode)
}

// Client issues JSON requests against a fixed base URL.
type Client struct {
	baseURL string
	http    *http.Client
	headers HeaderSource
	logger  *zap.Logger
}

func NewClient(baseURL string, headers HeaderSource, logger *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
		headers: headers,
		logger:  logger,
	}
}

// Get fetches path and decodes the JSON body into out.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

// Post sends body as JSON and decodes the response into out; both may be nil.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPut, path, body, out)
}

func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPatch, path, body, out)
}

func (c *Client) Delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	contentType := ""
	if body != nil {
		contentType = "application/json"
	}
	if c.headers != nil {
		for name, values := range c.headers.AuthHeaders(contentType) {
			for _, value := range values {
				req.Header.Add(name, value)
			}
		}
	} else if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: read body: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("Request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode))
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(raw)}
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err = json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	return nil
}

// errorMessage pulls {"message": ...} out of an error body when the API sent
// JSON, otherwise returns the raw text.
func errorMessage(raw []byte) string {
	var wrapper struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &wrapper); err == nil && wrapper.Message != "" {
		return wrapper.Message
	}
	return strings.TrimSpace(string(raw))
}
