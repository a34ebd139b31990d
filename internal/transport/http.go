// Package transport posts JSON payloads over HTTP and hands back the raw
// response, leaving payload semantics to the caller.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
	"unicode/utf8"
)

var (
	// ErrInvalidURL indicates the target is not an absolute http(s) URL.
	ErrInvalidURL = errors.New("invalid URL")

	// ErrConnectionFailed indicates the request never produced a response
	// (DNS, refused connection, timeout, cancellation).
	ErrConnectionFailed = errors.New("connection failed")

	// ErrHTTPStatus indicates a response status outside 2xx. Use errors.As with
	// *StatusError for the code and body.
	ErrHTTPStatus = errors.New("unexpected HTTP status")

	// ErrDecodeFailed indicates the response body is not valid UTF-8 JSON.
	ErrDecodeFailed = errors.New("decode failed")
)

// StatusError carries a non-2xx response for diagnostics.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %d: %s", ErrHTTPStatus, e.Code, e.Body)
}

func (e *StatusError) Unwrap() error { return ErrHTTPStatus }

// Response is a fully read HTTP response. The underlying connection has
// already been released when Send returns it.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// DecodeJSON unmarshals the body into v.
func (r *Response) DecodeJSON(v any) error {
	if !utf8.Valid(r.Body) {
		return fmt.Errorf("%w: body is not valid UTF-8", ErrDecodeFailed)
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("%w: %w", ErrDecodeFailed, err)
	}
	return nil
}

// Client sends JSON POST requests.
type Client struct {
	client *http.Client
}

// New returns a Client whose requests time out after timeout (0 means no client timeout).
func New(timeout time.Duration) *Client {
	return &Client{client: &http.Client{Timeout: timeout}}
}

// NewWithClient wraps an existing *http.Client.
func NewWithClient(c *http.Client) *Client {
	return &Client{client: c}
}

// Send POSTs payload as JSON to rawURL and returns the response.
// Non-2xx responses are returned as *StatusError. No retries are attempted.
func (c *Client) Send(ctx context.Context, rawURL string, payload any) (*Response, error) {
	if err := ValidateURL(rawURL); err != nil {
		return nil, err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("transport: marshaling payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %w", ErrInvalidURL, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %w", ErrConnectionFailed, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Code: resp.StatusCode, Body: string(respBody)}
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       respBody,
	}, nil
}

// CloseIdleConnections releases pooled connections held by the underlying client.
func (c *Client) CloseIdleConnections() {
	c.client.CloseIdleConnections()
}

// ValidateURL reports whether rawURL is an absolute http(s) URL.
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("%w: empty", ErrInvalidURL)
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme must be http or https, got %q", ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	return nil
}
