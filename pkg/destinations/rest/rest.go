// Package rest is the thin HTTP layer shared by the remote destination
// adapters: a retrying client with a request rate cap and JSON-friendly
// helpers.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"
)

// Response carries what adapters need from an HTTP exchange.
type Response struct {
	StatusCode int
	Body       string
}

// Client wraps retryablehttp with a per-destination rate limiter. Headers
// set on the client ride on every request.
type Client struct {
	base    string
	headers map[string]string
	hc      *retryablehttp.Client
	limiter *rate.Limiter
}

// New builds a client for the given API base URL. Transient failures are
// retried by the underlying client; the limiter keeps bursts polite.
func New(base string, headers map[string]string) *Client {
	rc := retryablehttp.NewClient()
	rc.Logger = log.New(io.Discard, "", 0)
	rc.RetryMax = 3
	rc.HTTPClient.Timeout = 15 * time.Second
	return &Client{
		base:    base,
		headers: headers,
		hc:      rc,
		limiter: rate.NewLimiter(rate.Limit(5), 5),
	}
}

// Get issues a GET against base+path.
func (c *Client) Get(ctx context.Context, path string) (*Response, error) {
	return c.do(ctx, http.MethodGet, path, nil)
}

// PostJSON issues a POST with a JSON-encoded body.
func (c *Client) PostJSON(ctx context.Context, path string, body interface{}) (*Response, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, err
		}
	}
	return c.do(ctx, http.MethodPost, path, payload)
}

// PatchJSON issues a PATCH with a JSON-encoded body.
func (c *Client) PatchJSON(ctx context.Context, path string, body interface{}) (*Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, http.MethodPatch, path, payload)
}

// Delete issues a DELETE against base+path.
func (c *Client) Delete(ctx context.Context, path string) (*Response, error) {
	return c.do(ctx, http.MethodDelete, path, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) (*Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return nil, err
	}
	for name, value := range c.headers {
		req.Header.Set(name, value)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return &Response{StatusCode: resp.StatusCode, Body: string(data)}, nil
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// StatusError formats a non-2xx response as an error.
func (r *Response) StatusError(what string) error {
	body := r.Body
	if len(body) > 200 {
		body = body[:200]
	}
	return fmt.Errorf("%s: HTTP %d: %s", what, r.StatusCode, body)
}
