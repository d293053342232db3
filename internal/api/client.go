// Package api wraps the helpdesk REST API behind a single request entry
// point: base URL fixed at construction, bearer credential attached from a
// token source, failures normalized into common.APIError. Retry is a policy
// of higher layers; this adapter never retries.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	hzclient "github.com/cloudwego/hertz/pkg/app/client"
	"github.com/cloudwego/hertz/pkg/protocol"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/smarthelp/deskclient/internal/common"
	"github.com/smarthelp/deskclient/internal/observability"
)

// TokenSource yields the current bearer credential, or "" when the session
// is unauthenticated.
type TokenSource func() string

type Client struct {
	base   string
	hc     *hzclient.Client
	token  TokenSource
	tracer trace.Tracer
}

type Option func(*Client)

// WithTokenSource sets the credential source at construction time.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.token = ts }
}

// New builds an adapter for the API rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	hc, err := hzclient.NewClient(hzclient.WithDialTimeout(5 * time.Second))
	if err != nil {
		return nil, err
	}
	c := &Client{
		base:   strings.TrimRight(baseURL, "/"),
		hc:     hc,
		tracer: otel.Tracer("deskclient/api"),
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// SetTokenSource wires the session credential after construction; the store
// owns the session slice, and the session slice needs this client, so the
// hookup happens in store.New.
func (c *Client) SetTokenSource(ts TokenSource) { c.token = ts }

// Do issues one request and returns the raw response body. Any non-2xx
// response or transport failure yields a *common.APIError.
func (c *Client) Do(ctx context.Context, method, path string, body any) ([]byte, error) {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, &common.APIError{Code: common.ErrCodeInternal, Message: "encode request: " + err.Error()}
		}
		payload = b
	}

	ctx, span := c.tracer.Start(ctx, method+" "+routeOf(path))
	defer span.End()

	req, res := protocol.AcquireRequest(), protocol.AcquireResponse()
	defer func() {
		protocol.ReleaseRequest(req)
		protocol.ReleaseResponse(res)
	}()
	req.SetMethod(method)
	req.SetRequestURI(c.base + path)
	if payload != nil {
		req.SetBody(payload)
		req.Header.SetContentTypeBytes([]byte("application/json"))
	}
	if c.token != nil {
		if tok := c.token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}
	req.Header.Set("X-Request-ID", uuid.NewString())

	start := time.Now()
	if err := c.hc.Do(ctx, req, res); err != nil {
		observability.ObserveRequest(method, routeOf(path), 0, time.Since(start))
		span.RecordError(err)
		return nil, &common.APIError{Code: common.ErrCodeNetwork, Message: err.Error()}
	}
	status := res.StatusCode()
	out := append([]byte(nil), res.Body()...)
	observability.ObserveRequest(method, routeOf(path), status, time.Since(start))
	span.SetAttributes(
		attribute.String("http.method", method),
		attribute.Int("http.status_code", status),
	)
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return nil, &common.APIError{
			Code:    common.CodeForStatus(status),
			Status:  status,
			Message: errorMessage(out, status),
		}
	}
	return out, nil
}

// JSON issues a request and decodes the response body into out. A nil out,
// an empty body, or a JSON null leave out untouched (the suggestion endpoint
// legitimately returns an empty payload while triage is still running).
func (c *Client) JSON(ctx context.Context, method, path string, body, out any) error {
	b, err := c.Do(ctx, method, path, body)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	trimmed := strings.TrimSpace(string(b))
	if trimmed == "" || trimmed == "null" {
		return nil
	}
	if err := json.Unmarshal(b, out); err != nil {
		return &common.APIError{Code: common.ErrCodeInternal, Message: "decode response: " + err.Error()}
	}
	return nil
}

// errorMessage pulls a human-readable message out of an error body. The
// backend answers either {"error": "..."} or {"message": "..."}.
func errorMessage(body []byte, status int) string {
	var parsed struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Error != "" {
			return parsed.Error
		}
		if parsed.Message != "" {
			return parsed.Message
		}
	}
	return http.StatusText(status)
}

// routeOf strips the query string so metric/span labels stay low-cardinality.
func routeOf(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		return path[:i]
	}
	return path
}
