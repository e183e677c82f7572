package upstream

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/angeloszaimis/grocery-proxy/internal/circuitbreaker"
	"github.com/angeloszaimis/grocery-proxy/internal/tracing"
)

const (
	HeaderAPIKey = "X-Rapidapi-Key"
	HeaderHost   = "X-Rapidapi-Host"
)

// Response is a fully buffered upstream response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

type Client struct {
	httpClient *http.Client
	apiKey     string
	breakers   *circuitbreaker.Registry
	tracer     *tracing.Tracer
}

type ClientOption func(*Client)

// WithTransport replaces the round tripper. Used by tests.
func WithTransport(rt http.RoundTripper) ClientOption {
	return func(c *Client) {
		c.httpClient.Transport = rt
	}
}

// WithBreakers guards each upstream family with a circuit breaker.
func WithBreakers(registry *circuitbreaker.Registry) ClientOption {
	return func(c *Client) {
		c.breakers = registry
	}
}

func WithTracer(t *tracing.Tracer) ClientOption {
	return func(c *Client) {
		c.tracer = t
	}
}

// NewClient creates a client that sends apiKey on every call. A zero timeout
// means no limit.
func NewClient(apiKey string, timeout time.Duration, opts ...ClientOption) *Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	// Bodies are relayed byte for byte, so never decompress them.
	transport.DisableCompression = true

	c := &Client{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
		apiKey: apiKey,
		tracer: tracing.Noop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Fetch issues a GET for upstreamPath and rawQuery on u and reads the whole
// body. Any status code is a successful fetch; every other failure is an
// *Error matching ErrUnavailable.
func (c *Client) Fetch(ctx context.Context, u *Upstream, upstreamPath, rawQuery string) (*Response, error) {
	target := u.ResolveURL(upstreamPath, rawQuery)

	ctx, span := c.tracer.Start(ctx, "upstream "+string(u.Family()),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", http.MethodGet),
			attribute.String("url.full", target),
			attribute.String("upstream.family", string(u.Family())),
		))
	defer span.End()

	do := func() (interface{}, error) {
		return c.do(ctx, u, target)
	}

	var (
		res interface{}
		err error
	)
	if c.breakers != nil {
		res, err = c.breakers.GetBreaker(string(u.Family())).Execute(do)
	} else {
		res, err = do()
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, &Error{Upstream: string(u.Family()), URL: target, Cause: err}
	}

	resp := res.(*Response)
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	return resp, nil
}

func (c *Client) do(ctx context.Context, u *Upstream, target string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set(HeaderAPIKey, c.apiKey)
	req.Header.Set(HeaderHost, u.Host())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}
