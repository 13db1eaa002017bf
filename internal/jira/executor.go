package jira

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	jira "github.com/andygrunwald/go-jira"
)

// Request describes a single call to the Jira REST API. It is built fresh
// for every call and is not retained once the call completes.
type Request struct {
	// Op names the operation for logs, metrics and errors
	Op Operation

	// Method is the HTTP method
	Method string

	// URI is joined to the configured base URL. Percent-escapes in the
	// composed URI, base included, are decoded before dispatch.
	URI string

	// Body is the request body; nil sends none
	Body any

	// Structured encodes Body as JSON. When false, Body must be []byte,
	// string or io.Reader and is sent as is.
	Structured bool

	// Accepted lists the status codes treated as success
	Accepted []int
}

// ResultKind tags the outcome of an executed request.
type ResultKind int

const (
	// TransportError means no HTTP response was received.
	TransportError ResultKind = iota
	// HTTPSuccess means the status was in the accepted set.
	HTTPSuccess
	// HTTPFailure means a response arrived with any other status.
	HTTPFailure
)

// String returns the outcome name used in logs and metrics.
func (k ResultKind) String() string {
	switch k {
	case TransportError:
		return "transport_error"
	case HTTPSuccess:
		return "success"
	case HTTPFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// Result is the normalized outcome of an executed Request. Exactly one
// Result is produced per Request.
type Result struct {
	Kind       ResultKind
	StatusCode int
	Body       []byte

	// Err is set for TransportError only
	Err error
}

// Decode unmarshals the response body into v.
func (r Result) Decode(v any) error {
	if len(r.Body) == 0 {
		return errors.New("empty response body")
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to decode response body: %w", err)
	}
	return nil
}

// Executor issues a Request and reports its normalized outcome.
type Executor interface {
	Execute(ctx context.Context, req *Request) Result
}

// ExecutorConfig holds the immutable connection settings of an executor.
type ExecutorConfig struct {
	// BaseURL is the REST root, e.g. "https://jira.example.com/rest/api/2/"
	BaseURL string

	Username string
	Password string

	// InsecureSkipVerify disables TLS certificate verification. It configures
	// the default transport and cannot be combined with Transport.
	InsecureSkipVerify bool

	// Timeout bounds each request; zero leaves it to the transport
	Timeout time.Duration

	// Transport overrides the underlying round tripper
	Transport http.RoundTripper

	// Metrics records request outcomes when set
	Metrics *Metrics

	// Logger defaults to slog.Default()
	Logger *slog.Logger
}

// RESTExecutor executes requests through a go-jira client with basic
// credentials attached to every call. It is safe for concurrent use.
type RESTExecutor struct {
	client  *jira.Client
	baseURL url.URL
	metrics *Metrics
	logger  *slog.Logger
}

// NewExecutor creates an executor for the given endpoint and credentials.
func NewExecutor(cfg ExecutorConfig) (*RESTExecutor, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("jira base URL is required")
	}
	if cfg.InsecureSkipVerify && cfg.Transport != nil {
		return nil, fmt.Errorf("insecure TLS cannot be combined with a custom transport")
	}

	base := cfg.Transport
	if base == nil {
		t := http.DefaultTransport.(*http.Transport).Clone()
		if cfg.InsecureSkipVerify {
			t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
		}
		base = t
	}

	tp := jira.BasicAuthTransport{
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: base,
	}
	httpClient := tp.Client()
	httpClient.Timeout = cfg.Timeout

	client, err := jira.NewClient(httpClient, cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create jira client: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &RESTExecutor{
		client:  client,
		baseURL: client.GetBaseURL(),
		metrics: cfg.Metrics,
		logger:  logger,
	}, nil
}

// Execute implements Executor.
func (e *RESTExecutor) Execute(ctx context.Context, req *Request) Result {
	start := time.Now()
	res := e.execute(ctx, req)
	e.metrics.observe(req.Op, res, time.Since(start))

	e.logger.Debug("jira request finished",
		"op", req.Op,
		"method", req.Method,
		"uri", req.URI,
		"outcome", res.Kind,
		"status", res.StatusCode,
		"duration", time.Since(start))
	return res
}

func (e *RESTExecutor) execute(ctx context.Context, req *Request) Result {
	httpReq, err := e.newRequest(ctx, req)
	if err != nil {
		return Result{Kind: TransportError, Err: err}
	}

	// Do reports non-2xx statuses as errors but still returns the response;
	// only a nil response means nothing came back.
	resp, err := e.client.Do(httpReq, nil)
	if resp == nil {
		if err == nil {
			err = errors.New("no response received")
		}
		return Result{Kind: TransportError, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{Kind: TransportError, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	kind := HTTPFailure
	if slices.Contains(req.Accepted, resp.StatusCode) {
		kind = HTTPSuccess
	}
	return Result{Kind: kind, StatusCode: resp.StatusCode, Body: body}
}

func (e *RESTExecutor) newRequest(ctx context.Context, req *Request) (*http.Request, error) {
	composed := e.baseURL.String() + strings.TrimLeft(req.URI, "/")
	uri, err := url.PathUnescape(composed)
	if err != nil {
		return nil, fmt.Errorf("invalid request uri %q: %w", composed, err)
	}

	var httpReq *http.Request
	switch {
	case req.Body == nil:
		httpReq, err = e.client.NewRequestWithContext(ctx, req.Method, uri, nil)
	case req.Structured:
		httpReq, err = e.client.NewRequestWithContext(ctx, req.Method, uri, req.Body)
	default:
		var r io.Reader
		r, err = rawBody(req.Body)
		if err == nil {
			httpReq, err = e.client.NewRawRequestWithContext(ctx, req.Method, uri, r)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to build %s request: %w", req.Op, err)
	}

	httpReq.Header.Set("Accept", "application/json")
	if req.Body != nil && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	return httpReq, nil
}

func rawBody(body any) (io.Reader, error) {
	switch b := body.(type) {
	case []byte:
		return bytes.NewReader(b), nil
	case json.RawMessage:
		return bytes.NewReader(b), nil
	case string:
		return bytes.NewBufferString(b), nil
	case io.Reader:
		return b, nil
	default:
		return nil, fmt.Errorf("unsupported raw body type %T", body)
	}
}

func statusLabel(res Result) string {
	if res.Kind == TransportError {
		return "none"
	}
	return strconv.Itoa(res.StatusCode)
}
