package jira

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	jira "github.com/andygrunwald/go-jira"
	"github.com/danielolaszy/jiraflow/pkg/models"
)

// Operation names a Jira REST operation.
type Operation string

// Supported operations.
const (
	OpSearch        Operation = "search"
	OpGet           Operation = "get"
	OpCreate        Operation = "create"
	OpEdit          Operation = "edit"
	OpAddComment    Operation = "add-comment"
	OpUpdateComment Operation = "update-comment"
)

// DefaultPageSize is the number of issues requested per search page.
const DefaultPageSize = 1000

// SearchFields is the fixed field projection requested by searches.
var SearchFields = []string{
	"key", "title", "summary", "labels", "status", "issuetype", "description",
	"reporter", "created", "environment", "priority", "comment", "project",
}

// DefaultExpand is the expansion requested by searches.
var DefaultExpand = []string{"schema", "names"}

// ErrMalformedResponse indicates an accepted response whose body could not
// be decoded.
var ErrMalformedResponse = errors.New("malformed response")

// SearchQuery selects one window of a search.
type SearchQuery struct {
	JQL        string
	StartAt    int
	MaxResults int
	Fields     []string
	Expand     []string
}

type searchBody struct {
	JQL        string   `json:"jql"`
	StartAt    int      `json:"startAt"`
	MaxResults int      `json:"maxResults"`
	Fields     []string `json:"fields"`
	Expand     []string `json:"expand"`
}

// SearchPage is one window of search results.
type SearchPage struct {
	StartAt    int
	MaxResults int
	Total      int
	Issues     []models.Issue
}

// Document is a fetched issue.
type Document struct {
	Key  string
	Body json.RawMessage
}

// CreatedIssue identifies a newly created issue.
type CreatedIssue struct {
	ID   string
	Key  string
	Self string
	Body json.RawMessage
}

// SearchRequest builds the request for one search window. Zero values fall
// back to the defaults.
func SearchRequest(q SearchQuery) *Request {
	body := searchBody{
		JQL:        q.JQL,
		StartAt:    q.StartAt,
		MaxResults: q.MaxResults,
		Fields:     q.Fields,
		Expand:     q.Expand,
	}
	if body.MaxResults <= 0 {
		body.MaxResults = DefaultPageSize
	}
	if len(body.Fields) == 0 {
		body.Fields = SearchFields
	}
	if len(body.Expand) == 0 {
		body.Expand = DefaultExpand
	}

	return &Request{
		Op:         OpSearch,
		Method:     http.MethodPost,
		URI:        "search",
		Body:       body,
		Structured: true,
		Accepted:   []int{http.StatusOK},
	}
}

// GetRequest builds the request fetching a single issue.
func GetRequest(key string) *Request {
	return &Request{
		Op:         OpGet,
		Method:     http.MethodGet,
		URI:        "issue/" + key,
		Structured: true,
		Accepted:   []int{http.StatusOK},
	}
}

// CreateRequest builds the request creating an issue from its definition.
func CreateRequest(definition any) *Request {
	return &Request{
		Op:         OpCreate,
		Method:     http.MethodPost,
		URI:        "issue",
		Body:       definition,
		Structured: true,
		Accepted:   []int{http.StatusCreated},
	}
}

// EditRequest builds the request applying an update to an issue.
func EditRequest(key string, update any) *Request {
	return &Request{
		Op:         OpEdit,
		Method:     http.MethodPut,
		URI:        "issue/" + key,
		Body:       update,
		Structured: true,
		Accepted:   []int{http.StatusNoContent},
	}
}

// AddCommentRequest builds the request adding a comment to an issue.
func AddCommentRequest(key string, comment any) *Request {
	return &Request{
		Op:         OpAddComment,
		Method:     http.MethodPost,
		URI:        "issue/" + key + "/comment",
		Body:       comment,
		Structured: true,
		Accepted:   []int{http.StatusCreated},
	}
}

// UpdateCommentRequest builds the request updating a comment of an issue.
func UpdateCommentRequest(key string, comment any) *Request {
	return &Request{
		Op:         OpUpdateComment,
		Method:     http.MethodPut,
		URI:        "issue/" + key + "/comment",
		Body:       comment,
		Structured: true,
		Accepted:   []int{http.StatusCreated},
	}
}

// Classify maps the outcome of req onto the error taxonomy. It returns nil
// for an accepted response.
func Classify(req *Request, res Result) error {
	switch res.Kind {
	case HTTPSuccess:
		return nil
	case TransportError:
		return &OperationError{Op: req.Op, Err: &transportError{cause: res.Err}}
	}

	opErr := &OperationError{
		Op:         req.Op,
		StatusCode: res.StatusCode,
		Body:       res.Body,
		Err:        ErrRequestRejected,
	}
	if req.Op == OpSearch && res.StatusCode == http.StatusBadRequest {
		opErr.Err = ErrInvalidQuery
	}
	return opErr
}

// Client runs Jira operations through an Executor.
type Client struct {
	exec     Executor
	pageSize int
	metrics  *Metrics
	logger   *slog.Logger
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithPageSize sets the search page size.
func WithPageSize(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics records search progress.
func WithMetrics(m *Metrics) ClientOption {
	return func(c *Client) {
		c.metrics = m
	}
}

// NewClient creates a client over exec.
func NewClient(exec Executor, opts ...ClientOption) *Client {
	c := &Client{
		exec:     exec,
		pageSize: DefaultPageSize,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PageSize returns the configured search page size.
func (c *Client) PageSize() int {
	return c.pageSize
}

func (c *Client) do(ctx context.Context, req *Request) (Result, error) {
	res := c.exec.Execute(ctx, req)
	return res, Classify(req, res)
}

// Search fetches a single search window.
func (c *Client) Search(ctx context.Context, q SearchQuery) (*SearchPage, error) {
	req := SearchRequest(q)
	res, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}

	var raw struct {
		StartAt    int               `json:"startAt"`
		MaxResults int               `json:"maxResults"`
		Total      int               `json:"total"`
		Issues     []json.RawMessage `json:"issues"`
	}
	if err := res.Decode(&raw); err != nil {
		return nil, malformed(req, res, err)
	}

	page := &SearchPage{
		StartAt:    raw.StartAt,
		MaxResults: raw.MaxResults,
		Total:      raw.Total,
		Issues:     make([]models.Issue, 0, len(raw.Issues)),
	}
	for _, r := range raw.Issues {
		var issue models.Issue
		if err := json.Unmarshal(r, &issue); err != nil {
			return nil, malformed(req, res, err)
		}
		issue.Raw = r
		page.Issues = append(page.Issues, issue)
	}
	return page, nil
}

// Get fetches an issue by key.
func (c *Client) Get(ctx context.Context, key string) (*Document, error) {
	req := GetRequest(key)
	res, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}

	var head struct {
		Key string `json:"key"`
	}
	if err := res.Decode(&head); err != nil {
		return nil, malformed(req, res, err)
	}
	return &Document{Key: head.Key, Body: res.Body}, nil
}

// Create creates an issue and returns its server-assigned identity.
func (c *Client) Create(ctx context.Context, definition any) (*CreatedIssue, error) {
	req := CreateRequest(definition)
	res, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}

	var issue jira.Issue
	if err := res.Decode(&issue); err != nil {
		return nil, malformed(req, res, err)
	}
	return &CreatedIssue{ID: issue.ID, Key: issue.Key, Self: issue.Self, Body: res.Body}, nil
}

// Edit applies an update to an issue.
func (c *Client) Edit(ctx context.Context, key string, update any) error {
	_, err := c.do(ctx, EditRequest(key, update))
	return err
}

// AddComment adds a comment and returns the server's representation of it.
func (c *Client) AddComment(ctx context.Context, key string, comment any) (json.RawMessage, error) {
	res, err := c.do(ctx, AddCommentRequest(key, comment))
	if err != nil {
		return nil, err
	}
	return res.Body, nil
}

// UpdateComment updates a comment and returns the server's representation of it.
func (c *Client) UpdateComment(ctx context.Context, key string, comment any) (json.RawMessage, error) {
	res, err := c.do(ctx, UpdateCommentRequest(key, comment))
	if err != nil {
		return nil, err
	}
	return res.Body, nil
}

func malformed(req *Request, res Result, cause error) error {
	return &OperationError{
		Op:         req.Op,
		StatusCode: res.StatusCode,
		Body:       res.Body,
		Err:        fmt.Errorf("%w: %v", ErrMalformedResponse, cause),
	}
}
