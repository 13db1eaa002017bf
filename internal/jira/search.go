package jira

import (
	"context"
	"iter"

	"github.com/danielolaszy/jiraflow/pkg/models"
)

// PagerState is the position of a Pager in its lifecycle.
type PagerState int

// Pager states. Done and Failed are terminal.
const (
	StateIdle PagerState = iota
	StateRequesting
	StatePageReceived
	StateDone
	StateFailed
)

func (s PagerState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRequesting:
		return "requesting"
	case StatePageReceived:
		return "page_received"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Cursor is the window of the next search request.
type Cursor struct {
	StartAt  int
	PageSize int
}

// PagerOption configures a Pager.
type PagerOption func(*Pager)

// PageSize overrides the client's page size for one search.
func PageSize(n int) PagerOption {
	return func(p *Pager) {
		if n > 0 {
			p.cursor.PageSize = n
		}
	}
}

// OnRequest registers fn to run before every page request.
func OnRequest(fn func(Cursor)) PagerOption {
	return func(p *Pager) {
		p.onRequest = fn
	}
}

// OnPage registers fn to run after every successfully received page, before
// any of its issues is yielded.
func OnPage(fn func(*SearchPage)) PagerOption {
	return func(p *Pager) {
		p.onPage = fn
	}
}

// Pager walks a search across successive windows, one request at a time.
// It yields issues in server order and cannot be restarted.
//
//	p := client.NewPager(jql)
//	for p.Next(ctx) {
//		handle(p.Issue())
//	}
//	if err := p.Err(); err != nil { ... }
type Pager struct {
	client *Client
	jql    string
	cursor Cursor
	state  PagerState

	page     []models.Issue
	idx      int
	current  models.Issue
	total    int
	requests int
	err      error

	onRequest func(Cursor)
	onPage    func(*SearchPage)
}

// NewPager creates a pager for jql using the client's page size.
func (c *Client) NewPager(jql string, opts ...PagerOption) *Pager {
	p := &Pager{
		client: c,
		jql:    jql,
		cursor: Cursor{StartAt: 0, PageSize: c.pageSize},
		state:  StateIdle,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Next advances to the next issue, fetching the following page once the
// current one is exhausted. It returns false when the search is done or
// has failed.
func (p *Pager) Next(ctx context.Context) bool {
	for {
		switch p.state {
		case StateDone, StateFailed:
			return false

		case StateIdle:
			p.fetch(ctx)

		case StatePageReceived:
			if p.idx < len(p.page) {
				p.current = p.page[p.idx]
				p.idx++
				return true
			}
			if p.cursor.StartAt+p.cursor.PageSize < p.total {
				p.cursor.StartAt += p.cursor.PageSize
				p.state = StateIdle
				continue
			}
			p.state = StateDone
			p.page = nil
			p.client.logger.Debug("search complete",
				"jql", p.jql,
				"total", p.total,
				"requests", p.requests)
			return false

		default:
			// StateRequesting is only observable while fetch runs.
			return false
		}
	}
}

func (p *Pager) fetch(ctx context.Context) {
	p.state = StateRequesting
	if p.onRequest != nil {
		p.onRequest(p.cursor)
	}

	p.requests++
	page, err := p.client.Search(ctx, SearchQuery{
		JQL:        p.jql,
		StartAt:    p.cursor.StartAt,
		MaxResults: p.cursor.PageSize,
	})
	if err != nil {
		p.err = err
		p.state = StateFailed
		p.page = nil
		return
	}

	p.client.logger.Info("processing issues",
		"start_at", p.cursor.StartAt,
		"to", p.cursor.StartAt+p.cursor.PageSize,
		"total", page.Total)
	p.client.metrics.page(len(page.Issues))

	p.total = page.Total
	p.page = page.Issues
	p.idx = 0
	p.state = StatePageReceived
	if p.onPage != nil {
		p.onPage(page)
	}
}

// Issue returns the issue at the current position.
func (p *Pager) Issue() models.Issue {
	return p.current
}

// Err returns the error that stopped the search, if any.
func (p *Pager) Err() error {
	return p.err
}

// State returns the current state.
func (p *Pager) State() PagerState {
	return p.state
}

// Total returns the total reported by the last received page.
func (p *Pager) Total() int {
	return p.total
}

// Requests returns the number of page requests issued so far.
func (p *Pager) Requests() int {
	return p.requests
}

// All returns the remaining issues as a sequence. A failure is yielded once
// as the final element with a zero issue.
func (p *Pager) All(ctx context.Context) iter.Seq2[models.Issue, error] {
	return func(yield func(models.Issue, error) bool) {
		for p.Next(ctx) {
			if !yield(p.Issue(), nil) {
				return
			}
		}
		if p.err != nil {
			yield(models.Issue{}, p.err)
		}
	}
}

// SearchAll runs jql to exhaustion, calling fn for every issue in order. It
// stops at the first error from the server or from fn.
func (c *Client) SearchAll(ctx context.Context, jql string, fn func(models.Issue) error, opts ...PagerOption) error {
	for issue, err := range c.NewPager(jql, opts...).All(ctx) {
		if err != nil {
			return err
		}
		if err := fn(issue); err != nil {
			return err
		}
	}
	return nil
}
