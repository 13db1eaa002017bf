package nodes

import (
	"context"
	"fmt"

	"github.com/danielolaszy/jiraflow/internal/jira"
	"github.com/danielolaszy/jiraflow/pkg/models"
)

// SearchNode runs a JQL search and emits one message per issue found.
type SearchNode struct {
	base
	jql      string
	pageSize int
	newID    func() string
}

// NewSearchNode creates a search node. A configured JQL takes precedence over
// the one carried by inbound messages.
func NewSearchNode(deps Deps, settings Settings) (Node, error) {
	b, err := newBase(TypeSearch, deps, settings)
	if err != nil {
		return nil, err
	}
	newID := deps.NewID
	if newID == nil {
		newID = defaultID
	}
	return &SearchNode{
		base:     b,
		jql:      settings.JQL,
		pageSize: settings.PageSize,
		newID:    newID,
	}, nil
}

// Handle implements Node. Every emitted message is a copy of msg with a new
// id, the issue key as topic and the issue as result. Pages are fetched one
// after another; a failure abandons the remaining pages.
func (n *SearchNode) Handle(ctx context.Context, msg *models.Message, out Emitter) error {
	if msg == nil {
		return n.invalid("message")
	}

	jql := n.jql
	if jql == "" {
		jql = msg.JQL
	}
	n.logger.Info("performing search", "jql", jql)

	pager := n.client.NewPager(jql,
		jira.PageSize(n.pageSize),
		jira.OnRequest(func(jira.Cursor) { n.requesting() }),
		jira.OnPage(func(*jira.SearchPage) { n.succeeded() }),
	)

	emitted := 0
	for issue, err := range pager.All(ctx) {
		if err != nil {
			return n.searchFailed(err)
		}

		var summary string
		if _, err := issue.Field("summary", &summary); err != nil {
			n.logger.Warn("unreadable issue summary", "issue", issue.Key, "error", err)
		}
		n.logger.Debug("emitting issue", "issue", issue.Key, "summary", summary)

		event := msg.Clone()
		event.ID = n.newID()
		event.Topic = issue.Key
		event.Result = issue.Raw
		if err := out.Emit(ctx, event); err != nil {
			return n.failed(fmt.Errorf("failed to emit issue %s: %w", issue.Key, err),
				"emitting issue", "Error performing request")
		}
		emitted++
	}

	n.logger.Info("search complete",
		"issues", emitted,
		"total", pager.Total(),
		"requests", pager.Requests())
	return nil
}

func (n *SearchNode) searchFailed(err error) error {
	if jira.IsInvalidQuery(err) {
		n.setStatus(Failure("Invalid JQL"))
		n.logger.Error("invalid JQL", "error", err)
		return fmt.Errorf("error processing search: %w", err)
	}
	return n.failed(err, "processing search", "Error performing request")
}
