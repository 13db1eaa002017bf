package nodes

import (
	"context"
	"encoding/json"

	"github.com/danielolaszy/jiraflow/pkg/models"
)

// CommentNode adds or updates a comment on the issue named by msg.topic,
// using msg.payload as the comment definition.
type CommentNode struct {
	base
	update bool
}

// NewCommentAddNode creates a node adding comments.
func NewCommentAddNode(deps Deps, settings Settings) (Node, error) {
	b, err := newBase(TypeCommentAdd, deps, settings)
	if err != nil {
		return nil, err
	}
	return &CommentNode{base: b}, nil
}

// NewCommentUpdateNode creates a node updating comments.
func NewCommentUpdateNode(deps Deps, settings Settings) (Node, error) {
	b, err := newBase(TypeCommentUpdate, deps, settings)
	if err != nil {
		return nil, err
	}
	return &CommentNode{base: b, update: true}, nil
}

// Handle implements Node. The outbound payload is the comment as returned by
// the server.
func (n *CommentNode) Handle(ctx context.Context, msg *models.Message, out Emitter) error {
	if missing := requireFields(msg, true, true); len(missing) > 0 {
		return n.invalid(missing...)
	}

	var (
		body   json.RawMessage
		err    error
		action = "creating comment"
	)
	n.requesting()
	if n.update {
		action = "editing comment"
		body, err = n.client.UpdateComment(ctx, msg.Topic, msg.Payload)
	} else {
		body, err = n.client.AddComment(ctx, msg.Topic, msg.Payload)
	}
	if err != nil {
		return n.failed(err, action, "Comment failed")
	}
	n.succeeded()
	n.logger.Info("comment saved", "issue", msg.Topic, "update", n.update)

	msg.Payload = body
	return out.Emit(ctx, msg)
}
