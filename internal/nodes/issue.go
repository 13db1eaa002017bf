package nodes

import (
	"context"
	"fmt"

	"github.com/danielolaszy/jiraflow/pkg/models"
)

// UpdateNode applies msg.payload as an update to the issue named by msg.topic.
type UpdateNode struct {
	base
}

// NewUpdateNode creates an issue update node.
func NewUpdateNode(deps Deps, settings Settings) (Node, error) {
	b, err := newBase(TypeUpdate, deps, settings)
	if err != nil {
		return nil, err
	}
	return &UpdateNode{base: b}, nil
}

// Handle implements Node. On success the inbound message is re-emitted
// unchanged.
func (n *UpdateNode) Handle(ctx context.Context, msg *models.Message, out Emitter) error {
	if missing := requireFields(msg, true, true); len(missing) > 0 {
		return n.invalid(missing...)
	}
	n.logger.Info("updating issue", "issue", msg.Topic)

	n.requesting()
	if err := n.client.Edit(ctx, msg.Topic, msg.Payload); err != nil {
		return n.failed(err, "updating issue", "Update failed")
	}
	n.succeeded()

	return out.Emit(ctx, msg)
}

// GetNode fetches the issue named by msg.topic.
type GetNode struct {
	base
	keyProperty  string
	bodyProperty string
}

// NewGetNode creates an issue get node.
func NewGetNode(deps Deps, settings Settings) (Node, error) {
	b, err := newBase(TypeGet, deps, settings)
	if err != nil {
		return nil, err
	}
	n := &GetNode{
		base:         b,
		keyProperty:  settings.KeyProperty,
		bodyProperty: settings.BodyProperty,
	}
	if n.keyProperty == "" {
		n.keyProperty = models.PropTopic
	}
	if n.bodyProperty == "" {
		n.bodyProperty = models.PropPayload
	}
	return n, nil
}

// Handle implements Node. The fetched key and body are stored in the
// configured message properties.
func (n *GetNode) Handle(ctx context.Context, msg *models.Message, out Emitter) error {
	if missing := requireFields(msg, true, false); len(missing) > 0 {
		return n.invalid(missing...)
	}
	n.logger.Info("retrieving issue", "issue", msg.Topic)

	n.requesting()
	doc, err := n.client.Get(ctx, msg.Topic)
	if err != nil {
		return n.failed(err, "getting issue", "Get failed")
	}
	n.succeeded()

	if err := msg.Set(n.keyProperty, doc.Key); err != nil {
		return fmt.Errorf("failed to store issue key: %w", err)
	}
	if err := msg.Set(n.bodyProperty, doc.Body); err != nil {
		return fmt.Errorf("failed to store issue body: %w", err)
	}
	return out.Emit(ctx, msg)
}

// CreateNode creates an issue from msg.payload.
type CreateNode struct {
	base
}

// NewCreateNode creates an issue create node.
func NewCreateNode(deps Deps, settings Settings) (Node, error) {
	b, err := newBase(TypeCreate, deps, settings)
	if err != nil {
		return nil, err
	}
	return &CreateNode{base: b}, nil
}

// Handle implements Node. The outbound topic is the key the server assigned.
func (n *CreateNode) Handle(ctx context.Context, msg *models.Message, out Emitter) error {
	if missing := requireFields(msg, false, true); len(missing) > 0 {
		return n.invalid(missing...)
	}

	n.requesting()
	created, err := n.client.Create(ctx, msg.Payload)
	if err != nil {
		return n.failed(err, "creating issue", "Create failed")
	}
	n.succeeded()
	n.logger.Info("created issue", "issue", created.Key)

	msg.Topic = created.Key
	return out.Emit(ctx, msg)
}

// requireFields lists the required message fields that are missing.
func requireFields(msg *models.Message, topic, payload bool) []string {
	if msg == nil {
		return []string{"message"}
	}
	var missing []string
	if topic && msg.Topic == "" {
		missing = append(missing, models.PropTopic)
	}
	if payload && !msg.HasPayload() {
		missing = append(missing, models.PropPayload)
	}
	return missing
}
