// Package nodes implements the Jira operations as message-driven flow nodes.
//
// A host creates nodes through a Registry and feeds them inbound messages;
// nodes report outbound messages through an Emitter and their progress
// through a StatusSink.
package nodes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/danielolaszy/jiraflow/internal/jira"
	"github.com/danielolaszy/jiraflow/pkg/models"
	"github.com/google/uuid"
)

// Node handles inbound messages of one operation.
type Node interface {
	// Type returns the registered node type, e.g. "jira-search".
	Type() string

	// Name returns the instance name used in logs and status reports.
	Name() string

	// Handle processes msg and emits the resulting messages to out. A returned
	// error has already been logged and reflected in the node status.
	Handle(ctx context.Context, msg *models.Message, out Emitter) error

	// Status returns the node's current status.
	Status() Status
}

// Emitter receives the outbound messages of a node.
type Emitter interface {
	Emit(ctx context.Context, msg *models.Message) error
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(ctx context.Context, msg *models.Message) error

// Emit implements Emitter.
func (f EmitterFunc) Emit(ctx context.Context, msg *models.Message) error {
	return f(ctx, msg)
}

// Deps are the shared collaborators handed to every node.
type Deps struct {
	// Client runs the Jira operations
	Client *jira.Client

	// Status receives status changes; defaults to NopStatus
	Status StatusSink

	// Logger defaults to slog.Default()
	Logger *slog.Logger

	// NewID generates message ids; defaults to random UUIDs
	NewID func() string
}

// Settings configure a single node instance.
type Settings struct {
	// Name identifies the instance; defaults to the node type
	Name string

	// JQL overrides the query of inbound search messages
	JQL string

	// PageSize overrides the client's search page size
	PageSize int

	// KeyProperty and BodyProperty name where the get node stores the
	// fetched key and body; default "topic" and "payload"
	KeyProperty  string
	BodyProperty string
}

// base carries what every node shares.
type base struct {
	typ    string
	name   string
	client *jira.Client
	sink   StatusSink
	logger *slog.Logger
	status *indicator
}

func newBase(typ string, deps Deps, settings Settings) (base, error) {
	if deps.Client == nil {
		return base{}, fmt.Errorf("%s: jira client is required", typ)
	}

	name := settings.Name
	if name == "" {
		name = typ
	}
	sink := deps.Status
	if sink == nil {
		sink = NopStatus{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return base{
		typ:    typ,
		name:   name,
		client: deps.Client,
		sink:   sink,
		logger: logger.With("node", name),
		status: &indicator{},
	}, nil
}

// Type implements Node.
func (b *base) Type() string {
	return b.typ
}

// Name implements Node.
func (b *base) Name() string {
	return b.name
}

// Status implements Node.
func (b *base) Status() Status {
	return b.status.get()
}

func (b *base) setStatus(s Status) {
	b.status.set(s)
	b.sink.SetStatus(b.name, s)
}

func (b *base) requesting() {
	b.setStatus(StatusRequesting)
}

func (b *base) succeeded() {
	b.setStatus(Status{})
}

// invalid rejects a message that misses required fields.
func (b *base) invalid(missing ...string) error {
	b.setStatus(Failure("Invalid message received"))
	err := fmt.Errorf("%w: missing %v", jira.ErrInvalidLocalRequest, missing)
	b.logger.Error("invalid message received", "missing", missing)
	return err
}

// failed reports a failed invocation. Transport failures get their own status
// text; everything else shows failureText.
func (b *base) failed(err error, action, failureText string) error {
	text := failureText
	attrs := []any{"error", err}
	switch {
	case jira.IsTransport(err):
		text = "Error performing request"
	case jira.IsRejected(err):
		attrs = append(attrs, "status", jira.StatusCode(err))
	}
	b.setStatus(Failure(text))
	b.logger.Error("error "+action, attrs...)
	return fmt.Errorf("error %s: %w", action, err)
}

func defaultID() string {
	return uuid.NewString()
}

// IsInvalidMessage reports whether err rejected an inbound message before
// any request was made.
func IsInvalidMessage(err error) bool {
	return errors.Is(err, jira.ErrInvalidLocalRequest)
}
