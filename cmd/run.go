package cmd

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/danielolaszy/jiraflow/internal/logging"
	"github.com/danielolaszy/jiraflow/internal/nodes"
	"github.com/danielolaszy/jiraflow/pkg/models"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// maxMessageSize bounds a single inbound JSON line.
const maxMessageSize = 16 * 1024 * 1024

func newRunCmd() *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run <node-type>",
		Short: "Run a node over JSON messages read from stdin",
		Long: `Run a node over a stream of JSON messages.

Every line on stdin is one message object, e.g.
  {"topic":"TEST-1","payload":{"fields":{"summary":"new summary"}}}

Messages emitted by the node are written to stdout, one JSON object per line.
A message that fails is logged and the next one is processed; the command
exits with an error if any message failed.

Use 'jiraflow nodes' to list the node types.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}

			node, err := a.node(args[0])
			if err != nil {
				return err
			}

			stop := a.serveMetrics()
			defer stop()

			logging.Info("running node", "type", node.Type(), "name", node.Name())
			return pump(cmd.Context(), node, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	runCmd.Flags().String("jql", "", "JQL used by jira-search instead of the message's jql")
	runCmd.Flags().Int("page-size", 0, "number of issues requested per search page")

	return runCmd
}

func newNodesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "nodes",
		Short: "List the available node types",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range nodes.DefaultRegistry().Types() {
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), name); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

// lineEmitter writes every emitted message as one JSON line.
func lineEmitter(w io.Writer) nodes.Emitter {
	enc := json.NewEncoder(w)
	return nodes.EmitterFunc(func(_ context.Context, msg *models.Message) error {
		return enc.Encode(msg)
	})
}

// pump feeds every JSON line of r to node and writes its output to w.
// Messages without an id get a fresh one.
func pump(ctx context.Context, node nodes.Node, r io.Reader, w io.Writer) error {
	out := lineEmitter(w)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxMessageSize)

	var received, failed int
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		received++

		var msg models.Message
		if err := json.Unmarshal(line, &msg); err != nil {
			failed++
			logging.Error("failed to decode message", "line", received, "error", err)
			continue
		}
		if msg.ID == "" {
			msg.ID = uuid.NewString()
		}

		if err := node.Handle(ctx, &msg, out); err != nil {
			failed++
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			logging.Debug("message failed", "id", msg.ID, "error", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read messages: %w", err)
	}

	logging.Info("messages processed", "received", received, "failed", failed)
	if failed > 0 {
		return fmt.Errorf("%d of %d messages failed", failed, received)
	}
	return nil
}
