package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/danielolaszy/jiraflow/internal/nodes"
	"github.com/danielolaszy/jiraflow/pkg/models"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newSearchCmd() *cobra.Command {
	searchCmd := &cobra.Command{
		Use:   "search [jql]",
		Short: "Search issues and print one message per issue",
		Long: `Search issues with JQL and print one message per issue found.

The query is taken from the arguments, --jql or JIRA_JQL, in that order.
All pages are fetched one after another until the reported total is reached.

Example:
  jiraflow search 'project = TEST AND status = Open' --page-size 100`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}

			settings := a.settings()
			if len(args) > 0 {
				settings.JQL = strings.Join(args, " ")
			}
			node, err := a.registry.New(nodes.TypeSearch, a.deps, settings)
			if err != nil {
				return err
			}

			return handleOnce(cmd, node, &models.Message{})
		},
	}
	searchCmd.Flags().String("jql", "", "JQL query")
	searchCmd.Flags().Int("page-size", 0, "number of issues requested per search page")

	return searchCmd
}

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <issue-key>",
		Short: "Fetch an issue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd, nodes.TypeGet, &models.Message{Topic: args[0]})
		},
	}
}

func newCreateCmd() *cobra.Command {
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create an issue from a JSON definition",
		Long: `Create an issue from a JSON issue definition read from --file or stdin.

Example:
  echo '{"fields":{"project":{"key":"TEST"},"summary":"s","issuetype":{"name":"Task"}}}' | jiraflow create`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := readPayload(cmd)
			if err != nil {
				return err
			}
			return runOnce(cmd, nodes.TypeCreate, &models.Message{Payload: payload})
		},
	}
	createCmd.Flags().StringP("file", "f", "", "file holding the JSON issue definition ('-' for stdin)")

	return createCmd
}

func newEditCmd() *cobra.Command {
	editCmd := &cobra.Command{
		Use:   "edit <issue-key>",
		Short: "Update an issue from a JSON update document",
		Long: `Update an issue with a JSON update document read from --file or stdin.

Example:
  echo '{"fields":{"summary":"new summary"}}' | jiraflow edit TEST-1`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := readPayload(cmd)
			if err != nil {
				return err
			}
			return runOnce(cmd, nodes.TypeUpdate, &models.Message{Topic: args[0], Payload: payload})
		},
	}
	editCmd.Flags().StringP("file", "f", "", "file holding the JSON update ('-' for stdin)")

	return editCmd
}

func newCommentCmd() *cobra.Command {
	commentCmd := &cobra.Command{
		Use:   "comment",
		Short: "Add or update issue comments",
	}

	subcommands := []struct {
		use, short, typ string
	}{
		{"add <issue-key>", "Add a comment to an issue", nodes.TypeCommentAdd},
		{"update <issue-key>", "Update a comment of an issue", nodes.TypeCommentUpdate},
	}
	for _, sc := range subcommands {
		typ := sc.typ
		sub := &cobra.Command{
			Use:   sc.use,
			Short: sc.short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				payload, err := commentPayload(cmd)
				if err != nil {
					return err
				}
				return runOnce(cmd, typ, &models.Message{Topic: args[0], Payload: payload})
			},
		}
		sub.Flags().StringP("file", "f", "", "file holding the JSON comment ('-' for stdin)")
		sub.Flags().String("body", "", "comment text, used instead of a JSON comment")
		commentCmd.AddCommand(sub)
	}

	return commentCmd
}

// settings returns the node settings derived from the configuration.
func (a *app) settings() nodes.Settings {
	return nodes.Settings{
		JQL:          a.cfg.Search.JQL,
		PageSize:     a.cfg.Search.PageSize,
		KeyProperty:  a.cfg.Get.KeyProperty,
		BodyProperty: a.cfg.Get.BodyProperty,
	}
}

// runOnce creates a node of the given type and hands it a single message.
func runOnce(cmd *cobra.Command, typ string, msg *models.Message) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}

	node, err := a.node(typ)
	if err != nil {
		return err
	}
	return handleOnce(cmd, node, msg)
}

func handleOnce(cmd *cobra.Command, node nodes.Node, msg *models.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	return node.Handle(cmd.Context(), msg, lineEmitter(cmd.OutOrStdout()))
}

// readPayload reads the JSON document named by --file, or stdin when the
// flag is empty or "-".
func readPayload(cmd *cobra.Command) (json.RawMessage, error) {
	file, err := cmd.Flags().GetString("file")
	if err != nil {
		return nil, err
	}

	var data []byte
	if file == "" || file == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(file)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read payload: %w", err)
	}

	data = []byte(strings.TrimSpace(string(data)))
	if !json.Valid(data) {
		return nil, fmt.Errorf("payload is not valid JSON")
	}
	return data, nil
}

// commentPayload builds the comment from --body, or reads it like any
// other payload.
func commentPayload(cmd *cobra.Command) (json.RawMessage, error) {
	body, err := cmd.Flags().GetString("body")
	if err != nil {
		return nil, err
	}
	if body == "" {
		return readPayload(cmd)
	}
	return json.Marshal(map[string]string{"body": body})
}
