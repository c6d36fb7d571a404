package cmds

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/go-go-golems/chatgraph/pkg/conversation"
	"github.com/go-go-golems/chatgraph/pkg/store"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func NewHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect or delete the stored chat history of the configured user",
	}

	cmd.AddCommand(newHistoryShowCommand())
	cmd.AddCommand(newHistoryDeleteCommand())
	cmd.AddCommand(newHistorySchemaCommand())

	return cmd
}

func newHistoryShowCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the stored chat history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output, _ := cmd.Flags().GetString("output")
			last, _ := cmd.Flags().GetInt("last")

			c, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			c.NumberRetrievedMsgs = last
			st, err := openStore(cmd.Context(), c)
			if err != nil {
				return err
			}

			h, err := st.Retrieve(cmd.Context(), c.UserID)
			if errors.Is(err, store.ErrNotFound) {
				_, err = fmt.Fprintf(cmd.ErrOrStderr(), "no chat history for user %s\n", c.UserID)
				return err
			}
			if err != nil {
				return err
			}
			return printHistory(cmd.OutOrStdout(), h.Messages(), output)
		},
	}

	cmd.Flags().StringP("output", "o", "text", "Output format (text, json, yaml)")
	cmd.Flags().Int("last", 0, "Only show the last n messages (0 shows all)")
	return cmd
}

func printHistory(w io.Writer, messages conversation.Conversation, output string) error {
	switch output {
	case "text":
		_, err := fmt.Fprint(w, messages.View())
		return err
	case "json", "yaml":
		b, err := conversation.ToWire(messages)
		if err != nil {
			return err
		}
		if output == "json" {
			var indented interface{}
			if err := json.Unmarshal(b, &indented); err != nil {
				return err
			}
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(indented)
		}
		var doc interface{}
		if err := yaml.Unmarshal(b, &doc); err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(doc)
	default:
		return errors.Errorf("unknown output format %q", output)
	}
}

func newHistoryDeleteCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete the stored chat history of the configured user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			yes, _ := cmd.Flags().GetBool("yes")

			c, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if !yes {
				return errors.Errorf("refusing to delete the history of user %s without --yes", c.UserID)
			}
			st, err := openStore(cmd.Context(), c)
			if err != nil {
				return err
			}
			if !st.Delete(cmd.Context(), c.UserID) {
				return errors.Errorf("could not delete chat history of user %s", c.UserID)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", store.Key(c.UserID))
			return err
		},
	}

	cmd.Flags().Bool("yes", false, "Confirm the deletion")
	return cmd
}

func newHistorySchemaCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON schema of the stored chat history blob",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(conversation.WireSchema())
		},
	}
}
