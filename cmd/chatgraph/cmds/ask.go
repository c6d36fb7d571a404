package cmds

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-go-golems/chatgraph/pkg/conversation"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func NewAskCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask <message...>",
		Short: "Send a single message, print the reply and save the turn",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.TrimSpace(strings.Join(args, " "))
			if text == "" {
				return errors.New("message is empty")
			}

			c, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			g, err := buildGraph(ctx, c, nil)
			if err != nil {
				return err
			}

			msg, err := conversation.NewHumanMessage(text, time.Now())
			if err != nil {
				return err
			}
			state, err := g.Invoke(ctx, conversation.NewConversation(msg))
			if err != nil {
				return err
			}

			reply, ok := state.Reply()
			if !ok {
				return errors.New("no reply was generated")
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), reply.Text())
			return err
		},
	}
	return cmd
}
