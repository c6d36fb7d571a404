package cmds

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/go-go-golems/chatgraph/pkg/conversation"
	"github.com/go-go-golems/chatgraph/pkg/events"
	"github.com/go-go-golems/chatgraph/pkg/graph"
	"github.com/go-go-golems/chatgraph/pkg/store"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const userPrompt = "User: "

func NewChatCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive conversation (q, quit or exit to stop)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			verbose, _ := cmd.Flags().GetBool("verbose")
			printRawEvents, _ := cmd.Flags().GetBool("print-raw-events")

			c, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			router, err := events.NewEventRouter(events.WithVerbose(verbose))
			if err != nil {
				return err
			}
			defer func() {
				_ = router.Close()
			}()

			router.AddHandler("chat-printer", events.TopicChat,
				events.StepPrinterFunc("AI", cmd.OutOrStdout(), verbose))
			if printRawEvents {
				router.AddHandler("raw-events", events.TopicChat, router.DumpRawEvents(cmd.ErrOrStderr()))
			}

			g, err := buildGraph(ctx, c, router.Sink(events.TopicChat))
			if err != nil {
				return err
			}

			eg, ctx := errgroup.WithContext(ctx)
			ctx, cancel := context.WithCancel(ctx)

			eg.Go(func() error {
				return router.Run(ctx)
			})
			eg.Go(func() error {
				defer cancel()
				<-router.Running()

				s := g.NewSession("")
				log.Debug().Str("session_id", s.ID).Msg("Starting chat session")
				return runChat(ctx, s, time.Now, cmd.InOrStdin(), cmd.OutOrStdout(), false)
			})

			return eg.Wait()
		},
	}

	cmd.Flags().Bool("print-raw-events", false, "Dump every graph event as JSON on stderr")
	return cmd
}

// runChat reads user lines from in until a stop word or EOF. Replies are
// written to out when printReplies is set, otherwise an event printer is
// expected to render them. A failed turn is logged and the session stays at
// its previous checkpoint, except for corrupt history which ends the chat.
func runChat(
	ctx context.Context,
	s *graph.Session,
	clock func() time.Time,
	in io.Reader,
	out io.Writer,
	printReplies bool,
) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		if _, err := fmt.Fprint(out, userPrompt); err != nil {
			return err
		}
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return errors.Wrap(err, "could not read input")
			}
			_, _ = fmt.Fprintln(out)
			return nil
		}

		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		started := s.Checkpoint() != nil
		if !started && graph.IsStopWord(text) {
			return nil
		}

		msg, err := conversation.NewHumanMessage(text, clock())
		if err != nil {
			log.Warn().Err(err).Msg("Input rejected")
			continue
		}

		var reply conversation.Message
		if started {
			reply, err = s.Resume(ctx, msg)
		} else {
			reply, err = s.Start(ctx, msg)
		}
		if err != nil {
			if errors.Is(err, store.ErrCorruptHistory) || ctx.Err() != nil {
				return err
			}
			log.Error().Err(err).Msg("Turn failed, previous state kept")
			continue
		}
		if s.Done() {
			return nil
		}

		if printReplies {
			if _, err := fmt.Fprintf(out, "AI: %s\n", reply.Text()); err != nil {
				return err
			}
		}
	}
}
