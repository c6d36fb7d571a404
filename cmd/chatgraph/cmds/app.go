package cmds

import (
	"context"

	"github.com/go-go-golems/chatgraph/pkg/config"
	"github.com/go-go-golems/chatgraph/pkg/events"
	"github.com/go-go-golems/chatgraph/pkg/graph"
	"github.com/go-go-golems/chatgraph/pkg/inference/engine/factory"
	"github.com/go-go-golems/chatgraph/pkg/store"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// loadConfig reads the dotenv file, the environment and the agent config
// file selected by --config, and validates the result.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	explicit, _ := cmd.Flags().GetString("config")

	var dotenvPaths []string
	if envFile != "" {
		dotenvPaths = append(dotenvPaths, envFile)
	}
	env, err := config.LoadEnvironment(dotenvPaths...)
	if err != nil {
		return nil, err
	}

	configFile := config.FindConfigFile(explicit, env)
	if configFile == "" {
		log.Warn().Msg("No agent_config.yaml found, using defaults and environment")
	}
	c, _, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	c.ApplyEnvironment(env)
	if err := c.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}

	log.Debug().
		Str("config", configFile).
		Str("llm", c.LLM).
		Str("user_id", c.UserID).
		Str("store", c.Store.Backend).
		Msg("Loaded configuration")
	return c, nil
}

func openStore(ctx context.Context, c *config.Config) (*store.ConversationStore, error) {
	blobs, err := c.OpenBlobStore(ctx, log.Logger)
	if err != nil {
		return nil, err
	}
	return store.NewConversationStore(blobs,
		store.WithRetrieveLimit(c.NumberRetrievedMsgs),
		store.WithLogger(log.Logger),
	), nil
}

// buildGraph creates the engine once for the configured llm and wires it
// with the store into a conversation graph.
func buildGraph(ctx context.Context, c *config.Config, sink events.EventSink) (*graph.Graph, error) {
	st, err := openStore(ctx, c)
	if err != nil {
		return nil, err
	}

	registry := factory.NewStandardRegistry()
	e, err := registry.CreateEngine(ctx, c.LLM, c.StepSettings())
	if err != nil {
		return nil, err
	}

	options := []graph.Option{
		graph.WithSystemPrompt(c.SystemPrompt),
		graph.WithThreadID(c.ThreadID),
		graph.WithModelTag(c.LLM),
	}
	if sink != nil {
		options = append(options, graph.WithSink(sink))
	}
	return graph.New(st, e, c.UserID, options...)
}
