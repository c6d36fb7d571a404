package cmds

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-go-golems/chatgraph/pkg/config"
	"github.com/go-go-golems/chatgraph/pkg/inference/engine/factory"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and edit the agent configuration",
	}

	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigModelsCommand())
	cmd.AddCommand(newConfigSetCommand())

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with API keys redacted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(c.Redacted())
		},
	}
}

func newConfigModelsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the accepted values of llm",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, m := range factory.AvailableModels {
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), m); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newConfigSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a value in the agent config file, e.g. `set llm \"groq|llama3-8b-8192\"` or `set store.bucket my-bucket`",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]
			if key == "llm" {
				if err := factory.ValidateModel(value); err != nil {
					return err
				}
			}

			explicit, _ := cmd.Flags().GetString("config")
			env, err := config.LoadEnvironment()
			if err != nil {
				return err
			}
			configFile := config.FindConfigFile(explicit, env)
			if configFile == "" {
				configFile = config.ConfigFileName
			}

			root, err := readAndParseConfig(configFile)
			if err != nil {
				return err
			}
			setScalar(root, strings.Split(key, "."), value)
			if err := writeConfig(configFile, root); err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (%s)\n", key, value, configFile)
			return err
		},
	}
}

// mappingNode returns the mapping at the root of a document, creating it
// when the document is empty.
func mappingNode(root *yaml.Node) *yaml.Node {
	if root.Kind != yaml.DocumentNode {
		root.Kind = yaml.DocumentNode
	}
	if len(root.Content) > 0 && root.Content[0].Kind == yaml.MappingNode {
		return root.Content[0]
	}
	mapNode := &yaml.Node{Kind: yaml.MappingNode}
	root.Content = []*yaml.Node{mapNode}
	return mapNode
}

// setScalar sets path to value, creating intermediate mappings. Comments
// and the order of the other keys are kept.
func setScalar(root *yaml.Node, path []string, value string) {
	node := mappingNode(root)
	for i, key := range path {
		last := i == len(path)-1

		var valueNode *yaml.Node
		for j := 0; j+1 < len(node.Content); j += 2 {
			if node.Content[j].Value == key {
				valueNode = node.Content[j+1]
				break
			}
		}
		if valueNode == nil {
			valueNode = &yaml.Node{}
			node.Content = append(node.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Value: key},
				valueNode)
		}

		if last {
			valueNode.Kind = yaml.ScalarNode
			valueNode.Tag = ""
			valueNode.Style = 0
			valueNode.Content = nil
			valueNode.Value = value
			return
		}
		if valueNode.Kind != yaml.MappingNode {
			valueNode.Kind = yaml.MappingNode
			valueNode.Tag = ""
			valueNode.Value = ""
			valueNode.Content = nil
		}
		node = valueNode
	}
}

// readAndParseConfig returns an empty document when the file does not exist.
func readAndParseConfig(configFile string) (*yaml.Node, error) {
	data, err := os.ReadFile(configFile)
	if os.IsNotExist(err) {
		return &yaml.Node{Kind: yaml.DocumentNode}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "error reading config file")
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, errors.Wrap(err, "error parsing config file")
	}
	if root.Kind == 0 {
		root.Kind = yaml.DocumentNode
	}
	return &root, nil
}

func writeConfig(configFile string, root *yaml.Node) error {
	f, err := os.Create(configFile)
	if err != nil {
		return errors.Wrap(err, "error opening config file for writing")
	}
	defer f.Close()

	encoder := yaml.NewEncoder(f)
	encoder.SetIndent(2)
	if err := encoder.Encode(root); err != nil {
		return errors.Wrap(err, "error writing config file")
	}
	return encoder.Close()
}
