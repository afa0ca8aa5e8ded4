package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jingkaihe/skillet/pkg/presenter"
	"github.com/jingkaihe/skillet/pkg/skills"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// ShowConfig holds configuration for the show command
type ShowConfig struct {
	Output string
}

// NewShowConfig creates a ShowConfig with default values
func NewShowConfig() *ShowConfig {
	return &ShowConfig{Output: "text"}
}

var showCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show the descriptor of a skill",
	Long: `Show the registered description and capabilities of a skill.

Examples:
  skillet show agent-builder
  skillet show agent-builder -o json`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		config := getShowConfigFromFlags(cmd)

		rt, err := newRuntime(ctx, runtimeOptions{})
		if err != nil {
			presenter.Error(err, "Failed to load skills")
			os.Exit(1)
		}
		defer rt.Close()

		desc, err := rt.Registry.Describe(args[0])
		if err != nil {
			presenter.Error(err, "Skill not found")
			os.Exit(1)
		}

		if err := renderDescriptor(os.Stdout, desc, rt.source(desc.Name), config.Output); err != nil {
			presenter.Error(err, "Failed to render skill")
			os.Exit(1)
		}
	},
}

func init() {
	defaults := NewShowConfig()
	showCmd.Flags().StringP("output", "o", defaults.Output, "Output format (text, json, yaml)")
}

func getShowConfigFromFlags(cmd *cobra.Command) *ShowConfig {
	config := NewShowConfig()
	if output, err := cmd.Flags().GetString("output"); err == nil {
		config.Output = output
	}
	return config
}

func renderDescriptor(w io.Writer, desc skills.Descriptor, source, format string) error {
	switch format {
	case "json":
		out, err := json.MarshalIndent(desc, "", "  ")
		if err != nil {
			return errors.Wrap(err, "failed to encode descriptor")
		}
		fmt.Fprintln(w, string(out))
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(desc); err != nil {
			return errors.Wrap(err, "failed to encode descriptor")
		}
		return enc.Close()
	case "text", "":
		var b strings.Builder
		fmt.Fprintf(&b, "Name:        %s\n", desc.Name)
		fmt.Fprintf(&b, "Source:      %s\n", source)
		fmt.Fprintf(&b, "Description: %s\n", desc.Description)
		if len(desc.Capabilities) > 0 {
			b.WriteString("Capabilities:\n")
			for _, c := range desc.Capabilities {
				fmt.Fprintf(&b, "  - %s\n", c)
			}
		}
		io.WriteString(w, b.String())
	default:
		return errors.Errorf("unknown output format %q, expected text, json or yaml", format)
	}
	return nil
}
