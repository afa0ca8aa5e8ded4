package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jingkaihe/skillet/pkg/presenter"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// InvokeConfig holds configuration for the invoke command
type InvokeConfig struct {
	Input     string
	InputFile string
}

// NewInvokeConfig creates an InvokeConfig with default values
func NewInvokeConfig() *InvokeConfig {
	return &InvokeConfig{}
}

var invokeCmd = &cobra.Command{
	Use:   "invoke <name>",
	Short: "Invoke a skill and print the result",
	Long: `Invoke a skill with a JSON input and print the invocation envelope as JSON.

Examples:
  skillet invoke agent-builder
  skillet invoke pdf --input '{"file": "report.pdf"}'
  cat input.json | skillet invoke pdf --input-file -`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		config := getInvokeConfigFromFlags(cmd)

		input, err := readInput(config, os.Stdin)
		if err != nil {
			presenter.Error(err, "Invalid input")
			os.Exit(1)
		}

		rt, err := newRuntime(ctx, runtimeOptions{withJournal: true})
		if err != nil {
			presenter.Error(err, "Failed to load skills")
			os.Exit(1)
		}

		result, err := rt.Registry.Invoke(ctx, args[0], input)
		rt.Close()
		if err != nil {
			presenter.Error(err, "Invocation failed")
			os.Exit(1)
		}

		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			presenter.Error(err, "Failed to encode result")
			os.Exit(1)
		}
		fmt.Println(string(out))
	},
}

func init() {
	invokeCmd.Flags().String("input", "", "JSON input passed to the skill")
	invokeCmd.Flags().String("input-file", "", "Read JSON input from a file, or - for stdin")
	invokeCmd.MarkFlagsMutuallyExclusive("input", "input-file")
}

func getInvokeConfigFromFlags(cmd *cobra.Command) *InvokeConfig {
	config := NewInvokeConfig()
	if input, err := cmd.Flags().GetString("input"); err == nil {
		config.Input = input
	}
	if inputFile, err := cmd.Flags().GetString("input-file"); err == nil {
		config.InputFile = inputFile
	}
	return config
}

// readInput decodes the skill input. No input at all means a null input.
func readInput(config *InvokeConfig, stdin io.Reader) (any, error) {
	raw := config.Input
	switch config.InputFile {
	case "":
	case "-":
		b, err := io.ReadAll(stdin)
		if err != nil {
			return nil, errors.Wrap(err, "failed to read input from stdin")
		}
		raw = string(b)
	default:
		b, err := os.ReadFile(config.InputFile)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read input file %s", config.InputFile)
		}
		raw = string(b)
	}

	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	var input any
	if err := json.Unmarshal([]byte(raw), &input); err != nil {
		return nil, errors.Wrap(err, "input must be valid JSON")
	}
	return input, nil
}
