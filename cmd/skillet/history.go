package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/jingkaihe/skillet/pkg/journal"
	"github.com/jingkaihe/skillet/pkg/presenter"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// HistoryConfig holds configuration for the history command
type HistoryConfig struct {
	Skill string
	Limit int
}

// NewHistoryConfig creates a HistoryConfig with default values
func NewHistoryConfig() *HistoryConfig {
	return &HistoryConfig{Limit: journal.DefaultListLimit}
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent skill invocations",
	Long: `Show recent skill invocations recorded in the journal, newest first.

Examples:
  skillet history
  skillet history --skill pdf --limit 10`,
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := cmd.Context()
		config := getHistoryConfigFromFlags(cmd)

		store, err := openJournal(ctx)
		if err != nil {
			presenter.Error(err, "Failed to open invocation journal")
			os.Exit(1)
		}
		defer store.Close()

		entries, err := store.List(ctx, journal.ListOptions{Skill: config.Skill, Limit: config.Limit})
		if err != nil {
			presenter.Error(err, "Failed to list invocations")
			os.Exit(1)
		}
		writeHistoryTable(os.Stdout, entries)
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a single journal entry",
	Long: `Show a journal entry by id. A unique id prefix, as printed by "skillet history", is enough.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		format, _ := cmd.Flags().GetString("output")

		store, err := openJournal(ctx)
		if err != nil {
			presenter.Error(err, "Failed to open invocation journal")
			os.Exit(1)
		}
		defer store.Close()

		entry, err := store.Get(ctx, args[0])
		if err != nil {
			presenter.Error(err, "Failed to get invocation")
			os.Exit(1)
		}
		if err := renderEntry(os.Stdout, entry, format); err != nil {
			presenter.Error(err, "Failed to render invocation")
			os.Exit(1)
		}
	},
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete old journal entries",
	Long:  `Delete journal entries that started longer ago than --older-than.`,
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := cmd.Context()

		olderThan, err := cmd.Flags().GetDuration("older-than")
		if err != nil || olderThan <= 0 {
			presenter.Error(errors.New("--older-than must be a positive duration"), "Invalid flag")
			os.Exit(1)
		}

		store, err := openJournal(ctx)
		if err != nil {
			presenter.Error(err, "Failed to open invocation journal")
			os.Exit(1)
		}
		defer store.Close()

		n, err := store.Prune(ctx, time.Now().Add(-olderThan))
		if err != nil {
			presenter.Error(err, "Failed to prune invocations")
			os.Exit(1)
		}
		presenter.Success(fmt.Sprintf("Pruned %d invocation(s)", n))
	},
}

func init() {
	defaults := NewHistoryConfig()
	historyCmd.Flags().String("skill", defaults.Skill, "Only show invocations of this skill")
	historyCmd.Flags().Int("limit", defaults.Limit, "Maximum number of invocations to show")

	historyShowCmd.Flags().StringP("output", "o", "text", "Output format: text or json")
	historyCmd.AddCommand(withTracing(historyShowCmd))

	historyPruneCmd.Flags().Duration("older-than", 30*24*time.Hour, "Delete entries older than this")
	historyCmd.AddCommand(withTracing(historyPruneCmd))
}

func getHistoryConfigFromFlags(cmd *cobra.Command) *HistoryConfig {
	config := NewHistoryConfig()
	if skill, err := cmd.Flags().GetString("skill"); err == nil {
		config.Skill = skill
	}
	if limit, err := cmd.Flags().GetInt("limit"); err == nil {
		config.Limit = limit
	}
	return config
}

func writeHistoryTable(w io.Writer, entries []journal.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No invocations recorded")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSKILL\tSTARTED\tDURATION\tSTATUS")
	fmt.Fprintln(tw, "--\t-----\t-------\t--------\t------")
	for _, e := range entries {
		status := "ok"
		if !e.Success {
			status = "error: " + truncate(e.Error, 50)
		}
		id := e.ID
		if len(id) > 8 {
			id = id[:8]
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			id,
			e.SkillName,
			e.StartedAt.Local().Format(time.DateTime),
			(time.Duration(e.DurationMS) * time.Millisecond).String(),
			status,
		)
	}
	tw.Flush()
}

func renderEntry(w io.Writer, e *journal.Entry, format string) error {
	switch format {
	case "json":
		out, err := json.MarshalIndent(e, "", "  ")
		if err != nil {
			return errors.Wrap(err, "failed to encode invocation")
		}
		fmt.Fprintln(w, string(out))
	case "text", "":
		status := "ok"
		if !e.Success {
			status = "error"
		}
		fmt.Fprintf(w, "ID:       %s\n", e.ID)
		fmt.Fprintf(w, "Skill:    %s\n", e.SkillName)
		fmt.Fprintf(w, "Started:  %s\n", e.StartedAt.Local().Format(time.DateTime))
		fmt.Fprintf(w, "Duration: %s\n", time.Duration(e.DurationMS)*time.Millisecond)
		fmt.Fprintf(w, "Status:   %s\n", status)
		if e.Error != "" {
			fmt.Fprintf(w, "Error:    %s\n", e.Error)
		}
		var input bytes.Buffer
		if err := json.Indent(&input, e.Input, "", "  "); err != nil {
			input.Reset()
			input.Write(e.Input)
		}
		fmt.Fprintf(w, "Input:\n%s\n", input.String())
	default:
		return errors.Errorf("unknown output format %q, expected text or json", format)
	}
	return nil
}
