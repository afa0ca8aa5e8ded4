package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/jingkaihe/skillet/pkg/presenter"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered skills",
	Long:  `List every registered skill with its source and description, sorted by name.`,
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := cmd.Context()

		rt, err := newRuntime(ctx, runtimeOptions{})
		if err != nil {
			presenter.Error(err, "Failed to load skills")
			os.Exit(1)
		}
		defer rt.Close()

		writeSkillTable(os.Stdout, rt)
	},
}

func writeSkillTable(w io.Writer, rt *skillRuntime) {
	descs := rt.Registry.Descriptors()
	if len(descs) == 0 {
		fmt.Fprintln(w, "No skills registered")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSOURCE\tDESCRIPTION")
	fmt.Fprintln(tw, "----\t------\t-----------")
	for _, desc := range descs {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", desc.Name, rt.source(desc.Name), truncate(desc.Description, 60))
	}
	tw.Flush()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
