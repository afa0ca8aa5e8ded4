package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jingkaihe/skillet/pkg/mcp"
	"github.com/jingkaihe/skillet/pkg/presenter"
	"github.com/jingkaihe/skillet/pkg/skills"
	"github.com/jingkaihe/skillet/pkg/version"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve skills as MCP tools over stdio",
	Long: `Run a Model Context Protocol server on stdin/stdout. Every registered skill
is exposed as a tool taking a single "input" object. The tool list follows
changes to the skill directories.`,
	Run: func(cmd *cobra.Command, _ []string) {
		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		// stdout carries the protocol
		presenter.SetQuiet(true)

		rt, err := newRuntime(ctx, runtimeOptions{withJournal: true})
		if err != nil {
			presenter.Error(err, "Failed to load skills")
			os.Exit(1)
		}
		defer rt.Close()

		srv := mcp.NewServer(rt.Registry, version.Get().Version)
		startWatcher(ctx, rt, skills.WithReloadHook(func(ctx context.Context) {
			srv.Sync(ctx)
		}))

		if err := srv.ServeStdio(ctx); err != nil && ctx.Err() == nil {
			presenter.Error(err, "MCP server failed")
			os.Exit(1)
		}
	},
}
