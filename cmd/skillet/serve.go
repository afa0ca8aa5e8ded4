package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jingkaihe/skillet/pkg/logger"
	"github.com/jingkaihe/skillet/pkg/presenter"
	"github.com/jingkaihe/skillet/pkg/server"
	"github.com/jingkaihe/skillet/pkg/skills"
	"github.com/jingkaihe/skillet/pkg/skills/builtin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the skill registry over HTTP",
	Long: `Start an HTTP API over the skill registry. Skill directories are watched
and the registry is reloaded when SKILL.md files change.

Endpoints:
  GET  /api/skills
  GET  /api/skills/{name}
  POST /api/skills/{name}/invoke
  GET  /api/invocations?skill=&limit=`,
	Run: func(cmd *cobra.Command, _ []string) {
		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		config := &server.Config{
			Host: viper.GetString("serve.host"),
			Port: viper.GetInt("serve.port"),
		}

		if err := runServe(ctx, config); err != nil {
			presenter.Error(err, "Skill API server failed")
			os.Exit(1)
		}
		presenter.Info("Server stopped")
	},
}

func init() {
	serveCmd.Flags().String("host", "127.0.0.1", "Host to bind the API server to")
	serveCmd.Flags().Int("port", 8420, "Port to bind the API server to")

	viper.BindPFlag("serve.host", serveCmd.Flags().Lookup("host"))
	viper.BindPFlag("serve.port", serveCmd.Flags().Lookup("port"))
}

func runServe(ctx context.Context, config *server.Config) error {
	rt, err := newRuntime(ctx, runtimeOptions{withJournal: true})
	if err != nil {
		return err
	}
	defer rt.Close()

	var opts []server.Option
	if rt.Journal != nil {
		opts = append(opts, server.WithHistory(rt.Journal))
	}

	srv, err := server.New(rt.Registry, config, opts...)
	if err != nil {
		return err
	}

	startWatcher(ctx, rt)

	presenter.Success(fmt.Sprintf("Serving %d skill(s) on http://%s", rt.Registry.Len(), config.Address()))
	presenter.Info("Press Ctrl+C to stop the server")

	return srv.Start(ctx)
}

// startWatcher reloads disk skills in the background until ctx is done
func startWatcher(ctx context.Context, rt *skillRuntime, opts ...skills.WatcherOption) {
	if !skills.Enabled() {
		return
	}

	discovery, err := skills.NewDiscoveryFromViper()
	if err != nil {
		logger.G(ctx).WithError(err).Warn("skill watcher disabled")
		return
	}

	opts = append(opts,
		skills.WithAllowlist(viper.GetStringSlice("skills.allowed")),
		skills.WithInitialSkills(rt.Discovered),
	)
	for name, b := range builtin.Bindings() {
		opts = append(opts, skills.WithFallback(name, b))
	}
	watcher := skills.NewWatcher(rt.Registry, discovery, opts...)

	go func() {
		if err := watcher.Run(ctx); err != nil {
			logger.G(ctx).WithError(err).Warn("skill watcher stopped")
		}
	}()
}
