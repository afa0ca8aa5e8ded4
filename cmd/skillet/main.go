package main

import (
	"context"
	"os"
	"strings"

	"github.com/jingkaihe/skillet/pkg/logger"
	"github.com/jingkaihe/skillet/pkg/presenter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func setDefaults() {
	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_format", "fmt")
	viper.SetDefault("skills.enabled", true)
	viper.SetDefault("journal.enabled", true)
	viper.SetDefault("serve.host", "127.0.0.1")
	viper.SetDefault("serve.port", 8420)
}

func init() {
	setDefaults()

	// SKILLET_JOURNAL_PATH overrides journal.path, etc.
	viper.SetEnvPrefix("SKILLET")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME/.skillet")
	viper.AddConfigPath(".")

	// a missing config file is fine
	_ = viper.ReadInConfig()
}

// shutdownTracing flushes spans; set once flags are parsed
var shutdownTracing = func(context.Context) error { return nil }

var rootCmd = &cobra.Command{
	Use:   "skillet",
	Short: "Register, inspect and invoke agent skills",
	Long: `Skillet keeps a registry of named skills. Skills are discovered from
directories containing a SKILL.md file, or built into the binary, and can be
listed, described and invoked from the command line, over HTTP or over MCP.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		if err := logger.Configure(viper.GetString("log_level"), viper.GetString("log_format")); err != nil {
			presenter.Error(err, "Invalid logging configuration")
			os.Exit(1)
		}

		shutdown, err := initTracing(cmd.Context())
		if err != nil {
			logger.G(cmd.Context()).WithError(err).Warn("failed to initialize tracing")
			return
		}
		shutdownTracing = shutdown
	},
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Help()
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("log-level", "info", "Log level (trace, debug, info, warn, error)")
	flags.String("log-format", "fmt", "Log format (fmt or json)")
	flags.Bool("no-skills", false, "Do not load skills from disk")
	flags.StringSlice("skills-dir", nil, "Skill directory to search (repeatable, overrides the defaults)")
	flags.StringSlice("allow", nil, "Only load skills matching these glob patterns")
	flags.Bool("no-journal", false, "Do not record invocations in the journal")

	viper.BindPFlag("log_level", flags.Lookup("log-level"))
	viper.BindPFlag("log_format", flags.Lookup("log-format"))
	viper.BindPFlag("no_skills", flags.Lookup("no-skills"))
	viper.BindPFlag("skills.dirs", flags.Lookup("skills-dir"))
	viper.BindPFlag("skills.allowed", flags.Lookup("allow"))
	viper.BindPFlag("no_journal", flags.Lookup("no-journal"))
}

func main() {
	ctx := context.Background()

	rootCmd.AddCommand(
		withTracing(listCmd),
		withTracing(showCmd),
		withTracing(invokeCmd),
		withTracing(addCmd),
		withTracing(removeCmd),
		withTracing(historyCmd),
		withTracing(serveCmd),
		withTracing(mcpCmd),
		withTracing(schemaCmd),
		dbCmd,
		versionCmd,
	)

	err := rootCmd.ExecuteContext(ctx)
	if shutdownErr := shutdownTracing(ctx); shutdownErr != nil {
		logger.G(ctx).WithError(shutdownErr).Warn("failed to flush traces")
	}
	if err != nil {
		os.Exit(1)
	}
}
