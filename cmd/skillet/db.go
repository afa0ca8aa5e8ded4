package main

import (
	"fmt"
	"os"

	"github.com/jingkaihe/skillet/pkg/db"
	"github.com/jingkaihe/skillet/pkg/db/migrations"
	"github.com/jingkaihe/skillet/pkg/presenter"
	"github.com/spf13/cobra"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Journal database management commands",
	Long:  `Commands for managing the invocation journal database (migrations, status).`,
}

var dbStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database migration status",
	Long:  `Shows applied and pending migrations of the journal database.`,
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := cmd.Context()

		path, err := journalPath()
		if err != nil {
			presenter.Error(err, "Failed to determine journal path")
			os.Exit(1)
		}

		applied, err := db.MigrationStatus(ctx, path)
		if err != nil {
			presenter.Error(err, "Failed to get migration status")
			os.Exit(1)
		}

		appliedSet := make(map[int64]bool, len(applied))
		for _, v := range applied {
			appliedSet[v] = true
		}

		all := migrations.All()
		presenter.Section("Database Migration Status")
		presenter.Field("Database", path)
		presenter.Info("")

		appliedCount := 0
		for _, m := range all {
			status := "[ ]"
			if appliedSet[m.Version] {
				status = "[✓]"
				appliedCount++
			}
			presenter.Info(fmt.Sprintf("%s %d - %s", status, m.Version, m.Description))
		}

		presenter.Info(fmt.Sprintf("\nApplied: %d/%d migrations", appliedCount, len(all)))
	},
}

var dbRollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Rollback the last database migration",
	Long:  `Rolls back the most recently applied migration of the journal database.`,
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := cmd.Context()

		path, err := journalPath()
		if err != nil {
			presenter.Error(err, "Failed to determine journal path")
			os.Exit(1)
		}

		applied, err := db.MigrationStatus(ctx, path)
		if err != nil {
			presenter.Error(err, "Failed to get migration status")
			os.Exit(1)
		}
		if len(applied) == 0 {
			presenter.Warning("No migrations to rollback")
			return
		}

		lastVersion := applied[len(applied)-1]
		var description string
		for _, m := range migrations.All() {
			if m.Version == lastVersion {
				description = m.Description
				break
			}
		}

		presenter.Info(fmt.Sprintf("Rolling back migration %d: %s", lastVersion, description))
		if err := db.RollbackMigration(ctx, path, migrations.All()); err != nil {
			presenter.Error(err, "Failed to rollback migration")
			os.Exit(1)
		}
		presenter.Success(fmt.Sprintf("Successfully rolled back migration %d", lastVersion))
	},
}

func init() {
	dbCmd.AddCommand(withTracing(dbStatusCmd))
	dbCmd.AddCommand(withTracing(dbRollbackCmd))
}
