package migrations

import (
	"database/sql"

	"github.com/jingkaihe/skillet/pkg/db"
	"github.com/pkg/errors"
)

// Migration20261015090000CreateSkillInvocations creates the invocation journal table.
func Migration20261015090000CreateSkillInvocations() db.Migration {
	return db.Migration{
		Version:     20261015090000,
		Description: "Create skill_invocations table",
		Up: func(tx *sql.Tx) error {
			if _, err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS skill_invocations (
					id TEXT PRIMARY KEY,
					skill_name TEXT NOT NULL,
					input TEXT,
					success BOOLEAN NOT NULL,
					error TEXT,
					started_at DATETIME NOT NULL,
					duration_ms INTEGER NOT NULL
				)
			`); err != nil {
				return errors.Wrap(err, "failed to create skill_invocations table")
			}

			if _, err := tx.Exec(`
				CREATE INDEX IF NOT EXISTS idx_skill_invocations_skill_started
				ON skill_invocations(skill_name, started_at DESC)
			`); err != nil {
				return errors.Wrap(err, "failed to create skill_invocations index")
			}

			return nil
		},
		Down: func(tx *sql.Tx) error {
			if _, err := tx.Exec("DROP INDEX IF EXISTS idx_skill_invocations_skill_started"); err != nil {
				return errors.Wrap(err, "failed to drop skill_invocations index")
			}
			if _, err := tx.Exec("DROP TABLE IF EXISTS skill_invocations"); err != nil {
				return errors.Wrap(err, "failed to drop skill_invocations table")
			}
			return nil
		},
	}
}
