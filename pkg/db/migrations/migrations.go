// Package migrations contains all database migrations for skillet.
// Migrations use Rails-style timestamp versioning (YYYYMMDDHHmmss).
package migrations

import (
	"github.com/jingkaihe/skillet/pkg/db"
)

// All returns all registered migrations. New migrations should be added to this list.
func All() []db.Migration {
	return []db.Migration{
		Migration20261015090000CreateSkillInvocations(),
	}
}
