// Package journal records skill invocations in SQLite. The Observer type
// plugs into a skills.Registry and writes entries in the background so the
// journal never slows down or fails an invocation.
package journal

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/jingkaihe/skillet/pkg/db"
	"github.com/jingkaihe/skillet/pkg/db/migrations"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// DefaultListLimit caps List when no limit is given
const DefaultListLimit = 50

// Entry is a single recorded invocation
type Entry struct {
	ID         string          `db:"id" json:"id" yaml:"id"`
	SkillName  string          `db:"skill_name" json:"skill_name" yaml:"skill_name"`
	Input      json.RawMessage `db:"input" json:"input" yaml:"-"`
	Success    bool            `db:"success" json:"success" yaml:"success"`
	Error      string          `db:"error" json:"error,omitempty" yaml:"error,omitempty"`
	StartedAt  time.Time       `db:"started_at" json:"started_at" yaml:"started_at"`
	DurationMS int64           `db:"duration_ms" json:"duration_ms" yaml:"duration_ms"`
}

// ListOptions filters List results
type ListOptions struct {
	Skill string
	Limit int
}

// Store persists journal entries
type Store struct {
	db *sqlx.DB
}

// NewStore wraps an already migrated database
func NewStore(sqlDB *sqlx.DB) *Store {
	return &Store{db: sqlDB}
}

// Open opens the database at dbPath, applies pending migrations and returns a Store
func Open(ctx context.Context, dbPath string) (*Store, error) {
	sqlDB, err := db.Open(ctx, dbPath)
	if err != nil {
		return nil, err
	}

	if err := db.NewMigrationRunner(sqlDB).Run(ctx, migrations.All()); err != nil {
		sqlDB.Close()
		return nil, errors.Wrap(err, "failed to migrate journal database")
	}

	return NewStore(sqlDB), nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}

// Record inserts an entry, retrying while SQLite reports the database as busy
func (s *Store) Record(ctx context.Context, e Entry) error {
	if len(e.Input) == 0 {
		e.Input = json.RawMessage("null")
	}
	e.StartedAt = e.StartedAt.UTC()

	return retry.Do(
		func() error {
			_, err := s.db.NamedExecContext(ctx, `
				INSERT INTO skill_invocations (id, skill_name, input, success, error, started_at, duration_ms)
				VALUES (:id, :skill_name, :input, :success, :error, :started_at, :duration_ms)
			`, e)
			return err
		},
		retry.RetryIf(isBusy),
		retry.Attempts(5),
		retry.Delay(20*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
	)
}

func isBusy(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

// List returns entries newest first
func (s *Store) List(ctx context.Context, opts ListOptions) ([]Entry, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}

	query := `SELECT id, skill_name, input, success, error, started_at, duration_ms FROM skill_invocations`
	args := []any{}
	if opts.Skill != "" {
		query += ` WHERE skill_name = ?`
		args = append(args, opts.Skill)
	}
	query += ` ORDER BY started_at DESC LIMIT ?`
	args = append(args, limit)

	entries := []Entry{}
	if err := s.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, errors.Wrap(err, "failed to list invocations")
	}
	return entries, nil
}

// Get returns the entry whose id equals id, or the single entry whose id
// starts with it
func (s *Store) Get(ctx context.Context, id string) (*Entry, error) {
	if id == "" {
		return nil, errors.New("invocation id is required")
	}

	entries := []Entry{}
	err := s.db.SelectContext(ctx, &entries, `
		SELECT id, skill_name, input, success, error, started_at, duration_ms
		FROM skill_invocations WHERE substr(id, 1, ?) = ?
		ORDER BY id = ? DESC, id LIMIT 2
	`, len(id), id, id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get invocation")
	}

	switch {
	case len(entries) == 0:
		return nil, errors.Errorf("invocation %s not found", id)
	case entries[0].ID == id || len(entries) == 1:
		return &entries[0], nil
	default:
		return nil, errors.Errorf("invocation id %s is ambiguous", id)
	}
}

// Prune deletes entries started before the given time and returns how many were removed
func (s *Store) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM skill_invocations WHERE started_at < ?`, before.UTC())
	if err != nil {
		return 0, errors.Wrap(err, "failed to prune invocations")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "failed to count pruned invocations")
	}
	return n, nil
}
