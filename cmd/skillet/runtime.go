package main

import (
	"context"

	"github.com/jingkaihe/skillet/pkg/db"
	"github.com/jingkaihe/skillet/pkg/journal"
	"github.com/jingkaihe/skillet/pkg/logger"
	"github.com/jingkaihe/skillet/pkg/skills"
	"github.com/jingkaihe/skillet/pkg/skills/builtin"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// skillRuntime is the registry and its collaborators shared by every command
type skillRuntime struct {
	Registry *skills.Registry
	// Discovered holds the on-disk skills loaded at startup, keyed by name
	Discovered map[string]*skills.Skill
	Journal    *journal.Store

	journalObserver *journal.Observer
}

type runtimeOptions struct {
	// withJournal records invocations when journaling is enabled
	withJournal bool
}

// journalEnabled reports whether journal.enabled is set and --no-journal was not given
func journalEnabled() bool {
	return viper.GetBool("journal.enabled") && !viper.GetBool("no_journal")
}

// journalPath returns journal.path or the default database location
func journalPath() (string, error) {
	if path := viper.GetString("journal.path"); path != "" {
		return path, nil
	}
	return db.DefaultDBPath()
}

// openJournal opens the journal database, applying pending migrations
func openJournal(ctx context.Context) (*journal.Store, error) {
	path, err := journalPath()
	if err != nil {
		return nil, err
	}
	return journal.Open(ctx, path)
}

// newRuntime builds a registry holding the built-in skills followed by the
// skills discovered on disk, so disk skills replace built-ins of the same name
func newRuntime(ctx context.Context, opts runtimeOptions) (*skillRuntime, error) {
	rt := &skillRuntime{}

	observers := skills.MultiObserver{skills.LogObserver{}}
	if opts.withJournal && journalEnabled() {
		store, err := openJournal(ctx)
		if err != nil {
			logger.G(ctx).WithError(err).Warn("invocation journal unavailable, continuing without it")
		} else {
			rt.Journal = store
			rt.journalObserver = journal.NewObserver(store, journal.DefaultBufferSize)
			observers = append(observers, rt.journalObserver)
		}
	}

	rt.Registry = skills.NewRegistry(skills.WithObserver(observers))
	if err := builtin.Register(ctx, rt.Registry); err != nil {
		rt.Close()
		return nil, errors.Wrap(err, "failed to register built-in skills")
	}

	rt.Discovered, _ = skills.Initialize(ctx, rt.Registry)
	return rt, nil
}

// Close flushes pending journal entries and closes the journal
func (rt *skillRuntime) Close() {
	if rt.journalObserver != nil {
		rt.journalObserver.Close()
	}
	if rt.Journal != nil {
		if err := rt.Journal.Close(); err != nil {
			logger.L.WithError(err).Warn("failed to close invocation journal")
		}
	}
}

// source describes where a registered skill came from
func (rt *skillRuntime) source(name string) string {
	if skill, ok := rt.Discovered[name]; ok {
		return skill.Directory
	}
	if name == builtin.AgentBuilderName {
		return "built-in"
	}
	return "-"
}
