package skills

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jingkaihe/skillet/pkg/logger"
	"github.com/pkg/errors"
)

// DefaultDebounce is how long the watcher waits for file events to settle before reloading
const DefaultDebounce = 500 * time.Millisecond

// Watcher keeps a registry in sync with the skill directories of a Discovery.
// It only removes skills it registered itself. When one of those had
// displaced an earlier binding, such as a built-in, that binding is restored
// instead.
type Watcher struct {
	registry  *Registry
	discovery *Discovery
	debounce  time.Duration
	allowed   []string
	onReload  []func(context.Context)

	mu       sync.Mutex
	loaded   map[string]*Skill
	shadowed map[string]*Binding
}

// WatcherOption configures a Watcher
type WatcherOption func(*Watcher)

// WithDebounce overrides the reload debounce interval
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// WithAllowlist restricts reloaded skills to the given glob patterns
func WithAllowlist(patterns []string) WatcherOption {
	return func(w *Watcher) {
		w.allowed = patterns
	}
}

// WithInitialSkills seeds the watcher with skills already registered, e.g.
// by Initialize, so the first reload only touches what changed since
func WithInitialSkills(loaded map[string]*Skill) WatcherOption {
	return func(w *Watcher) {
		for name, skill := range loaded {
			w.loaded[name] = skill
		}
	}
}

// WithFallback records the binding that name returns to when its disk skill
// goes away. Use it for bindings already replaced by seeded skills.
func WithFallback(name string, b Binding) WatcherOption {
	return func(w *Watcher) {
		w.shadowed[name] = &b
	}
}

// WithReloadHook registers fn to run after every reload triggered by Run
func WithReloadHook(fn func(context.Context)) WatcherOption {
	return func(w *Watcher) {
		w.onReload = append(w.onReload, fn)
	}
}

// NewWatcher creates a watcher that loads skills from discovery into reg
func NewWatcher(reg *Registry, discovery *Discovery, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		registry:  reg,
		discovery: discovery,
		debounce:  DefaultDebounce,
		loaded:    make(map[string]*Skill),
		shadowed:  make(map[string]*Binding),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Reload re-discovers skills, registers new or changed ones and unregisters
// the ones that disappeared since the previous reload
func (w *Watcher) Reload(ctx context.Context) error {
	discovered, discoverErr := w.discovery.DiscoverSkills()
	if discoverErr != nil {
		logger.G(ctx).WithError(discoverErr).Warn("some skills could not be loaded")
	}

	discovered, err := FilterByAllowlist(discovered, w.allowed)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	for name, skill := range discovered {
		prev, owned := w.loaded[name]
		if owned && reflect.DeepEqual(prev, skill) {
			continue
		}
		displaced, err := w.registry.Replace(ctx, name, skill.Unit(), skill.Descriptor())
		if err != nil {
			logger.G(ctx).WithError(err).WithField("skill", name).Warn("failed to register skill")
			continue
		}
		if _, ok := w.shadowed[name]; !owned && !ok && displaced != nil {
			w.shadowed[name] = displaced
		}
		w.loaded[name] = skill
	}

	for name := range w.loaded {
		if _, ok := discovered[name]; ok {
			continue
		}
		delete(w.loaded, name)
		if b, ok := w.shadowed[name]; ok {
			delete(w.shadowed, name)
			if err := w.registry.Register(ctx, name, b.Unit, b.Descriptor); err == nil {
				continue
			}
		}
		w.registry.Unregister(ctx, name)
	}

	return nil
}

// Run watches the skill directories until ctx is cancelled, reloading after
// each burst of file system events
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create file watcher")
	}
	defer fsw.Close()

	for _, dir := range w.discovery.Dirs() {
		w.watchTree(ctx, fsw, dir)
	}

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					w.watchTree(ctx, fsw, event.Name)
				}
			}
			timer.Reset(w.debounce)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.G(ctx).WithError(err).Warn("skill watcher error")
		case <-timer.C:
			if err := w.Reload(ctx); err != nil {
				logger.G(ctx).WithError(err).Warn("failed to reload skills")
			}
			for _, fn := range w.onReload {
				fn(ctx)
			}
		}
	}
}

// watchTree watches dir and its immediate subdirectories, which is where SKILL.md files live
func (w *Watcher) watchTree(ctx context.Context, fsw *fsnotify.Watcher, dir string) {
	if err := fsw.Add(dir); err != nil {
		logger.G(ctx).WithError(err).WithField("dir", dir).Debug("not watching skill directory")
		return
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		_ = fsw.Add(filepath.Join(dir, entry.Name()))
	}
}
