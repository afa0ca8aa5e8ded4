package skills

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherReload(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	writeSkill(t, dir, "pdf", "---\nname: pdf\ndescription: v1\n---\n")

	discovery, err := NewDiscovery(WithSkillDirs(dir))
	require.NoError(t, err)

	obs := &recordingObserver{}
	reg := NewRegistry(WithObserver(obs))
	require.NoError(t, reg.Register(ctx, "manual", staticUnit(nil), Descriptor{}))

	w := NewWatcher(reg, discovery)
	require.NoError(t, w.Reload(ctx))
	assert.Equal(t, []string{"manual", "pdf"}, reg.Names())

	// unchanged skills are not re-registered
	require.NoError(t, w.Reload(ctx))
	assert.Len(t, obs.registered, 2)

	writeSkill(t, dir, "pdf", "---\nname: pdf\ndescription: v2\n---\n")
	require.NoError(t, w.Reload(ctx))
	desc, err := reg.Describe("pdf")
	require.NoError(t, err)
	assert.Equal(t, "v2", desc.Description)

	require.NoError(t, os.RemoveAll(filepath.Join(dir, "pdf")))
	require.NoError(t, w.Reload(ctx))
	assert.Equal(t, []string{"manual"}, reg.Names())
}

func TestWatcherReloadWithAllowlist(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	writeSkill(t, dir, "pdf", "---\nname: pdf\ndescription: pdf\n---\n")
	writeSkill(t, dir, "xlsx", "---\nname: xlsx\ndescription: xlsx\n---\n")

	discovery, err := NewDiscovery(WithSkillDirs(dir))
	require.NoError(t, err)

	reg := NewRegistry()
	w := NewWatcher(reg, discovery, WithAllowlist([]string{"x*"}))
	require.NoError(t, w.Reload(ctx))
	assert.Equal(t, []string{"xlsx"}, reg.Names())
}

func TestWatcherRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dir := t.TempDir()
	discovery, err := NewDiscovery(WithSkillDirs(dir))
	require.NoError(t, err)

	reg := NewRegistry()
	var reloads atomic.Int32
	w := NewWatcher(reg, discovery,
		WithDebounce(20*time.Millisecond),
		WithReloadHook(func(context.Context) { reloads.Add(1) }),
	)

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// give the watcher a moment to register its watches
	time.Sleep(100 * time.Millisecond)
	writeSkill(t, dir, "fresh", "---\nname: fresh\ndescription: new skill\n---\n")

	assert.Eventually(t, func() bool {
		_, err := reg.Resolve("fresh")
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)
	assert.Eventually(t, func() bool { return reloads.Load() > 0 }, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop after cancellation")
	}
}

func TestWatcherReloadWithInitialSkills(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	writeSkill(t, dir, "pdf", "---\nname: pdf\ndescription: pdf\n---\n")

	discovery, err := NewDiscovery(WithSkillDirs(dir))
	require.NoError(t, err)
	discovered, err := discovery.DiscoverSkills()
	require.NoError(t, err)

	obs := &recordingObserver{}
	reg := NewRegistry(WithObserver(obs))
	require.NoError(t, Load(ctx, reg, discovered))

	w := NewWatcher(reg, discovery, WithInitialSkills(discovered))
	require.NoError(t, w.Reload(ctx))
	assert.Equal(t, []bool{false}, obs.replaced, "seeded skills must not be registered again")

	// seeded skills are owned by the watcher and go away with their directory
	require.NoError(t, os.RemoveAll(filepath.Join(dir, "pdf")))
	require.NoError(t, w.Reload(ctx))
	assert.Empty(t, reg.Names())
}

func TestWatcherReloadRestoresDisplacedBinding(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	discovery, err := NewDiscovery(WithSkillDirs(dir))
	require.NoError(t, err)

	reg := NewRegistry()
	require.NoError(t, reg.Register(ctx, "agent-builder", staticUnit("built-in"), Descriptor{Description: "built-in"}))

	w := NewWatcher(reg, discovery)
	require.NoError(t, w.Reload(ctx))

	writeSkill(t, dir, "agent-builder", "---\nname: agent-builder\ndescription: from disk\n---\n")
	require.NoError(t, w.Reload(ctx))
	desc, err := reg.Describe("agent-builder")
	require.NoError(t, err)
	assert.Equal(t, "from disk", desc.Description)

	require.NoError(t, os.RemoveAll(filepath.Join(dir, "agent-builder")))
	require.NoError(t, w.Reload(ctx))
	assert.Equal(t, []string{"agent-builder"}, reg.Names())
	desc, err = reg.Describe("agent-builder")
	require.NoError(t, err)
	assert.Equal(t, "built-in", desc.Description)

	result, err := reg.Invoke(ctx, "agent-builder", nil)
	require.NoError(t, err)
	assert.Equal(t, "built-in", result.Output)

	// a second override round trip behaves the same
	writeSkill(t, dir, "agent-builder", "---\nname: agent-builder\ndescription: again\n---\n")
	require.NoError(t, w.Reload(ctx))
	require.NoError(t, os.RemoveAll(filepath.Join(dir, "agent-builder")))
	require.NoError(t, w.Reload(ctx))
	desc, err = reg.Describe("agent-builder")
	require.NoError(t, err)
	assert.Equal(t, "built-in", desc.Description)
}

func TestWatcherReloadWithFallbackForSeededOverride(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	writeSkill(t, dir, "agent-builder", "---\nname: agent-builder\ndescription: from disk\n---\n")

	discovery, err := NewDiscovery(WithSkillDirs(dir))
	require.NoError(t, err)
	discovered, err := discovery.DiscoverSkills()
	require.NoError(t, err)

	builtIn := Binding{Unit: staticUnit("built-in"), Descriptor: Descriptor{Description: "built-in"}}
	reg := NewRegistry()
	require.NoError(t, reg.Register(ctx, "agent-builder", builtIn.Unit, builtIn.Descriptor))
	require.NoError(t, Load(ctx, reg, discovered))

	w := NewWatcher(reg, discovery,
		WithInitialSkills(discovered),
		WithFallback("agent-builder", builtIn),
	)

	require.NoError(t, os.RemoveAll(filepath.Join(dir, "agent-builder")))
	require.NoError(t, w.Reload(ctx))

	desc, err := reg.Describe("agent-builder")
	require.NoError(t, err)
	assert.Equal(t, "built-in", desc.Description)
}
