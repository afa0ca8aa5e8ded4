package skills

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScript(t *testing.T, dir, name, body string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell entrypoints are not supported on windows")
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("#!/bin/sh\n"+body), 0o755))
}

func TestScriptUnit(t *testing.T) {
	ctx := context.Background()

	t.Run("json output", func(t *testing.T) {
		dir := t.TempDir()
		writeScript(t, dir, "run.sh", `input=$(cat)
printf '{"received": %s}' "$input"
`)
		unit := &ScriptUnit{Directory: dir, Entrypoint: "run.sh"}

		out, err := unit.Invoke(ctx, map[string]any{"task": "build"})
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"received": map[string]any{"task": "build"}}, out)
	})

	t.Run("plain text output", func(t *testing.T) {
		dir := t.TempDir()
		writeScript(t, dir, "run.sh", "echo hello from $(basename $(pwd))\n")
		unit := &ScriptUnit{Directory: dir, Entrypoint: "run.sh"}

		out, err := unit.Invoke(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, "hello from "+filepath.Base(dir), out)
	})

	t.Run("empty output", func(t *testing.T) {
		dir := t.TempDir()
		writeScript(t, dir, "run.sh", "exit 0\n")
		unit := &ScriptUnit{Directory: dir, Entrypoint: "run.sh"}

		out, err := unit.Invoke(ctx, nil)
		require.NoError(t, err)
		assert.Nil(t, out)
	})

	t.Run("failure carries stderr", func(t *testing.T) {
		dir := t.TempDir()
		writeScript(t, dir, "run.sh", "echo 'missing credentials' >&2\nexit 3\n")
		unit := &ScriptUnit{Directory: dir, Entrypoint: "run.sh"}

		_, err := unit.Invoke(ctx, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing credentials")
	})

	t.Run("timeout", func(t *testing.T) {
		dir := t.TempDir()
		writeScript(t, dir, "run.sh", "sleep 5\n")
		unit := &ScriptUnit{Directory: dir, Entrypoint: "run.sh", Timeout: 100 * time.Millisecond}

		_, err := unit.Invoke(ctx, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "timed out")
	})

	t.Run("unencodable input", func(t *testing.T) {
		unit := &ScriptUnit{Directory: t.TempDir(), Entrypoint: "run.sh"}
		_, err := unit.Invoke(ctx, make(chan int))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to marshal skill input")
	})
}

func TestScriptUnitThroughRegistry(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	writeScript(t, dir, "run.sh", "exit 1\n")

	reg := NewRegistry()
	require.NoError(t, reg.Register(ctx, "script", &ScriptUnit{Directory: dir, Entrypoint: "run.sh"}, Descriptor{}))

	_, err := reg.Invoke(ctx, "script", nil)
	require.Error(t, err)
	assert.True(t, IsExecutionError(err))
}

func TestContentUnit(t *testing.T) {
	unit := &ContentUnit{Directory: "/skills/pdf", Content: "# PDF"}
	out, err := unit.Invoke(context.Background(), "ignored")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"content": "# PDF", "directory": "/skills/pdf"}, out)
}
