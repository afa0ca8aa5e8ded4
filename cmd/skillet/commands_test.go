package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jingkaihe/skillet/pkg/journal"
	"github.com/jingkaihe/skillet/pkg/skills"
	"github.com/jingkaihe/skillet/pkg/skills/builtin"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestReadInput(t *testing.T) {
	dir := t.TempDir()
	inputFile := filepath.Join(dir, "input.json")
	require.NoError(t, os.WriteFile(inputFile, []byte(`{"file":"a.pdf"}`), 0o644))

	tests := []struct {
		name          string
		config        *InvokeConfig
		stdin         string
		expected      any
		expectedError string
	}{
		{name: "no input is null", config: &InvokeConfig{}, expected: nil},
		{name: "inline object", config: &InvokeConfig{Input: `{"task":"build"}`}, expected: map[string]any{"task": "build"}},
		{name: "inline scalar", config: &InvokeConfig{Input: `42`}, expected: 42.0},
		{name: "file", config: &InvokeConfig{InputFile: inputFile}, expected: map[string]any{"file": "a.pdf"}},
		{name: "stdin", config: &InvokeConfig{InputFile: "-"}, stdin: `["a","b"]`, expected: []any{"a", "b"}},
		{name: "blank stdin", config: &InvokeConfig{InputFile: "-"}, stdin: "  \n", expected: nil},
		{name: "malformed", config: &InvokeConfig{Input: `{"task":`}, expectedError: "input must be valid JSON"},
		{name: "missing file", config: &InvokeConfig{InputFile: filepath.Join(dir, "nope.json")}, expectedError: "failed to read input file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input, err := readInput(tt.config, strings.NewReader(tt.stdin))
			if tt.expectedError != "" {
				assert.ErrorContains(t, err, tt.expectedError)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, input)
		})
	}
}

func TestRenderDescriptor(t *testing.T) {
	desc := builtin.AgentBuilder

	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, renderDescriptor(&buf, desc, "built-in", "text"))
		out := buf.String()
		assert.Contains(t, out, "Name:        agent-builder\n")
		assert.Contains(t, out, "Source:      built-in\n")
		assert.Contains(t, out, "  - Level 1: Single-step agents (lookup/action)\n")
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, renderDescriptor(&buf, desc, "built-in", "json"))
		var decoded skills.Descriptor
		require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
		assert.Equal(t, desc, decoded)
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, renderDescriptor(&buf, desc, "built-in", "yaml"))
		var decoded skills.Descriptor
		require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
		assert.Equal(t, desc, decoded)
	})

	t.Run("unknown format", func(t *testing.T) {
		var buf bytes.Buffer
		assert.ErrorContains(t, renderDescriptor(&buf, desc, "", "xml"), "unknown output format")
	})
}

func TestWriteSkillTable(t *testing.T) {
	useTestConfig(t)
	viper.Set("no_skills", true)

	rt, err := newRuntime(context.Background(), runtimeOptions{})
	require.NoError(t, err)
	defer rt.Close()

	var buf bytes.Buffer
	writeSkillTable(&buf, rt)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "NAME"))
	assert.Contains(t, lines[2], "agent-builder")
	assert.Contains(t, lines[2], "built-in")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "ééééééé...", truncate(strings.Repeat("é", 20), 10))
}

func TestWriteHistoryTable(t *testing.T) {
	var buf bytes.Buffer
	writeHistoryTable(&buf, nil)
	assert.Equal(t, "No invocations recorded\n", buf.String())

	buf.Reset()
	writeHistoryTable(&buf, []journal.Entry{
		{ID: "0123456789abcdef", SkillName: "pdf", Success: true, StartedAt: time.Now(), DurationMS: 1500},
		{ID: "short", SkillName: "broken", Success: false, Error: "skill 'broken' failed: boom", StartedAt: time.Now()},
	})
	out := buf.String()
	assert.Contains(t, out, "01234567 ")
	assert.NotContains(t, out, "0123456789")
	assert.Contains(t, out, "1.5s")
	assert.Contains(t, out, "error: skill 'broken' failed: boom")
}

func TestRenderEntry(t *testing.T) {
	entry := &journal.Entry{
		ID:         "0123456789abcdef",
		SkillName:  "broken",
		Input:      json.RawMessage(`{"file":"a.pdf"}`),
		Error:      "skill 'broken' failed: boom",
		StartedAt:  time.Now(),
		DurationMS: 250,
	}

	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, renderEntry(&buf, entry, "text"))
		out := buf.String()
		assert.Contains(t, out, "ID:       0123456789abcdef\n")
		assert.Contains(t, out, "Duration: 250ms\n")
		assert.Contains(t, out, "Status:   error\n")
		assert.Contains(t, out, "Error:    skill 'broken' failed: boom\n")
		assert.Contains(t, out, "Input:\n{\n  \"file\": \"a.pdf\"\n}\n")
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, renderEntry(&buf, entry, "json"))
		var decoded journal.Entry
		require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
		assert.Equal(t, entry.ID, decoded.ID)
		assert.JSONEq(t, `{"file":"a.pdf"}`, string(decoded.Input))
	})

	t.Run("unknown format", func(t *testing.T) {
		assert.ErrorContains(t, renderEntry(&bytes.Buffer{}, entry, "xml"), "unknown output format")
	})
}

func TestEnvelopeSchema(t *testing.T) {
	out, err := envelopeSchema()
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal(out, &schema))
	assert.Equal(t, "Skill invocation result", schema["title"])

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	for _, key := range []string{"message", "description", "capabilities", "input", "output"} {
		assert.Contains(t, props, key)
	}
	assert.ElementsMatch(t, []any{"message", "description", "capabilities", "input"}, schema["required"])
}
