package presenter

import (
	"bytes"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func newTestPresenter(input string) (*TerminalPresenter, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	return NewWithOptions(strings.NewReader(input), &out, &errOut, ColorNever), &out, &errOut
}

func TestTerminalPresenter_Messages(t *testing.T) {
	p, out, errOut := newTestPresenter("")

	p.Success("skill added")
	p.Warning("skill replaced")
	p.Info("plain")
	p.Field("Name", "pdf")
	p.Section("Skills")
	p.Separator()
	p.Error(errors.New("boom"), "failed to invoke skill")
	p.Error(errors.New("bare"), "")
	p.Error(nil, "ignored")

	assert.Contains(t, out.String(), "✓ skill added\n")
	assert.Contains(t, out.String(), "⚠ skill replaced\n")
	assert.Contains(t, out.String(), "plain\n")
	assert.Contains(t, out.String(), "Name: pdf\n")
	assert.Contains(t, out.String(), "Skills\n------\n")
	assert.Contains(t, out.String(), strings.Repeat("-", 60))

	assert.Equal(t, "[ERROR] failed to invoke skill: boom\n[ERROR] bare\n", errOut.String())
}

func TestTerminalPresenter_Quiet(t *testing.T) {
	p, out, errOut := newTestPresenter("")
	p.SetQuiet(true)
	assert.True(t, p.IsQuiet())

	p.Success("s")
	p.Warning("w")
	p.Info("i")
	p.Field("k", "v")
	p.Section("t")
	p.Separator()
	p.Error(errors.New("still shown"), "")

	assert.Empty(t, out.String())
	assert.Contains(t, errOut.String(), "still shown")
}

func TestTerminalPresenter_Confirm(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"  yes  \n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
		{"y", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			p, out, _ := newTestPresenter(tt.input)
			assert.Equal(t, tt.expected, p.Confirm("Remove skill?"))
			assert.Contains(t, out.String(), "Remove skill? [y/N]: ")
		})
	}
}

func TestDetectColorMode(t *testing.T) {
	tests := []struct {
		name     string
		noColor  string
		skillet  string
		expected ColorMode
	}{
		{"default", "", "", ColorAuto},
		{"no color wins", "1", "always", ColorNever},
		{"always", "", "always", ColorAlways},
		{"force", "", "force", ColorAlways},
		{"never", "", "never", ColorNever},
		{"off", "", "off", ColorNever},
		{"unknown", "", "rainbow", ColorAuto},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("NO_COLOR", tt.noColor)
			t.Setenv("SKILLET_COLOR", tt.skillet)
			assert.Equal(t, tt.expected, detectColorMode())
		})
	}
}
