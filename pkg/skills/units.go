package skills

import (
	"bytes"
	"context"
	"encoding/json"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/jingkaihe/skillet/pkg/osutil"
	"github.com/pkg/errors"
)

// DefaultScriptTimeout bounds a script skill run when its frontmatter sets no timeout
const DefaultScriptTimeout = 30 * time.Second

// ScriptUnit runs an executable shipped in a skill directory. The input is
// written to stdin as JSON; stdout is decoded as JSON when possible and
// returned as a string otherwise.
type ScriptUnit struct {
	Directory  string
	Entrypoint string
	Timeout    time.Duration
}

// Invoke runs the entrypoint with timeout enforcement
func (u *ScriptUnit) Invoke(ctx context.Context, input any) (any, error) {
	payload, err := json.Marshal(input)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal skill input")
	}

	timeout := u.Timeout
	if timeout <= 0 {
		timeout = DefaultScriptTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	path := u.Entrypoint
	if !filepath.IsAbs(path) {
		path = filepath.Join(u.Directory, path)
	}

	cmd := exec.CommandContext(ctx, path)
	cmd.Dir = u.Directory
	cmd.Stdin = bytes.NewReader(payload)
	cmd.WaitDelay = time.Second
	osutil.KillProcessTreeOnCancel(cmd)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, errors.Errorf("entrypoint %s timed out after %s", u.Entrypoint, timeout)
		}
		return nil, errors.Wrapf(err, "entrypoint %s failed: %s", u.Entrypoint, strings.TrimSpace(stderr.String()))
	}

	out := bytes.TrimSpace(stdout.Bytes())
	if len(out) == 0 {
		return nil, nil
	}

	var decoded any
	if err := json.Unmarshal(out, &decoded); err == nil {
		return decoded, nil
	}
	return string(out), nil
}

// ContentUnit returns the instructions of a skill that has no entrypoint
type ContentUnit struct {
	Directory string
	Content   string
}

// Invoke returns the SKILL.md body and the directory holding supporting files
func (u *ContentUnit) Invoke(_ context.Context, _ any) (any, error) {
	return map[string]any{
		"content":   u.Content,
		"directory": u.Directory,
	}, nil
}
