package skills

import (
	"github.com/gobwas/glob"
	"github.com/pkg/errors"
)

// FilterByAllowlist filters skills by an allowlist of glob patterns such as
// "pdf" or "acme/*". If the allowlist is empty, all skills are returned.
func FilterByAllowlist(skills map[string]*Skill, allowed []string) (map[string]*Skill, error) {
	if len(allowed) == 0 {
		return skills, nil
	}

	patterns := make([]glob.Glob, 0, len(allowed))
	for _, pattern := range allowed {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, errors.Wrapf(err, "invalid skill allowlist pattern %q", pattern)
		}
		patterns = append(patterns, g)
	}

	filtered := make(map[string]*Skill)
	for name, skill := range skills {
		for _, g := range patterns {
			if g.Match(name) {
				filtered[name] = skill
				break
			}
		}
	}
	return filtered, nil
}
