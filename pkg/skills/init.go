package skills

import (
	"context"

	"github.com/jingkaihe/skillet/pkg/logger"
	"github.com/spf13/viper"
)

// NewDiscoveryFromViper builds a Discovery from skills.dirs, falling back to the default directories
func NewDiscoveryFromViper() (*Discovery, error) {
	if dirs := viper.GetStringSlice("skills.dirs"); len(dirs) > 0 {
		return NewDiscovery(WithSkillDirs(dirs...))
	}
	return NewDiscovery()
}

// Enabled reports whether skills are enabled. skills.enabled defaults to true
// when unset; the --no-skills flag always wins.
func Enabled() bool {
	enabled := !viper.IsSet("skills.enabled") || viper.GetBool("skills.enabled")
	return enabled && !viper.GetBool("no_skills")
}

// Initialize discovers skills based on configuration and CLI flags and loads them into reg.
// It reads skills.enabled from config and respects the --no-skills flag (bound to no_skills in viper).
// Returns the discovered skills and whether skills are enabled.
func Initialize(ctx context.Context, reg *Registry) (map[string]*Skill, bool) {
	if !Enabled() {
		return nil, false
	}

	discovery, err := NewDiscoveryFromViper()
	if err != nil {
		logger.G(ctx).WithError(err).Warn("failed to create skill discovery")
		return nil, false
	}

	discovered, err := discovery.DiscoverSkills()
	if err != nil {
		logger.G(ctx).WithError(err).Warn("some skills could not be loaded")
	}

	discovered, err = FilterByAllowlist(discovered, viper.GetStringSlice("skills.allowed"))
	if err != nil {
		logger.G(ctx).WithError(err).Warn("ignoring invalid skills allowlist")
		return nil, false
	}

	if err := Load(ctx, reg, discovered); err != nil {
		logger.G(ctx).WithError(err).Warn("failed to register some skills")
	}

	return discovered, true
}
