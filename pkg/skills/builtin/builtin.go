// Package builtin holds the skills compiled into skillet
package builtin

import (
	"context"

	"github.com/jingkaihe/skillet/pkg/skills"
)

// AgentBuilderName is the registry name of the agent-builder skill
const AgentBuilderName = "agent-builder"

// AgentBuilder describes the agent-builder skill. It provides guidance for
// building AI agents; the detailed instructions live in its SKILL.md.
var AgentBuilder = skills.Descriptor{
	Name:        AgentBuilderName,
	Description: "Rapid AI agent development framework using Claude SDK",
	Capabilities: []string{
		"Level 1: Single-step agents (lookup/action)",
		"Level 2: Multi-step strategic agents",
		"Level 3: Multi-agent systems",
		"MCP + Code Execution pattern (98% token reduction)",
		"Direct tool calling pattern",
	},
}

func agentBuilder(_ context.Context, _ any) (any, error) {
	capabilities := make([]string, len(AgentBuilder.Capabilities))
	copy(capabilities, AgentBuilder.Capabilities)
	return map[string]any{"capabilities": capabilities}, nil
}

// Bindings returns every built-in skill keyed by name
func Bindings() map[string]skills.Binding {
	return map[string]skills.Binding{
		AgentBuilderName: {Unit: skills.UnitFunc(agentBuilder), Descriptor: AgentBuilder},
	}
}

// Register adds every built-in skill to reg
func Register(ctx context.Context, reg *skills.Registry) error {
	for name, b := range Bindings() {
		if err := reg.Register(ctx, name, b.Unit, b.Descriptor); err != nil {
			return err
		}
	}
	return nil
}
