// Package skills provides the skill registry: named capability units that
// are registered with a descriptor, resolved by name and invoked with an
// arbitrary input payload. Skills can be registered programmatically or
// discovered from directories containing a SKILL.md file with YAML
// frontmatter describing the skill.
package skills

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Descriptor is the static metadata registered alongside a skill unit
type Descriptor struct {
	Name         string   `json:"name" yaml:"name"`
	Description  string   `json:"description" yaml:"description"`
	Capabilities []string `json:"capabilities" yaml:"capabilities"`
}

// clone returns a deep copy so registered descriptors cannot be mutated by callers
func (d Descriptor) clone() Descriptor {
	c := d
	if d.Capabilities != nil {
		c.Capabilities = make([]string, len(d.Capabilities))
		copy(c.Capabilities, d.Capabilities)
	}
	return c
}

// Unit is an invocable skill implementation. The registry treats units as
// opaque and never inspects them beyond this contract.
type Unit interface {
	Invoke(ctx context.Context, input any) (any, error)
}

// UnitFunc adapts an ordinary function to the Unit interface
type UnitFunc func(ctx context.Context, input any) (any, error)

// Invoke calls f(ctx, input)
func (f UnitFunc) Invoke(ctx context.Context, input any) (any, error) {
	return f(ctx, input)
}

// InvocationResult is the envelope returned for a successful invocation
type InvocationResult struct {
	Message    string
	Descriptor Descriptor
	Input      any
	Output     any
}

// invocationEnvelope is the flat wire form of InvocationResult
type invocationEnvelope struct {
	Message      string   `json:"message" jsonschema:"description=Human readable status of the invocation"`
	Description  string   `json:"description" jsonschema:"description=Registered description of the skill"`
	Capabilities []string `json:"capabilities" jsonschema:"description=Registered capability labels in order"`
	Input        any      `json:"input" jsonschema:"description=The input payload echoed unmodified"`
	Output       any      `json:"output,omitempty" jsonschema:"description=Raw result returned by the skill"`
}

func (r *InvocationResult) envelope() invocationEnvelope {
	capabilities := r.Descriptor.Capabilities
	if capabilities == nil {
		capabilities = []string{}
	}
	return invocationEnvelope{
		Message:      r.Message,
		Description:  r.Descriptor.Description,
		Capabilities: capabilities,
		Input:        r.Input,
		Output:       r.Output,
	}
}

// MarshalJSON flattens the descriptor into the envelope
func (r *InvocationResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.envelope())
}

// EnvelopeSchemaType returns a zero value of the wire envelope, for schema generation
func EnvelopeSchemaType() any {
	return &invocationEnvelope{}
}

func loadedMessage(name string) string {
	return fmt.Sprintf("Skill '%s' loaded successfully!", name)
}

// Skill represents a skill discovered on disk
type Skill struct {
	Name         string        // Unique name from frontmatter, prefixed for plugin skills
	Description  string        // Brief description of the skill
	Capabilities []string      // Ordered capability labels
	Directory    string        // Full path to the skill directory
	Content      string        // Body of SKILL.md (frontmatter stripped)
	Entrypoint   string        // Optional executable relative to Directory
	Timeout      time.Duration // Entrypoint timeout
}

// Metadata represents the YAML frontmatter in SKILL.md files
type Metadata struct {
	Name         string   `mapstructure:"name"`
	Description  string   `mapstructure:"description"`
	Capabilities []string `mapstructure:"capabilities"`
	Entrypoint   string   `mapstructure:"entrypoint"`
	Timeout      string   `mapstructure:"timeout"`
}

// Descriptor returns the registry descriptor for the discovered skill
func (s *Skill) Descriptor() Descriptor {
	return Descriptor{
		Name:         s.Name,
		Description:  s.Description,
		Capabilities: s.Capabilities,
	}.clone()
}

// Unit returns the invocable unit backing the discovered skill
func (s *Skill) Unit() Unit {
	if s.Entrypoint != "" {
		return &ScriptUnit{
			Directory:  s.Directory,
			Entrypoint: s.Entrypoint,
			Timeout:    s.Timeout,
		}
	}
	return &ContentUnit{
		Directory: s.Directory,
		Content:   s.Content,
	}
}
