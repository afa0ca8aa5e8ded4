package skills

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jingkaihe/skillet/pkg/telemetry"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
)

type entry struct {
	unit       Unit
	descriptor Descriptor
}

// Registry maps skill names to units and mediates their invocation.
// It is safe for concurrent use: lookups share a read lock, while Register
// and Unregister take the write lock. Units are invoked outside the lock.
type Registry struct {
	mu       sync.RWMutex
	entries  map[string]*entry
	observer Observer
}

// Option configures a Registry
type Option func(*Registry)

// WithObserver sets the observer notified of registry events
func WithObserver(o Observer) Option {
	return func(r *Registry) {
		if o != nil {
			r.observer = o
		}
	}
}

// NewRegistry creates an empty registry
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		entries:  make(map[string]*entry),
		observer: NopObserver{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Binding is a unit together with the descriptor it was registered with
type Binding struct {
	Unit       Unit
	Descriptor Descriptor
}

// Register binds unit and desc to name. An existing binding under the same
// name is replaced (last write wins); the observer is told about the
// replacement but it is not an error.
func (r *Registry) Register(ctx context.Context, name string, unit Unit, desc Descriptor) error {
	_, err := r.Replace(ctx, name, unit, desc)
	return err
}

// Replace registers like Register and returns the binding it displaced, or
// nil when name was not bound
func (r *Registry) Replace(ctx context.Context, name string, unit Unit, desc Descriptor) (*Binding, error) {
	if name == "" {
		return nil, errors.Wrap(ErrInvalidRegistration, "skill name is required")
	}
	if unit == nil {
		return nil, errors.Wrapf(ErrInvalidRegistration, "skill '%s' has no unit", name)
	}
	if desc.Name == "" {
		desc.Name = name
	} else if desc.Name != name {
		return nil, errors.Wrapf(ErrInvalidRegistration, "descriptor name '%s' does not match skill '%s'", desc.Name, name)
	}

	e := &entry{unit: unit, descriptor: desc.clone()}

	r.mu.Lock()
	prev, replaced := r.entries[name]
	r.entries[name] = e
	r.mu.Unlock()

	if replaced {
		telemetry.AddEvent(ctx, "skill.replaced", attribute.String("skill.name", name))
	}
	notify(ctx, func() { r.observer.SkillRegistered(ctx, e.descriptor.clone(), replaced) })

	if !replaced {
		return nil, nil
	}
	return &Binding{Unit: prev.unit, Descriptor: prev.descriptor.clone()}, nil
}

// Unregister removes the binding for name and reports whether one existed
func (r *Registry) Unregister(ctx context.Context, name string) bool {
	r.mu.Lock()
	_, ok := r.entries[name]
	delete(r.entries, name)
	r.mu.Unlock()

	if ok {
		notify(ctx, func() { r.observer.SkillUnregistered(ctx, name) })
	}
	return ok
}

func (r *Registry) lookup(name string) (*entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[name]
	if !ok {
		return nil, &NotFoundError{Name: name}
	}
	return e, nil
}

// Resolve returns the unit currently bound to name
func (r *Registry) Resolve(name string) (Unit, error) {
	e, err := r.lookup(name)
	if err != nil {
		return nil, err
	}
	return e.unit, nil
}

// Describe returns the descriptor currently bound to name
func (r *Registry) Describe(name string) (Descriptor, error) {
	e, err := r.lookup(name)
	if err != nil {
		return Descriptor{}, err
	}
	return e.descriptor.clone(), nil
}

// Invoke resolves name, runs its unit with input and wraps the outcome.
// Unit failures, including panics, are returned as *SkillExecutionError and
// are never retried.
func (r *Registry) Invoke(ctx context.Context, name string, input any) (*InvocationResult, error) {
	e, err := r.lookup(name)
	if err != nil {
		return nil, err
	}

	var output any
	started := time.Now()
	err = telemetry.WithSpan(ctx, "skills.invoke", func(ctx context.Context) error {
		var runErr error
		output, runErr = runUnit(ctx, e.unit, input)
		return runErr
	}, attribute.String("skill.name", name))

	event := InvocationEvent{
		Name:      name,
		Input:     input,
		StartedAt: started,
		Duration:  time.Since(started),
	}
	if err != nil {
		event.Err = err
		notify(ctx, func() { r.observer.SkillInvoked(ctx, event) })
		return nil, &SkillExecutionError{Name: name, Err: err}
	}
	notify(ctx, func() { r.observer.SkillInvoked(ctx, event) })

	return &InvocationResult{
		Message:    loadedMessage(name),
		Descriptor: e.descriptor.clone(),
		Input:      input,
		Output:     output,
	}, nil
}

func runUnit(ctx context.Context, unit Unit, input any) (output any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			output = nil
			if recErr, ok := rec.(error); ok {
				err = errors.Wrap(recErr, "skill panicked")
				return
			}
			err = errors.Errorf("skill panicked: %v", rec)
		}
	}()
	return unit.Invoke(ctx, input)
}

// Names returns all registered skill names sorted alphabetically
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Descriptors returns the descriptors of all registered skills sorted by name
func (r *Registry) Descriptors() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Descriptor, 0, len(r.entries))
	for _, e := range r.entries {
		result = append(result, e.descriptor.clone())
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result
}

// Len returns the number of registered skills
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
