package skills

import (
	"context"
	"time"

	"github.com/jingkaihe/skillet/pkg/logger"
)

// InvocationEvent describes a completed invocation
type InvocationEvent struct {
	Name      string
	Input     any
	StartedAt time.Time
	Duration  time.Duration
	Err       error
}

// Observer receives advisory notifications from the registry. Implementations
// must not block for long; they cannot influence the outcome of the
// operation that triggered them.
type Observer interface {
	SkillRegistered(ctx context.Context, desc Descriptor, replaced bool)
	SkillUnregistered(ctx context.Context, name string)
	SkillInvoked(ctx context.Context, event InvocationEvent)
}

// NopObserver discards all notifications
type NopObserver struct{}

func (NopObserver) SkillRegistered(context.Context, Descriptor, bool) {}
func (NopObserver) SkillUnregistered(context.Context, string)         {}
func (NopObserver) SkillInvoked(context.Context, InvocationEvent)     {}

// LogObserver writes registry events to the context logger
type LogObserver struct{}

// SkillRegistered logs the registration, at warning level when it replaced an existing binding
func (LogObserver) SkillRegistered(ctx context.Context, desc Descriptor, replaced bool) {
	log := logger.G(ctx).WithField("skill", desc.Name)
	if replaced {
		log.Warn("skill re-registered, previous binding replaced")
		return
	}
	log.Debug("skill registered")
}

// SkillUnregistered logs the removal
func (LogObserver) SkillUnregistered(ctx context.Context, name string) {
	logger.G(ctx).WithField("skill", name).Debug("skill unregistered")
}

// SkillInvoked logs which skill ran and how it ended
func (LogObserver) SkillInvoked(ctx context.Context, event InvocationEvent) {
	log := logger.G(ctx).WithField("skill", event.Name).WithField("duration", event.Duration)
	if event.Err != nil {
		log.WithError(event.Err).Warn("skill invocation failed")
		return
	}
	log.Info("running skill")
}

// MultiObserver fans notifications out to every observer in order
type MultiObserver []Observer

func (m MultiObserver) SkillRegistered(ctx context.Context, desc Descriptor, replaced bool) {
	for _, o := range m {
		notify(ctx, func() { o.SkillRegistered(ctx, desc, replaced) })
	}
}

func (m MultiObserver) SkillUnregistered(ctx context.Context, name string) {
	for _, o := range m {
		notify(ctx, func() { o.SkillUnregistered(ctx, name) })
	}
}

func (m MultiObserver) SkillInvoked(ctx context.Context, event InvocationEvent) {
	for _, o := range m {
		notify(ctx, func() { o.SkillInvoked(ctx, event) })
	}
}

// notify runs an observer callback, swallowing any panic it raises
func notify(ctx context.Context, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.G(ctx).WithField("panic", r).Error("skill observer panicked")
		}
	}()
	fn()
}
