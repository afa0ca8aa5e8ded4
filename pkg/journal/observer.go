package journal

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/jingkaihe/skillet/pkg/logger"
	"github.com/jingkaihe/skillet/pkg/skills"
)

// DefaultBufferSize is the number of pending entries the observer holds before dropping
const DefaultBufferSize = 256

// recorder is the subset of Store used by Observer
type recorder interface {
	Record(ctx context.Context, e Entry) error
}

// Observer is a skills.Observer that journals every invocation. Entries are
// queued and written by a single background goroutine; when the queue is
// full new entries are dropped rather than blocking the caller.
type Observer struct {
	skills.NopObserver

	store recorder
	queue chan Entry
	done  chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewObserver starts the background writer. Call Close to flush and stop it.
func NewObserver(store recorder, bufferSize int) *Observer {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	o := &Observer{
		store: store,
		queue: make(chan Entry, bufferSize),
		done:  make(chan struct{}),
	}
	go o.run()
	return o
}

// SkillInvoked queues a journal entry for the invocation
func (o *Observer) SkillInvoked(ctx context.Context, event skills.InvocationEvent) {
	input, err := json.Marshal(event.Input)
	if err != nil {
		input = nil
	}

	e := Entry{
		ID:         uuid.NewString(),
		SkillName:  event.Name,
		Input:      input,
		Success:    event.Err == nil,
		StartedAt:  event.StartedAt,
		DurationMS: event.Duration.Milliseconds(),
	}
	if event.Err != nil {
		e.Error = event.Err.Error()
	}

	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.closed {
		return
	}

	select {
	case o.queue <- e:
	default:
		logger.G(ctx).WithField("skill", event.Name).Debug("journal queue full, dropping invocation entry")
	}
}

func (o *Observer) run() {
	defer close(o.done)
	ctx := context.Background()
	for e := range o.queue {
		if err := o.store.Record(ctx, e); err != nil {
			logger.G(ctx).WithError(err).WithField("skill", e.SkillName).Warn("failed to journal skill invocation")
		}
	}
}

// Close stops accepting entries and waits until queued ones are written
func (o *Observer) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		<-o.done
		return
	}
	o.closed = true
	close(o.queue)
	o.mu.Unlock()

	<-o.done
}
