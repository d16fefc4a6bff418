package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	dErrors "soulpass/pkg/domain-errors"
	"soulpass/pkg/requestcontext"
)

// Publisher emits ledger events with fail-closed semantics: if an event
// cannot be appended, the calling operation must fail, so state changes and
// their events stay atomic.
type Publisher struct {
	sink Sink
}

// NewPublisher creates a publisher over the given sink.
func NewPublisher(sink Sink) *Publisher {
	return &Publisher{sink: sink}
}

// Emit stamps identity, time, and request correlation onto the event and
// appends it synchronously.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.Device == "" {
		event.Device = requestcontext.Device(ctx)
	}
	if err := p.sink.Append(ctx, event); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record ledger event")
	}
	return nil
}

// Multi fans one event out to several sinks, failing on the first error.
func Multi(sinks ...Sink) Sink {
	return multiSink(sinks)
}

type multiSink []Sink

func (m multiSink) Append(ctx context.Context, event Event) error {
	for _, sink := range m {
		if err := sink.Append(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

// ChannelSink bridges synchronous emission to a background Worker. Append
// blocks when the inbox is full rather than dropping events, so emission
// stays fail-closed end to end.
type ChannelSink chan<- Event

func (c ChannelSink) Append(ctx context.Context, event Event) error {
	select {
	case c <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Worker consumes events from a channel and persists them. It keeps
// background processing testable without wiring queue implementations.
type Worker struct {
	sink  Sink
	inbox <-chan Event
}

// NewWorker creates a worker draining inbox into sink.
func NewWorker(sink Sink, inbox <-chan Event) *Worker {
	return &Worker{sink: sink, inbox: inbox}
}

// Run drains the inbox until the context is canceled.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if event.Timestamp.IsZero() {
				event.Timestamp = time.Now()
			}
			if err := w.sink.Append(ctx, event); err != nil {
				return err
			}
		}
	}
}
