package audit

import (
	"context"
	"log/slog"

	"medfund/pkg/requestcontext"
)

// Sink receives events after they are durably appended; the Kafka publisher
// implements it. A sink failure never fails Emit.
type Sink interface {
	Publish(ctx context.Context, event Event) error
}

// Publisher captures structured audit events. It enriches events from the
// request context, appends to durable storage, and fans out to sinks.
type Publisher struct {
	store  Store
	sink   Sink
	logger *slog.Logger
}

type PublisherOption func(*Publisher)

func WithSink(sink Sink) PublisherOption {
	return func(p *Publisher) { p.sink = sink }
}

func WithLogger(logger *slog.Logger) PublisherOption {
	return func(p *Publisher) { p.logger = logger }
}

func NewPublisher(store Store, opts ...PublisherOption) *Publisher {
	p := &Publisher{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit appends the event, filling timestamp and request metadata from
// context when the caller left them empty.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.ClientIP == "" {
		event.ClientIP = requestcontext.ClientIP(ctx)
	}
	if event.Device == "" {
		event.Device = requestcontext.Device(ctx)
	}

	if err := p.store.Append(ctx, event); err != nil {
		return err
	}
	if p.sink != nil {
		if err := p.sink.Publish(ctx, event); err != nil {
			// Durable append already succeeded; sink delivery is best-effort.
			p.logger.WarnContext(ctx, "audit sink publish failed",
				"action", event.Action,
				"error", err,
			)
		}
	}
	return nil
}

// List returns the audit trail for a subject.
func (p *Publisher) List(ctx context.Context, subject string) ([]Event, error) {
	return p.store.ListBySubject(ctx, subject)
}
