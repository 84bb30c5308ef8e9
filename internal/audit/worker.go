package audit

import (
	"context"
	"log/slog"
)

// ChannelSink decouples request handling from sink latency: Publish enqueues
// and returns immediately; a Worker drains the channel into the real sink.
// When the buffer is full the event is dropped (the durable store already has
// it) and the drop is logged.
type ChannelSink struct {
	inbox  chan Event
	logger *slog.Logger
}

func NewChannelSink(buffer int, logger *slog.Logger) *ChannelSink {
	return &ChannelSink{
		inbox:  make(chan Event, buffer),
		logger: logger,
	}
}

func (s *ChannelSink) Publish(_ context.Context, event Event) error {
	select {
	case s.inbox <- event:
	default:
		s.logger.Warn("audit sink buffer full, dropping event",
			"action", event.Action,
			"subject", event.Subject,
		)
	}
	return nil
}

// Worker consumes events from a ChannelSink and delivers them to a sink.
type Worker struct {
	source *ChannelSink
	sink   Sink
	logger *slog.Logger
}

func NewWorker(source *ChannelSink, sink Sink, logger *slog.Logger) *Worker {
	return &Worker{source: source, sink: sink, logger: logger}
}

// Run delivers events until ctx is cancelled. Delivery failures are logged
// and the event is dropped; the durable audit store remains authoritative.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.source.inbox:
			if err := w.sink.Publish(ctx, event); err != nil {
				w.logger.WarnContext(ctx, "audit event delivery failed",
					"action", event.Action,
					"error", err,
				)
			}
		}
	}
}
