package workers

import (
	"chat-session/contract"
	"chat-session/domain/event"
	"chat-session/observability"
	"context"
	"log/slog"
	"time"
)

const DefaultSinkTimeout = time.Second

// EventFanout hands every session event to the registered sinks, one at a time
// and in publication order. A sink gets sinkTimeout per event; a slow or failing
// sink is logged and skipped, it never blocks the session.
type EventFanout struct {
	log         *slog.Logger
	events      <-chan event.SessionEvent
	monitoring  *observability.MonitoringManager
	sinkTimeout time.Duration
	sinks       []contract.EventSink
}

func NewEventFanout(log *slog.Logger, events <-chan event.SessionEvent,
	monitoring *observability.MonitoringManager, sinkTimeout time.Duration) *EventFanout {
	if sinkTimeout <= 0 {
		sinkTimeout = DefaultSinkTimeout
	}
	return &EventFanout{log: log, events: events, monitoring: monitoring, sinkTimeout: sinkTimeout}
}

func (w *EventFanout) Add(sinks ...contract.EventSink) *EventFanout {
	w.sinks = append(w.sinks, sinks...)
	return w
}

func (w *EventFanout) Run(ctx context.Context) error {
	for {
		select {
		case evt, ok := <-w.events:
			if !ok {
				return nil
			}
			w.Fanout(ctx, evt)
		case <-ctx.Done():
			w.log.Debug("Context done, stopping event fanout")
			return nil
		}
	}
}

func (w *EventFanout) Fanout(ctx context.Context, evt event.SessionEvent) {
	for _, sink := range w.sinks {
		sinkCtx, cancel := context.WithTimeout(ctx, w.sinkTimeout)
		if err := sink.Consume(sinkCtx, evt); err != nil {
			w.monitoring.IncrObserverDropped()
			w.log.Warn("Sink failed to consume event", "event", evt.Name(), "error", err)
		}
		cancel()
	}
}
