package workers

import (
	"context"
	"locals-bot/contract"
	"locals-bot/domain"
	"log/slog"
	"time"
)

var _ contract.Worker = (*ChatWorker)(nil)

// ChatWorker consumes one dispatcher shard. Events are handled one after the
// other, each under its own timeout.
type ChatWorker struct {
	events  <-chan domain.Event
	handler contract.EventHandler
	timeout time.Duration
	log     *slog.Logger
}

func NewChatWorker(events <-chan domain.Event, handler contract.EventHandler, timeout time.Duration, log *slog.Logger) *ChatWorker {
	return &ChatWorker{events: events, handler: handler, timeout: timeout, log: log}
}

// Run returns nil once the shard is closed and drained.
func (w *ChatWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping chat worker")
			return ctx.Err()
		case event, ok := <-w.events:
			if !ok {
				w.log.Debug("Shard closed and drained")
				return nil
			}
			w.handle(ctx, event)
		}
	}
}

// handle runs an event to completion: stopping the worker does not cancel it.
func (w *ChatWorker) handle(ctx context.Context, event domain.Event) {
	handlerCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.timeout)
	defer cancel()

	started := time.Now()
	w.handler.Handle(handlerCtx, event)
	w.log.Debug("Event handled",
		"kind", event.Kind.String(),
		"chat_id", event.ChatID,
		"elapsed", time.Since(started),
	)
}
