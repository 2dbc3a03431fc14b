package workers

import (
	"context"
	"locals-bot/contract"
	"locals-bot/errors"
	"locals-bot/infrastructure/telegram"
	"log/slog"

	"github.com/go-telegram/bot/models"
)

var _ contract.Worker = (*UpdatePoller)(nil)

type UpdateSource interface {
	Listen(ctx context.Context, handle telegram.UpdateHandler)
}

// UpdatePoller long polls the Bot API and hands every update to the dispatcher.
type UpdatePoller struct {
	source     UpdateSource
	dispatcher contract.Dispatcher
	log        *slog.Logger
}

func NewUpdatePoller(source UpdateSource, dispatcher contract.Dispatcher, log *slog.Logger) *UpdatePoller {
	return &UpdatePoller{source: source, dispatcher: dispatcher, log: log}
}

// Run polls until ctx is done. A source that stops on its own is reported as
// an error so that the supervisor restarts polling.
func (p *UpdatePoller) Run(ctx context.Context) error {
	p.log.Info("Long polling started")
	p.source.Listen(ctx, p.forward)
	if err := ctx.Err(); err != nil {
		return err
	}
	return errors.ErrPollingStopped
}

func (p *UpdatePoller) forward(ctx context.Context, update *models.Update) {
	event, ok := telegram.ToEvent(update)
	if !ok {
		p.log.Debug("Update skipped", "update_id", update.ID)
		return
	}
	if err := p.dispatcher.Dispatch(ctx, event); err != nil {
		p.log.Warn("Update dropped", "update_id", update.ID, "error", err)
	}
}
