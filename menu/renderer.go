package menu

import (
	"context"
	"fmt"
	"locals-bot/contract"
	"locals-bot/domain"
	"locals-bot/errors"
	"log/slog"
)

// Renderer draws views on the menu surface of a conversation.
type Renderer struct {
	transport contract.Transport
	log       *slog.Logger
}

func NewRenderer(transport contract.Transport, log *slog.Logger) *Renderer {
	return &Renderer{transport: transport, log: log}
}

// Render picks its target in this order: the message carrying the pressed
// button, then the pinned menu message, then a new message which gets pinned.
func (r *Renderer) Render(ctx context.Context, event domain.Event, session *domain.Session, view View) error {
	switch {
	case event.Kind == domain.EventCallback && event.MessageID != 0:
		return r.edit(ctx, event.ChatID, event.MessageID, view)
	case session.MenuMessageID != 0:
		return r.edit(ctx, event.ChatID, session.MenuMessageID, view)
	default:
		return r.Pin(ctx, event, session, view)
	}
}

// Pin always sends a fresh message and makes it the menu surface.
func (r *Renderer) Pin(ctx context.Context, event domain.Event, session *domain.Session, view View) error {
	id, err := r.transport.Send(ctx, event.ChatID, view.Text, view.Keyboard)
	if err != nil {
		return fmt.Errorf("%w: send menu: %v", errors.ErrTransport, err)
	}
	session.MenuMessageID = id
	r.log.Debug("Menu message pinned", "chat_id", event.ChatID, "message_id", id)
	return nil
}

func (r *Renderer) edit(ctx context.Context, chatID int64, messageID domain.MessageID, view View) error {
	if err := r.transport.Edit(ctx, chatID, messageID, view.Text, view.Keyboard); err != nil {
		return fmt.Errorf("%w: edit message %d: %v", errors.ErrTransport, messageID, err)
	}
	return nil
}

// Alert shows a short notice: a popup for button presses, a reply otherwise.
func (r *Renderer) Alert(ctx context.Context, event domain.Event, text string) error {
	if event.Kind == domain.EventCallback {
		if err := r.transport.Ack(ctx, event.CallbackID, text); err != nil {
			return fmt.Errorf("%w: ack: %v", errors.ErrTransport, err)
		}
		return nil
	}
	return r.Say(ctx, event, text)
}

// Say sends a plain message without keyboard. It does not touch the menu surface.
func (r *Renderer) Say(ctx context.Context, event domain.Event, text string) error {
	if _, err := r.transport.Send(ctx, event.ChatID, text, nil); err != nil {
		return fmt.Errorf("%w: send: %v", errors.ErrTransport, err)
	}
	return nil
}

// Discard removes the user's message. Failures are only logged.
func (r *Renderer) Discard(ctx context.Context, event domain.Event) {
	if event.MessageID == 0 {
		return
	}
	if err := r.transport.DeleteMessage(ctx, event.ChatID, event.MessageID); err != nil {
		r.log.Debug("Could not delete user message", "chat_id", event.ChatID, "message_id", event.MessageID, "error", err)
	}
}
