// Package conversation drives a chat conversation: it loads the session of
// the sender, routes the event to a handler and always saves the session back.
package conversation

import (
	"context"
	stderrors "errors"
	"fmt"
	"locals-bot/domain"
	"locals-bot/errors"
	"locals-bot/menu"
	"locals-bot/repositories"
	"locals-bot/services"
	"log/slog"

	"github.com/google/uuid"
)

// turn is the state of one event being handled.
type turn struct {
	event   domain.Event
	session *domain.Session
	log     *slog.Logger
	account *domain.Account
	acked   bool
}

type Engine struct {
	sessions repositories.ISessionRepository
	locals   services.ILocalService
	renderer *menu.Renderer
	router   *Router[*turn]
	rnd      services.Rand
	log      *slog.Logger
}

func NewEngine(
	sessions repositories.ISessionRepository,
	locals services.ILocalService,
	renderer *menu.Renderer,
	rnd services.Rand,
	log *slog.Logger,
) *Engine {
	e := &Engine{
		sessions: sessions,
		locals:   locals,
		renderer: renderer,
		rnd:      rnd,
		log:      log,
	}
	e.router = e.routes()
	return e
}

// Handle processes the event to completion. Errors never escape: they are
// reported to the user and logged.
func (e *Engine) Handle(ctx context.Context, event domain.Event) {
	key := event.Key()
	session := e.sessions.Load(ctx, key)
	t := &turn{
		event:   event,
		session: &session,
		log: e.log.With(
			"trace_id", uuid.NewString(),
			"user_id", event.UserID,
			"chat_id", event.ChatID,
			"kind", event.Kind.String(),
		),
	}

	defer func() {
		if r := recover(); r != nil {
			e.report(ctx, t, fmt.Errorf("%w: %v", errors.ErrWorkerPanic, r))
		}
		if event.Kind == domain.EventCallback && !t.acked {
			if err := e.renderer.Alert(ctx, event, ""); err != nil {
				t.log.Debug("Callback ack failed", "error", err)
			}
		}
		if err := e.sessions.Save(ctx, key, *t.session); err != nil {
			t.log.Error("Session not saved", "error", err)
		}
	}()

	if err := e.dispatch(ctx, t); err != nil {
		e.report(ctx, t, err)
	}
}

func (e *Engine) dispatch(ctx context.Context, t *turn) error {
	switch t.event.Kind {
	case domain.EventCommand:
		switch t.event.Payload {
		case "start":
			return e.start(ctx, t)
		case "help":
			return e.help(ctx, t)
		}
		t.log.Debug("Unknown command ignored", "command", t.event.Payload)
		return nil
	case domain.EventCallback:
		handler, id, ok := e.router.Match(t.event.Payload)
		if !ok {
			t.log.Debug("Unknown action ignored", "action", t.event.Payload)
			return nil
		}
		return handler(ctx, t, id)
	case domain.EventText:
		return e.text(ctx, t)
	default:
		return nil
	}
}

// report turns a handler error into a user notice.
func (e *Engine) report(ctx context.Context, t *turn, err error) {
	notice := menu.NoticeGenericError
	switch {
	case stderrors.Is(err, errors.ErrNotFound):
		notice = menu.NoticeNotFound
	case stderrors.Is(err, errors.ErrNameTaken):
		notice = menu.NoticeNameTaken
	case stderrors.Is(err, errors.ErrInvalidName):
		notice = menu.NoticeInvalidName
	case stderrors.Is(err, errors.ErrAddressesExhausted):
		notice = menu.NoticeAddressesExhausted
	case stderrors.Is(err, errors.ErrBlocksExhausted):
		notice = menu.NoticeBlocksExhausted
	case stderrors.Is(err, errors.ErrNoPendingLocal):
		notice = menu.NoticeNoPendingLocal
	case stderrors.Is(err, errors.ErrTransport):
		t.log.Warn("Chat transport failure", "error", err)
	default:
		t.log.Error("Event handling failed", "error", err)
	}
	if notice != menu.NoticeGenericError {
		t.log.Info("Event refused", "reason", err)
	}
	if alertErr := e.alert(ctx, t, notice); alertErr != nil {
		t.log.Warn("Notice not delivered", "error", alertErr)
	}
}

func (e *Engine) alert(ctx context.Context, t *turn, text string) error {
	if t.event.Kind == domain.EventCallback {
		t.acked = true
	}
	return e.renderer.Alert(ctx, t.event, text)
}

func (e *Engine) render(ctx context.Context, t *turn, view menu.View) error {
	return e.renderer.Render(ctx, t.event, t.session, view)
}

// account returns the sender's account, creating it if needed.
func (e *Engine) account(ctx context.Context, t *turn) (domain.Account, error) {
	if t.account != nil {
		return *t.account, nil
	}
	account, _, err := e.locals.EnsureAccount(ctx, t.event.UserID, t.event.From)
	if err != nil {
		return domain.Account{}, err
	}
	t.account = &account
	return account, nil
}

func (e *Engine) start(ctx context.Context, t *turn) error {
	t.session.Restart()
	account, created, err := e.locals.EnsureAccount(ctx, t.event.UserID, t.event.From)
	if err != nil {
		return err
	}
	t.account = &account
	if created {
		if err := e.renderer.Say(ctx, t.event, menu.Welcome(t.event.From)); err != nil {
			return err
		}
	}
	locals, err := e.locals.ListLocals(ctx, account.ID)
	if err != nil {
		return err
	}
	return e.renderer.Pin(ctx, t.event, t.session, menu.MainMenu(account, len(locals)))
}

func (e *Engine) help(ctx context.Context, t *turn) error {
	return e.renderer.Say(ctx, t.event, menu.Help())
}
