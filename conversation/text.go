package conversation

import (
	"context"
	stderrors "errors"
	"fmt"
	"locals-bot/domain"
	"locals-bot/errors"
	"locals-bot/menu"
)

// text interprets free text as the answer to what the session is waiting for.
func (e *Engine) text(ctx context.Context, t *turn) error {
	switch state := t.session.State.(type) {
	case domain.AwaitingLocalName:
		return e.localNameReceived(ctx, t)
	case domain.AwaitingPeerName:
		return e.peerNameReceived(ctx, t, state)
	case domain.AwaitingNewPeerName:
		return e.newPeerNameReceived(ctx, t, state)
	default:
		t.log.Debug("Text ignored, nothing is pending")
		return nil
	}
}

func (e *Engine) localNameReceived(ctx context.Context, t *turn) error {
	defer t.session.Reset()
	e.renderer.Discard(ctx, t.event)
	return e.createLocal(ctx, t, t.event.Payload)
}

func isNameRefused(err error) bool {
	return stderrors.Is(err, errors.ErrNameTaken) || stderrors.Is(err, errors.ErrInvalidName)
}

func refusalNotice(err error) string {
	if stderrors.Is(err, errors.ErrInvalidName) {
		return menu.NoticeInvalidName
	}
	return menu.NoticeNameTaken
}

// peerNameReceived keeps asking for a name until one is accepted. Any other
// outcome leaves the prompt.
func (e *Engine) peerNameReceived(ctx context.Context, t *turn, state domain.AwaitingPeerName) error {
	e.renderer.Discard(ctx, t.event)
	err := e.createPeer(ctx, t, state.LocalID, t.event.Payload)
	if err == nil {
		t.session.Reset()
		return nil
	}
	if !isNameRefused(err) {
		t.session.Reset()
		return err
	}

	t.log.Info("Peer name refused, asking again", "reason", err)
	local, lookupErr := e.locals.OwnedLocal(ctx, t.event.UserID, state.LocalID)
	if lookupErr != nil {
		t.session.Reset()
		return lookupErr
	}
	return e.render(ctx, t, menu.CreatePeerPrompt(local, refusalNotice(err)))
}

// newPeerNameReceived renames the pending peer. A refused name does not ask
// again: the peer menu is shown with the reason.
func (e *Engine) newPeerNameReceived(ctx context.Context, t *turn, state domain.AwaitingNewPeerName) error {
	e.renderer.Discard(ctx, t.event)
	renamed, err := e.locals.RenamePeer(ctx, t.event.UserID, state.LocalID, state.PeerID, t.event.Payload)
	switch {
	case err == nil:
		t.session.Reset()
		local, peer, err := e.locals.OwnedPeer(ctx, t.event.UserID, renamed.ID)
		if err != nil {
			return err
		}
		notice := fmt.Sprintf("✅ Peer renamed to %s.", menu.Escape(peer.Name))
		return e.render(ctx, t, menu.PeerSettings(local, peer, notice))
	case stderrors.Is(err, errors.ErrNotFound):
		return err
	case isNameRefused(err):
		t.session.Reset()
		t.log.Info("Peer rename refused", "reason", err)
		local, peer, lookupErr := e.locals.OwnedPeer(ctx, t.event.UserID, state.PeerID)
		if lookupErr != nil {
			return lookupErr
		}
		return e.render(ctx, t, menu.PeerSettings(local, peer, refusalNotice(err)))
	default:
		t.session.Reset()
		return err
	}
}
