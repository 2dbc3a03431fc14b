package conversation

import (
	"context"
	"fmt"
	"locals-bot/domain"
	"locals-bot/errors"
	"locals-bot/menu"
	"locals-bot/services"
)

func (e *Engine) routes() *Router[*turn] {
	return NewRouter[*turn]().
		Exact(menu.ActionBackToMain, e.backToMain).
		Exact(menu.ActionMyLocals, e.myLocals).
		Exact(menu.ActionTopUp, e.topUp).
		Exact(menu.ActionNewLocal, e.newLocal).
		Exact(menu.ActionGenerateRandomName, e.randomLocalName).
		Exact(menu.ActionGenerateRandomPeerName, e.randomPeerName).
		Prefixed(menu.PrefixLocal, e.openLocal).
		Prefixed(menu.PrefixLocalSettings, e.localSettings).
		Prefixed(menu.PrefixDeleteLocal, e.deleteLocal).
		Prefixed(menu.PrefixConfirmDeleteLocal, e.confirmDeleteLocal).
		Prefixed(menu.PrefixPeers, e.listPeers).
		Prefixed(menu.PrefixAddPeer, e.addPeer).
		Prefixed(menu.PrefixPeer, e.openPeer).
		Prefixed(menu.PrefixRenamePeer, e.renamePeer).
		Prefixed(menu.PrefixDeletePeer, e.deletePeer).
		Prefixed(menu.PrefixConfirmDeletePeer, e.confirmDeletePeer)
}

// Navigation leaves any pending prompt: the session goes back to Idle.

func (e *Engine) backToMain(ctx context.Context, t *turn, _ int64) error {
	t.session.Reset()
	account, err := e.account(ctx, t)
	if err != nil {
		return err
	}
	locals, err := e.locals.ListLocals(ctx, account.ID)
	if err != nil {
		return err
	}
	return e.render(ctx, t, menu.MainMenu(account, len(locals)))
}

func (e *Engine) myLocals(ctx context.Context, t *turn, _ int64) error {
	t.session.Reset()
	return e.showLocalList(ctx, t)
}

func (e *Engine) showLocalList(ctx context.Context, t *turn) error {
	account, err := e.account(ctx, t)
	if err != nil {
		return err
	}
	locals, err := e.locals.ListLocals(ctx, account.ID)
	if err != nil {
		return err
	}
	return e.render(ctx, t, menu.LocalList(locals))
}

func (e *Engine) topUp(ctx context.Context, t *turn, _ int64) error {
	return e.alert(ctx, t, menu.NoticeTopUpUnavailable)
}

func (e *Engine) newLocal(ctx context.Context, t *turn, _ int64) error {
	t.session.State = domain.AwaitingLocalName{}
	return e.render(ctx, t, menu.CreateLocalPrompt())
}

// randomLocalName creates a local without waiting for text. The session is
// reset whatever the outcome.
func (e *Engine) randomLocalName(ctx context.Context, t *turn, _ int64) error {
	defer t.session.Reset()
	return e.createLocal(ctx, t, services.RandomName(e.rnd))
}

func (e *Engine) randomPeerName(ctx context.Context, t *turn, _ int64) error {
	defer t.session.Reset()
	pending, ok := t.session.State.(domain.AwaitingPeerName)
	if !ok {
		return errors.ErrNoPendingLocal
	}
	return e.createPeer(ctx, t, pending.LocalID, services.RandomName(e.rnd))
}

func (e *Engine) createLocal(ctx context.Context, t *turn, name string) error {
	account, err := e.account(ctx, t)
	if err != nil {
		return err
	}
	local, err := e.locals.CreateLocal(ctx, account.ID, name)
	if err != nil {
		return err
	}
	t.session.CurrentLocalID = local.ID
	notice := fmt.Sprintf("✅ Local %s created.", menu.Escape(local.Name))
	return e.render(ctx, t, menu.LocalOverview(local, nil, notice))
}

func (e *Engine) createPeer(ctx context.Context, t *turn, localID domain.LocalID, name string) error {
	peer, err := e.locals.CreatePeer(ctx, t.event.UserID, localID, name)
	if err != nil {
		return err
	}
	local, peers, err := e.locals.LocalOverview(ctx, t.event.UserID, localID)
	if err != nil {
		return err
	}
	notice := fmt.Sprintf("✅ Peer %s added with address `%s`.", menu.Escape(peer.Name), peer.Address)
	return e.render(ctx, t, menu.LocalOverview(local, peers, notice))
}

func (e *Engine) openLocal(ctx context.Context, t *turn, id int64) error {
	t.session.Reset()
	local, peers, err := e.locals.LocalOverview(ctx, t.event.UserID, domain.LocalID(id))
	if err != nil {
		return err
	}
	t.session.CurrentLocalID = local.ID
	return e.render(ctx, t, menu.LocalOverview(local, peers, ""))
}

func (e *Engine) localSettings(ctx context.Context, t *turn, id int64) error {
	t.session.Reset()
	local, err := e.locals.OwnedLocal(ctx, t.event.UserID, domain.LocalID(id))
	if err != nil {
		return err
	}
	return e.render(ctx, t, menu.LocalSettings(local))
}

func (e *Engine) deleteLocal(ctx context.Context, t *turn, id int64) error {
	local, err := e.locals.OwnedLocal(ctx, t.event.UserID, domain.LocalID(id))
	if err != nil {
		return err
	}
	return e.render(ctx, t, menu.ConfirmDeleteLocal(local))
}

func (e *Engine) confirmDeleteLocal(ctx context.Context, t *turn, id int64) error {
	t.session.Reset()
	account, err := e.account(ctx, t)
	if err != nil {
		return err
	}
	localID := domain.LocalID(id)
	if err := e.locals.DeleteLocal(ctx, account.ID, localID); err != nil {
		return err
	}
	if t.session.CurrentLocalID == localID {
		t.session.CurrentLocalID = 0
	}
	return e.showLocalList(ctx, t)
}

func (e *Engine) listPeers(ctx context.Context, t *turn, id int64) error {
	t.session.Reset()
	local, peers, err := e.locals.LocalOverview(ctx, t.event.UserID, domain.LocalID(id))
	if err != nil {
		return err
	}
	return e.render(ctx, t, menu.PeerList(local, peers))
}

func (e *Engine) addPeer(ctx context.Context, t *turn, id int64) error {
	local, err := e.locals.OwnedLocal(ctx, t.event.UserID, domain.LocalID(id))
	if err != nil {
		return err
	}
	t.session.State = domain.AwaitingPeerName{LocalID: local.ID}
	t.session.CurrentLocalID = local.ID
	return e.render(ctx, t, menu.CreatePeerPrompt(local, ""))
}

func (e *Engine) openPeer(ctx context.Context, t *turn, id int64) error {
	t.session.Reset()
	local, peer, err := e.locals.OwnedPeer(ctx, t.event.UserID, domain.PeerID(id))
	if err != nil {
		return err
	}
	return e.render(ctx, t, menu.PeerSettings(local, peer, ""))
}

func (e *Engine) renamePeer(ctx context.Context, t *turn, id int64) error {
	local, peer, err := e.locals.OwnedPeer(ctx, t.event.UserID, domain.PeerID(id))
	if err != nil {
		return err
	}
	t.session.State = domain.AwaitingNewPeerName{LocalID: local.ID, PeerID: peer.ID}
	return e.render(ctx, t, menu.RenamePeerPrompt(peer))
}

func (e *Engine) deletePeer(ctx context.Context, t *turn, id int64) error {
	_, peer, err := e.locals.OwnedPeer(ctx, t.event.UserID, domain.PeerID(id))
	if err != nil {
		return err
	}
	return e.render(ctx, t, menu.ConfirmDeletePeer(peer))
}

func (e *Engine) confirmDeletePeer(ctx context.Context, t *turn, id int64) error {
	t.session.Reset()
	local, err := e.locals.DeletePeer(ctx, t.event.UserID, domain.PeerID(id))
	if err != nil {
		return err
	}
	local, peers, err := e.locals.LocalOverview(ctx, t.event.UserID, local.ID)
	if err != nil {
		return err
	}
	return e.render(ctx, t, menu.PeerList(local, peers))
}
