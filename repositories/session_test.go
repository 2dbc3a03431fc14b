package repositories

import (
	"context"
	"locals-bot/domain"
	"log/slog"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func newTestBadger(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSessionRepository_Load_MissingReturnsEmpty(t *testing.T) {
	req := require.New(t)
	repo := NewSessionRepository(newTestBadger(t), slog.Default())

	session := repo.Load(context.Background(), domain.SessionKey{UserID: 1, ChatID: 2})

	req.Equal(domain.NewSession(), session)
	req.Equal(domain.StateNone, session.Tag())
}

func TestSessionRepository_SaveThenLoad_EveryState(t *testing.T) {
	req := require.New(t)
	repo := NewSessionRepository(newTestBadger(t), slog.Default())
	ctx := context.Background()
	key := domain.SessionKey{UserID: 42, ChatID: 42}

	states := []domain.State{
		domain.Idle{},
		domain.AwaitingLocalName{},
		domain.AwaitingPeerName{LocalID: 7},
		domain.AwaitingNewPeerName{LocalID: 7, PeerID: 9},
	}
	for _, state := range states {
		// Given a session waiting in the state
		session := domain.Session{State: state, CurrentLocalID: 7, MenuMessageID: 100}

		// When it is saved and loaded back
		req.NoError(repo.Save(ctx, key, session))
		loaded := repo.Load(ctx, key)

		// Then it is unchanged
		req.Equal(session, loaded, "state %s", state.Tag())
	}
}

func TestSessionRepository_KeysAreIsolated(t *testing.T) {
	req := require.New(t)
	repo := NewSessionRepository(newTestBadger(t), slog.Default())
	ctx := context.Background()

	alice := domain.SessionKey{UserID: 1, ChatID: 1}
	bob := domain.SessionKey{UserID: 2, ChatID: 1}
	req.NoError(repo.Save(ctx, alice, domain.Session{State: domain.AwaitingLocalName{}}))

	req.Equal(domain.StateAwaitingLocalName, repo.Load(ctx, alice).Tag())
	req.Equal(domain.StateNone, repo.Load(ctx, bob).Tag())
}

func TestSessionRepository_Load_CorruptReturnsEmpty(t *testing.T) {
	req := require.New(t)
	db := newTestBadger(t)
	repo := NewSessionRepository(db, slog.Default())
	key := domain.SessionKey{UserID: 3, ChatID: 4}

	// Given garbage stored under the session key
	req.NoError(db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(SessionPrefix+key.String()), []byte{0x0a, 0x05, 'n', 'o'})
	}))

	// Then loading degrades to an empty session
	req.Equal(domain.NewSession(), repo.Load(context.Background(), key))
}

func TestDecodeSession_InconsistentRecordFallsBackToIdle(t *testing.T) {
	req := require.New(t)

	// Awaiting a peer name without a local to put it in
	session, err := DecodeSession(sessionRecord{State: domain.StateAwaitingPeerName, MenuMessageID: 55}.marshal())
	req.NoError(err)
	req.Equal(domain.StateNone, session.Tag())
	req.Equal(domain.MessageID(55), session.MenuMessageID)

	// Rename without the peer
	session, err = DecodeSession(sessionRecord{State: domain.StateAwaitingNewPeerName, LocalID: 3}.marshal())
	req.NoError(err)
	req.Equal(domain.StateNone, session.Tag())

	// Unknown tag
	session, err = DecodeSession(sessionRecord{State: "awaiting_payment"}.marshal())
	req.NoError(err)
	req.Equal(domain.StateNone, session.Tag())
}

func TestDecodeSession_SkipsUnknownFields(t *testing.T) {
	req := require.New(t)
	record := sessionRecord{State: domain.StateAwaitingPeerName, LocalID: 4, MenuMessageID: 9}.marshal()
	record = protowire.AppendTag(record, 42, protowire.BytesType)
	record = protowire.AppendString(record, "from the future")

	session, err := DecodeSession(record)

	req.NoError(err)
	req.Equal(domain.Session{State: domain.AwaitingPeerName{LocalID: 4}, MenuMessageID: 9}, session)
}

func TestSessionRepository_Delete(t *testing.T) {
	req := require.New(t)
	repo := NewSessionRepository(newTestBadger(t), slog.Default())
	ctx := context.Background()
	key := domain.SessionKey{UserID: 5, ChatID: 5}

	req.NoError(repo.Save(ctx, key, domain.Session{State: domain.AwaitingLocalName{}, MenuMessageID: 8}))
	req.NoError(repo.Delete(ctx, key))

	req.Equal(domain.NewSession(), repo.Load(ctx, key))
}
