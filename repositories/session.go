package repositories

import (
	"context"
	stderrors "errors"
	"fmt"
	"locals-bot/domain"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
	"google.golang.org/protobuf/encoding/protowire"
)

const SessionPrefix = "session:"

type ISessionRepository interface {
	// Load never fails: a missing or unreadable session comes back empty.
	Load(ctx context.Context, key domain.SessionKey) domain.Session
	Save(ctx context.Context, key domain.SessionKey, session domain.Session) error
	Delete(ctx context.Context, key domain.SessionKey) error
}

type SessionRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewSessionRepository(db *badger.DB, log *slog.Logger) *SessionRepository {
	return &SessionRepository{db: db, log: log}
}

// sessionRecord is the persisted shape of a session, stored in protobuf wire
// format. It is flat: fromSessionRecord is the only place where the tag and
// the references are checked against each other.
type sessionRecord struct {
	State          domain.StateTag
	LocalID        int64
	PeerID         int64
	CurrentLocalID int64
	MenuMessageID  int64
}

const (
	fieldState          protowire.Number = 1
	fieldLocalID        protowire.Number = 2
	fieldPeerID         protowire.Number = 3
	fieldCurrentLocalID protowire.Number = 4
	fieldMenuMessageID  protowire.Number = 5
)

func (r sessionRecord) marshal() []byte {
	var b []byte
	if r.State != "" {
		b = protowire.AppendTag(b, fieldState, protowire.BytesType)
		b = protowire.AppendString(b, string(r.State))
	}
	ids := []struct {
		num protowire.Number
		val int64
	}{
		{fieldLocalID, r.LocalID},
		{fieldPeerID, r.PeerID},
		{fieldCurrentLocalID, r.CurrentLocalID},
		{fieldMenuMessageID, r.MenuMessageID},
	}
	for _, id := range ids {
		if id.val == 0 {
			continue
		}
		b = protowire.AppendTag(b, id.num, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(id.val))
	}
	return b
}

// unmarshalSessionRecord skips unknown fields so that records written by a
// newer version still load.
func unmarshalSessionRecord(b []byte) (sessionRecord, error) {
	var r sessionRecord
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return sessionRecord{}, protowire.ParseError(n)
		}
		b = b[n:]

		switch {
		case num == fieldState && typ == protowire.BytesType:
			state, n := protowire.ConsumeString(b)
			if n < 0 {
				return sessionRecord{}, protowire.ParseError(n)
			}
			r.State = domain.StateTag(state)
			b = b[n:]
		case num >= fieldLocalID && num <= fieldMenuMessageID && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return sessionRecord{}, protowire.ParseError(n)
			}
			switch num {
			case fieldLocalID:
				r.LocalID = int64(v)
			case fieldPeerID:
				r.PeerID = int64(v)
			case fieldCurrentLocalID:
				r.CurrentLocalID = int64(v)
			case fieldMenuMessageID:
				r.MenuMessageID = int64(v)
			}
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return sessionRecord{}, protowire.ParseError(n)
			}
			b = b[n:]
		}
	}
	return r, nil
}

func sessionKey(key domain.SessionKey) []byte {
	return []byte(SessionPrefix + key.String())
}

func (s SessionRepository) Load(_ context.Context, key domain.SessionKey) domain.Session {
	var session domain.Session
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(sessionKey(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			decoded, err := DecodeSession(val)
			if err != nil {
				return err
			}
			session = decoded
			return nil
		})
	})

	switch {
	case err == nil:
		return session
	case stderrors.Is(err, badger.ErrKeyNotFound):
		return domain.NewSession()
	default:
		s.log.Warn("Session unreadable, starting from an empty one", "key", key.String(), "error", err)
		return domain.NewSession()
	}
}

// Save upserts the session under its key.
func (s SessionRepository) Save(_ context.Context, key domain.SessionKey, session domain.Session) error {
	data := toSessionRecord(session).marshal()
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(sessionKey(key), data)
	})
}

func (s SessionRepository) Delete(_ context.Context, key domain.SessionKey) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(sessionKey(key))
	})
}

// DecodeSession parses a stored session. Inconsistent records decode to Idle.
func DecodeSession(val []byte) (domain.Session, error) {
	record, err := unmarshalSessionRecord(val)
	if err != nil {
		return domain.Session{}, fmt.Errorf("unmarshal session: %w", err)
	}
	return fromSessionRecord(record), nil
}

func toSessionRecord(session domain.Session) sessionRecord {
	record := sessionRecord{
		State:          session.Tag(),
		CurrentLocalID: int64(session.CurrentLocalID),
		MenuMessageID:  int64(session.MenuMessageID),
	}
	switch state := session.State.(type) {
	case domain.AwaitingPeerName:
		record.LocalID = int64(state.LocalID)
	case domain.AwaitingNewPeerName:
		record.LocalID = int64(state.LocalID)
		record.PeerID = int64(state.PeerID)
	}
	return record
}

func fromSessionRecord(record sessionRecord) domain.Session {
	session := domain.Session{
		State:          domain.Idle{},
		CurrentLocalID: domain.LocalID(record.CurrentLocalID),
		MenuMessageID:  domain.MessageID(record.MenuMessageID),
	}
	switch record.State {
	case domain.StateAwaitingLocalName:
		session.State = domain.AwaitingLocalName{}
	case domain.StateAwaitingPeerName:
		if record.LocalID > 0 {
			session.State = domain.AwaitingPeerName{LocalID: domain.LocalID(record.LocalID)}
		}
	case domain.StateAwaitingNewPeerName:
		if record.LocalID > 0 && record.PeerID > 0 {
			session.State = domain.AwaitingNewPeerName{
				LocalID: domain.LocalID(record.LocalID),
				PeerID:  domain.PeerID(record.PeerID),
			}
		}
	}
	return session
}
