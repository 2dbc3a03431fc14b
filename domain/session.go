package domain

import "fmt"

// SessionKey identifies one conversation: a user inside a chat.
type SessionKey struct {
	UserID int64
	ChatID int64
}

func (k SessionKey) String() string {
	return fmt.Sprintf("%d:%d", k.UserID, k.ChatID)
}

type StateTag string

const (
	StateNone                StateTag = "none"
	StateAwaitingLocalName   StateTag = "awaiting_local_name"
	StateAwaitingPeerName    StateTag = "awaiting_peer_name"
	StateAwaitingNewPeerName StateTag = "awaiting_new_peer_name"
)

// State is what the conversation is waiting for. Each variant carries only
// the references it needs.
type State interface {
	Tag() StateTag
	isState()
}

type Idle struct{}

type AwaitingLocalName struct{}

type AwaitingPeerName struct {
	LocalID LocalID
}

type AwaitingNewPeerName struct {
	LocalID LocalID
	PeerID  PeerID
}

func (Idle) Tag() StateTag                { return StateNone }
func (AwaitingLocalName) Tag() StateTag   { return StateAwaitingLocalName }
func (AwaitingPeerName) Tag() StateTag    { return StateAwaitingPeerName }
func (AwaitingNewPeerName) Tag() StateTag { return StateAwaitingNewPeerName }

func (Idle) isState()                {}
func (AwaitingLocalName) isState()   {}
func (AwaitingPeerName) isState()    {}
func (AwaitingNewPeerName) isState() {}

type Session struct {
	State          State
	CurrentLocalID LocalID
	// MenuMessageID is the message kept in sync as the menu surface. Zero means none.
	MenuMessageID MessageID
}

func NewSession() Session {
	return Session{State: Idle{}}
}

func (s Session) Tag() StateTag {
	if s.State == nil {
		return StateNone
	}
	return s.State.Tag()
}

// Reset drops back to Idle and forgets pending references. The menu surface is kept.
func (s *Session) Reset() {
	s.State = Idle{}
}

// Restart forgets everything, menu surface included.
func (s *Session) Restart() {
	*s = NewSession()
}
