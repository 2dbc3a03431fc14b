package domain

import "fmt"

type MessageID int64

// Button is an inline keyboard button. Data is routed back to us on press and
// must stay under 64 bytes.
type Button struct {
	Text string
	Data string
}

type Keyboard [][]Button

func Row(buttons ...Button) []Button {
	return buttons
}

type EventKind int

const (
	EventCommand EventKind = iota
	EventCallback
	EventText
)

func (k EventKind) String() string {
	switch k {
	case EventCommand:
		return "command"
	case EventCallback:
		return "callback"
	case EventText:
		return "text"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is one inbound interaction. Payload holds the command name (without
// the slash), the callback data or the text, depending on Kind.
type Event struct {
	Kind       EventKind
	UserID     int64
	ChatID     int64
	From       Profile
	Payload    string
	MessageID  MessageID
	CallbackID string
}

func (e Event) Key() SessionKey {
	return SessionKey{UserID: e.UserID, ChatID: e.ChatID}
}
