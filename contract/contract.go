//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"locals-bot/domain"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// Transport is the outbound side of the chat platform.
type Transport interface {
	Send(ctx context.Context, chatID int64, text string, keyboard domain.Keyboard) (domain.MessageID, error)
	Edit(ctx context.Context, chatID int64, messageID domain.MessageID, text string, keyboard domain.Keyboard) error
	// Ack answers a button press. A non-empty alert is shown to the user as a popup.
	Ack(ctx context.Context, callbackID string, alert string) error
	DeleteMessage(ctx context.Context, chatID int64, messageID domain.MessageID) error
}

// EventHandler processes one inbound event to completion.
type EventHandler interface {
	Handle(ctx context.Context, event domain.Event)
}

// Dispatcher accepts events from an ingress (poller, webhook) for processing.
type Dispatcher interface {
	Dispatch(ctx context.Context, event domain.Event) error
}
