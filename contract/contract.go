//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"github.com/abdullayevf/chat-app/domain"
	"github.com/abdullayevf/chat-app/domain/event"
)

// EventSink is an opaque, send-capable reference to a live connection.
// Implementations must be comparable (pointer receivers) because the
// presence registry uses sinks as set members.
type EventSink interface {
	Consume(ctx context.Context, e event.Event) error
}

// IRegistry is the single source of truth for who is online. No other
// component may assert online/offline state.
type IRegistry interface {
	// Register adds a handle and reports the offline to online transition.
	Register(identity domain.Identity, sink EventSink) (wentOnline bool)
	// Unregister removes a handle and reports the online to offline
	// transition. Removing an absent handle is a no-op returning false.
	Unregister(identity domain.Identity, sink EventSink) (wentOffline bool)
	// Snapshot returns a consistent point-in-time list of online ids.
	Snapshot() []string
	// AllSinks returns every live handle, in no particular order.
	AllSinks() []EventSink
}

// CredentialVerifier validates a bearer credential and returns the subject
// id it was issued for.
type CredentialVerifier interface {
	Verify(credential string) (subjectID string, err error)
}

// IdentityResolver turns a verified subject id into a display identity.
type IdentityResolver interface {
	Resolve(subjectID string) (domain.Identity, error)
}

// Worker doesn't protect itself. Supervision, panic recovery and restarts
// are the supervisor's job.
type Worker interface {
	Run(ctx context.Context) error
}

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// Used for logging and supervision, avoiding manual naming in the Worker
// interface.
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
