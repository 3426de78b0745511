// Package dispatch implements the inbound dispatcher (spec.md section 4.F)
// and handler invocation (section 4.G): a single consumer loop over
// classified messages that routes to user handlers or delivers correlated
// responses, honoring the sync/async handler policy and idle-timeout /
// peer-close / handler-initiated-shutdown lifecycle events.
// file: internal/dispatch/types.go
package dispatch

import "context"

// ControlAction is a handler-signaled post-response shutdown request
// (spec.md section 4.G / 9: "control exceptions").
type ControlAction int

const (
	ControlNone ControlAction = iota
	ControlCloseConnection
	ControlCloseServer
	ControlCloseAll
)

// ControlOutcome is returned by a handler instead of (or alongside) a normal
// result to request a post-response shutdown action.
type ControlOutcome struct {
	Action   ControlAction
	Response any
}

// RequestHandlerFunc handles one inbound request's params and returns a
// result, or signals a control action, or returns an error (arity mismatches
// should be reported as an error from rpcerr.NewInvalidParamsError; any
// other error becomes a server-error response).
type RequestHandlerFunc func(ctx context.Context, params []any) (result any, control *ControlOutcome, err error)

// NotificationHandlerFunc handles one inbound notification's params.
type NotificationHandlerFunc func(ctx context.Context, params []any) (control *ControlOutcome, err error)

// HandlerTable is the method-name lookup used for inbound requests and
// notifications. A connection's table is built once at setup time (the
// factory, ctx -> map, form from spec.md section 4.G is implemented by
// having the caller build the table after constructing the context it
// needs to close over).
type HandlerTable struct {
	Requests      map[string]RequestHandlerFunc
	Notifications map[string]NotificationHandlerFunc
}

// Policy is the sync/async handler policy from spec.md section 4.F.
type Policy struct {
	AsyncNotificationHandling bool
	AsyncRequestHandling      bool
}

// DefaultPolicy matches spec.md section 4.F's documented defaults.
func DefaultPolicy() Policy {
	return Policy{AsyncNotificationHandling: false, AsyncRequestHandling: true}
}

// Sender puts one outbound message on the wire.
type Sender interface {
	SendMessage(msg map[string]any) error
}

// SchemaValidator is the opt-in stricter message-schema check run on every
// decoded message before classification (spec.md section 9's params-leniency
// open question). A nil Dispatcher.Schema skips this step entirely.
type SchemaValidator interface {
	Validate(msg map[string]any) error
}

// Callbacks are the user-overridable hooks from spec.md section 6's option
// list. The dispatcher skips the call for any nil field and takes no other
// action for that event.
type Callbacks struct {
	ConnectionClosedHandler  func()
	IdleTimeoutHandler       func()
	InvalidIDResponseHandler func(id any)
	NilIDErrorHandler        func(message, data any)
	NotificationErrorHandler func(method string, err error)
}
