// file: pkg/rpcpeer/handler.go
package rpcpeer

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/dkoosis/rpcpeer/internal/dispatch"
	"github.com/dkoosis/rpcpeer/internal/rpcerr"
)

// RequestHandler handles one inbound request's positional params and
// returns a result, or an error (return a *ControlError from CloseConnection
// / CloseServer / CloseConnectionAndServer to request a post-response
// shutdown action).
type RequestHandler func(ctx context.Context, params []any) (any, error)

// NotificationHandler handles one inbound notification's positional params.
type NotificationHandler func(ctx context.Context, params []any) error

// ControlError is how a handler requests a post-response shutdown action
// (spec.md section 9's "control exceptions"), built via CloseConnection,
// CloseServer, or CloseConnectionAndServer.
type ControlError struct {
	Action   dispatch.ControlAction
	Response any
}

func (e *ControlError) Error() string {
	return fmt.Sprintf("rpcpeer: handler requested control action %d", e.Action)
}

// CloseConnection requests that the connection close after the current
// response (if any) is delivered. response, if non-nil, becomes the
// request's result.
func CloseConnection(response any) error {
	return &ControlError{Action: dispatch.ControlCloseConnection, Response: response}
}

// CloseServer requests that the server's listener (the Closer passed via
// WithServer) close after the current response is delivered.
func CloseServer(response any) error {
	return &ControlError{Action: dispatch.ControlCloseServer, Response: response}
}

// CloseConnectionAndServer requests both shutdown actions.
func CloseConnectionAndServer(response any) error {
	return &ControlError{Action: dispatch.ControlCloseAll, Response: response}
}

// InvalidParams builds the standard invalid-params error (code -32602) for
// a handler to return on arity mismatches or malformed params; detail ends
// up in the wire error's data alongside any extra diagnostic in data.
func InvalidParams(detail string, data any) error {
	properties := map[string]interface{}{"detail": detail}
	if data != nil {
		properties["data"] = data
	}
	return rpcerr.NewInvalidParamsError(detail, properties)
}

func adaptRequestHandler(fn RequestHandler) dispatch.RequestHandlerFunc {
	return func(ctx context.Context, params []any) (any, *dispatch.ControlOutcome, error) {
		result, err := fn(ctx, params)
		if err == nil {
			return result, nil, nil
		}
		var ce *ControlError
		if errors.As(err, &ce) {
			return nil, &dispatch.ControlOutcome{Action: ce.Action, Response: ce.Response}, nil
		}
		return nil, nil, err
	}
}

func adaptNotificationHandler(fn NotificationHandler) dispatch.NotificationHandlerFunc {
	return func(ctx context.Context, params []any) (*dispatch.ControlOutcome, error) {
		err := fn(ctx, params)
		if err == nil {
			return nil, nil
		}
		var ce *ControlError
		if errors.As(err, &ce) {
			return &dispatch.ControlOutcome{Action: ce.Action, Response: ce.Response}, nil
		}
		return nil, err
	}
}

func buildHandlerTable(requests map[string]RequestHandler, notifications map[string]NotificationHandler) *dispatch.HandlerTable {
	table := &dispatch.HandlerTable{
		Requests:      make(map[string]dispatch.RequestHandlerFunc, len(requests)),
		Notifications: make(map[string]dispatch.NotificationHandlerFunc, len(notifications)),
	}
	for method, fn := range requests {
		table.Requests[method] = adaptRequestHandler(fn)
	}
	for method, fn := range notifications {
		table.Notifications[method] = adaptNotificationHandler(fn)
	}
	return table
}
