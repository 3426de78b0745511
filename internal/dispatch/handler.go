// file: internal/dispatch/handler.go
package dispatch

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/dkoosis/rpcpeer/internal/rpcerr"
	"github.com/dkoosis/rpcpeer/internal/rpcmsg"
)

// InvokeRequest implements spec.md section 4.G's request-handling branch: an
// absent handler becomes method-not-found, a handler error tagged with
// CodeInvalidParams becomes invalid-params, any other handler error or
// panic becomes server-error, and a clean return becomes a success result.
func InvokeRequest(ctx context.Context, handlers *HandlerTable, method string, params []any) (result any, wireErr *rpcmsg.WireError, control *ControlOutcome) {
	fn, ok := handlers.Requests[method]
	if !ok {
		return nil, rpcerr.ToWireError(rpcerr.NewMethodNotFoundError(method, nil)), nil
	}

	result, control, err := invokeRequestSafely(ctx, fn, params)
	if err != nil {
		return nil, toHandlerWireError(err), control
	}
	return result, nil, control
}

func invokeRequestSafely(ctx context.Context, fn RequestHandlerFunc, params []any) (result any, control *ControlOutcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = rpcerr.NewInternalError(fmt.Errorf("panic: %v", r), nil)
		}
	}()
	return fn(ctx, params)
}

// InvokeNotification implements spec.md section 4.G's notification branch:
// an absent handler or any handler error (other than a control outcome) is
// reported to the caller for routing to notification_error_handler; no wire
// response is ever sent for a notification.
func InvokeNotification(ctx context.Context, handlers *HandlerTable, method string, params []any) (err error, control *ControlOutcome) {
	fn, ok := handlers.Notifications[method]
	if !ok {
		return rpcerr.NewMethodNotFoundError(method, nil), nil
	}
	return invokeNotificationSafely(ctx, fn, params)
}

func invokeNotificationSafely(ctx context.Context, fn NotificationHandlerFunc, params []any) (err error, control *ControlOutcome) {
	defer func() {
		if r := recover(); r != nil {
			err = rpcerr.NewInternalError(fmt.Errorf("panic: %v", r), nil)
		}
	}()
	control, err = fn(ctx, params)
	return err, control
}

func toHandlerWireError(err error) *rpcmsg.WireError {
	if rpcerr.GetErrorCategory(err) == rpcerr.CategoryRPC && rpcerr.GetErrorCode(err) == rpcerr.CodeInvalidParams {
		return rpcerr.ToWireError(err)
	}
	if rpcerr.GetErrorCategory(err) == rpcerr.CategoryRPC && rpcerr.GetErrorCode(err) == rpcerr.CodeMethodNotFound {
		return rpcerr.ToWireError(err)
	}
	wrapped := err
	if rpcerr.GetErrorCategory(err) == "" {
		wrapped = rpcerr.ErrorWithDetails(errors.Wrap(err, "handler failed"), rpcerr.CategoryHandler, rpcerr.CodeServerError, map[string]interface{}{"detail": err.Error()})
	}
	return rpcerr.ToWireError(wrapped)
}
