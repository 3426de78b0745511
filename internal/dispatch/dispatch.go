// file: internal/dispatch/dispatch.go
package dispatch

import (
	"context"
	"sync"

	"github.com/dkoosis/rpcpeer/internal/framing"
	"github.com/dkoosis/rpcpeer/internal/logging"
	"github.com/dkoosis/rpcpeer/internal/rpcerr"
	"github.com/dkoosis/rpcpeer/internal/rpcmsg"
	"github.com/dkoosis/rpcpeer/internal/tracker"
)

// ResponseTracker is the subset of tracker.Tracker the dispatcher needs: it
// delivers inbound responses to whoever is waiting on the matching id.
type ResponseTracker interface {
	Deliver(id any, d tracker.Delivery) bool
}

// Dispatcher is the single-consumer loop from spec.md section 4.F. One
// Dispatcher runs per connection.
type Dispatcher struct {
	ProtocolTagKey string
	Handlers       *HandlerTable
	Tracker        ResponseTracker
	Sender         Sender
	Policy         Policy
	Callbacks      Callbacks
	Logger         logging.Logger

	// Schema, when set, validates every decoded message before
	// classification; a failure is treated as a schema-error.
	Schema SchemaValidator

	// OnControl is invoked after a handler-requested response (if any) has
	// been sent, carrying out the requested close-connection / close-server
	// / close-all action. Required.
	OnControl func(ControlOutcome)

	wg sync.WaitGroup
}

// Run consumes items until the channel closes (peer drained) or an
// idle-timeout / irrecoverable parse-error / handler-requested shutdown
// ends the loop first. It returns once no further items will be processed
// and every async handler goroutine it spawned has finished.
func (d *Dispatcher) Run(ctx context.Context, items <-chan framing.DecodedItem) {
	for item := range items {
		if !d.dispatchOne(ctx, item) {
			break
		}
	}
	d.wg.Wait()
}

// Wait blocks until all async handler goroutines spawned by this dispatcher
// have finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) dispatchOne(ctx context.Context, item framing.DecodedItem) (keepGoing bool) {
	switch item.Type {
	case framing.ItemDrained:
		if d.Callbacks.ConnectionClosedHandler != nil {
			d.Callbacks.ConnectionClosedHandler()
		}
		return false

	case framing.ItemIdleTimeout:
		if d.Callbacks.IdleTimeoutHandler != nil {
			d.Callbacks.IdleTimeoutHandler()
		}
		return false

	case framing.ItemParseError:
		d.handleParseError(item.Err)
		return item.Err.Recoverable

	case framing.ItemMessage:
		return d.dispatchMessage(ctx, item.Message)

	default:
		return true
	}
}

func (d *Dispatcher) dispatchMessage(ctx context.Context, msg map[string]any) bool {
	if d.Schema != nil {
		if err := d.Schema.Validate(msg); err != nil {
			if d.Logger != nil {
				d.Logger.Warn("message failed schema validation", "error", err)
			}
			d.handleSchemaError(msg)
			return true
		}
	}
	classified := rpcmsg.Classify(d.ProtocolTagKey, msg)
	switch classified.Kind {
	case rpcmsg.KindRequest:
		d.handleRequest(ctx, classified.Request)
	case rpcmsg.KindNotification:
		d.handleNotification(ctx, classified.Notification)
	case rpcmsg.KindSuccessResponse:
		d.deliverResponse(classified.Response.ID, tracker.Delivery{Outcome: tracker.OutcomeResult, Result: classified.Response.Result})
	case rpcmsg.KindErrorResponse:
		d.deliverResponse(classified.Response.ID, tracker.Delivery{Outcome: tracker.OutcomePeerError, Err: classified.Response.Error})
	case rpcmsg.KindNilIDErrorResponse:
		if d.Callbacks.NilIDErrorHandler != nil {
			d.Callbacks.NilIDErrorHandler(classified.Response.Error.Message, classified.Response.Error.Data)
		}
	case rpcmsg.KindSchemaError:
		d.handleSchemaError(msg)
	}
	return true
}

func (d *Dispatcher) deliverResponse(id any, delivery tracker.Delivery) {
	if !d.Tracker.Deliver(id, delivery) {
		if d.Callbacks.InvalidIDResponseHandler != nil {
			d.Callbacks.InvalidIDResponseHandler(id)
		}
	}
}

func (d *Dispatcher) handleParseError(pe *framing.ParseError) {
	if d.Logger != nil {
		d.Logger.Warn("parse error", "kind", string(pe.Kind), "recoverable", pe.Recoverable)
	}
	err := rpcerr.NewParseError(string(pe.Kind), map[string]interface{}{"kind": string(pe.Kind)})
	wireErr := rpcerr.ToWireError(err)
	msg := rpcmsg.NewErrorResponseMessage(d.ProtocolTagKey, nil, wireErr)
	_ = d.Sender.SendMessage(msg)
}

func (d *Dispatcher) handleSchemaError(msg map[string]any) {
	if d.Logger != nil {
		d.Logger.Warn("schema error", "message", msg)
	}
	method, hasMethod := msg["method"]
	if !hasMethod {
		return
	}
	id := msg["id"]
	err := rpcerr.NewInvalidRequestError("malformed message", map[string]interface{}{"method": method})
	wireErr := rpcerr.ToWireError(err)
	wireErr.Data = msg
	resp := rpcmsg.NewErrorResponseMessage(d.ProtocolTagKey, id, wireErr)
	_ = d.Sender.SendMessage(resp)
}

func (d *Dispatcher) handleRequest(ctx context.Context, req *rpcmsg.Request) {
	run := func() {
		result, wireErr, control := InvokeRequest(ctx, d.Handlers, req.Method, req.Params)

		var resp map[string]any
		if wireErr != nil {
			resp = rpcmsg.NewErrorResponseMessage(req.ProtocolTag, req.ID, wireErr)
		} else if control != nil && control.Response != nil {
			resp = rpcmsg.NewSuccessResponseMessage(req.ProtocolTag, req.ID, control.Response)
		} else {
			resp = rpcmsg.NewSuccessResponseMessage(req.ProtocolTag, req.ID, result)
		}

		if err := d.Sender.SendMessage(resp); err != nil {
			if d.Callbacks.ConnectionClosedHandler != nil {
				d.Callbacks.ConnectionClosedHandler()
			}
			return
		}

		if control != nil && control.Action != ControlNone && d.OnControl != nil {
			d.OnControl(*control)
		}
	}

	if d.Policy.AsyncRequestHandling {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			run()
		}()
	} else {
		run()
	}
}

func (d *Dispatcher) handleNotification(ctx context.Context, n *rpcmsg.Notification) {
	run := func() {
		err, control := InvokeNotification(ctx, d.Handlers, n.Method, n.Params)
		if err != nil && d.Callbacks.NotificationErrorHandler != nil {
			d.Callbacks.NotificationErrorHandler(n.Method, err)
		}
		if control != nil && control.Action != ControlNone && d.OnControl != nil {
			d.OnControl(*control)
		}
	}

	if d.Policy.AsyncNotificationHandling {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			run()
		}()
	} else {
		run()
	}
}
