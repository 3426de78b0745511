package dispatch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dkoosis/rpcpeer/internal/framing"
	"github.com/dkoosis/rpcpeer/internal/rpcerr"
	"github.com/dkoosis/rpcpeer/internal/tracker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSender records every outbound message for assertions, mirroring the
// teacher's MockJSONRPCConn recorder-plus-signal-channel shape.
type fakeSender struct {
	mu   sync.Mutex
	sent []map[string]any
	notify chan struct{}
}

func newFakeSender() *fakeSender {
	return &fakeSender{notify: make(chan struct{}, 16)}
}

func (f *fakeSender) SendMessage(msg map[string]any) error {
	f.mu.Lock()
	f.sent = append(f.sent, msg)
	f.mu.Unlock()
	select {
	case f.notify <- struct{}{}:
	default:
	}
	return nil
}

func (f *fakeSender) waitForOne(t *testing.T) map[string]any {
	t.Helper()
	select {
	case <-f.notify:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for sent message")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent[len(f.sent)-1]
}

func newTestDispatcher(sender Sender, tr ResponseTracker, handlers *HandlerTable) *Dispatcher {
	return &Dispatcher{
		ProtocolTagKey: "jsonrpc",
		Handlers:       handlers,
		Tracker:        tr,
		Sender:         sender,
		Policy:         Policy{AsyncNotificationHandling: false, AsyncRequestHandling: false},
		OnControl:      func(ControlOutcome) {},
	}
}

func TestDispatchRequestSuccess(t *testing.T) {
	handlers := &HandlerTable{Requests: map[string]RequestHandlerFunc{
		"echo": func(ctx context.Context, params []any) (any, *ControlOutcome, error) {
			return params[0], nil, nil
		},
	}}
	sender := newFakeSender()
	d := newTestDispatcher(sender, tracker.New(nil), handlers)

	d.dispatchMessage(context.Background(), map[string]any{"jsonrpc": "2.0", "method": "echo", "id": "1", "params": []any{"hi"}})

	msg := sender.waitForOne(t)
	assert.Equal(t, "hi", msg["result"])
	assert.Equal(t, "1", msg["id"])
}

func TestDispatchMethodNotFound(t *testing.T) {
	handlers := &HandlerTable{Requests: map[string]RequestHandlerFunc{}}
	sender := newFakeSender()
	d := newTestDispatcher(sender, tracker.New(nil), handlers)

	d.dispatchMessage(context.Background(), map[string]any{"jsonrpc": "2.0", "method": "nope", "id": "1"})

	msg := sender.waitForOne(t)
	errObj := msg["error"].(map[string]any)
	assert.Equal(t, rpcerr.CodeMethodNotFound, errObj["code"])
}

func TestDispatchHandlerErrorBecomesServerError(t *testing.T) {
	handlers := &HandlerTable{Requests: map[string]RequestHandlerFunc{
		"boom": func(ctx context.Context, params []any) (any, *ControlOutcome, error) {
			return nil, nil, rpcerr.New("kaboom")
		},
	}}
	sender := newFakeSender()
	d := newTestDispatcher(sender, tracker.New(nil), handlers)

	d.dispatchMessage(context.Background(), map[string]any{"jsonrpc": "2.0", "method": "boom", "id": "1"})

	msg := sender.waitForOne(t)
	errObj := msg["error"].(map[string]any)
	assert.Equal(t, rpcerr.CodeServerError, errObj["code"])
}

func TestDispatchNotificationNoResponse(t *testing.T) {
	received := make(chan []any, 1)
	handlers := &HandlerTable{Notifications: map[string]NotificationHandlerFunc{
		"note": func(ctx context.Context, params []any) (*ControlOutcome, error) {
			received <- params
			return nil, nil
		},
	}}
	sender := newFakeSender()
	d := newTestDispatcher(sender, tracker.New(nil), handlers)

	d.dispatchMessage(context.Background(), map[string]any{"jsonrpc": "2.0", "method": "note", "params": []any{"x"}})

	select {
	case params := <-received:
		assert.Equal(t, []any{"x"}, params)
	case <-time.After(time.Second):
		t.Fatal("notification handler never ran")
	}
	assert.Empty(t, sender.sent)
}

func TestDispatchSuccessResponseDeliveredToWaiter(t *testing.T) {
	tr := tracker.New(nil)
	id, slot, err := tr.Register()
	require.NoError(t, err)

	d := newTestDispatcher(newFakeSender(), tr, &HandlerTable{})
	d.dispatchMessage(context.Background(), map[string]any{"jsonrpc": "2.0", "id": id, "result": 42})

	select {
	case delivery := <-slot:
		assert.Equal(t, tracker.OutcomeResult, delivery.Outcome)
		assert.Equal(t, 42, delivery.Result)
	case <-time.After(time.Second):
		t.Fatal("response was never delivered")
	}
}

func TestDispatchSchemaErrorWithMethodRespondsInvalidRequest(t *testing.T) {
	sender := newFakeSender()
	d := newTestDispatcher(sender, tracker.New(nil), &HandlerTable{})

	// wrong protocol version with a method field looks like a malformed request.
	d.dispatchMessage(context.Background(), map[string]any{"jsonrpc": "1.0", "method": "echo", "id": "1"})

	msg := sender.waitForOne(t)
	errObj := msg["error"].(map[string]any)
	assert.Equal(t, rpcerr.CodeInvalidRequest, errObj["code"])
}

func TestDispatchSchemaErrorWithoutMethodIsSilent(t *testing.T) {
	sender := newFakeSender()
	d := newTestDispatcher(sender, tracker.New(nil), &HandlerTable{})

	d.dispatchMessage(context.Background(), map[string]any{"jsonrpc": "1.0"})

	assert.Empty(t, sender.sent)
}

func TestDispatchControlOutcomeFiresAfterResponseSent(t *testing.T) {
	var controlSeen ControlOutcome
	controlCh := make(chan struct{})
	handlers := &HandlerTable{Requests: map[string]RequestHandlerFunc{
		"exit": func(ctx context.Context, params []any) (any, *ControlOutcome, error) {
			return nil, &ControlOutcome{Action: ControlCloseConnection, Response: "ack!"}, nil
		},
	}}
	sender := newFakeSender()
	d := &Dispatcher{
		ProtocolTagKey: "jsonrpc",
		Handlers:       handlers,
		Tracker:        tracker.New(nil),
		Sender:         sender,
		OnControl: func(c ControlOutcome) {
			controlSeen = c
			close(controlCh)
		},
	}

	d.dispatchMessage(context.Background(), map[string]any{"jsonrpc": "2.0", "method": "exit", "id": "1"})

	msg := sender.waitForOne(t)
	assert.Equal(t, "ack!", msg["result"])

	select {
	case <-controlCh:
		assert.Equal(t, ControlCloseConnection, controlSeen.Action)
	case <-time.After(time.Second):
		t.Fatal("control outcome was never invoked")
	}
}

func TestRunExitsOnDrainedSentinel(t *testing.T) {
	sender := newFakeSender()
	closed := make(chan struct{})
	d := &Dispatcher{
		ProtocolTagKey: "jsonrpc",
		Handlers:       &HandlerTable{},
		Tracker:        tracker.New(nil),
		Sender:         sender,
		Callbacks:      Callbacks{ConnectionClosedHandler: func() { close(closed) }},
		OnControl:      func(ControlOutcome) {},
	}

	items := make(chan framing.DecodedItem, 1)
	items <- framing.DecodedItem{Type: framing.ItemDrained}
	close(items)

	done := make(chan struct{})
	go func() {
		d.Run(context.Background(), items)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run never returned")
	}
	select {
	case <-closed:
	default:
		t.Fatal("ConnectionClosedHandler was not invoked")
	}
}
