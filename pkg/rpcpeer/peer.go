// file: pkg/rpcpeer/peer.go
package rpcpeer

import (
	"context"
	"io"
	"net"
	"sync"
	"time"

	"github.com/dkoosis/rpcpeer/internal/dispatch"
	"github.com/dkoosis/rpcpeer/internal/fsmutil"
	"github.com/dkoosis/rpcpeer/internal/framing"
	"github.com/dkoosis/rpcpeer/internal/logging"
	"github.com/dkoosis/rpcpeer/internal/rpcmsg"
	"github.com/dkoosis/rpcpeer/internal/tracker"
	"github.com/google/uuid"
)

const (
	stateOpen     fsmutil.State = "open"
	stateClosing  fsmutil.State = "closing"
	stateClosed   fsmutil.State = "closed"
	eventShutdown fsmutil.Event = "shutdown"
	eventFinished fsmutil.Event = "finished"
)

// Peer is one live connection's Connection Context (spec.md section 3): the
// configuration snapshot, protocol tag, handler tables, id generator,
// pending-response table, lifecycle state, and the framed duplex stream.
type Peer struct {
	stream      io.ReadWriteCloser
	framer      framing.Framer
	encoder     framing.Encoder
	protocolTag string
	opts        Options
	tracker     *tracker.Tracker
	dispatcher  *dispatch.Dispatcher
	lifecycle   fsmutil.FSM
	logger      logging.Logger

	writeMu      sync.Mutex
	items        chan framing.DecodedItem
	closeOnce    sync.Once
	finalizeOnce sync.Once
	done         chan struct{}
}

type deadlineSetter interface {
	SetReadDeadline(time.Time) error
}

// schemaAdapter lets Dispatcher.Schema stay nil-safe when no
// SchemaValidator was configured, without the dispatch package needing to
// know about Options.
type schemaAdapter struct {
	v SchemaValidator
}

func (s schemaAdapter) Validate(msg map[string]any) error {
	if s.v == nil {
		return nil
	}
	return s.v.Validate(msg)
}

func connect(stream io.ReadWriteCloser, framer framing.Framer, encoder framing.Encoder, defaultProtocolTag string, requests map[string]RequestHandler, notifications map[string]NotificationHandler, opts []Option) *Peer {
	o := defaultOptions()
	for _, apply := range opts {
		apply(&o)
	}
	if o.ConnectionID == "" {
		o.ConnectionID = uuid.NewString()
	}
	protocolTag := o.ProtocolKeyword
	if protocolTag == "" {
		protocolTag = defaultProtocolTag
	}

	p := &Peer{
		stream:      stream,
		framer:      framer,
		encoder:     encoder,
		protocolTag: protocolTag,
		opts:        o,
		tracker:     tracker.New(o.IDGenerator),
		logger:      o.Logger.WithField("connection_id", o.ConnectionID),
		items:       make(chan framing.DecodedItem, 64),
		done:        make(chan struct{}),
	}

	p.lifecycle = fsmutil.NewFSM(stateOpen, p.logger)
	p.lifecycle.AddTransition(fsmutil.Transition{From: []fsmutil.State{stateOpen}, To: stateClosing, Event: eventShutdown})
	p.lifecycle.AddTransition(fsmutil.Transition{From: []fsmutil.State{stateClosing}, To: stateClosed, Event: eventFinished})
	_ = p.lifecycle.Build()

	p.dispatcher = &dispatch.Dispatcher{
		ProtocolTagKey: protocolTag,
		Handlers:       buildHandlerTable(requests, notifications),
		Tracker:        p.tracker,
		Sender:         p,
		Policy:         dispatch.Policy{AsyncNotificationHandling: o.AsyncNotificationHandling, AsyncRequestHandling: o.AsyncRequestHandling},
		Logger:         p.logger,
		Schema:         schemaAdapter{o.MessageSchema},
		Callbacks: dispatch.Callbacks{
			ConnectionClosedHandler:  p.onConnectionClosed,
			IdleTimeoutHandler:       p.onIdleTimeout,
			InvalidIDResponseHandler: o.InvalidIDResponseHandler,
			NilIDErrorHandler:        o.NilIDErrorHandler,
			NotificationErrorHandler: o.NotificationErrorHandler,
		},
		OnControl: p.handleControl,
	}

	go p.readLoop()
	go func() {
		p.dispatcher.Run(context.Background(), p.items)
		// The read loop may have exited on an idle timeout, which never
		// produces a drained item (spec.md section 8, invariant 3 still
		// requires every pending waiter to be released), so finalize
		// unconditionally once the dispatch loop itself is done.
		p.finalize()
		close(p.done)
	}()

	return p
}

// ConnectBSONRPC starts a connection that speaks the BSON-framed variant
// over stream (spec.md section 6's connect_bson_rpc).
func ConnectBSONRPC(stream io.ReadWriteCloser, requests map[string]RequestHandler, notifications map[string]NotificationHandler, opts ...Option) *Peer {
	o := defaultOptions()
	for _, apply := range opts {
		apply(&o)
	}
	framer := framing.NewBSONFramer(o.MaxLen)
	return connect(stream, framer, framing.BSONEncoder{}, "bsonrpc", requests, notifications, opts)
}

// ConnectJSONRPC starts a connection that speaks JSON-RPC 2.0 over stream,
// using either frameless or RFC-7464 framing per opts (spec.md section 6's
// connect_json_rpc).
func ConnectJSONRPC(stream io.ReadWriteCloser, requests map[string]RequestHandler, notifications map[string]NotificationHandler, opts ...Option) *Peer {
	o := defaultOptions()
	for _, apply := range opts {
		apply(&o)
	}
	var framer framing.Framer
	var encoder framing.Encoder
	if o.JSONFraming == FramingRFC7464 {
		framer = framing.NewJSONRFC7464Framer(o.MaxLen, o.JSONKeyFn)
		encoder = framing.JSONRFC7464Encoder{}
	} else {
		framer = framing.NewJSONFramelessFramer(o.JSONKeyFn)
		encoder = framing.JSONFramelessEncoder{}
	}
	return connect(stream, framer, encoder, "jsonrpc", requests, notifications, opts)
}

func (p *Peer) readLoop() {
	buf := make([]byte, 4096)
	for {
		if p.opts.IdleTimeout > 0 {
			if ds, ok := p.stream.(deadlineSetter); ok {
				_ = ds.SetReadDeadline(time.Now().Add(p.opts.IdleTimeout))
			}
		}

		n, err := p.stream.Read(buf)
		if n > 0 {
			for _, item := range p.framer.Feed(buf[:n]) {
				p.items <- item
			}
		}
		if err != nil {
			if isTimeout(err) {
				p.items <- framing.IdleTimeoutItem
			} else {
				for _, item := range p.framer.Drain() {
					p.items <- item
				}
			}
			close(p.items)
			return
		}
	}
}

func isTimeout(err error) bool {
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}

// SendMessage implements dispatch.Sender.
func (p *Peer) SendMessage(msg map[string]any) error {
	raw, err := p.encoder.Encode(msg)
	if err != nil {
		return err
	}
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	_, err = p.stream.Write(raw)
	return err
}

func (p *Peer) onConnectionClosed() {
	if p.opts.ConnectionClosedHandler != nil {
		p.opts.ConnectionClosedHandler()
		return
	}
	p.finalize()
}

func (p *Peer) onIdleTimeout() {
	if p.opts.IdleTimeoutHandler != nil {
		p.opts.IdleTimeoutHandler()
		return
	}
	p.Close()
}

func (p *Peer) handleControl(outcome dispatch.ControlOutcome) {
	switch outcome.Action {
	case dispatch.ControlCloseConnection:
		p.Close()
	case dispatch.ControlCloseServer:
		p.closeServer()
	case dispatch.ControlCloseAll:
		p.Close()
		p.closeServer()
	}
}

func (p *Peer) closeServer() {
	if p.opts.Server != nil {
		_ = p.opts.Server.Close()
	}
}

// Close tears down the connection: closes the stream and drains the
// pending-response table with a closed outcome (spec.md section 8,
// invariant 3). Safe to call more than once.
func (p *Peer) Close() error {
	p.closeOnce.Do(func() {
		_ = p.stream.Close()
	})
	return nil
}

// finalize drains the pending-response table and retires the lifecycle FSM.
// Idempotent: it runs at most once per connection, since it is reachable both
// from onConnectionClosed's default path and unconditionally once the
// dispatch loop exits (see connect's Run goroutine).
func (p *Peer) finalize() {
	p.finalizeOnce.Do(func() {
		p.tracker.CloseAll()
		_ = p.lifecycle.Transition(context.Background(), eventShutdown, nil)
		_ = p.lifecycle.Transition(context.Background(), eventFinished, nil)
	})
}

// Done returns a channel closed once the dispatcher loop has fully exited.
func (p *Peer) Done() <-chan struct{} {
	return p.done
}

// ConnectionID returns the connection's id, user-supplied or generated.
func (p *Peer) ConnectionID() string {
	return p.opts.ConnectionID
}

func (p *Peer) doRequest(ctx context.Context, timeout time.Duration, method string, params []any) (any, error) {
	id, slot, err := p.tracker.Register()
	if err != nil {
		return nil, err
	}
	msg := rpcmsg.NewRequestMessage(p.protocolTag, id, method, params)
	if err := p.SendMessage(msg); err != nil {
		p.tracker.Deregister(id)
		return nil, err
	}
	return p.tracker.Wait(ctx, id, slot, timeout)
}

// Request sends a request and blocks for the correlated response.
func (p *Peer) Request(ctx context.Context, method string, params ...any) (any, error) {
	return p.doRequest(ctx, 0, method, params)
}

// RequestWithTimeout is Request with a caller-provided timeout.
func (p *Peer) RequestWithTimeout(ctx context.Context, timeout time.Duration, method string, params ...any) (any, error) {
	return p.doRequest(ctx, timeout, method, params)
}

// AsyncResult is the outcome delivered on an AsyncRequest's channel.
type AsyncResult struct {
	Value any
	Err   error
}

// AsyncRequest sends a request and returns immediately with a channel that
// receives the eventual outcome.
func (p *Peer) AsyncRequest(ctx context.Context, method string, params ...any) <-chan AsyncResult {
	out := make(chan AsyncResult, 1)
	go func() {
		v, err := p.doRequest(ctx, 0, method, params)
		out <- AsyncResult{Value: v, Err: err}
	}()
	return out
}

// Notify sends a fire-and-forget notification, returning whether the put
// onto the wire succeeded.
func (p *Peer) Notify(method string, params ...any) bool {
	msg := rpcmsg.NewNotificationMessage(p.protocolTag, method, params)
	return p.SendMessage(msg) == nil
}
