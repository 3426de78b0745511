// Package tracker implements the outbound request tracker from spec.md
// section 4.H: id generation, the pending-response table, and delivery of
// results (or closed/timeout/buffer-overflow outcomes) to waiting callers.
// The pending-id map keyed by a single-shot delivery channel is the same
// shape as the correlation table in a typical JSON-RPC client (compare
// creachadair-jrpc2's Client.pending map[string]*Response), generalized to
// a slot type that carries richer outcomes than just a response. file:
// internal/tracker/tracker.go
package tracker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dkoosis/rpcpeer/internal/rpcerr"
	"github.com/dkoosis/rpcpeer/internal/rpcmsg"
)

// Outcome classifies how a pending request was resolved.
type Outcome int

const (
	OutcomeResult Outcome = iota
	OutcomePeerError
	OutcomeTimeout
	OutcomeClosed
	OutcomeBufferOverflow
	OutcomeUnknown
)

// Delivery is what a waiter receives from its pending-response slot.
type Delivery struct {
	Outcome Outcome
	Result  any
	Err     *rpcmsg.WireError
}

// IDGenerator returns an id unique for the lifetime of one connection.
type IDGenerator interface {
	NextID() any
}

// processCounter is the default, process-wide monotonic id generator,
// rendering ids as "id-<n>" (spec.md section 4.H default).
type processCounter struct{ n *int64 }

var globalCounter int64

// DefaultIDGenerator returns the process-wide monotonic generator.
func DefaultIDGenerator() IDGenerator {
	return processCounter{n: &globalCounter}
}

func (p processCounter) NextID() any {
	n := atomic.AddInt64(p.n, 1)
	return fmt.Sprintf("id-%d", n)
}

// Tracker owns one connection's pending-response table.
type Tracker struct {
	mu      sync.Mutex
	pending map[string]chan Delivery
	idGen   IDGenerator
	closed  bool
}

// New creates a Tracker. A nil idGen uses DefaultIDGenerator.
func New(idGen IDGenerator) *Tracker {
	if idGen == nil {
		idGen = DefaultIDGenerator()
	}
	return &Tracker{pending: make(map[string]chan Delivery), idGen: idGen}
}

// Register allocates a fresh id and its one-shot delivery slot. Returns
// rpcerr.ErrConnectionClosed if the tracker has already been torn down.
func (t *Tracker) Register() (id any, slot chan Delivery, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, nil, rpcerr.ErrConnectionClosed
	}
	id = t.idGen.NextID()
	ch := make(chan Delivery, 1)
	t.pending[rpcmsg.NormalizeID(id)] = ch
	return id, ch, nil
}

// Deregister removes a pending slot without delivering anything, used after
// a per-request timeout fires and the waiter has already given up.
func (t *Tracker) Deregister(id any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.pending, rpcmsg.NormalizeID(id))
}

// Deliver routes a decoded response to its waiter. Returns false if id is
// not (or no longer) pending, in which case the dispatcher should invoke
// invalid_id_response_handler.
func (t *Tracker) Deliver(id any, d Delivery) bool {
	key := rpcmsg.NormalizeID(id)
	t.mu.Lock()
	ch, ok := t.pending[key]
	if ok {
		delete(t.pending, key)
	}
	t.mu.Unlock()
	if !ok {
		return false
	}
	ch <- d
	return true
}

// CloseAll drains the pending table, delivering a closed outcome to every
// waiter (spec.md section 8, invariant 3). Safe to call once per Tracker.
func (t *Tracker) CloseAll() {
	t.mu.Lock()
	t.closed = true
	remaining := t.pending
	t.pending = make(map[string]chan Delivery)
	t.mu.Unlock()

	for _, ch := range remaining {
		ch <- Delivery{Outcome: OutcomeClosed}
	}
}

// Wait blocks on slot until a Delivery arrives, ctx is cancelled, or timeout
// elapses (timeout <= 0 means unbounded). It translates the Delivery into
// the caller-visible result/error contract from spec.md section 7.
func (t *Tracker) Wait(ctx context.Context, id any, slot chan Delivery, timeout time.Duration) (any, error) {
	var timeoutCh <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	select {
	case d := <-slot:
		return deliveryToResult(d)
	case <-timeoutCh:
		t.Deregister(id)
		return nil, rpcerr.ErrResponseTimeout
	case <-ctx.Done():
		t.Deregister(id)
		return nil, ctx.Err()
	}
}

func deliveryToResult(d Delivery) (any, error) {
	switch d.Outcome {
	case OutcomeResult:
		return d.Result, nil
	case OutcomePeerError:
		we := d.Err
		if we == nil {
			we = &rpcmsg.WireError{Code: rpcerr.CodeInternalError, Message: "peer error with no detail"}
		}
		return nil, &rpcerr.PeerError{Code: we.Code, Message: we.Message, Data: we.Data}
	case OutcomeClosed:
		return nil, rpcerr.ErrConnectionClosed
	case OutcomeBufferOverflow:
		return nil, rpcerr.ErrBufferOverflow
	case OutcomeTimeout:
		return nil, rpcerr.ErrResponseTimeout
	default:
		return nil, rpcerr.ErrUnknownOutcome
	}
}

// Len reports the number of currently pending requests. Exposed for tests
// and diagnostics.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}
