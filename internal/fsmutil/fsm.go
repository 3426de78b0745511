// Package fsmutil wraps looplab/fsm behind a small state/event/transition
// builder so callers never touch the underlying library's string-typed API
// directly. file: internal/fsmutil/fsm.go
package fsmutil

import (
	"context"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/dkoosis/rpcpeer/internal/logging"
	lfsm "github.com/looplab/fsm"
)

// State is one node of the machine.
type State string

// Event triggers a transition between states.
type Event string

// TransitionAction runs after a transition into its destination state completes.
type TransitionAction func(ctx context.Context, event Event, data interface{}) error

// GuardCondition runs before a transition; returning false cancels it.
type GuardCondition func(ctx context.Context, event Event, data interface{}) bool

// Transition defines one edge: one or more source states, an event, and a
// destination state, with optional guard and action.
type Transition struct {
	From      []State
	To        State
	Event     Event
	Action    TransitionAction
	Condition GuardCondition
}

// FSM is the builder/runtime interface. Call AddTransition for every edge,
// then Build once before CurrentState/CanTransition/Transition/SetState/Reset.
type FSM interface {
	AddTransition(transition Transition) FSM
	Build() error
	CurrentState() State
	CanTransition(event Event) bool
	Transition(ctx context.Context, event Event, data interface{}) error
	SetState(state State) error
	Reset() error
}

type loopFSM struct {
	initialState State
	logger       logging.Logger
	transitions  []Transition
	fsm          *lfsm.FSM
	buildErr     error
	mu           sync.RWMutex
	callbackMap  lfsm.Callbacks
	eventDescMap map[string]lfsm.EventDesc
}

// NewFSM creates a builder with the given initial state. Call AddTransition
// for each edge, then Build.
func NewFSM(initialState State, logger logging.Logger) FSM {
	if logger == nil {
		logger = logging.GetNoopLogger()
	}
	return &loopFSM{
		initialState: initialState,
		logger:       logger.WithField("component", "fsm"),
		transitions:  make([]Transition, 0),
	}
}

func (l *loopFSM) AddTransition(t Transition) FSM {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fsm != nil {
		l.logger.Error("cannot AddTransition after Build")
		if l.buildErr == nil {
			l.buildErr = errors.New("cannot AddTransition after Build")
		}
		return l
	}
	if len(t.From) == 0 {
		l.logger.Error("transition definition missing From states")
		if l.buildErr == nil {
			l.buildErr = errors.New("transition definition missing From states")
		}
		return l
	}
	l.transitions = append(l.transitions, t)
	return l
}

func (l *loopFSM) Build() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.fsm != nil {
		return l.buildErr
	}
	if l.buildErr != nil {
		return l.buildErr
	}

	l.callbackMap = make(lfsm.Callbacks)
	l.eventDescMap = make(map[string]lfsm.EventDesc)
	processedEvents := make(map[Event]struct{})

	for i, t := range l.transitions {
		eventName := string(t.Event)
		toStateStr := string(t.To)
		fromStatesStr := make([]string, len(t.From))
		for j, s := range t.From {
			fromStatesStr[j] = string(s)
		}

		desc, exists := l.eventDescMap[eventName]
		if !exists {
			desc = lfsm.EventDesc{Name: eventName, Dst: toStateStr}
		} else if desc.Dst != toStateStr {
			err := errors.Newf("conflicting destinations (%q and %q) for event %q", desc.Dst, toStateStr, eventName)
			l.buildErr = err
			return l.buildErr
		}
		desc.Src = append(desc.Src, fromStatesStr...)
		l.eventDescMap[eventName] = desc

		if _, already := processedEvents[t.Event]; !already {
			if t.Condition != nil {
				l.callbackMap["before_"+eventName] = l.createGuardCallback(t)
			}
			if t.Action != nil {
				enterName := "enter_" + toStateStr
				l.callbackMap[enterName] = l.createActionCallback(i, l.callbackMap[enterName])
			}
			processedEvents[t.Event] = struct{}{}
		} else if t.Action != nil {
			enterName := "enter_" + toStateStr
			l.callbackMap[enterName] = l.createActionCallback(i, l.callbackMap[enterName])
		}
	}

	finalEvents := make([]lfsm.EventDesc, 0, len(l.eventDescMap))
	for _, desc := range l.eventDescMap {
		seen := make(map[string]struct{})
		deduped := make([]string, 0, len(desc.Src))
		for _, s := range desc.Src {
			if _, ok := seen[s]; !ok {
				seen[s] = struct{}{}
				deduped = append(deduped, s)
			}
		}
		desc.Src = deduped
		finalEvents = append(finalEvents, desc)
	}

	l.fsm = lfsm.NewFSM(string(l.initialState), finalEvents, l.callbackMap)
	return nil
}

func (l *loopFSM) createGuardCallback(t Transition) lfsm.Callback {
	return func(ctx context.Context, e *lfsm.Event) {
		relevant := false
		for _, src := range t.From {
			if e.Src == string(src) {
				relevant = true
				break
			}
		}
		if !relevant {
			return
		}
		var data interface{}
		if len(e.Args) > 0 {
			data = e.Args[0]
		}
		if !t.Condition(ctx, t.Event, data) {
			e.Cancel(errors.Newf("guard condition for event %q from state %q failed", t.Event, e.Src))
		}
	}
}

func (l *loopFSM) createActionCallback(transitionIndex int, next lfsm.Callback) lfsm.Callback {
	return func(ctx context.Context, e *lfsm.Event) {
		l.mu.RLock()
		var matched *Transition
		if transitionIndex < len(l.transitions) {
			t := l.transitions[transitionIndex]
			if string(t.Event) == e.Event {
				for _, src := range t.From {
					if string(src) == e.Src {
						matched = &l.transitions[transitionIndex]
						break
					}
				}
			}
		}
		l.mu.RUnlock()

		if matched != nil && matched.Action != nil {
			var data interface{}
			if len(e.Args) > 0 {
				data = e.Args[0]
			}
			if err := matched.Action(ctx, matched.Event, data); err != nil {
				l.logger.Error("transition action failed", "event", string(matched.Event), "error", err)
			}
		}
		if next != nil {
			next(ctx, e)
		}
	}
}

func (l *loopFSM) CurrentState() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.fsm == nil {
		return ""
	}
	return State(l.fsm.Current())
}

func (l *loopFSM) CanTransition(event Event) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.fsm == nil {
		return false
	}
	return l.fsm.Can(string(event))
}

func (l *loopFSM) Transition(ctx context.Context, event Event, data interface{}) error {
	l.mu.RLock()
	if l.fsm == nil {
		l.mu.RUnlock()
		return l.buildErr
	}
	fsmInstance := l.fsm
	l.mu.RUnlock()

	var args []interface{}
	if data != nil {
		args = append(args, data)
	}

	err := fsmInstance.Event(ctx, string(event), args...)
	if err != nil {
		errMsg := err.Error()
		switch {
		case errors.Is(err, &lfsm.NoTransitionError{}), errors.Is(err, &lfsm.InvalidEventError{}), errors.Is(err, &lfsm.UnknownEventError{}):
			return errors.Wrap(err, "transition not possible")
		case errors.Is(err, &lfsm.CanceledError{}), strings.Contains(errMsg, "guard condition"):
			return errors.Wrap(err, "transition cancelled by guard condition")
		case errors.Is(err, &lfsm.InTransitionError{}):
			return errors.Wrap(err, "fsm concurrency error")
		default:
			return errors.Wrapf(err, "failed to transition on event %q from state %q", event, l.CurrentState())
		}
	}
	return nil
}

func (l *loopFSM) SetState(state State) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fsm == nil {
		return l.buildErr
	}
	l.fsm.SetState(string(state))
	return nil
}

func (l *loopFSM) Reset() error {
	return l.SetState(l.initialState)
}
