// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package session

import (
	"fmt"

	"github.com/felixgeelhaar/bolt/v3"
	"github.com/felixgeelhaar/statekit"

	"github.com/pdiddy/pdf-organizer/internal/logging"
)

// Status is the user-visible state of a session.
type Status string

const (
	StatusEmpty      Status = "empty"
	StatusReady      Status = "ready"
	StatusSubmitting Status = "submitting"
	StatusError      Status = "error"
	StatusDone       Status = "done"
)

const (
	stEmpty      = statekit.StateID(StatusEmpty)
	stReady      = statekit.StateID(StatusReady)
	stSubmitting = statekit.StateID(StatusSubmitting)
	stError      = statekit.StateID(StatusError)
	stDone       = statekit.StateID(StatusDone)
)

const (
	evLoaded    statekit.EventType = "LOADED"
	evRejected  statekit.EventType = "REJECTED"
	evMarked    statekit.EventType = "MARKED"
	evSubmit    statekit.EventType = "SUBMIT"
	evSucceeded statekit.EventType = "SUCCEEDED"
	evFailed    statekit.EventType = "FAILED"
	evReset     statekit.EventType = "RESET"
)

// machineContext is the statechart context. hasDocument is kept in sync by
// the session before every event.
type machineContext struct {
	sessionID   string
	hasDocument bool
	log         *bolt.Logger
}

// transitionPayload travels with every event.
type transitionPayload struct {
	From   Status
	To     Status
	Reason string
}

func recordTransition(ctx **machineContext, event statekit.Event) {
	if ctx == nil || *ctx == nil {
		return
	}
	c := *ctx
	p, ok := event.Payload.(transitionPayload)
	if !ok {
		return
	}
	logging.With(c.log.Info(),
		logging.SessionID(c.sessionID),
		logging.Transition(string(p.From), string(p.To)),
		logging.Reason(p.Reason),
	).Msg("status changed")
}

func enterStatus(ctx **machineContext, event statekit.Event) {
	if ctx == nil || *ctx == nil {
		return
	}
	c := *ctx
	logging.With(c.log.Trace(),
		logging.SessionID(c.sessionID),
		logging.Str("event", string(event.Type)),
	).Msg("status entered")
}

func guardHasDocument(ctx *machineContext, _ statekit.Event) bool {
	return ctx != nil && ctx.hasDocument
}

// newStatusChart builds the session statechart:
//
//	Empty -> Ready -> (Submitting <-> Error) -> Done
//
// Ready, Error, and Done return to Ready on load; Error and Done may submit
// again. Submitting only leaves through SUCCEEDED or FAILED.
func newStatusChart(c *machineContext) (*statekit.MachineConfig[*machineContext], error) {
	return statekit.NewMachine[*machineContext]("session").
		WithInitial(stEmpty).
		WithContext(c).
		WithAction("enter", enterStatus).
		WithAction("record", recordTransition).
		WithGuard("hasDocument", guardHasDocument).
		State(stEmpty).
			OnEntry("enter").
			On(evLoaded).Target(stReady).Do("record").
			On(evRejected).Target(stError).Do("record").
			On(evReset).Target(stEmpty).Do("record").
			Done().
		State(stReady).
			OnEntry("enter").
			On(evLoaded).Target(stReady).Do("record").
			On(evRejected).Target(stError).Do("record").
			On(evMarked).Target(stReady).Guard("hasDocument").Do("record").
			On(evSubmit).Target(stSubmitting).Guard("hasDocument").Do("record").
			On(evReset).Target(stEmpty).Do("record").
			Done().
		State(stSubmitting).
			OnEntry("enter").
			On(evSucceeded).Target(stDone).Do("record").
			On(evFailed).Target(stError).Do("record").
			Done().
		State(stError).
			OnEntry("enter").
			On(evLoaded).Target(stReady).Do("record").
			On(evRejected).Target(stError).Do("record").
			On(evMarked).Target(stReady).Guard("hasDocument").Do("record").
			On(evSubmit).Target(stSubmitting).Guard("hasDocument").Do("record").
			On(evReset).Target(stEmpty).Do("record").
			Done().
		State(stDone).
			OnEntry("enter").
			On(evLoaded).Target(stReady).Do("record").
			On(evRejected).Target(stError).Do("record").
			On(evMarked).Target(stReady).Guard("hasDocument").Do("record").
			On(evSubmit).Target(stSubmitting).Guard("hasDocument").Do("record").
			On(evReset).Target(stEmpty).Do("record").
			Done().
		Build()
}

// statusMachine wraps the statekit interpreter for one session.
type statusMachine struct {
	interp *statekit.Interpreter[*machineContext]
	ctx    *machineContext
}

func newStatusMachine(sessionID string, log *bolt.Logger) (*statusMachine, error) {
	c := &machineContext{sessionID: sessionID, log: log}
	chart, err := newStatusChart(c)
	if err != nil {
		return nil, fmt.Errorf("building status machine: %w", err)
	}
	interp := statekit.NewInterpreter(chart)
	interp.UpdateContext(func(mc **machineContext) {
		*mc = c
	})
	interp.Start()
	return &statusMachine{interp: interp, ctx: c}, nil
}

// Current returns the current status.
func (m *statusMachine) Current() Status {
	return Status(m.interp.State().Value)
}

// fire sends ev and verifies that the machine reached to.
func (m *statusMachine) fire(ev statekit.EventType, to Status, hasDocument bool, reason string) error {
	from := m.Current()
	m.ctx.hasDocument = hasDocument
	m.interp.Send(statekit.Event{
		Type:    ev,
		Payload: transitionPayload{From: from, To: to, Reason: reason},
	})
	if got := m.Current(); got != to {
		return fmt.Errorf("%w: %s from %s left status %s", ErrInvalidTransition, ev, from, got)
	}
	return nil
}
