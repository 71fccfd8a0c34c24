package critique

import (
	"fmt"

	"github.com/felixgeelhaar/statekit"
)

// State constants for statekit integration.
// These must remain untyped string constants for statekit.StateID compatibility.
const (
	StateIdle         = "idle"
	StateGenerating   = "generating"
	StateReady        = "ready"
	StateRegenerating = "regenerating"
	StateError        = "error"
)

func init() {
	stateMap := map[string]SessionStatus{
		StateIdle:         SessionIdle,
		StateGenerating:   SessionGenerating,
		StateReady:        SessionReady,
		StateRegenerating: SessionRegenerating,
		StateError:        SessionError,
	}
	for fsmState, status := range stateMap {
		if fsmState != string(status) {
			panic(fmt.Sprintf("FSM state %q does not match SessionStatus %q - constants are out of sync", fsmState, status))
		}
	}
}

// SessionContext carries state data.
type SessionContext struct {
	SessionID string
}

// SessionStateMachine drives idle -> generating -> ready, with regenerating
// and error reachable as described by sessionTransitions.
type SessionStateMachine struct {
	interpreter *statekit.Interpreter[SessionContext]
}

func NewSessionStateMachine(sessionID string) (*SessionStateMachine, error) {
	builder := statekit.NewMachine[SessionContext]("session-machine").
		WithInitial(statekit.StateID(StateIdle)).
		WithContext(SessionContext{SessionID: sessionID})

	builder.State(StateIdle).
		On(EventNotes).Target(StateGenerating).
		On(EventRefresh).Target(StateGenerating).
		Done()

	builder.State(StateGenerating).
		On(EventSucceed).Target(StateReady).
		On(EventFail).Target(StateError).
		Done()

	builder.State(StateReady).
		On(EventNotes).Target(StateRegenerating).
		On(EventRefresh).Target(StateRegenerating).
		Done()

	builder.State(StateRegenerating).
		On(EventSucceed).Target(StateReady).
		On(EventFail).Target(StateError).
		Done()

	builder.State(StateError).
		On(EventNotes).Target(StateGenerating).
		On(EventRefresh).Target(StateGenerating).
		Done()

	machine, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build session state machine: %w", err)
	}

	interpreter := statekit.NewInterpreter(machine)
	interpreter.Start()

	return &SessionStateMachine{interpreter: interpreter}, nil
}

// Transition sends event and reports an error if the state did not move.
func (sm *SessionStateMachine) Transition(event string) error {
	before := sm.Current()
	sm.interpreter.Send(statekit.Event{Type: statekit.EventType(event)})
	if sm.Current() != before {
		return nil
	}
	return fmt.Errorf("event '%s' is not allowed while the session is '%s'", event, before)
}

func (sm *SessionStateMachine) Current() string {
	return string(sm.interpreter.State().Value)
}

// CurrentStatus returns the current state as a SessionStatus value object.
func (sm *SessionStateMachine) CurrentStatus() SessionStatus {
	return SessionStatus(sm.Current())
}

// CanTransition delegates to the SessionStatus value object.
func (sm *SessionStateMachine) CanTransition(event string) bool {
	return sm.CurrentStatus().CanTransitionWith(event)
}
