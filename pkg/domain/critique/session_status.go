package critique

import (
	"fmt"
	"sort"
)

// SessionStatus is the lifecycle state of an analysis session.
type SessionStatus string

const (
	SessionIdle         SessionStatus = "idle"
	SessionGenerating   SessionStatus = "generating"
	SessionReady        SessionStatus = "ready"
	SessionRegenerating SessionStatus = "regenerating"
	SessionError        SessionStatus = "error"
)

// Session events.
const (
	EventNotes   = "notes"
	EventRefresh = "refresh"
	EventSucceed = "succeed"
	EventFail    = "fail"
)

// sessionTransitions: currentStatus -> event -> targetStatus
var sessionTransitions = map[SessionStatus]map[string]SessionStatus{
	SessionIdle: {
		EventNotes:   SessionGenerating,
		EventRefresh: SessionGenerating,
	},
	SessionGenerating: {
		EventSucceed: SessionReady,
		EventFail:    SessionError,
	},
	SessionReady: {
		EventNotes:   SessionRegenerating,
		EventRefresh: SessionRegenerating,
	},
	SessionRegenerating: {
		EventSucceed: SessionReady,
		EventFail:    SessionError,
	},
	SessionError: {
		EventNotes:   SessionGenerating,
		EventRefresh: SessionGenerating,
	},
}

// AllSessionStatuses returns every session status.
func AllSessionStatuses() []SessionStatus {
	return []SessionStatus{SessionIdle, SessionGenerating, SessionReady, SessionRegenerating, SessionError}
}

func (s SessionStatus) IsValid() bool {
	_, ok := sessionTransitions[s]
	return ok
}

func (s SessionStatus) String() string {
	return string(s)
}

// CanTransitionWith reports whether event is accepted in this status.
func (s SessionStatus) CanTransitionWith(event string) bool {
	_, ok := sessionTransitions[s][event]
	return ok
}

// TransitionWith returns the target status for event.
func (s SessionStatus) TransitionWith(event string) (SessionStatus, error) {
	target, ok := sessionTransitions[s][event]
	if !ok {
		return s, fmt.Errorf("event '%s' not allowed from session status '%s'", event, s)
	}
	return target, nil
}

// ValidEvents returns the accepted events, sorted.
func (s SessionStatus) ValidEvents() []string {
	var events []string
	for event := range sessionTransitions[s] {
		events = append(events, event)
	}
	sort.Strings(events)
	return events
}

// IsBusy is true while a critique generation is outstanding.
func (s SessionStatus) IsBusy() bool {
	return s == SessionGenerating || s == SessionRegenerating
}

// HasCritique is true when variants may be requested.
func (s SessionStatus) HasCritique() bool {
	return s == SessionReady
}

// ParseSessionStatus parses a string into a SessionStatus.
func ParseSessionStatus(s string) (SessionStatus, error) {
	status := SessionStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid session status: %s", s)
	}
	return status, nil
}
