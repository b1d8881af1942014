package scheduler

import "fmt"

var requestTransitions = map[RequestStatus][]RequestStatus{
	RequestPending:     {RequestConfirmed, RequestRescheduled, RequestCancelled},
	RequestConfirmed:   {RequestRescheduled, RequestCancelled, RequestCompleted},
	RequestRescheduled: {RequestConfirmed, RequestRescheduled, RequestCancelled, RequestCompleted},
	RequestCancelled:   nil,
	RequestCompleted:   nil,
}

var sessionTransitions = map[SessionStatus][]SessionStatus{
	SessionScheduled:  {SessionInProgress, SessionCompleted, SessionCancelled, SessionNoShow},
	SessionInProgress: {SessionCompleted, SessionCancelled, SessionNoShow},
	SessionCompleted:  nil,
	SessionCancelled:  nil,
	SessionNoShow:     nil,
}

// TransitionError reports an illegal status change.
type TransitionError struct {
	Entity string
	From   string
	To     string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("scheduler: %s cannot move from %q to %q", e.Entity, e.From, e.To)
}

// IsTerminal reports whether no transition leaves the status.
func (s RequestStatus) IsTerminal() bool {
	return len(requestTransitions[s]) == 0
}

// IsTerminal reports whether no transition leaves the status.
func (s SessionStatus) IsTerminal() bool {
	return len(sessionTransitions[s]) == 0
}

// CanTransitionRequest reports whether the request lifecycle allows from -> to.
func CanTransitionRequest(from, to RequestStatus) bool {
	for _, next := range requestTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CanTransitionSession reports whether the session lifecycle allows from -> to.
func CanTransitionSession(from, to SessionStatus) bool {
	for _, next := range sessionTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CheckRequestTransition validates a request status change, including the
// guards that depend on the request itself rather than only its status.
func CheckRequestTransition(request SessionRequest, to RequestStatus) error {
	if !CanTransitionRequest(request.Status, to) {
		return &TransitionError{Entity: "request", From: string(request.Status), To: string(to)}
	}
	if to == RequestCompleted && request.AssignedTo == nil {
		return &TransitionError{Entity: "request", From: string(request.Status), To: string(to)}
	}
	return nil
}

// CheckSessionTransition validates a session status change.
func CheckSessionTransition(session ScheduledSession, to SessionStatus) error {
	if !CanTransitionSession(session.Status, to) {
		return &TransitionError{Entity: "session", From: string(session.Status), To: string(to)}
	}
	return nil
}
