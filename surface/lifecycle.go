package surface

import "fmt"

// State is the lifecycle state of a surface.
type State int

const (
	// Pending surfaces exist but have not been configured by the
	// compositor yet, so nothing may be drawn to them.
	Pending State = iota

	// Configured surfaces have a size and can be rendered to.
	Configured

	// Closing surfaces are waiting for their in-flight frames to
	// finish before they can be destroyed.
	Closing

	// Closed surfaces are gone. Closed is terminal.
	Closed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Configured:
		return "configured"
	case Closing:
		return "closing"
	case Closed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Trigger is something that can move a surface between states.
type Trigger int

const (
	// TriggerConfigure is a configure sequence from the compositor.
	TriggerConfigure Trigger = iota

	// TriggerCloseRequest is a request to close the surface, from
	// either the compositor or the application.
	TriggerCloseRequest

	// TriggerDrained means that every frame of a closing surface has
	// been resolved.
	TriggerDrained

	// TriggerLost means that the connection to the compositor is gone.
	TriggerLost
)

func (t Trigger) String() string {
	switch t {
	case TriggerConfigure:
		return "configure"
	case TriggerCloseRequest:
		return "close request"
	case TriggerDrained:
		return "drained"
	case TriggerLost:
		return "lost"
	default:
		return fmt.Sprintf("Trigger(%d)", int(t))
	}
}

// TransitionError is returned by Step for a trigger that doesn't apply
// to a state.
type TransitionError struct {
	From    State
	Trigger Trigger
}

func (err *TransitionError) Error() string {
	return fmt.Sprintf("invalid surface transition: %v on %v surface", err.Trigger, err.From)
}

// Step returns the state that a surface in state s moves to when t
// happens.
//
//	pending    --configure-->     configured
//	configured --configure-->     configured
//	pending    --close request--> closing
//	configured --close request--> closing
//	closing    --close request--> closing
//	closing    --configure-->     closing
//	closing    --drained-->       closed
//	any but closed --lost-->      closed
func Step(s State, t Trigger) (State, error) {
	switch t {
	case TriggerConfigure:
		switch s {
		case Pending, Configured:
			return Configured, nil
		case Closing:
			return Closing, nil
		}

	case TriggerCloseRequest:
		switch s {
		case Pending, Configured, Closing:
			return Closing, nil
		}

	case TriggerDrained:
		if s == Closing {
			return Closed, nil
		}

	case TriggerLost:
		if s != Closed {
			return Closed, nil
		}
	}

	return s, &TransitionError{From: s, Trigger: t}
}
