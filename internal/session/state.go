package session

import "fmt"

// State is a step of a session's lifecycle
type State int

const (
	StateInit State = iota
	StatePrimed
	StateAwaitingInput
	StateProcessing
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StatePrimed:
		return "PRIMED"
	case StateAwaitingInput:
		return "AWAITING_INPUT"
	case StateProcessing:
		return "PROCESSING"
	case StateTerminated:
		return "TERMINATED"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ErrorPolicy decides what an interactive session does after a turn fails
type ErrorPolicy string

const (
	// TerminateOnError ends the session after reporting the first failed turn
	TerminateOnError ErrorPolicy = "terminate"
	// ContinueOnError reports the failed turn and waits for the next line
	ContinueOnError ErrorPolicy = "continue"
)

// ParseErrorPolicy converts a configured name to an ErrorPolicy
func ParseErrorPolicy(name string) (ErrorPolicy, error) {
	switch ErrorPolicy(name) {
	case TerminateOnError, ContinueOnError:
		return ErrorPolicy(name), nil
	case "":
		return TerminateOnError, nil
	default:
		return "", fmt.Errorf("unknown error policy %q", name)
	}
}
