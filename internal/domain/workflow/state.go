package workflow

// State represents the lifecycle status of an update request
type State string

const (
	StatePending         State = "Pending"
	StatePendingApproval State = "Pending Approval"
	StateApproved        State = "Approved"
	StateRejected        State = "Rejected"
	StateSuccess         State = "Success"
	StateFailed          State = "Failed"
	StateReverted        State = "Reverted"
)

var validStates = map[State]bool{
	StatePending:         true,
	StatePendingApproval: true,
	StateApproved:        true,
	StateRejected:        true,
	StateSuccess:         true,
	StateFailed:          true,
	StateReverted:        true,
}

var terminalStates = map[State]bool{
	StateRejected: true,
	StateFailed:   true,
	StateReverted: true,
}

// IsTerminal returns true if no further transitions are possible from the state
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// IsOpen returns true while the request still blocks new requests for its target
func (s State) IsOpen() bool {
	return s == StatePending || s == StatePendingApproval
}

// IsApplicable returns true if the apply engine may run a request in this state
func (s State) IsApplicable() bool {
	return s == StatePending || s == StateApproved
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a known update request status
func (s State) IsValid() bool {
	return validStates[s]
}
