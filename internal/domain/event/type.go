package event

// Type identifies the type of domain event
type Type string

const (
	TypeRequestCreated         Type = "update_request.created"
	TypeRequestPendingApproval Type = "update_request.pending_approval"
	TypeRequestApproved        Type = "update_request.approved"
	TypeRequestRejected        Type = "update_request.rejected"
	TypeRequestSucceeded       Type = "update_request.succeeded"
	TypeRequestFailed          Type = "update_request.failed"
	TypeRequestReverted        Type = "update_request.reverted"
)

// AllTypes lists every event type in lifecycle order
var AllTypes = []Type{
	TypeRequestCreated,
	TypeRequestPendingApproval,
	TypeRequestApproved,
	TypeRequestRejected,
	TypeRequestSucceeded,
	TypeRequestFailed,
	TypeRequestReverted,
}

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	for _, known := range AllTypes {
		if t == known {
			return true
		}
	}
	return false
}
