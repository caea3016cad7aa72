package workflow

// Trigger represents an event that can cause a state transition
type Trigger string

const (
	TriggerDefer   Trigger = "DEFER"
	TriggerApprove Trigger = "APPROVE"
	TriggerReject  Trigger = "REJECT"
	TriggerSucceed Trigger = "SUCCEED"
	TriggerFail    Trigger = "FAIL"
	TriggerRevert  Trigger = "REVERT"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}
