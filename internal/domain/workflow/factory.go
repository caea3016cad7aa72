package workflow

// BuildUpdateRequestStateMachine creates a state machine configured for the update request lifecycle
func BuildUpdateRequestStateMachine(initialState State) StateMachine {
	builder := NewBuilder()

	builder.Configure(StatePending).
		Permit(TriggerDefer, StatePendingApproval).
		Permit(TriggerSucceed, StateSuccess).
		Permit(TriggerFail, StateFailed)

	builder.Configure(StatePendingApproval).
		Permit(TriggerApprove, StateApproved).
		Permit(TriggerReject, StateRejected)

	builder.Configure(StateApproved).
		Permit(TriggerSucceed, StateSuccess).
		Permit(TriggerFail, StateFailed)

	builder.Configure(StateSuccess).
		Permit(TriggerRevert, StateReverted)

	// Rejected, Failed and Reverted are terminal

	return builder.Build(initialState)
}

// CanTransition reports whether trigger is permitted from state
func CanTransition(from State, trigger Trigger) bool {
	if !from.IsValid() {
		return false
	}
	return BuildUpdateRequestStateMachine(from).CanFire(trigger)
}
