package mediation

import "github.com/garyjia/update-requests/internal/domain/entity"

// Result is the settled state of an apply or revert that was not refused.
// A Failed request carries the cause in Err; Err is nil otherwise.
type Result struct {
	Request *entity.UpdateRequest
	Outcome Outcome
	Err     error
}

// Failed reports whether the request ended in Failed
func (r *Result) Failed() bool {
	return r.Outcome == OutcomeFailed
}

// refusal marks an error raised before anything changed
type refusal struct {
	err error
}

func (r *refusal) Error() string { return r.err.Error() }

func (r *refusal) Unwrap() error { return r.err }
