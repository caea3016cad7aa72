package workflow

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_IsMatchesByKind(t *testing.T) {
	custom := NewError(KindMethodNotDefined, "no handler for %s", "_status")

	assert.True(t, errors.Is(custom, ErrMethodNotDefined))
	assert.False(t, errors.Is(custom, ErrMissingRevertData))

	wrapped := fmt.Errorf("apply: %w", custom)
	assert.True(t, errors.Is(wrapped, ErrMethodNotDefined))
	assert.Equal(t, KindMethodNotDefined, KindOf(wrapped))
}

func TestWrap_KeepsCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(KindInternal, "save failed", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "save failed: disk full", err.Error())
}

func TestKindOf_UntaggedError(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
}

func TestDescribe(t *testing.T) {
	assert.Equal(t,
		"MissingRevertDataError: Method does not return revert data. Make sure the function returns the relevant data",
		Describe(ErrMissingRevertData))
}

func TestNewInvalidActorError(t *testing.T) {
	err := NewInvalidActorError("bob", "alice")
	assert.ErrorIs(t, err, ErrInvalidActor)
	assert.Equal(t, "Invalid Actor, must be alice; got bob instead", err.Error())
}

func TestNewInvalidFieldTransitionError(t *testing.T) {
	err := NewInvalidFieldTransitionError("Delivered")
	assert.ErrorIs(t, err, ErrInvalidFieldTransition)
	assert.Equal(t, "Can't transition to Delivered", err.Error())
}
