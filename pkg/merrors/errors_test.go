package merrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsNotFound(t *testing.T) {
	err := &NotFoundError{Path: "a/b"}
	assert.True(t, IsNotFound(err))
	assert.True(t, IsNotFound(&FetchError{Path: "a/b", Err: err}))
	assert.False(t, IsNotFound(errors.New("boom")))
}

func TestNotFoundErrorMessage(t *testing.T) {
	err := &NotFoundError{Path: "a/b"}
	assert.Contains(t, err.Error(), "a/b")
}

func TestConnectionRefusedErrorCooldown(t *testing.T) {
	err := &ConnectionRefusedError{Message: "breaker open", RemainingCooldown: "12s"}
	assert.Contains(t, err.Error(), "12s")
}

func TestRetriesExhaustedUnwrap(t *testing.T) {
	cause := errors.New("503")
	err := &RetriesExhaustedError{Attempts: 3, Err: cause}
	assert.ErrorIs(t, err, cause)
}
