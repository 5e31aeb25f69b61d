package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKinds(t *testing.T) {
	err := fmt.Errorf("make: %w", Validation("reserveCount must be positive, got %d", 0))

	assert.ErrorIs(t, err, ErrValidation)
	assert.NotErrorIs(t, err, ErrConflict)
	assert.Equal(t, KindValidation, KindOf(err))
	assert.Contains(t, err.Error(), "reserveCount must be positive")
}

func TestStoreFailure(t *testing.T) {
	cause := errors.New("connection reset")
	err := StoreFailure("insert reservation", cause)

	assert.ErrorIs(t, err, ErrStore)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "insert reservation: connection reset", err.Error())

	// Already classified errors keep their kind.
	conflict := Conflict("only %d rooms left", 1)
	assert.Same(t, conflict, StoreFailure("x", conflict))

	joined := StoreFailure("rollback", errors.Join(cause, errors.New("rollback failed")))
	assert.ErrorIs(t, joined, cause)
	assert.Equal(t, Kind(0), KindOf(errors.New("plain")))
}
