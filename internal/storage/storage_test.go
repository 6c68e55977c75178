package storage

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap(t *testing.T) {
	assert.NoError(t, Wrap("op", nil))

	dup := fmt.Errorf("insert: %w", ErrDuplicateUsername)
	assert.Same(t, dup, Wrap("create user", dup))

	cause := errors.New("connection refused")
	err := Wrap("list inventory", cause)
	var se *Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "list inventory", se.Op)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "storage: list inventory: connection refused", err.Error())

	assert.Same(t, err, Wrap("outer", err))
}

func TestWrap_Timeout(t *testing.T) {
	err := Wrap("find user", fmt.Errorf("get: %w", context.DeadlineExceeded))
	assert.ErrorIs(t, err, ErrTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
