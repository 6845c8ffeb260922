package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorClassString(t *testing.T) {
	tests := []struct {
		class    ErrorClass
		expected string
	}{
		{ErrorTransient, "transient"},
		{ErrorInvalid, "invalid"},
		{ErrorFatal, "fatal"},
		{ErrorClass(42), "unknown"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, tt.class.String())
	}
}

func TestWrap(t *testing.T) {
	base := stderrors.New("boom")
	err := Wrap(base, "Registry", "Register", "node validation")

	require.Error(t, err)
	assert.Equal(t, "Registry.Register: node validation failed: boom", err.Error())
	assert.True(t, stderrors.Is(err, base))

	assert.NoError(t, Wrap(nil, "Registry", "Register", "anything"))
}

func TestWrapInvalid(t *testing.T) {
	err := WrapInvalid(ErrUnknownKind, "Registry", "Register", "kind validation")

	require.Error(t, err)
	assert.True(t, IsInvalid(err))
	assert.False(t, IsFatal(err))
	assert.False(t, IsTransient(err))
	assert.True(t, stderrors.Is(err, ErrUnknownKind))
	assert.Equal(t, ErrorInvalid, Classify(err))

	var ce *ClassifiedError
	require.True(t, stderrors.As(err, &ce))
	assert.Equal(t, "Registry", ce.Component)
	assert.Equal(t, "Register", ce.Operation)
}

func TestWrapFatal(t *testing.T) {
	base := fmt.Errorf("process step exploded")
	err := WrapFatal(base, "Runner", "Run", "process")

	require.Error(t, err)
	assert.True(t, IsFatal(err))
	assert.False(t, IsInvalid(err))
	assert.Equal(t, ErrorFatal, Classify(err))
}

func TestWrapTransient(t *testing.T) {
	err := WrapTransient(ErrDrainTimeout, "Application", "shutdown", "drain")

	require.Error(t, err)
	assert.True(t, IsTransient(err))
	assert.True(t, stderrors.Is(err, ErrDrainTimeout))
	assert.Equal(t, ErrorTransient, Classify(err))
}

func TestSentinelClassification(t *testing.T) {
	assert.True(t, IsInvalid(ErrDuplicateComponent))
	assert.True(t, IsInvalid(ErrNotRegistered))
	assert.True(t, IsInvalid(ErrInvalidConfig))
	assert.True(t, IsTransient(ErrStopTimeout))

	// Unclassified errors default to fatal.
	assert.Equal(t, ErrorFatal, Classify(stderrors.New("mystery")))
}

func TestNilChecks(t *testing.T) {
	assert.False(t, IsInvalid(nil))
	assert.False(t, IsFatal(nil))
	assert.False(t, IsTransient(nil))
	assert.NoError(t, WrapInvalid(nil, "a", "b", "c"))
	assert.NoError(t, WrapFatal(nil, "a", "b", "c"))
	assert.NoError(t, WrapTransient(nil, "a", "b", "c"))
}
