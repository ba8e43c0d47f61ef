package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngineErrorFormat(t *testing.T) {
	err := NewError(GRAPH_CYCLE_DETECTED, "cycle involving a, b")
	assert.Equal(t, "[GRAPH_CYCLE_DETECTED] cycle involving a, b", err.Error())

	wrapped := WrapError(TRACKER_COMMAND_FAILED, "list failed", errors.New("exit status 1"))
	assert.Equal(t, "[TRACKER_COMMAND_FAILED] list failed: exit status 1", wrapped.Error())
}

func TestEngineErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := WrapError(EXECUTION_NON_ZERO_EXIT, "session exited with code 2", cause)

	require.ErrorIs(t, err, cause)
	assert.Equal(t, cause, err.Unwrap())
}

func TestEngineErrorIsMatchesByCode(t *testing.T) {
	a := NewError(EXECUTION_TIMEOUT, "one")
	b := NewError(EXECUTION_TIMEOUT, "another")
	c := NewError(EXECUTION_NON_ZERO_EXIT, "different code")

	assert.True(t, errors.Is(a, b))
	assert.False(t, errors.Is(a, c))

	// Wrapped EngineErrors still match by code through the chain.
	outer := fmt.Errorf("iteration 3: %w", a)
	assert.True(t, errors.Is(outer, b))
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, VERIFICATION_TESTS_FAILED, CodeOf(NewError(VERIFICATION_TESTS_FAILED, "x")))
	assert.Equal(t, ErrorCode(""), CodeOf(errors.New("plain")))
	assert.Equal(t, ErrorCode(""), CodeOf(nil))
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		code  ErrorCode
		fatal bool
	}{
		{GRAPH_CYCLE_DETECTED, true},
		{VALIDATION_SCHEMA_MISMATCH, true},
		{EXECUTION_TIMEOUT, false},
		{EXECUTION_NON_ZERO_EXIT, false},
		{VERIFICATION_TESTS_FAILED, false},
		{LIMIT_MAX_ITERATIONS, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.fatal, IsFatal(NewError(tt.code, "x")))
		})
	}
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(NewRetryableError(EXECUTION_TIMEOUT, "budget exceeded")))
	assert.False(t, IsRetryable(NewError(EXECUTION_NON_ZERO_EXIT, "hard failure")))
	assert.False(t, IsRetryable(errors.New("plain")))
}

func TestIDRoundTrip(t *testing.T) {
	id := NewID()
	require.NoError(t, id.Validate())

	parsed, err := ParseID(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)
}

func TestParseIDRejectsInvalid(t *testing.T) {
	_, err := ParseID("")
	assert.Error(t, err)

	_, err = ParseID("not-a-uuid")
	assert.Error(t, err)
}

func TestIDJSON(t *testing.T) {
	id := NewID()
	data, err := id.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"`+id.String()+`"`, string(data))

	var decoded ID
	require.NoError(t, decoded.UnmarshalJSON(data))
	assert.Equal(t, id, decoded)

	var zero ID
	data, err = zero.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, "null", string(data))
}
