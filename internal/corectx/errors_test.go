package corectx

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDerivesSeverityFromTaxonomy(t *testing.T) {
	cases := []struct {
		code Code
		want Severity
	}{
		{CodeNotFound, SeverityError},
		{CodeAlreadyExists, SeverityWarning},
		{CodeOutOfMemory, SeverityFatal},
		{CodeCancelled, SeverityInfo},
		{CodeInternal, SeverityFatal},
	}
	for _, tc := range cases {
		e := New("ffi", tc.code, "boom")
		assert.Equal(t, tc.want, e.Severity, tc.code)
	}
}

func TestErrorStringIncludesContext(t *testing.T) {
	e := New("wire", CodeTooLarge, "frame exceeds max size")
	require.Equal(t, "wire: frame exceeds max size [too-large]", e.Error())

	withCtx := e.WithContext("seq=42")
	require.Equal(t, "wire: frame exceeds max size [too-large] (seq=42)", withCtx.Error())
	// original unaffected
	require.Equal(t, "", e.Context)
}

func TestUnwrapComposesWithErrorsIs(t *testing.T) {
	sentinel := errors.New("bridge panicked")
	e := NewWithCause("ffi", CodeForeignException, "call failed", sentinel)

	assert.True(t, errors.Is(e, sentinel))
}

func TestFatalRecoverable(t *testing.T) {
	fatal := New("memory", CodeOutOfMemory, "pool exhausted")
	assert.True(t, fatal.Fatal())
	assert.False(t, fatal.Recoverable())

	recoverable := New("fsm", CodeGuardDenied, "guard returned false")
	assert.False(t, recoverable.Fatal())
	assert.True(t, recoverable.Recoverable())
}
