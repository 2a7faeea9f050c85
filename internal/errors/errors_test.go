package errors_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/mutker/acdcbright/internal/errors"
)

func TestWrapKeepsCause(t *testing.T) {
	cause := stderrors.New("device gone")
	err := errors.New().Wrap(errors.ErrHardware, cause)

	assert.Equal(t, errors.ErrHardware, err.Code())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "Display hardware operation failed: device gone", err.Error())
}

func TestWithMessageOverridesDefault(t *testing.T) {
	err := errors.New().WithMessage(errors.ErrPersistence, "settings.json is read-only")

	assert.Equal(t, "settings.json is read-only", err.Error())
	assert.Equal(t, errors.ErrPersistence, err.Code())
}

func TestWithDataFormatsData(t *testing.T) {
	err := errors.New().WithData(errors.ErrInvalidArgument, "brightness 120 out of range")

	assert.Equal(t, "Invalid argument provided: brightness 120 out of range", err.Error())
	assert.Equal(t, "brightness 120 out of range", err.GetData())
}

func TestUnknownCodeFallsBackToCode(t *testing.T) {
	err := errors.New().New(errors.ErrorCode("something_odd"))

	assert.Equal(t, "something_odd", err.Error())
}

func TestCodeOf(t *testing.T) {
	inner := errors.New().New(errors.ErrHardware)
	outer := errors.New().Wrap(errors.ErrActionFailure, inner)

	assert.Equal(t, errors.ErrActionFailure, errors.CodeOf(outer))
	assert.Equal(t, errors.ErrorCode(""), errors.CodeOf(stderrors.New("plain")))
	assert.Equal(t, errors.ErrorCode(""), errors.CodeOf(nil))
}

func TestHasCodeWalksChain(t *testing.T) {
	inner := errors.New().New(errors.ErrHardware)
	outer := errors.New().Wrap(errors.ErrActionFailure, fmt.Errorf("apply: %w", inner))

	require.True(t, errors.HasCode(outer, errors.ErrActionFailure))
	require.True(t, errors.HasCode(outer, errors.ErrHardware))
	assert.False(t, errors.HasCode(outer, errors.ErrPersistence))
	assert.False(t, errors.HasCode(nil, errors.ErrHardware))
}

type busError struct{}

func (busError) Error() string          { return "bus gone" }
func (busError) Code() errors.ErrorCode { return errors.ErrUnavailable }

func TestForeignCodedErrors(t *testing.T) {
	err := fmt.Errorf("watch: %w", busError{})

	assert.Equal(t, errors.ErrUnavailable, errors.CodeOf(err))
	assert.True(t, errors.HasCode(err, errors.ErrUnavailable))
	assert.False(t, errors.HasCode(err, errors.ErrHardware))
}
