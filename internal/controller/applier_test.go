package controller

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/mutker/acdcbright/internal/display"
	"codeberg.org/mutker/acdcbright/internal/errors"
	"codeberg.org/mutker/acdcbright/internal/history"
	"codeberg.org/mutker/acdcbright/internal/power"
	"codeberg.org/mutker/acdcbright/internal/settings"
)

func TestApplyWritesStoredBrightness(t *testing.T) {
	accessor := display.NewFakeAccessor(50)
	shared := settings.NewShared(settings.Settings{ACBrightness: 90, DCBrightness: 25}, &memStore{})
	rec := &fakeRecorder{}
	a := NewApplier(accessor, shared, WithRecorder(rec))

	require.NoError(t, a.Apply(context.Background(), ApplyBrightness{ForCondition: power.DC}))
	require.NoError(t, a.Apply(context.Background(), ApplyBrightness{ForCondition: power.AC}))

	assert.Equal(t, []display.Brightness{25, 90}, accessor.Writes())
	assert.Equal(t, 2, accessor.Opens(), "a fresh handle per write")

	entries := rec.all()
	require.Len(t, entries, 2)
	assert.Equal(t, history.KindApply, entries[0].Kind)
	assert.Equal(t, 25, entries[0].Brightness)
	assert.Equal(t, power.AC, entries[1].Condition)
}

func TestApplyHardwareFailure(t *testing.T) {
	accessor := display.NewFakeAccessor(50)
	accessor.SetError = stderrors.New("write failed")
	rec := &fakeRecorder{}
	a := NewApplier(accessor, settings.NewShared(settings.Default(), &memStore{}), WithRecorder(rec))

	err := a.Apply(context.Background(), ApplyBrightness{ForCondition: power.AC})

	require.Error(t, err)
	assert.Equal(t, errors.ErrHardware, errors.CodeOf(err))
	require.Len(t, rec.all(), 1)
	assert.Equal(t, string(errors.ErrHardware), rec.all()[0].ErrorCode)
}

func TestApplyOpenFailure(t *testing.T) {
	accessor := display.NewFakeAccessor(50)
	accessor.OpenError = stderrors.New("no device")
	a := NewApplier(accessor, settings.NewShared(settings.Default(), &memStore{}))

	err := a.Apply(context.Background(), ApplyBrightness{ForCondition: power.DC})
	assert.True(t, errors.HasCode(err, errors.ErrHardware))
}

func TestApplyRejectsNonActionableCondition(t *testing.T) {
	accessor := display.NewFakeAccessor(50)
	a := NewApplier(accessor, settings.NewShared(settings.Default(), &memStore{}))

	err := a.Apply(context.Background(), ApplyBrightness{ForCondition: power.Other})
	assert.Equal(t, errors.ErrInvalidArgument, errors.CodeOf(err))
	assert.Zero(t, accessor.Opens())
}
