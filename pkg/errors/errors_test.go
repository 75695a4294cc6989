package errors

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorFormatting(t *testing.T) {
	base := New("SOME_CODE", "something went wrong")
	assert.Equal(t, "something went wrong", base.Error())

	wrapped := Wrap(stderrors.New("disk full"), "SOME_CODE", "write failed")
	assert.Equal(t, "write failed: disk full", wrapped.Error())
	assert.Equal(t, "disk full", wrapped.Unwrap().Error())
}

func TestIsMatchesByCode(t *testing.T) {
	err := Clone(ErrNotFound, "operation op-1 not found")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrDuplicate)
	assert.NotErrorIs(t, err, stderrors.New("NOT_FOUND"))
}

func TestClone(t *testing.T) {
	c := Clone(ErrValidation, "duration must be positive")
	assert.Equal(t, ErrValidation.Code, c.Code)
	assert.Equal(t, "duration must be positive", c.Message)
	assert.Equal(t, "validation failed", ErrValidation.Message, "the prototype is untouched")

	assert.Equal(t, ErrValidation.Message, Clone(ErrValidation, "").Message)
	assert.Nil(t, Clone(nil, "x"))
}

func TestFromError(t *testing.T) {
	assert.Nil(t, FromError(nil))

	typed := FromError(Clone(ErrDuplicate, "job job-1 already registered"))
	require.NotNil(t, typed)
	assert.Equal(t, ErrDuplicate.Code, typed.Code)

	untyped := FromError(stderrors.New("boom"))
	require.NotNil(t, untyped)
	assert.Equal(t, ErrInternal.Code, untyped.Code)
	assert.Equal(t, "internal error: boom", untyped.Error())
}

func TestCode(t *testing.T) {
	assert.Equal(t, "NOT_FOUND", Code(Clone(ErrNotFound, "")))
	assert.Empty(t, Code(stderrors.New("boom")))
	assert.Empty(t, Code(nil))
}
