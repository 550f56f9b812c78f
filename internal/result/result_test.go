package result

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSuccess(t *testing.T) {
	r := Success(42)

	assert.True(t, r.IsSuccess())
	assert.False(t, r.IsFailure())
	assert.Equal(t, CodeNone, r.Code())
	assert.Empty(t, r.Message())

	v, ok := r.Value()
	assert.True(t, ok)
	assert.Equal(t, 42, v)
	assert.Equal(t, 42, r.Unwrap())
}

func TestFailure(t *testing.T) {
	r := Failure[int](CodeNotFound, "resource with id %d not found", 7)

	assert.True(t, r.IsFailure())
	assert.False(t, r.IsSuccess())
	assert.Equal(t, CodeNotFound, r.Code())
	assert.Equal(t, "resource with id 7 not found", r.Message())

	_, ok := r.Value()
	assert.False(t, ok)
	assert.Panics(t, func() { r.Unwrap() })
}

func TestOk(t *testing.T) {
	r := Ok[string]()
	assert.True(t, r.IsSuccess())
	assert.Equal(t, "", r.Unwrap())
}

func TestMap(t *testing.T) {
	double := func(n int) int { return n * 2 }

	mapped := Map(Success(21), double)
	assert.True(t, mapped.IsSuccess())
	assert.Equal(t, 42, mapped.Unwrap())

	failed := Map(Failure[int](CodeConflict, "busy"), double)
	assert.True(t, failed.IsFailure())
	assert.Equal(t, CodeConflict, failed.Code())
	assert.Equal(t, "busy", failed.Message())
}

func TestForward(t *testing.T) {
	failed := Failure[int](CodePreconditionFailed, "nothing to return")

	forwarded := Forward[string](failed)
	assert.True(t, forwarded.IsFailure())
	assert.Equal(t, CodePreconditionFailed, forwarded.Code())
	assert.Equal(t, "nothing to return", forwarded.Message())

	assert.Panics(t, func() { Forward[string](Success(1)) })
}

func TestString(t *testing.T) {
	assert.Equal(t, "success: 5", Success(5).String())
	assert.Equal(t, "failure[409]: busy", Failure[int](CodeConflict, "busy").String())
}
