package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func recordWith(mutate func(*Record)) Record {
	var r Record
	mutate(&r)
	return r
}

// The state helpers take value receivers so they are callable on
// records returned by value, result payloads included.
func TestRecordState(t *testing.T) {
	now := time.Now()

	assert.True(t, recordWith(func(r *Record) { r.EnqueueDate = &now }).IsQueue())
	assert.True(t, recordWith(func(r *Record) { r.TakeDate = &now }).IsTake())

	finished := recordWith(func(r *Record) {
		r.TakeDate = &now
		r.ReturnDate = &now
		r.Finished = true
	})
	assert.False(t, finished.IsQueue())
	assert.False(t, finished.IsTake())

	promoted := recordWith(func(r *Record) { r.TakeDate = &now })
	assert.False(t, promoted.IsQueue())
	assert.True(t, promoted.IsTake())
}
