package httpbridge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDebouncer(t *testing.T) {
	now := time.Now()
	d := NewDebouncer(300 * time.Millisecond)
	d.now = func() time.Time { return now }

	assert.True(t, d.TryStart("update"), "first attempt runs")
	assert.False(t, d.TryStart("update"), "refused while in flight")

	d.Finish("update")
	assert.False(t, d.TryStart("update"), "refused inside the window even after finish")

	now = now.Add(301 * time.Millisecond)
	assert.True(t, d.TryStart("update"), "runs again after the window")
	d.Finish("update")
}

func TestDebouncerActionsAreIndependent(t *testing.T) {
	d := NewDebouncer(300 * time.Millisecond)

	assert.True(t, d.TryStart("update"))
	assert.True(t, d.TryStart("sync"), "a pending update does not block a sync")
	d.Finish("update")
	d.Finish("sync")
}

func TestDebouncerInFlightOutlastsWindow(t *testing.T) {
	now := time.Now()
	d := NewDebouncer(10 * time.Millisecond)
	d.now = func() time.Time { return now }

	assert.True(t, d.TryStart("sync"))
	now = now.Add(time.Second)
	assert.False(t, d.TryStart("sync"), "still in flight, window does not matter")

	d.Finish("sync")
	assert.True(t, d.TryStart("sync"))
}
