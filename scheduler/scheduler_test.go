package scheduler

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"gotest.tools/v3/assert"
)

func TestCallbackFiresExactlyOnce(t *testing.T) {
	mock := clock.NewMock()
	s := New(mock)

	fired := 0
	s.Schedule("intermission", time.Minute, func() { fired++ })

	mock.Add(59 * time.Second)
	assert.Equal(t, 0, fired)

	mock.Add(time.Second)
	assert.Equal(t, 1, fired)

	// Advancing further must not re-fire a one-shot timer.
	mock.Add(time.Hour)
	assert.Equal(t, 1, fired)
	assert.Equal(t, 0, s.Len())
}

func TestCancelStopsTimer(t *testing.T) {
	mock := clock.NewMock()
	s := New(mock)

	fired := false
	id := s.Schedule("match", time.Minute, func() { fired = true })
	s.Cancel(id)

	mock.Add(2 * time.Minute)
	assert.Check(t, !fired)
}

func TestCancelOnFiredOrUnknownIDIsNoOp(t *testing.T) {
	mock := clock.NewMock()
	s := New(mock)

	id := s.Schedule("match", time.Second, func() {})
	mock.Add(time.Second)

	s.Cancel(id)
	s.Cancel(TimerID(9999))
}

func TestCancelAllIsIdempotent(t *testing.T) {
	mock := clock.NewMock()
	s := New(mock)

	fired := 0
	s.Schedule("a", time.Second, func() { fired++ })
	s.Schedule("b", time.Minute, func() { fired++ })

	s.CancelAll()
	assert.Equal(t, 0, s.Len())
	s.CancelAll()
	assert.Equal(t, 0, s.Len())

	mock.Add(time.Hour)
	assert.Equal(t, 0, fired)
}

func TestRemaining(t *testing.T) {
	mock := clock.NewMock()
	s := New(mock)

	id := s.Schedule("reset", 10*time.Minute, func() {})
	assert.Equal(t, 10*time.Minute, s.Remaining(id))

	mock.Add(4 * time.Minute)
	assert.Equal(t, 6*time.Minute, s.Remaining(id))

	mock.Add(6 * time.Minute)
	assert.Equal(t, UnknownRemaining, s.Remaining(id))
	assert.Equal(t, UnknownRemaining, s.Remaining(TimerID(1234)))
}

func TestPanickingCallbackDoesNotStopOtherTimers(t *testing.T) {
	mock := clock.NewMock()
	s := New(mock)

	fired := false
	s.Schedule("bad", time.Second, func() { panic("boom") })
	s.Schedule("good", 2*time.Second, func() { fired = true })

	mock.Add(time.Second)
	mock.Add(time.Second)
	assert.Check(t, fired, "a panicking callback must not halt the clock")
}

func TestCallbackMayScheduleMoreTimers(t *testing.T) {
	mock := clock.NewMock()
	s := New(mock)

	fired := false
	s.Schedule("first", time.Second, func() {
		s.Schedule("second", time.Second, func() { fired = true })
	})

	mock.Add(time.Second)
	mock.Add(time.Second)
	assert.Check(t, fired)
}
