package matchstage

import (
	"testing"

	"gotest.tools/v3/assert"
)

func TestCanOperateOnZeroValue(t *testing.T) {
	m := NewManager()
	assert.Equal(t, Init, m.Current())

	got := m.Swap(Intermission)
	assert.Equal(t, Init, got)
	assert.Equal(t, Intermission, m.Current())
}

func TestOnlyOneCompareAndSwapSuccess(t *testing.T) {
	successCh := make(chan bool)
	m := NewManager()

	for i := 0; i < 10; i++ {
		go func() {
			successCh <- m.CompareAndSwap(Init, Intermission)
		}()
	}

	successCount := 0
	for i := 0; i < 10; i++ {
		if <-successCh {
			successCount++
		}
	}
	assert.Equal(t, 1, successCount)
	assert.Equal(t, Intermission, m.Current())
}

func TestCompareAndSwapWithWrongOldStageFails(t *testing.T) {
	m := NewManager()
	ok := m.CompareAndSwap(ActiveMatch, Intermission)
	assert.Check(t, !ok, "zero value should be Init")
	assert.Equal(t, Init, m.Current())
}

func TestNotifyOnStageClosesWhenStageEntered(t *testing.T) {
	m := NewManager()
	ch := m.NotifyOnStage(ActiveMatch)

	select {
	case <-ch:
		t.Fatal("channel closed before stage was entered")
	default:
	}

	m.Store(ActiveMatch)
	<-ch
}

func TestNotifyOnStageForCurrentStageIsClosed(t *testing.T) {
	m := NewManager()
	m.Store(Intermission)
	<-m.NotifyOnStage(Intermission)
}
