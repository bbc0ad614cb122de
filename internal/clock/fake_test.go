package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFake_Advance(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewFake(start)

	short := c.NewTimer(time.Second)
	long := c.NewTimer(time.Minute)
	assert.Equal(t, 2, c.PendingTimers())

	c.Advance(2 * time.Second)
	assert.Equal(t, start.Add(2*time.Second), c.Now())

	select {
	case <-short.C():
	default:
		t.Fatal("short timer should have fired")
	}

	select {
	case <-long.C():
		t.Fatal("long timer should not fire yet")
	default:
	}
	assert.Equal(t, 1, c.PendingTimers())
}

func TestFake_Stop(t *testing.T) {
	c := NewFake(time.Unix(0, 0))

	timer := c.NewTimer(time.Second)
	assert.True(t, timer.Stop())
	assert.False(t, timer.Stop())

	c.Advance(time.Hour)
	select {
	case <-timer.C():
		t.Fatal("stopped timer fired")
	default:
	}
}

func TestFake_ZeroDuration(t *testing.T) {
	c := NewFake(time.Unix(0, 0))

	timer := c.NewTimer(0)
	select {
	case <-timer.C():
	default:
		t.Fatal("zero timer should fire immediately")
	}
	assert.Zero(t, c.PendingTimers())
}

func TestReal_Now(t *testing.T) {
	now := Real().Now()
	assert.Equal(t, time.UTC, now.Location())
}
