package core

import (
	"testing"
	"time"
)

func TestTickClockAdvance(t *testing.T) {
	c := NewTickClock(100)
	if got := c.Advance(); got != 101 {
		t.Fatalf("Advance = %d, want 101", got)
	}
	if c.Current() != 101 {
		t.Fatalf("Current = %d, want 101", c.Current())
	}
}

func TestTickClockDueWithoutAdjustment(t *testing.T) {
	c := NewTickClock(0)
	for i := 0; i < 50; i++ {
		if due := c.Due(); due != 1 {
			t.Fatalf("Due = %d, want 1", due)
		}
	}
}

func TestTickClockAdjustSpreadsCorrections(t *testing.T) {
	c := NewTickClock(0)
	c.AdjustTiming(1)
	c.AdjustTiming(1)

	total := 0
	extra := 0
	for i := 0; i < AdjustInterval*3; i++ {
		due := c.Due()
		if due == 2 {
			extra++
		}
		total += due
	}
	if extra != 2 {
		t.Errorf("extra steps = %d, want 2", extra)
	}
	if total != AdjustInterval*3+2 {
		t.Errorf("total = %d, want %d", total, AdjustInterval*3+2)
	}
	if c.Pending() != 0 {
		t.Errorf("Pending = %d, want 0", c.Pending())
	}
}

func TestTickClockSlowDownSkipsStep(t *testing.T) {
	c := NewTickClock(0)
	c.AdjustTiming(-1)
	if due := c.Due(); due != 0 {
		t.Errorf("Due = %d, want 0", due)
	}
	if due := c.Due(); due != 1 {
		t.Errorf("Due = %d, want 1", due)
	}
}

func TestTickClockAdjustClamped(t *testing.T) {
	c := NewTickClock(0)
	c.AdjustTiming(100)
	if c.Pending() != 1 {
		t.Errorf("Pending = %d, want 1", c.Pending())
	}
	for i := 0; i < MaxPendingAdjust*2; i++ {
		c.AdjustTiming(-128)
	}
	if c.Pending() != -MaxPendingAdjust {
		t.Errorf("Pending = %d, want %d", c.Pending(), -MaxPendingAdjust)
	}
	if c.Current() != 0 {
		t.Errorf("AdjustTiming must not move the counter, Current = %d", c.Current())
	}
}

func TestAccumulator(t *testing.T) {
	a := NewAccumulator(10*time.Millisecond, 5)
	if got := a.Add(25 * time.Millisecond); got != 2 {
		t.Errorf("Add = %d, want 2", got)
	}
	if got := a.Add(5 * time.Millisecond); got != 1 {
		t.Errorf("Add = %d, want 1 (carried remainder)", got)
	}
	if got := a.Add(time.Second); got != 5 {
		t.Errorf("Add = %d, want capped 5", got)
	}
}
