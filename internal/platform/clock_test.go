package platform

import (
	"errors"
	"testing"
	"time"
)

func TestClock_Monotonic(t *testing.T) {
	c := NewClock()
	prev := c.Now()
	for i := 0; i < 1000; i++ {
		next := c.Now()
		if next < prev {
			t.Fatalf("iteration %d: clock went backwards from %v to %v", i, prev, next)
		}
		prev = next
	}
}

func TestClock_Resolution(t *testing.T) {
	c := NewClock()
	start := c.Now()
	time.Sleep(5 * time.Millisecond)
	elapsed := c.Now() - start
	if elapsed < 0.004 || elapsed > 5 {
		t.Errorf("elapsed = %vs after a 5ms sleep", elapsed)
	}
}

func TestClock_AbortsOnFailure(t *testing.T) {
	var got error
	orig := abort
	abort = func(err error) { got = err }
	t.Cleanup(func() { abort = orig })

	want := errors.New("no timer")
	c := monotonicClock{read: func() (float64, error) { return 0, want }}
	c.Now()

	if !errors.Is(got, want) {
		t.Errorf("abort called with %v, want %v", got, want)
	}
}
