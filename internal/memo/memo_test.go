package memo

import (
	"strconv"
	"testing"
)

func TestGetMemoizes(t *testing.T) {
	calls := 0
	c := New(4, func(n int) string {
		calls++
		return strconv.Itoa(n)
	})

	for i := 0; i < 3; i++ {
		if got := c.Get(7); got != "7" {
			t.Fatalf("got %q", got)
		}
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
	if s := c.Stats(); s.Hits != 2 || s.Misses != 1 {
		t.Errorf("unexpected stats %+v", s)
	}
}

func TestClearOnOverflow(t *testing.T) {
	c := New(3, func(n int) int { return n * n })

	for i := 0; i < 3; i++ {
		c.Get(i)
	}
	if c.Len() != 3 {
		t.Fatalf("expected 3 entries, got %d", c.Len())
	}

	if got := c.Get(10); got != 100 {
		t.Errorf("got %d", got)
	}
	if c.Len() != 1 {
		t.Errorf("expected cache cleared to 1 entry, got %d", c.Len())
	}
	if c.Stats().Flushes != 1 {
		t.Errorf("expected 1 flush, got %d", c.Stats().Flushes)
	}

	for i := 0; i < 50; i++ {
		c.Get(i)
		if c.Len() > c.Capacity() {
			t.Fatalf("cache grew past capacity: %d", c.Len())
		}
	}
}

func TestMinimumCapacity(t *testing.T) {
	c := New(0, func(s string) int { return len(s) })
	c.Get("a")
	c.Get("bb")
	if c.Capacity() != 1 || c.Len() != 1 {
		t.Errorf("expected capacity 1 holding 1 entry, got cap=%d len=%d", c.Capacity(), c.Len())
	}
}
