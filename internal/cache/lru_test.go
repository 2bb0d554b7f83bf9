package cache

import (
	"testing"
	"time"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }
func (c *clock) add(d time.Duration) { c.t = c.t.Add(d) }

func TestLRUEvictsOldest(t *testing.T) {
	var evicted []string
	c := NewLRUCache[int](2, time.Hour, WithEvictHandler(func(k string, _ int) {
		evicted = append(evicted, k)
	}))
	c.Set("a", 1)
	c.Set("b", 2)
	if _, ok := c.Get("a"); !ok {
		t.Fatalf("expected a")
	}
	c.Set("c", 3)
	if _, ok := c.Get("b"); ok {
		t.Fatalf("expected b to be evicted")
	}
	if len(evicted) != 1 || evicted[0] != "b" {
		t.Fatalf("unexpected evictions: %v", evicted)
	}
	if c.Size() != 2 {
		t.Fatalf("expected size 2, got %d", c.Size())
	}
}

func TestLRUExpiry(t *testing.T) {
	clk := &clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	var evicted int
	c := NewLRUCache[string](10, time.Minute,
		WithClock[string](clk.now),
		WithEvictHandler(func(string, string) { evicted++ }))
	c.Set("a", "x")
	c.Set("b", "y")

	clk.add(2 * time.Minute)
	if _, ok := c.Get("a"); ok {
		t.Fatalf("expected a to be expired")
	}
	if n := c.CleanExpired(); n != 1 {
		t.Fatalf("expected 1 cleaned, got %d", n)
	}
	if evicted != 2 {
		t.Fatalf("expected 2 evictions, got %d", evicted)
	}
}

func TestLRUSlidingTTL(t *testing.T) {
	clk := &clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[int](10, time.Minute, WithClock[int](clk.now), WithSlidingTTL[int]())
	c.Set("a", 1)
	for i := 0; i < 5; i++ {
		clk.add(45 * time.Second)
		if _, ok := c.Get("a"); !ok {
			t.Fatalf("step %d: expected a to stay alive", i)
		}
	}
	clk.add(2 * time.Minute)
	if _, ok := c.Get("a"); ok {
		t.Fatalf("expected a to expire once idle")
	}
}

func TestLRUDeleteAndClear(t *testing.T) {
	var evicted []int
	c := NewLRUCache[int](10, time.Hour, WithEvictHandler(func(_ string, v int) {
		evicted = append(evicted, v)
	}))
	c.Set("a", 1)
	c.Set("a", 2) // replacement evicts the old value
	if !c.Delete("a") || c.Delete("a") {
		t.Fatalf("unexpected delete results")
	}
	c.Set("b", 3)
	c.Set("c", 4)
	c.Clear()
	if c.Size() != 0 {
		t.Fatalf("expected empty cache")
	}
	if len(evicted) != 4 {
		t.Fatalf("expected 4 evictions, got %v", evicted)
	}
}

func TestManagerSweep(t *testing.T) {
	clk := &clock{t: time.Now()}
	c := NewLRUCache[int](10, time.Second, WithClock[int](clk.now))
	c.Set("a", 1)
	m := NewManager(nil)
	m.Register(c)
	clk.add(time.Minute)
	if n := m.Sweep(); n != 1 {
		t.Fatalf("expected 1 swept, got %d", n)
	}
	m.StartCleanup(time.Hour)
	m.Stop()
	m.Stop()
}
