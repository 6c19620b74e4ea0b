package cache

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func newTestCache(size int, ttl time.Duration) (*LRUCache[int], *fakeClock) {
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[int](size, ttl)
	c.now = clock.Now
	return c, clock
}

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c, _ := newTestCache(2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected a")
	}
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Fatal("b should have been evicted")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("a = %d, %v", v, ok)
	}
	if c.Size() != 2 {
		t.Fatalf("size = %d", c.Size())
	}
}

func TestLRUTTL(t *testing.T) {
	c, clock := newTestCache(10, time.Minute)
	c.Set("k", 42)
	clock.Advance(59 * time.Second)
	if _, ok := c.Get("k"); !ok {
		t.Fatal("entry expired too early")
	}
	clock.Advance(2 * time.Second)
	if _, ok := c.Get("k"); ok {
		t.Fatal("entry should be expired")
	}
	if c.Size() != 0 {
		t.Fatalf("expired entry not removed, size = %d", c.Size())
	}
}

func TestCleanExpired(t *testing.T) {
	c, clock := newTestCache(10, time.Minute)
	for i := 0; i < 3; i++ {
		c.Set(fmt.Sprint(i), i)
	}
	clock.Advance(2 * time.Minute)
	c.Set("fresh", 9)

	m := NewManager()
	m.Register(c)
	if n := m.CleanOnce(); n != 3 {
		t.Fatalf("removed %d, want 3", n)
	}
	if c.Size() != 1 {
		t.Fatalf("size = %d, want 1", c.Size())
	}
}

func TestGetOrLoad(t *testing.T) {
	c, _ := newTestCache(10, time.Minute)
	calls := 0
	load := func() (int, error) {
		calls++
		return 7, nil
	}
	for i := 0; i < 3; i++ {
		v, err := c.GetOrLoad("k", load)
		if err != nil || v != 7 {
			t.Fatalf("GetOrLoad = %d, %v", v, err)
		}
	}
	if calls != 1 {
		t.Fatalf("loader called %d times, want 1", calls)
	}

	boom := errors.New("boom")
	if _, err := c.GetOrLoad("bad", func() (int, error) { return 0, boom }); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if _, ok := c.Get("bad"); ok {
		t.Fatal("errors must not be cached")
	}

	s := c.Stats()
	if s.Hits != 2 || s.Size != 1 {
		t.Fatalf("stats = %+v", s)
	}
}

func TestGetOrLoadDropsResultDeletedMidLoad(t *testing.T) {
	c, _ := newTestCache(10, time.Minute)

	v, err := c.GetOrLoad("k", func() (int, error) {
		c.Delete("k")
		return 1, nil
	})
	if err != nil || v != 1 {
		t.Fatalf("GetOrLoad = %d, %v", v, err)
	}
	if _, ok := c.Get("k"); ok {
		t.Fatal("a load overtaken by Delete must not be cached")
	}

	v, _ = c.GetOrLoad("k", func() (int, error) { return 2, nil })
	if got, ok := c.Get("k"); !ok || got != 2 || v != 2 {
		t.Fatalf("next load should be cached, got %d, %v", got, ok)
	}
}

func TestGetOrLoadConcurrentDelete(t *testing.T) {
	c := NewLRUCache[int](10, time.Minute)
	var (
		mu      sync.Mutex
		version int
	)
	read := func() (int, error) {
		mu.Lock()
		defer mu.Unlock()
		return version, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.GetOrLoad("k", read)
			}
		}()
	}
	for j := 0; j < 50; j++ {
		mu.Lock()
		version++
		mu.Unlock()
		c.Delete("k")
	}
	wg.Wait()

	got, err := c.GetOrLoad("k", read)
	if err != nil || got != 50 {
		t.Fatalf("after the last write GetOrLoad = %d, %v; want 50", got, err)
	}
}

func TestManagerStartStop(t *testing.T) {
	m := NewManager()
	m.StartCleanup(time.Millisecond)
	m.StartCleanup(time.Millisecond)
	m.Stop()
	m.Stop()
}
