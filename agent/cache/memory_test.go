package cache

import (
	"context"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func TestMemoryRoundTripAndExpiry(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clock := newClock()
	m := NewMemory(WithClock(clock.Now))

	if err := m.Set(ctx, "k", []byte(`[1,2,3]`), 5*time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got, ok, err := m.Get(ctx, "k")
	if err != nil || !ok || string(got) != `[1,2,3]` {
		t.Fatalf("Get() = %q,%v,%v", got, ok, err)
	}

	clock.Advance(5*time.Minute - time.Second)
	if _, ok, _ := m.Get(ctx, "k"); !ok {
		t.Fatal("entry expired before ttl")
	}

	clock.Advance(time.Second)
	if _, ok, _ := m.Get(ctx, "k"); ok {
		t.Fatal("entry still served after ttl")
	}
}

func TestMemoryHitDoesNotShareStorage(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := NewMemory()
	in := []byte(`{"a":1}`)
	_ = m.Set(ctx, "k", in, time.Minute)
	in[0] = 'X'

	first, _, _ := m.Get(ctx, "k")
	first[1] = 'Y'

	second, _, _ := m.Get(ctx, "k")
	if string(second) != `{"a":1}` {
		t.Fatalf("stored value mutated: %q", second)
	}
}

func TestMemorySweepRemovesExpiredOnly(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clock := newClock()
	m := NewMemory(WithClock(clock.Now))

	_ = m.Set(ctx, "short", []byte("1"), time.Minute)
	_ = m.Set(ctx, "long", []byte("2"), 10*time.Minute)

	clock.Advance(2 * time.Minute)
	if removed := m.Sweep(); removed != 1 {
		t.Fatalf("Sweep() removed %d, want 1", removed)
	}
	if m.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", m.Len())
	}
	if _, ok, _ := m.Get(ctx, "long"); !ok {
		t.Fatal("unexpired entry swept")
	}
}

func TestMemoryCapEvictsOldestExpiringFirst(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clock := newClock()
	m := NewMemory(WithClock(clock.Now), WithMaxEntries(2))

	_ = m.Set(ctx, "a", []byte("a"), 3*time.Minute)
	_ = m.Set(ctx, "b", []byte("b"), time.Minute)
	_ = m.Set(ctx, "c", []byte("c"), 5*time.Minute)

	if _, ok, _ := m.Get(ctx, "b"); ok {
		t.Fatal("oldest-expiring entry b should be evicted")
	}
	for _, k := range []string{"a", "c"} {
		if _, ok, _ := m.Get(ctx, k); !ok {
			t.Fatalf("entry %s evicted", k)
		}
	}
}

func TestMemoryByteCap(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := NewMemory(WithMaxBytes(10))

	_ = m.Set(ctx, "a", []byte("123456"), time.Minute)
	_ = m.Set(ctx, "b", []byte("123456"), time.Minute)

	if m.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", m.Len())
	}
	if _, ok, _ := m.Get(ctx, "b"); !ok {
		t.Fatal("newest entry evicted")
	}
}

func TestMemoryFlushAndRun(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	m := NewMemory(WithSweepInterval(time.Millisecond))
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	_ = m.Set(ctx, "k", []byte("v"), time.Minute)
	if err := m.Flush(ctx); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if m.Len() != 0 {
		t.Fatalf("Len() after flush = %d", m.Len())
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop on cancel")
	}
}
