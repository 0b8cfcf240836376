package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/tanpawarit/Chative-Local-Concierge/agent/metrics"
)

const DefaultSweepInterval = 60 * time.Second

type memoryEntry struct {
	key     string
	value   []byte
	expires time.Time
}

// Memory is an in-process Backend. Entries are kept in expiry order so both
// the sweeper and the size cap drop the oldest-expiring entries first.
type Memory struct {
	mu         sync.Mutex
	items      map[string]*list.Element
	order      *list.List
	size       int
	maxBytes   int
	maxEntries int
	sweepEvery time.Duration
	now        func() time.Time
}

var _ Backend = (*Memory)(nil)

type MemoryOption func(*Memory)

func WithMaxBytes(n int) MemoryOption {
	return func(m *Memory) {
		m.maxBytes = n
	}
}

func WithMaxEntries(n int) MemoryOption {
	return func(m *Memory) {
		m.maxEntries = n
	}
}

func WithSweepInterval(d time.Duration) MemoryOption {
	return func(m *Memory) {
		if d > 0 {
			m.sweepEvery = d
		}
	}
}

func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) {
		if now != nil {
			m.now = now
		}
	}
}

func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		items:      make(map[string]*list.Element),
		order:      list.New(),
		sweepEvery: DefaultSweepInterval,
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	el, ok := m.items[key]
	if !ok {
		return nil, false, nil
	}
	entry := el.Value.(*memoryEntry)
	if !m.now().Before(entry.expires) {
		m.remove(el)
		return nil, false, nil
	}
	return append([]byte(nil), entry.value...), true, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	entry := &memoryEntry{
		key:     key,
		value:   append([]byte(nil), value...),
		expires: m.now().Add(ttl),
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if el, ok := m.items[key]; ok {
		m.remove(el)
	}

	// walk from the back: with a fixed TTL the new entry is almost always last
	mark := m.order.Back()
	for mark != nil && mark.Value.(*memoryEntry).expires.After(entry.expires) {
		mark = mark.Prev()
	}
	var el *list.Element
	if mark == nil {
		el = m.order.PushFront(entry)
	} else {
		el = m.order.InsertAfter(entry, mark)
	}
	m.items[key] = el
	m.size += len(entry.value)

	m.evict()
	metrics.CacheEntries.Set(float64(len(m.items)))
	return nil
}

func (m *Memory) Flush(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = make(map[string]*list.Element)
	m.order.Init()
	m.size = 0
	metrics.CacheEntries.Set(0)
	return nil
}

// Sweep drops expired entries and returns how many were removed.
func (m *Memory) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for el := m.order.Front(); el != nil; el = m.order.Front() {
		if now.Before(el.Value.(*memoryEntry).expires) {
			break
		}
		m.remove(el)
		removed++
	}
	metrics.CacheEntries.Set(float64(len(m.items)))
	return removed
}

// Run sweeps on a fixed interval until ctx is done.
func (m *Memory) Run(ctx context.Context) {
	ticker := time.NewTicker(m.sweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

func (m *Memory) evict() {
	for el := m.order.Front(); el != nil && m.overCap(); el = m.order.Front() {
		m.remove(el)
	}
}

func (m *Memory) overCap() bool {
	if m.maxEntries > 0 && len(m.items) > m.maxEntries {
		return true
	}
	return m.maxBytes > 0 && m.size > m.maxBytes
}

func (m *Memory) remove(el *list.Element) {
	entry := el.Value.(*memoryEntry)
	m.order.Remove(el)
	delete(m.items, entry.key)
	m.size -= len(entry.value)
}
