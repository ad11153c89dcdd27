package store

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryBackend is process-local shared storage. Each Connect call returns a
// separate context, so tests and single-binary deployments can run several
// schedulers against the same data.
type MemoryBackend struct {
	mu     sync.RWMutex
	data   map[string]string
	subs   map[int]*memorySub
	nextID int
}

type memorySub struct {
	id      int
	origin  string
	keys    []string
	fn      ChangeFunc
	backend *MemoryBackend
	done    chan struct{}
	once    sync.Once
}

func (s *memorySub) Close() error {
	s.once.Do(func() {
		s.backend.mu.Lock()
		delete(s.backend.subs, s.id)
		s.backend.mu.Unlock()
		close(s.done)
	})
	return nil
}

// NewMemoryBackend สร้าง storage ในหน่วยความจำ
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		data: make(map[string]string),
		subs: make(map[int]*memorySub),
	}
}

// Connect returns a new context bound to the backend.
func (b *MemoryBackend) Connect() *MemoryStore {
	return &MemoryStore{backend: b, origin: uuid.NewString()}
}

func (b *MemoryBackend) notify(ev ChangeEvent) {
	b.mu.RLock()
	var targets []*memorySub
	for _, s := range b.subs {
		if s.origin != ev.Origin && watches(s.keys, ev.Key) {
			targets = append(targets, s)
		}
	}
	b.mu.RUnlock()

	for _, s := range targets {
		s.fn(ev)
	}
}

// MemoryStore is one context's handle on a MemoryBackend.
type MemoryStore struct {
	backend *MemoryBackend
	origin  string
}

var _ Store = (*MemoryStore)(nil)

func (m *MemoryStore) Origin() string { return m.origin }

func (m *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	m.backend.mu.RLock()
	defer m.backend.mu.RUnlock()
	v, ok := m.backend.data[key]
	return v, ok, nil
}

func (m *MemoryStore) Set(_ context.Context, key, value string) error {
	m.backend.mu.Lock()
	m.backend.data[key] = value
	m.backend.mu.Unlock()

	m.backend.notify(ChangeEvent{Key: key, Origin: m.origin})
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.backend.mu.Lock()
	_, existed := m.backend.data[key]
	delete(m.backend.data, key)
	m.backend.mu.Unlock()

	if existed {
		m.backend.notify(ChangeEvent{Key: key, Origin: m.origin, Deleted: true})
	}
	return nil
}

func (m *MemoryStore) OnChange(ctx context.Context, keys []string, fn ChangeFunc) (Subscription, error) {
	b := m.backend
	b.mu.Lock()
	b.nextID++
	sub := &memorySub{
		id:      b.nextID,
		origin:  m.origin,
		keys:    append([]string(nil), keys...),
		fn:      fn,
		backend: b,
		done:    make(chan struct{}),
	}
	b.subs[sub.id] = sub
	b.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			_ = sub.Close()
		case <-sub.done:
		}
	}()
	return sub, nil
}
