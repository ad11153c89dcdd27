package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type eventLog struct {
	mu     sync.Mutex
	events []ChangeEvent
}

func (l *eventLog) add(ev ChangeEvent) {
	l.mu.Lock()
	l.events = append(l.events, ev)
	l.mu.Unlock()
}

func (l *eventLog) snapshot() []ChangeEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]ChangeEvent(nil), l.events...)
}

func TestMemoryStoreGetSetDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryBackend().Connect()

	_, ok, err := s.Get(ctx, KeyUserData)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, KeyUserData, `{"username":"a"}`))
	v, ok, err := s.Get(ctx, KeyUserData)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"username":"a"}`, v)

	require.NoError(t, s.Delete(ctx, KeyUserData))
	_, ok, _ = s.Get(ctx, KeyUserData)
	assert.False(t, ok)
}

func TestMemoryStoreNotifiesOtherContextsOnly(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	writer := backend.Connect()
	watcher := backend.Connect()
	assert.NotEqual(t, writer.Origin(), watcher.Origin())

	var own, other eventLog
	_, err := writer.OnChange(ctx, []string{KeyAttendanceData}, own.add)
	require.NoError(t, err)
	sub, err := watcher.OnChange(ctx, []string{KeyAttendanceData}, other.add)
	require.NoError(t, err)

	require.NoError(t, writer.Set(ctx, KeyAttendanceData, `{}`))
	require.NoError(t, writer.Set(ctx, KeyUserData, `{}`)) // not watched
	require.NoError(t, writer.Delete(ctx, KeyAttendanceData))
	require.NoError(t, writer.Delete(ctx, KeyAttendanceData)) // already gone

	assert.Empty(t, own.snapshot())
	got := other.snapshot()
	require.Len(t, got, 2)
	assert.Equal(t, ChangeEvent{Key: KeyAttendanceData, Origin: writer.Origin()}, got[0])
	assert.True(t, got[1].Deleted)

	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())
	require.NoError(t, writer.Set(ctx, KeyAttendanceData, `{}`))
	assert.Len(t, other.snapshot(), 2)
}

func TestMemorySubscriptionEndsWithContext(t *testing.T) {
	backend := NewMemoryBackend()
	writer := backend.Connect()
	watcher := backend.Connect()

	ctx, cancel := context.WithCancel(context.Background())
	var events eventLog
	_, err := watcher.OnChange(ctx, []string{KeyUserData}, events.add)
	require.NoError(t, err)
	cancel()

	assert.Eventually(t, func() bool {
		backend.mu.RLock()
		defer backend.mu.RUnlock()
		return len(backend.subs) == 0
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, writer.Set(context.Background(), KeyUserData, `{}`))
	assert.Empty(t, events.snapshot())
}

func TestGetJSON(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryBackend().Connect()

	var v map[string]int
	ok, err := GetJSON(ctx, s, "missing", &v)
	assert.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, SetJSON(ctx, s, "n", map[string]int{"a": 1}))
	ok, err = GetJSON(ctx, s, "n", &v)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, v["a"])

	require.NoError(t, s.Set(ctx, "bad", "{"))
	_, err = GetJSON(ctx, s, "bad", &v)
	assert.True(t, IsMalformed(err))
	assert.Contains(t, err.Error(), "bad")

	assert.False(t, IsMalformed(nil))
}
