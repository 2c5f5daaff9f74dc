package flash

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

type memoryLists struct {
	lists map[string][]string
	ttls  map[string]time.Duration
}

func newMemoryLists() *memoryLists {
	return &memoryLists{lists: map[string][]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryLists) Append(_ context.Context, key string, ttl time.Duration, values ...string) error {
	m.lists[key] = append(m.lists[key], values...)
	m.ttls[key] = ttl
	return nil
}

func (m *memoryLists) List(_ context.Context, key string) ([]string, error) {
	return m.lists[key], nil
}

func (m *memoryLists) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.lists, k)
	}
	return nil
}

func (m *memoryLists) FlashKey(sessionID string) string {
	return "sf:flash:" + sessionID
}

func TestPushThenPopClears(t *testing.T) {
	kv := newMemoryLists()
	store, err := NewStore(kv, 0)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Push(ctx, "s1", enums.FlashSuccess, "Derby added to cart!"))
	require.NoError(t, store.Push(ctx, "s1", enums.FlashLevel("loud"), "unknown level"))
	require.Equal(t, defaultTTL, kv.ttls["sf:flash:s1"])

	got, err := store.Pop(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, []Message{
		{Level: enums.FlashSuccess, Message: "Derby added to cart!"},
		{Level: enums.FlashInfo, Message: "unknown level"},
	}, got)

	again, err := store.Pop(ctx, "s1")
	require.NoError(t, err)
	require.Empty(t, again)
}

func TestSessionsAreIsolated(t *testing.T) {
	store, err := NewStore(newMemoryLists(), time.Minute)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, store.Push(ctx, "a", enums.FlashWarning, "for a"))

	got, err := store.Pop(ctx, "b")
	require.NoError(t, err)
	require.Empty(t, got)
}
