package checkout

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

type fakeKV struct {
	values map[string]string
	ttl    time.Duration
}

func (f *fakeKV) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	f.values[key] = value.(string)
	f.ttl = ttl
	return nil
}

func (f *fakeKV) Get(_ context.Context, key string) (string, error) {
	v, ok := f.values[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (f *fakeKV) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(f.values, k)
	}
	return nil
}

func (f *fakeKV) ChallengeKey(sessionID string) string {
	return "sf:checkout_challenge:" + sessionID
}

func TestRedisChallengeStoreRoundTrip(t *testing.T) {
	kv := &fakeKV{values: map[string]string{}}
	store := NewRedisChallengeStore(kv, 30*time.Minute)
	ctx := context.Background()

	_, ok, err := store.Expected(ctx, "s")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.Save(ctx, "s", 12))
	require.Equal(t, 30*time.Minute, kv.ttl)
	require.Equal(t, "12", kv.values["sf:checkout_challenge:s"])

	got, ok, err := store.Expected(ctx, "s")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 12, got)

	require.NoError(t, store.Clear(ctx, "s"))
	_, ok, _ = store.Expected(ctx, "s")
	require.False(t, ok)
}

func TestCorruptedAnswerCountsAsMissing(t *testing.T) {
	kv := &fakeKV{values: map[string]string{"sf:checkout_challenge:s": "x"}}
	_, ok, err := NewRedisChallengeStore(kv, time.Minute).Expected(context.Background(), "s")
	require.NoError(t, err)
	require.False(t, ok)
}
