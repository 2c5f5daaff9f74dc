package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/storefront-backend/pkg/config"
)

func TestOptionsFromConfigRequiresAddress(t *testing.T) {
	if _, err := optionsFromConfig(config.RedisConfig{}); err == nil {
		t.Fatal("expected error when url and address are empty")
	}
}

func TestOptionsFromConfigParsesURL(t *testing.T) {
	opts, err := optionsFromConfig(config.RedisConfig{URL: "redis://localhost:6380/2", PoolSize: 7})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.Addr != "localhost:6380" || opts.DB != 2 {
		t.Fatalf("unexpected options %+v", opts)
	}
	if opts.PoolSize != 7 {
		t.Fatalf("expected pool size fallback from config, got %d", opts.PoolSize)
	}
}

func TestIncrWithTTLSetsExpireOnFirstHit(t *testing.T) {
	mock := newMockCmdable()
	client := &Client{store: mock}
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := client.IncrWithTTL(ctx, "k", time.Minute); err != nil {
			t.Fatalf("incr failed: %v", err)
		}
	}
	if len(mock.expireCalls) != 1 {
		t.Fatalf("expected a single expire call, got %d", len(mock.expireCalls))
	}
}

func TestFixedWindowAllow(t *testing.T) {
	client := &Client{store: newMockCmdable()}
	ctx := context.Background()

	for i := 1; i <= 2; i++ {
		ok, count, err := client.FixedWindowAllow(ctx, "login:1.2.3.4", 2, time.Minute)
		if err != nil || !ok || count != int64(i) {
			t.Fatalf("attempt %d: ok=%v count=%d err=%v", i, ok, count, err)
		}
	}
	ok, _, err := client.FixedWindowAllow(ctx, "login:1.2.3.4", 2, time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("third attempt should exceed the window")
	}
}

func TestGetDelIsSingleUse(t *testing.T) {
	client := &Client{store: newMockCmdable()}
	ctx := context.Background()

	if err := client.Set(ctx, client.ChallengeKey("sess"), "7", time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	v, err := client.GetDel(ctx, client.ChallengeKey("sess"))
	if err != nil || v != "7" {
		t.Fatalf("expected stored answer, got %q (%v)", v, err)
	}
	if _, err := client.GetDel(ctx, client.ChallengeKey("sess")); err != Nil {
		t.Fatalf("expected Nil on second read, got %v", err)
	}
}

func TestAppendAndList(t *testing.T) {
	mock := newMockCmdable()
	client := &Client{store: mock}
	ctx := context.Background()
	key := client.FlashKey("sess")

	if err := client.Append(ctx, key, time.Hour, "a", "b"); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := client.Append(ctx, key, time.Hour, "c"); err != nil {
		t.Fatalf("append: %v", err)
	}
	got, err := client.List(ctx, key)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if fmt.Sprint(got) != "[a b c]" {
		t.Fatalf("unexpected list %v", got)
	}
	if len(mock.expireCalls) != 2 {
		t.Fatalf("each append should refresh ttl, got %d calls", len(mock.expireCalls))
	}
	if err := client.Del(ctx, key); err != nil {
		t.Fatalf("del: %v", err)
	}
	got, _ = client.List(ctx, key)
	if len(got) != 0 {
		t.Fatalf("expected empty list after delete, got %v", got)
	}
}

func TestUninitializedClient(t *testing.T) {
	client := &Client{}
	if err := client.Ping(context.Background()); err != errNotInitialized {
		t.Fatalf("expected errNotInitialized, got %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("close on empty client should be a no-op: %v", err)
	}
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{}
	if got := client.IdempotencyKey("scope", "id"); got != "sf:idempotency:scope:id" {
		t.Fatalf("unexpected idempotency key %s", got)
	}
	if got := client.RateLimitKey("scope"); got != "sf:rate_limit:scope" {
		t.Fatalf("unexpected rate limit key %s", got)
	}
	if got := client.AccessSessionKey("jti"); got != "sf:session:access:jti" {
		t.Fatalf("unexpected session key %s", got)
	}
	if got := client.ChallengeKey("jti"); got != "sf:checkout_challenge:jti" {
		t.Fatalf("unexpected challenge key %s", got)
	}
	if got := client.FlashKey(" jti "); got != "sf:flash:jti" {
		t.Fatalf("flash key should trim parts, got %s", got)
	}
	if got := client.LockKey(""); got != "sf:lock" {
		t.Fatalf("empty parts should be skipped, got %s", got)
	}
}

type mockCmdable struct {
	data        map[string]string
	lists       map[string][]string
	incr        map[string]int64
	expireCalls []expireCall
}

type expireCall struct {
	key string
	ttl time.Duration
}

func newMockCmdable() *mockCmdable {
	return &mockCmdable{
		data:  make(map[string]string),
		lists: make(map[string][]string),
		incr:  make(map[string]int64),
	}
}

func (m *mockCmdable) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (m *mockCmdable) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	m.data[key] = fmt.Sprint(value)
	return redis.NewStatusResult("OK", nil)
}

func (m *mockCmdable) Get(ctx context.Context, key string) *redis.StringCmd {
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *mockCmdable) GetDel(ctx context.Context, key string) *redis.StringCmd {
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	delete(m.data, key)
	return redis.NewStringResult(v, nil)
}

func (m *mockCmdable) SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd {
	if _, exists := m.data[key]; exists {
		return redis.NewBoolResult(false, nil)
	}
	m.data[key] = fmt.Sprint(value)
	return redis.NewBoolResult(true, nil)
}

func (m *mockCmdable) Incr(ctx context.Context, key string) *redis.IntCmd {
	m.incr[key]++
	return redis.NewIntResult(m.incr[key], nil)
}

func (m *mockCmdable) Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	m.expireCalls = append(m.expireCalls, expireCall{key: key, ttl: expiration})
	return redis.NewBoolResult(true, nil)
}

func (m *mockCmdable) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	for _, key := range keys {
		delete(m.data, key)
		delete(m.lists, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func (m *mockCmdable) RPush(ctx context.Context, key string, values ...any) *redis.IntCmd {
	for _, v := range values {
		m.lists[key] = append(m.lists[key], fmt.Sprint(v))
	}
	return redis.NewIntResult(int64(len(m.lists[key])), nil)
}

func (m *mockCmdable) LRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd {
	return redis.NewStringSliceResult(append([]string(nil), m.lists[key]...), nil)
}
