package checkout

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/redis"
	"github.com/angelmondragon/storefront-backend/pkg/security"
)

// Challenge is the arithmetic question shown on the checkout form.
type Challenge struct {
	A int `json:"a"`
	B int `json:"b"`
}

// Question renders the challenge for display.
func (c Challenge) Question() string {
	return fmt.Sprintf("%d + %d", c.A, c.B)
}

// ChallengeStore keeps the expected answer per session.
type ChallengeStore interface {
	Save(ctx context.Context, sessionID string, answer int) error
	// Expected returns false when no answer is stored for the session.
	Expected(ctx context.Context, sessionID string) (int, bool, error)
	Clear(ctx context.Context, sessionID string) error
}

type kvStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	ChallengeKey(sessionID string) string
}

type redisChallenges struct {
	kv  kvStore
	ttl time.Duration
}

// NewRedisChallengeStore stores answers under the session's challenge key.
func NewRedisChallengeStore(kv kvStore, ttl time.Duration) ChallengeStore {
	return &redisChallenges{kv: kv, ttl: ttl}
}

func (s *redisChallenges) Save(ctx context.Context, sessionID string, answer int) error {
	return s.kv.Set(ctx, s.kv.ChallengeKey(sessionID), strconv.Itoa(answer), s.ttl)
}

func (s *redisChallenges) Expected(ctx context.Context, sessionID string) (int, bool, error) {
	raw, err := s.kv.Get(ctx, s.kv.ChallengeKey(sessionID))
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	answer, err := strconv.Atoi(raw)
	if err != nil {
		// treat a corrupted value like a missing one
		return 0, false, nil
	}
	return answer, true, nil
}

func (s *redisChallenges) Clear(ctx context.Context, sessionID string) error {
	return s.kv.Del(ctx, s.kv.ChallengeKey(sessionID))
}

// randomChallenge draws both operands from [min, max].
func randomChallenge(min, max int) (Challenge, error) {
	a, err := security.RandomInt(min, max)
	if err != nil {
		return Challenge{}, err
	}
	b, err := security.RandomInt(min, max)
	if err != nil {
		return Challenge{}, err
	}
	return Challenge{A: a, B: b}, nil
}
