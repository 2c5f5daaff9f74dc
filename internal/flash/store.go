package flash

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

const defaultTTL = time.Hour

// Message is a one-shot notice shown on the next page the shopper loads.
type Message struct {
	Level   enums.FlashLevel `json:"level"`
	Message string           `json:"message"`
}

type listStore interface {
	Append(ctx context.Context, key string, ttl time.Duration, values ...string) error
	List(ctx context.Context, key string) ([]string, error)
	Del(ctx context.Context, keys ...string) error
	FlashKey(sessionID string) string
}

// Store keeps pending messages per session in a redis list.
type Store struct {
	kv  listStore
	ttl time.Duration
}

func NewStore(kv listStore, ttl time.Duration) (*Store, error) {
	if kv == nil {
		return nil, errors.New("flash store requires a redis client")
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Store{kv: kv, ttl: ttl}, nil
}

func (s *Store) Push(ctx context.Context, sessionID string, level enums.FlashLevel, msg string) error {
	if !level.IsValid() {
		level = enums.FlashInfo
	}
	raw, err := json.Marshal(Message{Level: level, Message: msg})
	if err != nil {
		return fmt.Errorf("encode flash: %w", err)
	}
	return s.kv.Append(ctx, s.kv.FlashKey(sessionID), s.ttl, string(raw))
}

// Pop returns and clears the session's pending messages.
func (s *Store) Pop(ctx context.Context, sessionID string) ([]Message, error) {
	key := s.kv.FlashKey(sessionID)
	raw, err := s.kv.List(ctx, key)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}
	if err := s.kv.Del(ctx, key); err != nil {
		return nil, err
	}
	out := make([]Message, 0, len(raw))
	for _, item := range raw {
		var m Message
		if err := json.Unmarshal([]byte(item), &m); err != nil {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}
