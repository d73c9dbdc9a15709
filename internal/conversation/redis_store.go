package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const defaultSessionTTL = 24 * time.Hour

// RedisStore persists session histories in Redis with a TTL, for
// deployments where sessions must survive a restart. The TTL doubles as
// the eviction policy: idle sessions age out instead of growing without
// bound.
//
// Mutations are read-modify-write, serialized by an in-process lock per
// session ID. Route all traffic for one session through one process.
// Locks are released back to the registry after each operation so idle
// session IDs hold no memory here, mirroring the TTL on the keys.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	tracer trace.Tracer
	locks  *sessionLocks
}

// NewRedisStore creates a Redis-backed store. A non-positive TTL falls
// back to 24 hours.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if client == nil {
		panic("conversation: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &RedisStore{
		client: client,
		ttl:    ttl,
		tracer: otel.Tracer("chatgate.internal.conversation.redis"),
		locks:  newSessionLocks(),
	}
}

func sessionKey(sessionID string) string {
	return fmt.Sprintf("chatgate:session:%s", sessionID)
}

// Append adds turns to the end of the session's history.
func (s *RedisStore) Append(ctx context.Context, sessionID string, turns ...Turn) error {
	ctx, span := s.tracer.Start(ctx, "conversation.append")
	defer span.End()

	s.locks.Lock(sessionID)
	defer s.locks.Unlock(sessionID)

	history, err := s.load(ctx, sessionID)
	if err != nil {
		span.RecordError(err)
		return err
	}
	history = append(history, turns...)
	if err := s.save(ctx, sessionID, history); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

// RetractLastAssistantTurn removes the final turn when it is an
// assistant turn and reports whether it did.
func (s *RedisStore) RetractLastAssistantTurn(ctx context.Context, sessionID string) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "conversation.retract_last_assistant_turn")
	defer span.End()

	s.locks.Lock(sessionID)
	defer s.locks.Unlock(sessionID)

	history, err := s.load(ctx, sessionID)
	if err != nil {
		span.RecordError(err)
		return false, err
	}
	n := len(history)
	if n == 0 || history[n-1].Role != RoleAssistant {
		return false, nil
	}
	if err := s.save(ctx, sessionID, history[:n-1]); err != nil {
		span.RecordError(err)
		return false, err
	}
	return true, nil
}

// Messages returns the session's history, oldest first. An unknown
// session yields an empty history.
func (s *RedisStore) Messages(ctx context.Context, sessionID string) ([]Turn, error) {
	ctx, span := s.tracer.Start(ctx, "conversation.messages")
	defer span.End()

	history, err := s.load(ctx, sessionID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return history, nil
}

func (s *RedisStore) load(ctx context.Context, sessionID string) ([]Turn, error) {
	data, err := s.client.Get(ctx, sessionKey(sessionID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("conversation: failed to load history: %w", err)
	}
	var history []Turn
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, fmt.Errorf("conversation: failed to decode history: %w", err)
	}
	return history, nil
}

func (s *RedisStore) save(ctx context.Context, sessionID string, history []Turn) error {
	data, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("conversation: failed to marshal history: %w", err)
	}
	if err := s.client.Set(ctx, sessionKey(sessionID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("conversation: failed to persist history: %w", err)
	}
	return nil
}
