package session

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/prepwise/prepwise/internal/domain"
	"github.com/prepwise/prepwise/internal/errors"
)

// DefaultRetention keeps terminal sessions readable after their deadline so
// the lazy expiry flip stays observable instead of decaying into NotFound.
const DefaultRetention = 24 * time.Hour

type StoreConfig struct {
	Redis     redis.UniversalClient
	Prefix    string
	Retention time.Duration
}

// RedisStore keeps each session as a JSON document with a TTL past its
// deadline, plus a per-user lock enforcing the single-active-session
// invariant at the storage layer (SETNX, so concurrent starts cannot race
// past the check).
type RedisStore struct {
	redis     redis.UniversalClient
	prefix    string
	retention time.Duration
}

func NewStore(c StoreConfig) *RedisStore {
	s := &RedisStore{
		redis:     c.Redis,
		prefix:    c.Prefix,
		retention: c.Retention,
	}

	if s.retention <= 0 {
		s.retention = DefaultRetention
	}

	return s
}

func (s *RedisStore) Create(ctx context.Context, ss *domain.Session) error {
	lockTTL := time.Until(ss.ExpiresAt)
	if lockTTL > 0 {
		ok, err := s.redis.SetNX(ctx, s.activeKey(ss.UserID), ss.SessionID, lockTTL).Result()
		if err != nil {
			return fmt.Errorf("acquire active session lock: %w", err)
		}
		if !ok {
			holder, err := s.redis.Get(ctx, s.activeKey(ss.UserID)).Result()
			if err != nil && !stderrors.Is(err, redis.Nil) {
				return fmt.Errorf("read active session lock: %w", err)
			}
			return &ActiveSessionError{SessionID: holder}
		}
	}

	return s.write(ctx, ss)
}

func (s *RedisStore) Get(ctx context.Context, sessionID, userID string) (*domain.Session, error) {
	b, err := s.redis.Get(ctx, s.sessionKey(sessionID)).Bytes()
	if stderrors.Is(err, redis.Nil) {
		return nil, errors.New(errors.CodeNotFound,
			errors.WithMessagef("mock session not found: session=%s", sessionID))
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	var ss domain.Session
	if err := json.Unmarshal(b, &ss); err != nil {
		return nil, fmt.Errorf("unmarshal session %s: %w", sessionID, err)
	}

	// Ownership check folds into NotFound so non-owners learn nothing.
	if ss.UserID != userID {
		return nil, errors.New(errors.CodeNotFound,
			errors.WithMessagef("mock session not found: session=%s", sessionID))
	}

	return &ss, nil
}

func (s *RedisStore) Update(ctx context.Context, ss *domain.Session) error {
	if err := s.write(ctx, ss); err != nil {
		return err
	}

	if ss.Status.Terminal() {
		s.releaseLock(ctx, ss)
	}

	return nil
}

func (s *RedisStore) write(ctx context.Context, ss *domain.Session) error {
	b, err := json.Marshal(ss)
	if err != nil {
		return fmt.Errorf("marshal session %s: %w", ss.SessionID, err)
	}

	ttl := time.Until(ss.ExpiresAt) + s.retention
	if err := s.redis.Set(ctx, s.sessionKey(ss.SessionID), b, ttl).Err(); err != nil {
		return fmt.Errorf("store session %s: %w", ss.SessionID, err)
	}

	return nil
}

// releaseLock frees the user's active slot, but only if this session still
// holds it. Best-effort: a failed release self-heals when the lock TTL runs
// out.
func (s *RedisStore) releaseLock(ctx context.Context, ss *domain.Session) {
	holder, err := s.redis.Get(ctx, s.activeKey(ss.UserID)).Result()
	if err != nil || holder != ss.SessionID {
		return
	}
	s.redis.Del(ctx, s.activeKey(ss.UserID))
}

func (s *RedisStore) sessionKey(id string) string {
	return fmt.Sprintf("%s:session:%s", s.prefix, id)
}

func (s *RedisStore) activeKey(userID string) string {
	return fmt.Sprintf("%s:user:%s:active", s.prefix, userID)
}
