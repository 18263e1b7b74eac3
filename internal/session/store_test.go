package session_test

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prepwise/prepwise/internal/domain"
	"github.com/prepwise/prepwise/internal/errors"
	"github.com/prepwise/prepwise/internal/session"
)

func makeStore(t *testing.T) (*session.RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return session.NewStore(session.StoreConfig{Redis: rdb, Prefix: "test"}), mr
}

func makeSession(id, userID string, expiresIn time.Duration) *domain.Session {
	now := time.Now().Truncate(time.Second)
	return &domain.Session{
		SessionID:            id,
		UserID:               userID,
		InterviewID:          "iv1",
		CurrentQuestionIndex: 0,
		TotalQuestions:       3,
		TimeRemaining:        1200,
		StartTime:            now,
		LastSyncTime:         now,
		Responses:            []domain.SessionResponse{},
		Status:               domain.SessionActive,
		ExpiresAt:            now.Add(expiresIn),
	}
}

func TestRedisStore_CreateGet(t *testing.T) {
	ctx := context.Background()

	t.Run("round trip", func(t *testing.T) {
		store, _ := makeStore(t)

		ss := makeSession("s1", "u1", 3*time.Hour)
		ss.Responses = append(ss.Responses, domain.SessionResponse{
			QuestionID: "q1", Answer: "an answer", TimeTaken: 30, SubmitTime: ss.StartTime,
		})
		require.NoError(t, store.Create(ctx, ss))

		got, err := store.Get(ctx, "s1", "u1")
		require.NoError(t, err)
		assert.Equal(t, ss.SessionID, got.SessionID)
		assert.Equal(t, ss.TimeRemaining, got.TimeRemaining)
		require.Len(t, got.Responses, 1)
		assert.Equal(t, "an answer", got.Responses[0].Answer)
		assert.True(t, ss.ExpiresAt.Equal(got.ExpiresAt))
	})

	t.Run("unknown session is not found", func(t *testing.T) {
		store, _ := makeStore(t)

		_, err := store.Get(ctx, "missing", "u1")
		assert.True(t, errors.Is(err, errors.CodeNotFound))
	})

	t.Run("foreign owner reads as not found", func(t *testing.T) {
		store, _ := makeStore(t)

		require.NoError(t, store.Create(ctx, makeSession("s1", "u1", 3*time.Hour)))

		_, err := store.Get(ctx, "s1", "someone-else")
		assert.True(t, errors.Is(err, errors.CodeNotFound))
	})
}

func TestRedisStore_ActiveLock(t *testing.T) {
	ctx := context.Background()

	t.Run("second create for the same user conflicts", func(t *testing.T) {
		store, _ := makeStore(t)

		require.NoError(t, store.Create(ctx, makeSession("s1", "u1", 3*time.Hour)))

		err := store.Create(ctx, makeSession("s2", "u1", 3*time.Hour))
		var active *session.ActiveSessionError
		require.True(t, stderrors.As(err, &active))
		assert.Equal(t, "s1", active.SessionID)
	})

	t.Run("terminal update releases the lock", func(t *testing.T) {
		store, _ := makeStore(t)

		ss := makeSession("s1", "u1", 3*time.Hour)
		require.NoError(t, store.Create(ctx, ss))

		ss.Status = domain.SessionCompleted
		require.NoError(t, store.Update(ctx, ss))

		assert.NoError(t, store.Create(ctx, makeSession("s2", "u1", 3*time.Hour)))
	})

	t.Run("non-terminal update keeps the lock", func(t *testing.T) {
		store, _ := makeStore(t)

		ss := makeSession("s1", "u1", 3*time.Hour)
		require.NoError(t, store.Create(ctx, ss))

		ss.Status = domain.SessionPaused
		require.NoError(t, store.Update(ctx, ss))

		err := store.Create(ctx, makeSession("s2", "u1", 3*time.Hour))
		var active *session.ActiveSessionError
		assert.True(t, stderrors.As(err, &active))
	})

	t.Run("lock expires with the session deadline", func(t *testing.T) {
		store, mr := makeStore(t)

		require.NoError(t, store.Create(ctx, makeSession("s1", "u1", time.Hour)))

		mr.FastForward(time.Hour + time.Second)

		assert.NoError(t, store.Create(ctx, makeSession("s2", "u1", time.Hour)))
	})
}

func TestRedisStore_Retention(t *testing.T) {
	ctx := context.Background()
	store, mr := makeStore(t)

	ss := makeSession("s1", "u1", time.Hour)
	require.NoError(t, store.Create(ctx, ss))

	// Past the deadline but inside the retention window the document is
	// still readable, which is what lets lazy expiry flip and report it.
	mr.FastForward(2 * time.Hour)

	got, err := store.Get(ctx, "s1", "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.SessionActive, got.Status)

	// Once retention runs out the document decays to not found.
	mr.FastForward(session.DefaultRetention)

	_, err = store.Get(ctx, "s1", "u1")
	assert.True(t, errors.Is(err, errors.CodeNotFound))
}
