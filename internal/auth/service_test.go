package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prepwise/prepwise/internal/domain"
	"github.com/prepwise/prepwise/internal/errors"
)

type memStore struct {
	byEmail map[string]*domain.User
	byID    map[string]*domain.User
}

func newMemStore() *memStore {
	return &memStore{
		byEmail: map[string]*domain.User{},
		byID:    map[string]*domain.User{},
	}
}

func (m *memStore) Insert(_ context.Context, u *domain.User) error {
	if _, ok := m.byEmail[u.Email]; ok {
		return errors.New(errors.CodeAlreadyExists)
	}
	m.byEmail[u.Email] = u
	m.byID[u.UserID] = u
	return nil
}

func (m *memStore) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	u, ok := m.byEmail[email]
	if !ok {
		return nil, errors.New(errors.CodeNotFound)
	}
	return u, nil
}

func (m *memStore) GetByID(_ context.Context, id string) (*domain.User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, errors.New(errors.CodeNotFound)
	}
	return u, nil
}

func makeService(nowFunc func() time.Time) *Service {
	return NewService(Config{
		Store:    newMemStore(),
		Secret:   "test-secret",
		TokenTTL: time.Hour,
		NowFunc:  nowFunc,
	})
}

func TestService_RegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	s := makeService(nil)

	creds, err := s.Register(ctx, RegisterParams{
		Name:     "Alice",
		Email:    "Alice@Example.com",
		Password: "correct horse",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, creds.Token)
	assert.Equal(t, "alice@example.com", creds.User.Email)
	assert.NotEqual(t, "correct horse", creds.User.PasswordHash)

	t.Run("duplicate email rejected", func(t *testing.T) {
		_, err := s.Register(ctx, RegisterParams{
			Name:     "Alice Again",
			Email:    "alice@example.com",
			Password: "another pass",
		})
		assert.True(t, errors.Is(err, errors.CodeAlreadyExists))
	})

	t.Run("short password rejected", func(t *testing.T) {
		_, err := s.Register(ctx, RegisterParams{
			Name:     "Bob",
			Email:    "bob@example.com",
			Password: "short",
		})
		assert.True(t, errors.Is(err, errors.CodeInvalidArgument))
	})

	t.Run("login with right password", func(t *testing.T) {
		got, err := s.Login(ctx, "alice@example.com", "correct horse")
		require.NoError(t, err)
		assert.Equal(t, creds.User.UserID, got.User.UserID)
	})

	t.Run("login with wrong password", func(t *testing.T) {
		_, err := s.Login(ctx, "alice@example.com", "wrong")
		assert.True(t, errors.Is(err, errors.CodeUnauthenticated))
	})

	t.Run("login with unknown email matches wrong-password error", func(t *testing.T) {
		_, err := s.Login(ctx, "nobody@example.com", "whatever")
		assert.True(t, errors.Is(err, errors.CodeUnauthenticated))
	})
}

func TestService_VerifyToken(t *testing.T) {
	ctx := context.Background()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s := makeService(func() time.Time { return now })

	creds, err := s.Register(ctx, RegisterParams{
		Name:     "Alice",
		Email:    "alice@example.com",
		Password: "correct horse",
	})
	require.NoError(t, err)

	t.Run("valid token resolves subject", func(t *testing.T) {
		sub, err := s.VerifyToken(creds.Token)
		require.NoError(t, err)
		assert.Equal(t, creds.User.UserID, sub)
	})

	t.Run("expired token rejected", func(t *testing.T) {
		now = now.Add(2 * time.Hour)
		defer func() { now = now.Add(-2 * time.Hour) }()

		_, err := s.VerifyToken(creds.Token)
		assert.True(t, errors.Is(err, errors.CodeUnauthenticated))
	})

	t.Run("garbage token rejected", func(t *testing.T) {
		_, err := s.VerifyToken("not.a.token")
		assert.True(t, errors.Is(err, errors.CodeUnauthenticated))
	})

	t.Run("token signed with another secret rejected", func(t *testing.T) {
		other := NewService(Config{
			Store:    newMemStore(),
			Secret:   "other-secret",
			TokenTTL: time.Hour,
			NowFunc:  func() time.Time { return now },
		})

		foreign, err := other.Register(ctx, RegisterParams{
			Name:     "Eve",
			Email:    "eve@example.com",
			Password: "sneaky pass",
		})
		require.NoError(t, err)

		_, err = s.VerifyToken(foreign.Token)
		assert.True(t, errors.Is(err, errors.CodeUnauthenticated))
	})
}
