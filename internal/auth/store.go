package auth

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/prepwise/prepwise/internal/domain"
	"github.com/prepwise/prepwise/internal/errors"
)

type PGStore struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Insert(ctx context.Context, u *domain.User) error {
	const stmt = `
INSERT INTO users (user_id, name, email, password_hash, create_time)
VALUES ($1, $2, $3, $4, $5);`

	_, err := s.db.Exec(ctx, stmt, u.UserID, u.Name, u.Email, u.PasswordHash, u.CreateTime)

	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) && pgErr.Code == "23505" {
		return errors.New(errors.CodeAlreadyExists,
			errors.WithMessagef("email already registered: %s", u.Email))
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

func (s *PGStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	const stmt = `
SELECT user_id, name, email, password_hash, create_time
FROM users
WHERE email = $1;`

	return s.get(ctx, stmt, email)
}

func (s *PGStore) GetByID(ctx context.Context, userID string) (*domain.User, error) {
	const stmt = `
SELECT user_id, name, email, password_hash, create_time
FROM users
WHERE user_id = $1;`

	return s.get(ctx, stmt, userID)
}

func (s *PGStore) get(ctx context.Context, stmt string, arg any) (*domain.User, error) {
	var u domain.User
	err := s.db.QueryRow(ctx, stmt, arg).Scan(
		&u.UserID, &u.Name, &u.Email, &u.PasswordHash, &u.CreateTime)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, errors.New(errors.CodeNotFound, errors.WithMessagef("user not found"))
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	return &u, nil
}
