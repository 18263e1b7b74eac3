// Package auth manages user accounts and bearer tokens.
package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/prepwise/prepwise/internal/domain"
	"github.com/prepwise/prepwise/internal/errors"
)

const DefaultTokenTTL = 7 * 24 * time.Hour

type Store interface {
	Insert(ctx context.Context, u *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, userID string) (*domain.User, error)
}

type Config struct {
	Store    Store
	Secret   string
	TokenTTL time.Duration
	NowFunc  func() time.Time
}

type Service struct {
	store    Store
	secret   []byte
	tokenTTL time.Duration
	now      func() time.Time
}

func NewService(c Config) *Service {
	s := &Service{
		store:    c.Store,
		secret:   []byte(c.Secret),
		tokenTTL: c.TokenTTL,
		now:      c.NowFunc,
	}

	if s.tokenTTL <= 0 {
		s.tokenTTL = DefaultTokenTTL
	}
	if s.now == nil {
		s.now = time.Now
	}

	return s
}

type RegisterParams struct {
	Name     string
	Email    string
	Password string
}

type Credentials struct {
	Token string
	User  *domain.User
}

func (s *Service) Register(ctx context.Context, p RegisterParams) (*Credentials, error) {
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))

	if p.Name == "" || p.Email == "" {
		return nil, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("name and email are required"))
	}
	if len(p.Password) < 8 {
		return nil, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("password must be at least 8 characters"))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(p.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("new user id: %w", err)
	}

	u := &domain.User{
		UserID:       id.String(),
		Name:         p.Name,
		Email:        p.Email,
		PasswordHash: string(hash),
		CreateTime:   s.now(),
	}

	if err := s.store.Insert(ctx, u); err != nil {
		return nil, err
	}

	return s.issue(u)
}

func (s *Service) Login(ctx context.Context, email, password string) (*Credentials, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	u, err := s.store.GetByEmail(ctx, email)
	if errors.Is(err, errors.CodeNotFound) {
		// Same error as a bad password, so probing for accounts fails.
		return nil, errInvalidCredentials()
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, errInvalidCredentials()
	}

	return s.issue(u)
}

func errInvalidCredentials() error {
	return errors.New(errors.CodeUnauthenticated,
		errors.WithMessagef("invalid email or password"))
}

func (s *Service) issue(u *domain.User) (*Credentials, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   u.UserID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	return &Credentials{Token: signed, User: u}, nil
}

// VerifyToken parses a bearer token and returns the user id it was issued to.
func (s *Service) VerifyToken(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{},
		func(t *jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return "", errors.New(errors.CodeUnauthenticated,
			errors.WithMessagef("invalid token"), errors.WithCause(err))
	}

	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", errors.New(errors.CodeUnauthenticated,
			errors.WithMessagef("invalid token subject"))
	}

	return sub, nil
}

func (s *Service) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	return s.store.GetByID(ctx, userID)
}
