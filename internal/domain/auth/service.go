package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"perfdash/internal/domain/apperr"
	"perfdash/internal/domain/directory"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidSession     = errors.New("invalid or expired session")
)

type SessionStore interface {
	CreateSession(ctx context.Context, sessionID, userID, tokenHash string, expires time.Time) error
	SessionValid(ctx context.Context, sessionID, userID, tokenHash string) (bool, error)
	RevokeSession(ctx context.Context, sessionID, userID string) error
}

type Users interface {
	GetUser(ctx context.Context, id string) (directory.User, error)
	GetUserByEmail(ctx context.Context, email string) (directory.User, error)
}

type Session struct {
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expiresAt"`
	User      directory.User `json:"user"`
}

type Service struct {
	sessions SessionStore
	users    Users
	secret   string
	ttl      time.Duration
	now      func() time.Time
}

func NewService(sessions SessionStore, users Users, secret string, ttl time.Duration) *Service {
	return &Service{sessions: sessions, users: users, secret: secret, ttl: ttl, now: time.Now}
}

// Login checks the password and opens a session. Unknown emails and wrong
// passwords fail the same way.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	user, err := s.users.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, apperr.ErrNotFound) {
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, err
	}
	if user.PasswordHash == "" || CheckPassword(user.PasswordHash, password) != nil {
		return Session{}, ErrInvalidCredentials
	}
	return s.open(ctx, user)
}

// LoginVerifiedEmail opens a session for an email address already proven by
// an identity provider. The user must exist in the directory.
func (s *Service) LoginVerifiedEmail(ctx context.Context, email string) (Session, error) {
	user, err := s.users.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, apperr.ErrNotFound) {
		return Session{}, fmt.Errorf("no directory user for %s: %w", email, apperr.ErrPermission)
	}
	if err != nil {
		return Session{}, err
	}
	return s.open(ctx, user)
}

func (s *Service) open(ctx context.Context, user directory.User) (Session, error) {
	now := s.now()
	claims := Claims{UserID: user.ID, SessionID: uuid.NewString()}
	token, err := GenerateToken(s.secret, claims, now, s.ttl)
	if err != nil {
		return Session{}, err
	}
	expires := now.Add(s.ttl)
	if err := s.sessions.CreateSession(ctx, claims.SessionID, user.ID, HashToken(token), expires); err != nil {
		return Session{}, err
	}
	return Session{Token: token, ExpiresAt: expires, User: user}, nil
}

// Authenticate resolves a bearer token to its live session and the current
// directory record of its user.
func (s *Service) Authenticate(ctx context.Context, token string) (directory.User, *Claims, error) {
	claims, err := ParseToken(s.secret, token)
	if err != nil {
		return directory.User{}, nil, ErrInvalidSession
	}
	ok, err := s.sessions.SessionValid(ctx, claims.SessionID, claims.UserID, HashToken(token))
	if err != nil {
		return directory.User{}, nil, err
	}
	if !ok {
		return directory.User{}, nil, ErrInvalidSession
	}
	user, err := s.users.GetUser(ctx, claims.UserID)
	if errors.Is(err, apperr.ErrNotFound) {
		return directory.User{}, nil, ErrInvalidSession
	}
	if err != nil {
		return directory.User{}, nil, err
	}
	return user, claims, nil
}

func (s *Service) Logout(ctx context.Context, claims *Claims) error {
	if claims == nil {
		return nil
	}
	return s.sessions.RevokeSession(ctx, claims.SessionID, claims.UserID)
}
