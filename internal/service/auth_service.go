package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/crewboard/crewboard-api/internal/cache"
	"github.com/crewboard/crewboard-api/internal/config"
	"github.com/crewboard/crewboard-api/internal/store"
)

// Auth errors.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
)

// Session is the cached login state, keyed by user id with its own
// lifetime, independent of entity cache entries.
type Session struct {
	UserID   uuid.UUID `json:"user_id"`
	Email    string    `json:"email"`
	IssuedAt time.Time `json:"issued_at"`
}

// AuthService issues JWTs and maintains the session cache.
type AuthService struct {
	users       store.UserStore
	cache       cache.Cache
	invalidator *cache.Invalidator
	cfg         config.AuthConfig
	logger      *slog.Logger
}

// NewAuthService creates an AuthService.
func NewAuthService(
	users store.UserStore,
	c cache.Cache,
	invalidator *cache.Invalidator,
	cfg config.AuthConfig,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:       users,
		cache:       c,
		invalidator: invalidator,
		cfg:         cfg,
		logger:      logger.With("component", "auth_service"),
	}
}

// Login verifies credentials, caches a session and returns a signed token.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if store.IsNotFound(err) {
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("failed to retrieve user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	now := time.Now().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   user.ID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.TokenTTL)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	session := Session{UserID: user.ID, Email: user.Email, IssuedAt: now}
	if raw, err := json.Marshal(session); err == nil {
		// Session population is best-effort; a cold session falls back to
		// the user store on the next lookup.
		_ = s.cache.Set(ctx, cache.SessionKey(user.ID), raw, s.cfg.SessionTTL)
	}

	s.logger.Info("user logged in", "user_id", user.ID)
	return token, nil
}

// Logout drops the cached session.
func (s *AuthService) Logout(ctx context.Context, userID uuid.UUID) {
	s.invalidator.Session(ctx, userID)
	s.logger.Info("user logged out", "user_id", userID)
}

// ValidateToken parses and verifies a token, returning the user id.
func (s *AuthService) ValidateToken(tokenStr string) (uuid.UUID, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return uuid.Nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok {
		return uuid.Nil, ErrInvalidToken
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}
	return userID, nil
}

// SessionFor returns the cached session for a user, rebuilding it from the
// user store on a miss. A dropped session (logout, password change) that
// still has a live token is deliberately rebuilt here only through this
// read path; token validity itself is bounded by TokenTTL.
func (s *AuthService) SessionFor(ctx context.Context, userID uuid.UUID) (*Session, error) {
	raw, err := cache.GetOrCompute(ctx, s.cache, cache.SessionKey(userID), s.cfg.SessionTTL,
		func(ctx context.Context) ([]byte, error) {
			user, err := s.users.GetByID(ctx, userID)
			if err != nil {
				return nil, fmt.Errorf("failed to retrieve user: %w", err)
			}
			return json.Marshal(Session{
				UserID:   user.ID,
				Email:    user.Email,
				IssuedAt: time.Now().UTC(),
			})
		})
	if err != nil {
		return nil, err
	}

	var session Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("malformed session for user %s: %w", userID, err)
	}
	return &session, nil
}
