// Package auth validates bearer tokens against stored sessions.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"dieti-tracker/internal/database"
	"dieti-tracker/internal/models"
)

// SessionTTL matches the lifetime of tokens issued by the account service.
const SessionTTL = 7 * 24 * time.Hour

// Result of a token check.
type Result struct {
	Valid  bool
	UserID string
}

// SessionStore persists hashed sessions.
type SessionStore interface {
	FindSession(ctx context.Context, tokenHash string) (models.Session, error)
	InsertSession(ctx context.Context, s models.Session) error
}

type Validator struct {
	store SessionStore
	now   func() time.Time
}

func NewValidator(store SessionStore) *Validator {
	return &Validator{store: store, now: time.Now}
}

// HashToken is the key under which a token's session is stored.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Validate resolves token to its user. Unknown and expired tokens are not
// errors; only store failures are.
func (v *Validator) Validate(ctx context.Context, token string) (Result, error) {
	if token == "" {
		return Result{}, nil
	}
	s, err := v.store.FindSession(ctx, HashToken(token))
	if errors.Is(err, database.ErrNotFound) {
		return Result{}, nil
	}
	if err != nil {
		return Result{}, err
	}
	if v.now().Unix() >= s.ExpiresAt {
		return Result{}, nil
	}
	return Result{Valid: true, UserID: s.UserID}, nil
}

// Issue creates a session for userID and returns its token. Only the hash is
// stored.
func (v *Validator) Issue(ctx context.Context, userID string) (string, time.Time, error) {
	if userID == "" {
		return "", time.Time{}, errors.New("user id is required")
	}
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate token: %w", err)
	}
	token := hex.EncodeToString(buf)

	now := v.now()
	expires := now.Add(SessionTTL)
	err := v.store.InsertSession(ctx, models.Session{
		TokenHash: HashToken(token),
		UserID:    userID,
		CreatedAt: now.Unix(),
		ExpiresAt: expires.Unix(),
	})
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expires, nil
}
