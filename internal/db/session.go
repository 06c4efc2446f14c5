package db

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

var ErrSessionNotFound = errors.New("session not found")

// Session is a signed-in browser. Only the SHA-256 of the cookie token is
// stored.
type Session struct {
	TokenHash string `gorm:"primaryKey;size:64"`

	UserID uint `gorm:"index;not null"`
	User   User `gorm:"constraint:OnDelete:CASCADE"`

	CreatedAt time.Time
	ExpiresAt time.Time `gorm:"index;not null"`
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func newSessionToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// CreateSession starts a session for userID that lasts ttl and returns the
// token to hand to the browser.
func (s *Store) CreateSession(ctx context.Context, userID uint, ttl time.Duration) (string, error) {
	token, err := newSessionToken()
	if err != nil {
		return "", err
	}
	sess := &Session{
		TokenHash: hashToken(token),
		UserID:    userID,
		ExpiresAt: time.Now().Add(ttl),
	}
	if err := s.db.WithContext(ctx).Create(sess).Error; err != nil {
		return "", err
	}
	return token, nil
}

// UserBySession returns the user signed in with token. Unknown and expired
// tokens are ErrSessionNotFound.
func (s *Store) UserBySession(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, ErrSessionNotFound
	}
	var sess Session
	err := s.db.WithContext(ctx).
		Preload("User").
		Where("token_hash = ? AND expires_at > ?", hashToken(token), time.Now()).
		First(&sess).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return &sess.User, nil
}

// DeleteSession ends the session of token. Unknown tokens are ignored.
func (s *Store) DeleteSession(ctx context.Context, token string) error {
	return s.db.WithContext(ctx).Where("token_hash = ?", hashToken(token)).Delete(&Session{}).Error
}

// PruneSessions removes expired sessions and reports how many went.
func (s *Store) PruneSessions(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Where("expires_at <= ?", time.Now()).Delete(&Session{})
	return res.RowsAffected, res.Error
}

// StartSessionPruner removes expired sessions once at startup and then every
// interval until ctx is done.
func StartSessionPruner(ctx context.Context, s *Store, interval time.Duration, log zerolog.Logger) {
	go func() {
		prune := func() {
			n, err := s.PruneSessions(ctx)
			if err != nil {
				log.Error().Err(err).Msg("session prune failed")
				return
			}
			if n > 0 {
				log.Debug().Int64("removed", n).Msg("expired sessions pruned")
			}
		}
		prune()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				prune()
			}
		}
	}()
}
