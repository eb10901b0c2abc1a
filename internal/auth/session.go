package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"sync"
	"time"
)

var (
	ErrInvalidSessionToken = errors.New("session token is invalid")
	ErrExpiredSessionToken = errors.New("session token is expired")
)

// a pending second factor has to be completed within this window
const defaultSessionTokenDuration = 5 * time.Minute

type SessionManagerInterface interface {
	GenerateSessionToken(userID int64, tokenTTL, duration time.Duration) (string, error)
	VerifySessionToken(sessionToken string) (SessionToken, error)
	DeleteSessionToken(sessionToken string)
	StartSessionTokenCleanup(ctx context.Context, interval time.Duration)
}

// SessionToken remembers who passed the password step and how long the
// access token issued after the second factor should live.
type SessionToken struct {
	UserID    int64
	TokenTTL  time.Duration
	ExpiresAt time.Time
	CreatedAt time.Time
}

type SessionManager struct {
	mu     sync.RWMutex
	tokens map[string]SessionToken
	now    func() time.Time
}

func NewSessionManager() *SessionManager {
	return &SessionManager{
		tokens: make(map[string]SessionToken),
		now:    time.Now,
	}
}

func (sm *SessionManager) VerifySessionToken(sessionToken string) (SessionToken, error) {
	sm.mu.RLock()
	token, exists := sm.tokens[sessionToken]
	sm.mu.RUnlock()

	if !exists {
		return SessionToken{}, ErrInvalidSessionToken
	}

	if sm.now().After(token.ExpiresAt) {
		sm.DeleteSessionToken(sessionToken)
		return SessionToken{}, ErrExpiredSessionToken
	}

	return token, nil
}

func (sm *SessionManager) DeleteSessionToken(sessionToken string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	delete(sm.tokens, sessionToken)
}

// StartSessionTokenCleanup drops expired tokens until ctx is cancelled.
func (sm *SessionManager) StartSessionTokenCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sm.removeExpired()
			}
		}
	}()
}

func (sm *SessionManager) removeExpired() {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	now := sm.now()
	for token, session := range sm.tokens {
		if now.After(session.ExpiresAt) {
			delete(sm.tokens, token)
		}
	}
}

func (sm *SessionManager) GenerateSessionToken(userID int64, tokenTTL, duration time.Duration) (string, error) {
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", ErrInternalError
	}

	token := hex.EncodeToString(tokenBytes)
	now := sm.now()

	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.tokens[token] = SessionToken{
		UserID:    userID,
		TokenTTL:  tokenTTL,
		ExpiresAt: now.Add(duration),
		CreatedAt: now,
	}
	return token, nil
}
