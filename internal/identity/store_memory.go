// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package identity

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/taibuivan/mknursery/internal/backend"
	"github.com/taibuivan/mknursery/internal/platform/apperr"
)

// # In-memory Stores
//
// These back BACKEND=memory and the tests. Expiry is checked on read.

// MemoryUserRepository implements [UserRepository] in process.
type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]User
}

// NewMemoryUserRepository returns an empty account store.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[string]User)}
}

func (repository *MemoryUserRepository) FindByEmail(_ context.Context, email string) (*User, error) {
	repository.mu.RLock()
	defer repository.mu.RUnlock()

	for _, user := range repository.users {
		if strings.EqualFold(user.Email, email) {
			found := user
			return &found, nil
		}
	}
	return nil, apperr.NotFound("User")
}

func (repository *MemoryUserRepository) FindByID(_ context.Context, id string) (*User, error) {
	repository.mu.RLock()
	defer repository.mu.RUnlock()

	user, ok := repository.users[id]
	if !ok {
		return nil, apperr.NotFound("User")
	}
	return &user, nil
}

func (repository *MemoryUserRepository) Create(_ context.Context, user *User) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	for _, existing := range repository.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return apperr.Conflict("User already exists")
		}
	}
	repository.users[user.ID] = *user
	return nil
}

func (repository *MemoryUserRepository) UpdatePassword(_ context.Context, userID, newHash string) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	user, ok := repository.users[userID]
	if !ok {
		return apperr.NotFound("User")
	}
	user.PasswordHash = newHash
	user.UpdatedAt = time.Now().UTC()
	repository.users[userID] = user
	return nil
}

// MemorySessionRepository implements [SessionRepository] in process.
type MemorySessionRepository struct {
	mu       sync.Mutex
	sessions map[string]memorySession
	now      func() time.Time
}

type memorySession struct {
	session   backend.Session
	expiresAt time.Time
}

// NewMemorySessionRepository returns an empty session store.
func NewMemorySessionRepository() *MemorySessionRepository {
	return &MemorySessionRepository{sessions: make(map[string]memorySession), now: time.Now}
}

func (repository *MemorySessionRepository) Save(_ context.Context, session *backend.Session, ttl time.Duration) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()
	repository.sessions[session.ID] = memorySession{session: *session, expiresAt: repository.now().Add(ttl)}
	return nil
}

func (repository *MemorySessionRepository) Find(_ context.Context, sessionID string) (*backend.Session, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	stored, ok := repository.sessions[sessionID]
	if !ok || !repository.now().Before(stored.expiresAt) {
		delete(repository.sessions, sessionID)
		return nil, apperr.NotFound("Session")
	}
	session := stored.session
	return &session, nil
}

func (repository *MemorySessionRepository) Delete(_ context.Context, session *backend.Session) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()
	delete(repository.sessions, session.ID)
	return nil
}

func (repository *MemorySessionRepository) DeleteAllForUser(_ context.Context, userID string) ([]string, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	var ids []string
	for id, stored := range repository.sessions {
		if stored.session.UserID == userID {
			ids = append(ids, id)
			delete(repository.sessions, id)
		}
	}
	return ids, nil
}

// MemoryResetTokenRepository implements [ResetTokenRepository] in process.
type MemoryResetTokenRepository struct {
	mu     sync.Mutex
	tokens map[string]memoryResetToken
	now    func() time.Time
}

type memoryResetToken struct {
	userID    string
	expiresAt time.Time
}

// NewMemoryResetTokenRepository returns an empty reset token store.
func NewMemoryResetTokenRepository() *MemoryResetTokenRepository {
	return &MemoryResetTokenRepository{tokens: make(map[string]memoryResetToken), now: time.Now}
}

func (repository *MemoryResetTokenRepository) Set(_ context.Context, tokenHash, userID string, ttl time.Duration) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()
	repository.tokens[tokenHash] = memoryResetToken{userID: userID, expiresAt: repository.now().Add(ttl)}
	return nil
}

func (repository *MemoryResetTokenRepository) Get(_ context.Context, tokenHash string) (string, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	stored, ok := repository.tokens[tokenHash]
	if !ok || !repository.now().Before(stored.expiresAt) {
		delete(repository.tokens, tokenHash)
		return "", apperr.NotFound("Reset token")
	}
	return stored.userID, nil
}

func (repository *MemoryResetTokenRepository) Delete(_ context.Context, tokenHash string) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()
	delete(repository.tokens, tokenHash)
	return nil
}

// NewMemoryProvider wires a [Provider] on in-memory stores without an event bus.
func NewMemoryProvider(tokens TokenProvider, mailer Mailer, sessionTTL time.Duration, logger *slog.Logger) *Provider {
	return NewProvider(Options{
		Users:       NewMemoryUserRepository(),
		Sessions:    NewMemorySessionRepository(),
		ResetTokens: NewMemoryResetTokenRepository(),
		Mailer:      mailer,
		Tokens:      tokens,
		SessionTTL:  sessionTTL,
		Logger:      logger,
	})
}
