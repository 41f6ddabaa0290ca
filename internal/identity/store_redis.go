// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/mknursery/internal/backend"
	"github.com/taibuivan/mknursery/internal/platform/apperr"
	"github.com/taibuivan/mknursery/internal/platform/constants"
)

// # Session Repository

// RedisSessionRepository implements [SessionRepository] using Redis.
//
// Each session is a JSON string under auth:session:<id> with the session TTL.
// A per-user set under auth:user_sessions:<user id> indexes them for bulk revocation.
type RedisSessionRepository struct {
	client *redis.Client
}

// NewSessionRepository creates a new Redis-backed SessionRepository.
func NewSessionRepository(client *redis.Client) *RedisSessionRepository {
	return &RedisSessionRepository{client: client}
}

func sessionKey(sessionID string) string {
	return constants.RedisPrefixSession + sessionID
}

func userSessionsKey(userID string) string {
	return constants.RedisPrefixUserSession + userID
}

func (repository *RedisSessionRepository) Save(context context.Context, session *backend.Session, ttl time.Duration) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("redis_session_encode_failed: %w", err)
	}

	pipe := repository.client.TxPipeline()
	pipe.Set(context, sessionKey(session.ID), payload, ttl)
	pipe.SAdd(context, userSessionsKey(session.UserID), session.ID)
	// The index lives at least as long as its newest session.
	pipe.ExpireGT(context, userSessionsKey(session.UserID), ttl)
	pipe.ExpireNX(context, userSessionsKey(session.UserID), ttl)

	if _, err := pipe.Exec(context); err != nil {
		return fmt.Errorf("redis_session_save_failed: %w", err)
	}
	return nil
}

/*
Find retrieves a session by id.

Returns:
  - *backend.Session: Decoded session
  - error: apperr.NotFound if absent or expired, or connectivity errors
*/
func (repository *RedisSessionRepository) Find(context context.Context, sessionID string) (*backend.Session, error) {
	payload, err := repository.client.Get(context, sessionKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperr.NotFound("Session")
		}
		return nil, fmt.Errorf("redis_session_get_failed: %w", err)
	}

	session := &backend.Session{}
	if err := json.Unmarshal(payload, session); err != nil {
		return nil, fmt.Errorf("redis_session_decode_failed: %w", err)
	}
	return session, nil
}

func (repository *RedisSessionRepository) Delete(context context.Context, session *backend.Session) error {
	pipe := repository.client.TxPipeline()
	pipe.Del(context, sessionKey(session.ID))
	pipe.SRem(context, userSessionsKey(session.UserID), session.ID)

	if _, err := pipe.Exec(context); err != nil {
		return fmt.Errorf("redis_session_delete_failed: %w", err)
	}
	return nil
}

func (repository *RedisSessionRepository) DeleteAllForUser(context context.Context, userID string) ([]string, error) {
	ids, err := repository.client.SMembers(context, userSessionsKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis_user_sessions_list_failed: %w", err)
	}

	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, sessionKey(id))
	}
	keys = append(keys, userSessionsKey(userID))

	if err := repository.client.Del(context, keys...).Err(); err != nil {
		return nil, fmt.Errorf("redis_user_sessions_delete_failed: %w", err)
	}
	return ids, nil
}

// # Reset Token Repository

// RedisResetTokenRepository implements [ResetTokenRepository] using Redis.
type RedisResetTokenRepository struct {
	client *redis.Client
}

// NewResetTokenRepository creates a new Redis-backed ResetTokenRepository.
func NewResetTokenRepository(client *redis.Client) *RedisResetTokenRepository {
	return &RedisResetTokenRepository{client: client}
}

func (repository *RedisResetTokenRepository) Set(context context.Context, tokenHash, userID string, ttl time.Duration) error {
	key := constants.RedisPrefixResetToken + tokenHash
	if err := repository.client.Set(context, key, userID, ttl).Err(); err != nil {
		return fmt.Errorf("redis_reset_token_set_failed: %w", err)
	}
	return nil
}

/*
Get retrieves the userID for a given token hash.

Description: Returns apperr.NotFound if the token is absent or expired.
*/
func (repository *RedisResetTokenRepository) Get(context context.Context, tokenHash string) (string, error) {
	key := constants.RedisPrefixResetToken + tokenHash

	userID, err := repository.client.Get(context, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", apperr.NotFound("Reset token")
		}
		return "", fmt.Errorf("redis_reset_token_get_failed: %w", err)
	}
	return userID, nil
}

func (repository *RedisResetTokenRepository) Delete(context context.Context, tokenHash string) error {
	key := constants.RedisPrefixResetToken + tokenHash
	if err := repository.client.Del(context, key).Err(); err != nil {
		return fmt.Errorf("redis_reset_token_delete_failed: %w", err)
	}
	return nil
}

// # Event Bus

// RedisEventBus implements [EventBus] over a Redis Pub/Sub channel.
type RedisEventBus struct {
	client  *redis.Client
	channel string
	logger  *slog.Logger
}

// NewEventBus creates an event bus on the session events channel.
func NewEventBus(client *redis.Client, logger *slog.Logger) *RedisEventBus {
	return &RedisEventBus{client: client, channel: constants.RedisChannelSession, logger: logger}
}

func (bus *RedisEventBus) Publish(context context.Context, envelope Envelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("redis_session_event_encode_failed: %w", err)
	}
	if err := bus.client.Publish(context, bus.channel, payload).Err(); err != nil {
		return fmt.Errorf("redis_session_event_publish_failed: %w", err)
	}
	return nil
}

// Listen subscribes once and blocks. go-redis reconnects the subscription on its own.
func (bus *RedisEventBus) Listen(context context.Context, handler func(Envelope)) error {
	subscription := bus.client.Subscribe(context, bus.channel)
	defer subscription.Close()

	// Wait for the subscription to be confirmed before reporting readiness.
	if _, err := subscription.Receive(context); err != nil {
		return fmt.Errorf("redis_session_event_subscribe_failed: %w", err)
	}

	messages := subscription.Channel()
	for {
		select {
		case <-context.Done():
			return context.Err()
		case message, ok := <-messages:
			if !ok {
				return nil
			}

			var envelope Envelope
			if err := json.Unmarshal([]byte(message.Payload), &envelope); err != nil {
				bus.logger.Warn("session_event_decode_failed", slog.Any("error", err))
				continue
			}
			handler(envelope)
		}
	}
}
