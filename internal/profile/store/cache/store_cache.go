// Package cache fronts a record store with a TTL-bounded Redis read-through
// cache. Cache failures degrade to the inner store; they must never be
// mistaken for an absent record.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"intake/internal/profile"
	id "intake/pkg/domain"
)

type Store struct {
	inner  profile.Store
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func New(inner profile.Store, client *redis.Client, ttl time.Duration, logger *slog.Logger) *Store {
	return &Store{inner: inner, client: client, ttl: ttl, logger: logger}
}

func key(userID id.UserID) string {
	return "intake:record:" + userID.String()
}

func (s *Store) Get(ctx context.Context, userID id.UserID) (*profile.Record, error) {
	raw, err := s.client.Get(ctx, key(userID)).Bytes()
	if err == nil {
		var fields map[string]any
		if jsonErr := json.Unmarshal(raw, &fields); jsonErr == nil {
			return profile.NewRecord(fields), nil
		}
		// Corrupt cache entry: drop it and fall through to the inner store.
		s.client.Del(ctx, key(userID))
	} else if !errors.Is(err, redis.Nil) {
		s.logger.WarnContext(ctx, "record cache read failed",
			"user_id", userID,
			"error", err,
		)
	}

	rec, err := s.inner.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	if encoded, jsonErr := json.Marshal(rec.Fields()); jsonErr == nil {
		if setErr := s.client.Set(ctx, key(userID), encoded, s.ttl).Err(); setErr != nil {
			s.logger.WarnContext(ctx, "record cache write failed",
				"user_id", userID,
				"error", setErr,
			)
		}
	}
	return rec, nil
}

func (s *Store) Merge(ctx context.Context, userID id.UserID, fields map[string]any) error {
	if err := s.inner.Merge(ctx, userID, fields); err != nil {
		return err
	}
	// Invalidate after write; the next read repopulates. A failed delete
	// self-heals within the TTL.
	if err := s.client.Del(ctx, key(userID)).Err(); err != nil {
		s.logger.WarnContext(ctx, "record cache invalidation failed",
			"user_id", userID,
			"error", err,
		)
	}
	return nil
}
