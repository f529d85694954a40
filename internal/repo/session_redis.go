package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rogerio-castellano/cellar-console/internal/redissvc"
)

// Hash field names of a stored session.
const (
	fieldUsername    = "username"
	fieldPassword    = "password"
	fieldRoles       = "roles"
	fieldValidatedAt = "validated_at"
	fieldDraft       = "draft"
)

// RedisSessionRepository keeps each session as a hash with a TTL.
type RedisSessionRepository struct {
	svc *redissvc.RedisService
}

func NewRedisSessionRepository(svc *redissvc.RedisService) *RedisSessionRepository {
	return &RedisSessionRepository{svc: svc}
}

func (r *RedisSessionRepository) key(id string) string {
	return r.svc.Key("session", id)
}

func (r *RedisSessionRepository) Get(ctx context.Context, id string) (SessionRecord, error) {
	vals, err := r.svc.Rdb().HGetAll(ctx, r.key(id)).Result()
	if err != nil {
		return SessionRecord{}, fmt.Errorf("failed to read session: %w", err)
	}
	if len(vals) == 0 {
		return SessionRecord{}, ErrSessionNotFound
	}

	validatedAt, err := parseTime(vals[fieldValidatedAt])
	if err != nil {
		return SessionRecord{}, fmt.Errorf("invalid %s: %w", fieldValidatedAt, err)
	}
	draft, err := decodeDraft(vals[fieldDraft])
	if err != nil {
		return SessionRecord{}, err
	}

	return SessionRecord{
		Username:    vals[fieldUsername],
		Password:    vals[fieldPassword],
		Roles:       splitRoles(vals[fieldRoles]),
		ValidatedAt: validatedAt,
		Draft:       draft,
	}, nil
}

func (r *RedisSessionRepository) Save(ctx context.Context, id string, rec SessionRecord, ttl time.Duration) error {
	draft, err := encodeDraft(rec.Draft)
	if err != nil {
		return err
	}

	fields := map[string]any{
		fieldUsername:    rec.Username,
		fieldPassword:    rec.Password,
		fieldRoles:       joinRoles(rec.Roles),
		fieldValidatedAt: formatTime(rec.ValidatedAt),
		fieldDraft:       draft,
	}

	key := r.key(id)
	_, err = r.svc.Rdb().TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, fields)
		pipe.Expire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (r *RedisSessionRepository) Delete(ctx context.Context, id string) error {
	if err := r.svc.Rdb().Del(ctx, r.key(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Purge is a no-op: Redis expires session keys by itself.
func (r *RedisSessionRepository) Purge(context.Context) (int, error) {
	return 0, nil
}
