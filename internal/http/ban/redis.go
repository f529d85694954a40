package ban

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rogerio-castellano/cellar-console/internal/redissvc"
)

// RedisStore shares strikes and bans between console instances.
type RedisStore struct {
	svc *redissvc.RedisService
}

func NewRedisStore(svc *redissvc.RedisService) *RedisStore {
	return &RedisStore{svc: svc}
}

func (s *RedisStore) strikesKey(target string) string {
	return s.svc.Key("ban", "strikes", target)
}

func (s *RedisStore) banKey(target string) string {
	return s.svc.Key("ban", "active", target)
}

// Strike counts a failure. The window starts at the first strike; INCR and EXPIRE NX are sent
// in one transaction so a strike key never outlives its window.
func (s *RedisStore) Strike(ctx context.Context, target string, window time.Duration) (int, error) {
	key := s.strikesKey(target)
	var incr *redis.IntCmd
	_, err := s.svc.Rdb().TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, window)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to record strike: %w", err)
	}
	return int(incr.Val()), nil
}

func (s *RedisStore) Ban(ctx context.Context, target string, d time.Duration) error {
	if err := s.svc.Rdb().Set(ctx, s.banKey(target), time.Now().Unix(), d).Err(); err != nil {
		return fmt.Errorf("failed to ban %s: %w", target, err)
	}
	return nil
}

func (s *RedisStore) Banned(ctx context.Context, target string) (bool, error) {
	n, err := s.svc.Rdb().Exists(ctx, s.banKey(target)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check ban: %w", err)
	}
	return n > 0, nil
}

func (s *RedisStore) Clear(ctx context.Context, target string) error {
	return s.svc.Rdb().Del(ctx, s.strikesKey(target)).Err()
}
