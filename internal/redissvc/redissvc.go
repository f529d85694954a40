package redissvc

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "cellar"

// RedisService wraps the client shared by everything the console keeps in Redis.
type RedisService struct {
	rdb *redis.Client
}

func NewRedisService(rdb *redis.Client) *RedisService {
	return &RedisService{rdb: rdb}
}

// Connect opens a client and checks the server answers.
func Connect(ctx context.Context, addr, password string, db int) (*RedisService, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("could not connect to redis at %s: %w", addr, err)
	}
	return NewRedisService(rdb), nil
}

func (s *RedisService) Rdb() *redis.Client {
	return s.rdb
}

// Key namespaces parts under the console prefix, e.g. Key("session", id) -> "cellar:session:<id>".
func (s *RedisService) Key(parts ...string) string {
	return keyPrefix + ":" + strings.Join(parts, ":")
}

func (s *RedisService) Close() error {
	return s.rdb.Close()
}
