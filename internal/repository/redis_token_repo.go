package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"jewelflow/internal/model"
)

const (
	refreshKeyPrefix  = "refresh:"
	userTokensPrefix  = "user_refresh:"
	redisOpTimeout    = 5 * time.Second
	redisPoolSize     = 20
	redisMinIdleConns = 2
)

// RedisTokenRepository keeps refresh tokens as keys that expire on their own,
// plus a per-user set so every token of an account can be revoked at once.
type RedisTokenRepository struct {
	client *redis.Client
	now    func() time.Time
}

// OpenRedis parses dsn, sizes the pool and pings the server.
func OpenRedis(ctx context.Context, dsn string) (*redis.Client, error) {
	opt, err := redis.ParseURL(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	opt.PoolSize = redisPoolSize
	opt.MinIdleConns = redisMinIdleConns
	opt.DialTimeout = redisOpTimeout
	opt.ConnMaxIdleTime = 5 * time.Minute

	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return client, nil
}

func NewRedisTokenRepository(client *redis.Client) *RedisTokenRepository {
	return &RedisTokenRepository{client: client, now: time.Now}
}

func (r *RedisTokenRepository) Store(ctx context.Context, token string, userID string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(r.now())
	if ttl <= 0 {
		return fmt.Errorf("store refresh token: already expired")
	}

	ctx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()

	userKey := userTokensPrefix + userID
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, refreshKeyPrefix+token, userID, ttl)
		pipe.SAdd(ctx, userKey, token)
		// Tokens share one TTL, so the newest decides when the index may go.
		pipe.Expire(ctx, userKey, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("store refresh token: %w", err)
	}
	return nil
}

func (r *RedisTokenRepository) Validate(ctx context.Context, token string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()

	userID, err := r.client.Get(ctx, refreshKeyPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return "", model.ErrTokenNotFound
	}
	if err != nil {
		return "", fmt.Errorf("validate refresh token: %w", err)
	}
	return userID, nil
}

func (r *RedisTokenRepository) RevokeAllForUser(ctx context.Context, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()

	userKey := userTokensPrefix + userID
	tokens, err := r.client.SMembers(ctx, userKey).Result()
	if err != nil {
		return fmt.Errorf("list refresh tokens: %w", err)
	}

	keys := make([]string, 0, len(tokens)+1)
	for _, t := range tokens {
		keys = append(keys, refreshKeyPrefix+t)
	}
	keys = append(keys, userKey)

	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("revoke all refresh tokens: %w", err)
	}
	return nil
}

// CleanExpired drops index entries whose token key has already expired.
// The token keys themselves are removed by Redis.
func (r *RedisTokenRepository) CleanExpired(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()

	var (
		cursor  uint64
		removed int64
	)
	for {
		keys, next, err := r.client.Scan(ctx, cursor, userTokensPrefix+"*", 100).Result()
		if err != nil {
			return removed, fmt.Errorf("scan refresh index: %w", err)
		}

		for _, userKey := range keys {
			tokens, err := r.client.SMembers(ctx, userKey).Result()
			if err != nil {
				return removed, fmt.Errorf("list refresh tokens: %w", err)
			}
			for _, t := range tokens {
				n, err := r.client.Exists(ctx, refreshKeyPrefix+t).Result()
				if err != nil {
					return removed, fmt.Errorf("check refresh token: %w", err)
				}
				if n == 0 {
					removed += r.client.SRem(ctx, userKey, t).Val()
				}
			}
		}

		cursor = next
		if cursor == 0 {
			return removed, nil
		}
	}
}
