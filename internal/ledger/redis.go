package ledger

import (
	"context"

	"github.com/redis/go-redis/v9"
)

const redisKey = "emaildownloader:processed"

// RedisLedger keeps the processed set in a Redis SET. Useful when the
// download directory is shared but local disk is not durable.
type RedisLedger struct {
	client *redis.Client
}

func NewRedis(redisURL string) (*RedisLedger, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	return &RedisLedger{client: client}, nil
}

func (l *RedisLedger) Contains(ctx context.Context, identity string) (bool, error) {
	return l.client.SIsMember(ctx, redisKey, identity).Result()
}

func (l *RedisLedger) Add(ctx context.Context, identity string) error {
	return l.client.SAdd(ctx, redisKey, identity).Err()
}

func (l *RedisLedger) Len(ctx context.Context) (int, error) {
	n, err := l.client.SCard(ctx, redisKey).Result()
	return int(n), err
}

func (l *RedisLedger) Close() error {
	return l.client.Close()
}
