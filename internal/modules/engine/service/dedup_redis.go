package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// RedisClient - подмножество *redis.Client, которое нужно дедупликации.
type RedisClient interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
}

// RedisDedup - дедупликация для нескольких инстансов: SET NX на ключ+свечу.
// Очистку делает TTL, поэтому purge здесь не нужен.
type RedisDedup struct {
	client RedisClient
	prefix string
}

var (
	newRedisClient = func(opts *redis.Options) *redis.Client {
		return redis.NewClient(opts)
	}
	pingRedis = func(ctx context.Context, client *redis.Client) error {
		return client.Ping(ctx).Err()
	}
	parseRedisURL = redis.ParseURL
)

// DialRedis подключается по redis://... или host:port.
func DialRedis(ctx context.Context, addr string) (*redis.Client, error) {
	opts := &redis.Options{Addr: addr}
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		parsed, err := parseRedisURL(addr)
		if err != nil {
			return nil, errors.Wrap(err, "parse redis url")
		}
		opts = parsed
	}

	client := newRedisClient(opts)
	if err := pingRedis(ctx, client); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "redis ping")
	}
	return client, nil
}

func NewRedisDedup(client RedisClient, prefix string) *RedisDedup {
	if prefix == "" {
		prefix = "signal_bot:dedup"
	}
	return &RedisDedup{client: client, prefix: prefix}
}

func (d *RedisDedup) key(k Key, bucket int64) string {
	return fmt.Sprintf("%s:%s:%s:%s:%s:%d", d.prefix, k.Symbol, k.Timeframe, k.Strategy, k.Direction, bucket)
}

func (d *RedisDedup) Accept(ctx context.Context, key Key, now time.Time) (bool, error) {
	bucket, tfSec := bucketOf(key, now)
	// ключ живёт до конца свечи плюс одну свечу запаса
	ttl := time.Duration(bucket+2*tfSec-now.Unix()) * time.Second

	ok, err := d.client.SetNX(ctx, d.key(key, bucket), now.Unix(), ttl).Result()
	if err != nil {
		return false, errors.Wrap(err, "redis setnx")
	}
	return ok, nil
}

func (d *RedisDedup) Size(ctx context.Context) int {
	var (
		cursor uint64
		total  int
	)
	for {
		keys, next, err := d.client.Scan(ctx, cursor, d.prefix+":*", 500).Result()
		if err != nil {
			return -1
		}
		total += len(keys)
		if next == 0 {
			return total
		}
		cursor = next
	}
}
