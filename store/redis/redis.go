// Package redis stores processed row ids in a Redis set. Durability is that
// of the Redis server, run it with appendonly enabled.
package redis

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/go-redis/redis/v8"
)

type Config struct {
	Addr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`

	// Key of the set holding the ids
	Key string `envconfig:"REDIS_KEY" default:"ledgerbulk:processed"`
}

type Redis struct {
	client *redis.Client
	key    string
	logger *slog.Logger
}

// New returns a Redis backing using cfg. The connection is checked before
// returning.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Redis, error) {
	if logger == nil {
		logger = slog.Default()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", cfg.Addr, err)
	}
	return &Redis{
		client: client,
		key:    cfg.Key,
		logger: logger.With("store", "redis"),
	}, nil
}

// Load returns the members of the set. Members that are not integers are
// logged and skipped.
func (r *Redis) Load(ctx context.Context) ([]int64, error) {
	members, err := r.client.SMembers(ctx, r.key).Result()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", r.key, err)
	}

	ids := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil || id < 0 {
			r.logger.Warn("skipping corrupt member", "key", r.key, "value", m)
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *Redis) Append(ctx context.Context, id int64) error {
	if err := r.client.SAdd(ctx, r.key, strconv.FormatInt(id, 10)).Err(); err != nil {
		return fmt.Errorf("adding %d to %s: %w", id, r.key, err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
