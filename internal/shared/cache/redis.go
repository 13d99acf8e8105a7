package cache

import (
	"context"
	"fmt"
	"time"

	redis "github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/lukeswagga/discord-auction-bot/internal/app/config"
	"github.com/lukeswagga/discord-auction-bot/internal/shared/logger"
	"github.com/lukeswagga/discord-auction-bot/internal/shared/metrics"
)

// Key prefixes shared by the bot and the sniper
const (
	KeyPrefixSniper    = "sniper:"
	KeyPrefixRateLimit = "ratelimit:"
)

// Redis wraps a redis client with logging and metrics
type Redis struct {
	Client  redis.UniversalClient
	logger  *logger.Logger
	metrics *metrics.Metrics
}

// Config holds the Redis configuration options
type Config struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
}

// DefaultConfig returns the default Redis configuration
func DefaultConfig(cfg *config.Config) *Config {
	return &Config{
		URL:          cfg.RedisURL,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
	}
}

// New creates a new Redis connection and verifies it with a ping
func New(cfg *Config, log *logger.Logger, m *metrics.Metrics) (*Redis, error) {
	log = log.Named("redis")

	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	// Configure connection pool
	opt.PoolSize = cfg.PoolSize
	opt.MinIdleConns = cfg.MinIdleConns
	opt.DialTimeout = cfg.DialTimeout

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	log.Info("Successfully connected to Redis", zap.String("addr", opt.Addr), zap.Int("db", opt.DB))

	return NewFromClient(client, log, m), nil
}

// NewFromClient wraps an existing client
func NewFromClient(client redis.UniversalClient, log *logger.Logger, m *metrics.Metrics) *Redis {
	return &Redis{
		Client:  client,
		logger:  log,
		metrics: m,
	}
}

// Ping checks connectivity
func (r *Redis) Ping(ctx context.Context) error {
	start := time.Now()
	err := r.Client.Ping(ctx).Err()
	r.metrics.RecordRedisOperation("ping", time.Since(start), err)
	return err
}

// SetMember reports whether member belongs to the set at key
func (r *Redis) SetMember(ctx context.Context, key, member string) (bool, error) {
	start := time.Now()
	ok, err := r.Client.SIsMember(ctx, key, member).Result()
	r.metrics.RecordRedisOperation("sismember", time.Since(start), err)
	return ok, err
}

// SetAdd adds members to the set at key
func (r *Redis) SetAdd(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}

	args := make([]interface{}, len(members))
	for i, m := range members {
		args[i] = m
	}

	start := time.Now()
	err := r.Client.SAdd(ctx, key, args...).Err()
	r.metrics.RecordRedisOperation("sadd", time.Since(start), err)
	return err
}

// Incr increments the counter at key and returns the new value
func (r *Redis) Incr(ctx context.Context, key string) (int64, error) {
	start := time.Now()
	n, err := r.Client.Incr(ctx, key).Result()
	r.metrics.RecordRedisOperation("incr", time.Since(start), err)
	return n, err
}

// GetString returns the value at key; found is false when the key does not exist
func (r *Redis) GetString(ctx context.Context, key string) (value string, found bool, err error) {
	start := time.Now()
	value, err = r.Client.Get(ctx, key).Result()
	if err == redis.Nil {
		r.metrics.RecordRedisOperation("get", time.Since(start), nil)
		return "", false, nil
	}
	r.metrics.RecordRedisOperation("get", time.Since(start), err)
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// SetString stores value at key with an optional expiration (0 keeps it forever)
func (r *Redis) SetString(ctx context.Context, key, value string, ttl time.Duration) error {
	start := time.Now()
	err := r.Client.Set(ctx, key, value, ttl).Err()
	r.metrics.RecordRedisOperation("set", time.Since(start), err)
	return err
}

// Delete removes keys
func (r *Redis) Delete(ctx context.Context, keys ...string) error {
	start := time.Now()
	err := r.Client.Del(ctx, keys...).Err()
	r.metrics.RecordRedisOperation("del", time.Since(start), err)
	return err
}

// Close closes the Redis connection
func (r *Redis) Close() error {
	r.logger.Info("Closing Redis connection")
	return r.Client.Close()
}
