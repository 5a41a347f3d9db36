package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/vinoplan-backend/internal/platform/envutil"
	"github.com/yungbote/vinoplan-backend/internal/platform/logger"
)

type Config struct {
	Addr     string
	Password string
	DB       int
}

func LoadConfig() Config {
	return Config{
		Addr:     envutil.String("REDIS_ADDR", ""),
		Password: envutil.String("REDIS_PASSWORD", ""),
		DB:       envutil.Int("REDIS_DB", 0),
	}
}

// NewClient dials and pings redis. An empty Addr returns nil, nil: redis is optional.
func NewClient(log *logger.Logger, cfg Config) (*goredis.Client, error) {
	if cfg.Addr == "" {
		return nil, nil
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	if log != nil {
		log.Info("Redis connected", "addr", cfg.Addr)
	}
	return rdb, nil
}

const planCachePrefix = "plancache:"

// PlanCacheLayer keeps fingerprint -> cache value pairs in redis in front of the database cache.
type PlanCacheLayer struct {
	rdb    goredis.UniversalClient
	maxTTL time.Duration
}

// NewPlanCacheLayer caps every key at maxTTL so never-expiring entries do not pin memory forever.
func NewPlanCacheLayer(rdb goredis.UniversalClient, maxTTL time.Duration) *PlanCacheLayer {
	if maxTTL <= 0 {
		maxTTL = 7 * 24 * time.Hour
	}
	return &PlanCacheLayer{rdb: rdb, maxTTL: maxTTL}
}

func PlanCacheKey(fingerprint string) string { return planCachePrefix + fingerprint }

// Get returns "", false, nil on a miss.
func (l *PlanCacheLayer) Get(ctx context.Context, fingerprint string) (string, bool, error) {
	v, err := l.rdb.Get(ctx, PlanCacheKey(fingerprint)).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// Set stores value until expiresAt (nil means the layer's max TTL). Already-expired entries are skipped.
func (l *PlanCacheLayer) Set(ctx context.Context, fingerprint, value string, expiresAt *time.Time, now time.Time) error {
	ttl := KeyTTL(expiresAt, now, l.maxTTL)
	if ttl <= 0 {
		return nil
	}
	return l.rdb.Set(ctx, PlanCacheKey(fingerprint), value, ttl).Err()
}

// KeyTTL is the redis lifetime for an entry expiring at expiresAt, capped at max.
func KeyTTL(expiresAt *time.Time, now time.Time, max time.Duration) time.Duration {
	if expiresAt == nil {
		return max
	}
	ttl := expiresAt.Sub(now)
	if ttl > max {
		return max
	}
	return ttl
}
