package bootstrap

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/eyecare-clinic-api/internal/config"
	"github.com/wolfman30/eyecare-clinic-api/pkg/logging"
)

// BuildRedisClient connects to Redis, which holds booking wizard drafts and,
// for the supabase backend, the record change feed. Without REDIS_ADDR it
// returns nil. An unreachable server is fatal only when the change feed
// depends on it; otherwise drafts fall back to process memory.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*redis.Client, error) {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil, nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	opts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		if cfg.Backend == appconfig.BackendSupabase {
			return nil, fmt.Errorf("bootstrap: redis required for the supabase change feed: %w", err)
		}
		logger.Warn("redis not available; booking drafts kept in memory", "error", err)
		return nil, nil
	}
	return client, nil
}
