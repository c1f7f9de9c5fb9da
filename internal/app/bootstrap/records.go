package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/eyecare-clinic-api/internal/config"
	"github.com/wolfman30/eyecare-clinic-api/internal/records"
	"github.com/wolfman30/eyecare-clinic-api/pkg/logging"
)

// RecordStore is the configured record backend plus the connections it
// keeps open.
type RecordStore struct {
	Backend records.Backend
	// SQL is set for the postgres backend so readiness can ping it.
	SQL *sql.DB
	// Stamper is shared with the gateway so insert and status-change
	// timestamps come from one increasing sequence.
	Stamper *records.Stamper

	closers []func()
}

// Close releases everything the store opened, newest first.
func (s *RecordStore) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

// BuildRecordStore selects the backend named by cfg.Backend. The supabase
// backend needs redisClient for its change feed.
func BuildRecordStore(ctx context.Context, cfg *appconfig.Config, redisClient *redis.Client, logger *logging.Logger) (*RecordStore, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	stamper := records.NewStamper(nil)

	switch cfg.Backend {
	case appconfig.BackendMemory, "":
		logger.Warn("using in-memory record backend; data is lost on restart")
		return &RecordStore{Backend: records.NewMemoryBackend(logger, stamper), Stamper: stamper}, nil

	case appconfig.BackendPostgres:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: postgres pool: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("bootstrap: postgres ping: %w", err)
		}
		feed, err := records.NewPostgresFeed(cfg.DatabaseURL, logger)
		if err != nil {
			pool.Close()
			return nil, err
		}
		feedCtx, cancel := context.WithCancel(context.Background())
		go feed.Run(feedCtx)

		db := stdlib.OpenDBFromPool(pool)
		store := &RecordStore{Backend: records.NewPostgresBackend(pool, feed), SQL: db, Stamper: stamper}
		store.closers = append(store.closers,
			pool.Close,
			func() { _ = db.Close() },
			func() { _ = feed.Close() },
			cancel,
		)
		logger.Info("postgres record backend ready")
		return store, nil

	case appconfig.BackendSupabase:
		if redisClient == nil {
			return nil, errors.New("bootstrap: supabase backend requires redis for the change feed")
		}
		client, err := records.NewSupabaseClient(cfg.SupabaseURL, cfg.SupabaseKey)
		if err != nil {
			return nil, err
		}
		feed := records.NewRedisFeed(redisClient, logger)
		logger.Info("supabase record backend ready", "url", cfg.SupabaseURL)
		return &RecordStore{Backend: records.NewSupabaseBackend(client, feed, logger), Stamper: stamper}, nil

	default:
		return nil, fmt.Errorf("bootstrap: unknown backend %q", cfg.Backend)
	}
}
