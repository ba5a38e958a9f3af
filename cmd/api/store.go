package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"shortlink.local/internal/app/shortlink"
	slcache "shortlink.local/internal/app/shortlink/cache"
	"shortlink.local/internal/app/shortlink/repo"
	platformcache "shortlink.local/internal/platform/cache"
	"shortlink.local/internal/platform/config"
	"shortlink.local/internal/platform/db"
	"shortlink.local/internal/platform/migrate"
	"shortlink.local/migrations"
)

// pinger is implemented by every backend; /readyz uses it.
type pinger interface {
	Ping(ctx context.Context) error
}

type backend struct {
	store   shortlink.Store
	ping    pinger
	redis   *redis.Client // nil unless some component needs redis
	closers []func()
}

func (b *backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

// openBackend 根据 STORE_BACKEND 组装存储；postgres 可叠加 L1/L2 缓存与布隆过滤器
func openBackend(ctx context.Context, cfg config.Config) (*backend, error) {
	b := &backend{}

	if cfg.NeedsRedis() {
		rdb, err := platformcache.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		b.redis = rdb
		b.closers = append(b.closers, func() { _ = rdb.Close() })
		slog.Info("redis connected", "addr", cfg.RedisAddr)
	}

	switch cfg.StoreBackend {
	case config.BackendMemory:
		m := repo.NewMemoryStore()
		b.store, b.ping = m, m
		slog.Warn("using in-memory store; links are lost on restart")

	case config.BackendRedis:
		r := repo.NewRedisStore(b.redis)
		b.store, b.ping = r, r

	case config.BackendPostgres:
		pool, err := openPostgres(ctx, cfg)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.closers = append(b.closers, pool.Close)

		pg := repo.NewPostgresStore(pool)
		b.store, b.ping = pg, pg
		if cfg.CacheEnabled {
			cached, err := newCachedStore(ctx, cfg, pg, b.redis)
			if err != nil {
				b.Close()
				return nil, err
			}
			b.closers = append(b.closers, cached.close)
			b.store = cached.store
		}

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}

	slog.Info("store ready", "backend", cfg.StoreBackend, "cache", cfg.CacheEnabled && cfg.StoreBackend == config.BackendPostgres)
	return b, nil
}

func openPostgres(ctx context.Context, cfg config.Config) (*pgxpool.Pool, error) {
	dbCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	pool, err := db.New(dbCtx, cfg.DBDSN)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	slog.Info("postgres connected")

	if cfg.MigrateOnStart {
		res, err := migrate.Up(ctx, pool, migrate.Options{FS: migrations.FS})
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		slog.Info("migrations done", "source", res.Source, "applied", res.AppliedFiles, "skipped", len(res.SkippedFiles))
	}
	return pool, nil
}

type cachedBackend struct {
	store *repo.CachedStore
	close func()
}

func newCachedStore(ctx context.Context, cfg config.Config, next shortlink.Store, rdb *redis.Client) (*cachedBackend, error) {
	local, err := slcache.NewLocalCache(cfg.LocalCacheMaxItems, cfg.CacheTTL)
	if err != nil {
		return nil, fmt.Errorf("local cache: %w", err)
	}
	slc := slcache.NewShortlinkCache(rdb, local, cfg.CacheTTL)
	bloom := slcache.NewBloomFilter(cfg.BloomExpectedItems, cfg.BloomFPRate)
	store := repo.NewCachedStore(next, slc, bloom)

	warmCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	n, err := store.Warm(warmCtx)
	if err != nil {
		slc.Close()
		return nil, fmt.Errorf("bloom warm-up: %w", err)
	}
	slog.Info("bloom filter warmed", "codes", n)

	return &cachedBackend{store: store, close: slc.Close}, nil
}
