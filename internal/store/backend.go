// Package store opens the connection backing the portal's session store.
package store

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"attendance-portal/internal/session"
)

const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Backend is the selected session store plus whichever connection it owns.
type Backend struct {
	Kind     string
	Sessions session.Store
	DB       *DB
	Redis    *Redis
	memory   *session.Memory
	postgres *session.Postgres
}

// Open connects the session backend named by kind.
func Open(ctx context.Context, kind, databaseURL, redisAddr string, logger *zap.Logger) (*Backend, error) {
	switch kind {
	case "", BackendMemory:
		mem := session.NewMemory()
		return &Backend{Kind: BackendMemory, Sessions: mem, memory: mem}, nil

	case BackendRedis:
		rdb, err := NewRedis(ctx, redisAddr)
		if err != nil {
			return nil, fmt.Errorf("connect redis %s: %w", redisAddr, err)
		}
		logger.Info("session store: redis", zap.String("addr", redisAddr))
		return &Backend{Kind: kind, Sessions: session.NewRedis(rdb.Client), Redis: rdb}, nil

	case BackendPostgres:
		db, err := NewDB(ctx, databaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		pg := session.NewPostgres(db.Client)
		if err := pg.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("create sessions table: %w", err)
		}
		logger.Info("session store: postgres")
		return &Backend{Kind: kind, Sessions: pg, DB: db, postgres: pg}, nil
	}
	return nil, fmt.Errorf("unknown session backend %q", kind)
}

// Healthy reports the state of the owned connection; memory is always up.
func (b *Backend) Healthy(ctx context.Context) map[string]bool {
	switch b.Kind {
	case BackendRedis:
		return map[string]bool{"redis": b.Redis.Healthy(ctx)}
	case BackendPostgres:
		return map[string]bool{"db": b.DB.Healthy(ctx)}
	}
	return map[string]bool{"memory": true}
}

// Janitor removes expired sessions every interval until ctx is done. Redis
// expires keys itself, so it is a no-op there.
func (b *Backend) Janitor(ctx context.Context, interval time.Duration, logger *zap.Logger) {
	if b.memory == nil && b.postgres == nil {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.sweep(ctx, logger)
		}
	}
}

func (b *Backend) sweep(ctx context.Context, logger *zap.Logger) {
	if b.memory != nil {
		if n := b.memory.Sweep(); n > 0 {
			logger.Debug("expired sessions removed", zap.Int("count", n))
		}
		return
	}
	n, err := b.postgres.PurgeExpired(ctx)
	if err != nil {
		logger.Warn("purge sessions failed", zap.Error(err))
		return
	}
	if n > 0 {
		logger.Debug("expired sessions removed", zap.Int64("count", n))
	}
}

func (b *Backend) Close() error {
	if err := b.Redis.Close(); err != nil {
		return err
	}
	return b.DB.Close()
}
