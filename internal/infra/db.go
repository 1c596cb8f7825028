package infra

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Process names the binary opening a pool. It selects the default pool size
// and tags server-side sessions through application_name.
type Process string

const (
	ProcessAPI    Process = "api"
	ProcessWorker Process = "worker"
	ProcessCLI    Process = "cli"
)

type poolSize struct{ max, min int32 }

// The worker runs one job at a time: a claim or status read plus the
// occasional concurrent cancel check never needs more than a few sessions.
var defaultPoolSizes = map[Process]poolSize{
	ProcessAPI:    {max: 10, min: 2},
	ProcessWorker: {max: 3, min: 1},
	ProcessCLI:    {max: 2, min: 0},
}

// PoolConfig derives the pgx pool settings for proc. DB_MAX_CONNS and
// DB_MIN_CONNS override the per-process defaults.
func PoolConfig(cfg *Config, proc Process) (*pgxpool.Config, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	size, ok := defaultPoolSizes[proc]
	if !ok {
		size = defaultPoolSizes[ProcessCLI]
	}
	if cfg.DBMaxConns > 0 {
		size.max = int32(cfg.DBMaxConns)
	}
	if cfg.DBMinConns > 0 {
		size.min = int32(cfg.DBMinConns)
	}
	if size.min > size.max {
		size.min = size.max
	}
	poolCfg.MaxConns = size.max
	poolCfg.MinConns = size.min
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 30 * time.Minute
	poolCfg.ConnConfig.RuntimeParams["application_name"] = "genads-" + string(proc)
	return poolCfg, nil
}

// NewDBPool connects and pings so a bad DATABASE_URL fails at startup.
func NewDBPool(ctx context.Context, cfg *Config, proc Process) (*pgxpool.Pool, error) {
	poolCfg, err := PoolConfig(cfg, proc)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}
