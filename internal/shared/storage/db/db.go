package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/sync/singleflight"

	"applykit-backend/internal/shared/telemetry"
)

// AppName is reported to Postgres as application_name.
const AppName = "applykit-backend"

// ErrNoDatabaseURL is returned when no connection string is configured.
var ErrNoDatabaseURL = errors.New("DATABASE_URL is empty")

// Role names the kind of process that owns a pool. Each role sizes the pool
// differently: Lambda instances share one tiny pool across warm invocations,
// the API server keeps a larger one, and migrations need a single connection.
type Role string

const (
	RoleServer  Role = "server"
	RoleLambda  Role = "lambda"
	RoleMigrate Role = "migrate"
)

// Options sizes the pool and bounds the startup ping.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

var roleDefaults = map[Role]Options{
	RoleServer:  {MaxOpenConns: 10, MaxIdleConns: 5, ConnMaxLifetime: time.Hour, ConnMaxIdleTime: 2 * time.Minute, PingTimeout: 5 * time.Second},
	RoleLambda:  {MaxOpenConns: 2, MaxIdleConns: 1, ConnMaxLifetime: 15 * time.Minute, ConnMaxIdleTime: 30 * time.Second, PingTimeout: 3 * time.Second},
	RoleMigrate: {MaxOpenConns: 1, MaxIdleConns: 1, ConnMaxLifetime: time.Hour, ConnMaxIdleTime: 2 * time.Minute, PingTimeout: 5 * time.Second},
}

// RuntimeRole reports RoleLambda inside AWS Lambda and RoleServer elsewhere.
func RuntimeRole() Role {
	if strings.TrimSpace(os.Getenv("AWS_LAMBDA_FUNCTION_NAME")) != "" {
		return RoleLambda
	}
	return RoleServer
}

// OptionsFor returns the defaults for role with any DB_* overrides applied.
// Unparseable overrides are logged and ignored.
func OptionsFor(role Role) Options {
	opts, ok := roleDefaults[role]
	if !ok {
		opts = roleDefaults[RoleServer]
	}
	for _, o := range envOverrides {
		raw := strings.TrimSpace(os.Getenv(o.key))
		if raw == "" {
			continue
		}
		if err := o.apply(&opts, raw); err != nil {
			telemetry.Warn("db.env_invalid", map[string]any{"key": o.key, "error": err.Error()})
		}
	}
	return opts
}

var envOverrides = []struct {
	key   string
	apply func(*Options, string) error
}{
	{"DB_MAX_OPEN_CONNS", intSetter(func(o *Options) *int { return &o.MaxOpenConns })},
	{"DB_MAX_IDLE_CONNS", intSetter(func(o *Options) *int { return &o.MaxIdleConns })},
	{"DB_CONN_MAX_LIFETIME", durationSetter(func(o *Options) *time.Duration { return &o.ConnMaxLifetime })},
	{"DB_CONN_MAX_IDLE_TIME", durationSetter(func(o *Options) *time.Duration { return &o.ConnMaxIdleTime })},
	{"DB_PING_TIMEOUT", durationSetter(func(o *Options) *time.Duration { return &o.PingTimeout })},
}

func intSetter(field func(*Options) *int) func(*Options, string) error {
	return func(o *Options, raw string) error {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return err
		}
		*field(o) = n
		return nil
	}
}

func durationSetter(field func(*Options) *time.Duration) func(*Options, string) error {
	return func(o *Options, raw string) error {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return err
		}
		*field(o) = d
		return nil
	}
}

// open is swapped in tests.
var open = openPGX

func openPGX(databaseURL string) (*sql.DB, error) {
	cfg, err := pgx.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse DATABASE_URL: %w", err)
	}
	if cfg.RuntimeParams == nil {
		cfg.RuntimeParams = map[string]string{}
	}
	if _, set := cfg.RuntimeParams["application_name"]; !set {
		cfg.RuntimeParams["application_name"] = AppName
	}
	return stdlib.OpenDB(*cfg), nil
}

// Open connects for role. Lambda callers get the process-wide shared pool so
// warm invocations reuse it.
func Open(ctx context.Context, databaseURL string, role Role) (*sql.DB, error) {
	opts := OptionsFor(role)
	if role == RoleLambda {
		return Shared(ctx, databaseURL, opts)
	}
	return Connect(ctx, databaseURL, opts)
}

// Connect opens a pool over pgx and pings it before returning.
func Connect(ctx context.Context, databaseURL string, opts Options) (*sql.DB, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, ErrNoDatabaseURL
	}
	pool, err := open(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	size(pool, opts)

	timeout := opts.PingTimeout
	if timeout <= 0 {
		timeout = roleDefaults[RoleServer].PingTimeout
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := pool.PingContext(pingCtx); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	stats := pool.Stats()
	telemetry.Info("db.connected", map[string]any{
		"max_open": stats.MaxOpenConnections,
		"open":     stats.OpenConnections,
		"idle":     stats.Idle,
	})
	return pool, nil
}

var (
	sharedPool atomic.Pointer[sql.DB]
	sharedInit singleflight.Group
)

// Shared returns the process-wide pool, connecting on first use. Concurrent
// first callers share one connection attempt; a failed attempt is retried by
// the next caller.
func Shared(ctx context.Context, databaseURL string, opts Options) (*sql.DB, error) {
	if pool := sharedPool.Load(); pool != nil {
		telemetry.Debug("db.shared_reuse", nil)
		return pool, nil
	}
	v, err, _ := sharedInit.Do("pool", func() (any, error) {
		if pool := sharedPool.Load(); pool != nil {
			return pool, nil
		}
		pool, err := Connect(ctx, databaseURL, opts)
		if err != nil {
			return nil, err
		}
		sharedPool.Store(pool)
		telemetry.Info("db.shared_init", nil)
		return pool, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*sql.DB), nil
}

// OwnsPool reports whether a caller with role should close its pool on
// shutdown. The Lambda pool outlives individual invocations.
func OwnsPool(role Role) bool {
	return role != RoleLambda
}

func size(pool *sql.DB, opts Options) {
	def := roleDefaults[RoleServer]
	if opts.MaxOpenConns <= 0 {
		opts.MaxOpenConns = def.MaxOpenConns
	}
	if opts.MaxIdleConns <= 0 {
		opts.MaxIdleConns = def.MaxIdleConns
	}
	if opts.ConnMaxLifetime <= 0 {
		opts.ConnMaxLifetime = def.ConnMaxLifetime
	}
	pool.SetMaxOpenConns(opts.MaxOpenConns)
	pool.SetMaxIdleConns(opts.MaxIdleConns)
	pool.SetConnMaxLifetime(opts.ConnMaxLifetime)
	if opts.ConnMaxIdleTime > 0 {
		pool.SetConnMaxIdleTime(opts.ConnMaxIdleTime)
	}
}
