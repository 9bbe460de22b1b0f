package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/attendance/internal/config"
	"github.com/JonMunkholm/attendance/internal/core"
)

// Postgres is the production store, backed by a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
	url  string
}

// OpenPostgres connects a pool sized from cfg and verifies it with a ping.
func OpenPostgres(ctx context.Context, cfg config.DatabaseConfig) (*Postgres, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if u, err := url.Parse(cfg.URL); err == nil {
		slog.Info("connected to database", "driver", config.DriverPostgres, "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database", "driver", config.DriverPostgres)
	}

	return &Postgres{pool: pool, url: cfg.URL}, nil
}

func (p *Postgres) Begin(ctx context.Context) (core.Tx, error) {
	t, err := p.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &tx{q: pgxQuerier{tx: t}, d: postgresDialect}, nil
}

func (p *Postgres) Counts(ctx context.Context) (core.Counts, error) {
	var c core.Counts
	for table, dst := range map[string]*int64{
		"parents":    &c.Parents,
		"children":   &c.Children,
		"attendance": &c.Attendance,
	} {
		query, args := postgresDialect.count(table)
		if err := p.pool.QueryRow(ctx, query, args...).Scan(dst); err != nil {
			return core.Counts{}, fmt.Errorf("count %s: %w", table, err)
		}
	}
	return c, nil
}

// Migrate applies or reverts the embedded schema.
func (p *Postgres) Migrate(dir Direction) error {
	return migratePostgres(p.url, dir)
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

type pgxQuerier struct {
	tx pgx.Tx
}

func (q pgxQuerier) queryID(ctx context.Context, query string, args ...any) (int64, bool, error) {
	var id int64
	err := q.tx.QueryRow(ctx, query, args...).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

func (q pgxQuerier) exec(ctx context.Context, query string, args ...any) (int64, error) {
	tag, err := q.tx.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (q pgxQuerier) commit(ctx context.Context) error {
	return q.tx.Commit(ctx)
}

func (q pgxQuerier) rollback(ctx context.Context) error {
	err := q.tx.Rollback(ctx)
	if errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return err
}
