// Package store implements the persisted attendance store on PostgreSQL and
// SQLite. Natural-key uniqueness is enforced by the schema; inserts that hit
// a unique constraint report "not inserted" instead of failing.
package store

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/attendance/internal/config"
	"github.com/JonMunkholm/attendance/internal/core"
)

// Store is a core.Store that owns its schema.
type Store interface {
	core.Store
	Migrate(dir Direction) error
}

var (
	_ Store = (*Postgres)(nil)
	_ Store = (*SQLite)(nil)
)

// Open connects the store selected by cfg.Driver. With AutoMigrate set the
// schema is brought up to date before returning.
func Open(ctx context.Context, cfg config.DatabaseConfig) (Store, error) {
	if err := cfg.RequireStore(); err != nil {
		return nil, err
	}

	var (
		s   Store
		err error
	)
	switch cfg.Driver {
	case config.DriverPostgres:
		s, err = OpenPostgres(ctx, cfg)
	case config.DriverSQLite:
		s, err = OpenSQLite(ctx, cfg.URL)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrStoreUnavailable, err)
	}

	if cfg.AutoMigrate {
		if err := s.Migrate(Up); err != nil {
			s.Close()
			return nil, err
		}
	}
	return s, nil
}
