package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations
var migrations embed.FS

// Direction selects whether Migrate applies or reverts the schema.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// migrationLogger routes golang-migrate output to slog.
type migrationLogger struct {
	logger *slog.Logger
}

func (l migrationLogger) Verbose() bool {
	return l.logger.Enabled(context.Background(), slog.LevelDebug)
}

func (l migrationLogger) Printf(format string, v ...any) {
	l.logger.Info(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func migrationSource(dialect string) (source.Driver, error) {
	src, err := iofs.New(migrations, "migrations/"+dialect)
	if err != nil {
		return nil, fmt.Errorf("load %s migrations: %w", dialect, err)
	}
	return src, nil
}

func migratePostgres(databaseURL string, dir Direction) error {
	src, err := migrationSource("postgres")
	if err != nil {
		return err
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, pgx5URL(databaseURL))
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()
	return run(m, dir)
}

// pgx5URL rewrites a postgres:// URL to the scheme the pgx/v5 migrate
// driver registers.
func pgx5URL(databaseURL string) string {
	for _, scheme := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(databaseURL, scheme) {
			return "pgx5://" + strings.TrimPrefix(databaseURL, scheme)
		}
	}
	return databaseURL
}

func migrateSQLite(db *sql.DB, dir Direction) error {
	src, err := migrationSource("sqlite")
	if err != nil {
		return err
	}
	defer src.Close()

	// m.Close would close db, which the store owns.
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("create sqlite migrate driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	return run(m, dir)
}

func run(m *migrate.Migrate, dir Direction) error {
	logger := slog.Default().With("component", "migrate")
	m.Log = migrationLogger{logger: logger}

	start := time.Now()
	var err error
	switch dir {
	case Up:
		err = m.Up()
	case Down:
		err = m.Down()
	default:
		return fmt.Errorf("unknown migration direction %q", dir)
	}

	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info("no new migrations to apply")
		return nil
	}
	if err != nil {
		return fmt.Errorf("migrate %s: %w", dir, err)
	}

	version, dirty, verr := m.Version()
	if verr != nil && !errors.Is(verr, migrate.ErrNilVersion) {
		return fmt.Errorf("read migration version: %w", verr)
	}
	logger.Info("migrations applied",
		"direction", dir,
		"version", version,
		"dirty", dirty,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}
