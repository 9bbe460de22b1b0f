package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/JonMunkholm/attendance/internal/config"
	"github.com/JonMunkholm/attendance/internal/core"
)

// sqlitePragmas are applied to every connection through the DSN.
var sqlitePragmas = []string{
	"_foreign_keys=on",
	"_busy_timeout=5000",
	"_journal_mode=WAL",
	"_synchronous=NORMAL",
}

// SQLite is a single-file store for local runs and tests.
type SQLite struct {
	db *sqlx.DB
}

// OpenSQLite opens the database file at path. ":memory:" gives a private
// in-memory database.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sqlx.Open("sqlite3", sqliteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite allows one writer; a single connection also keeps
	// an in-memory database alive for the life of the store.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	slog.Info("connected to database", "driver", config.DriverSQLite, "path", path)
	return &SQLite{db: db}, nil
}

func sqliteDSN(path string) string {
	pragmas := sqlitePragmas
	if path == ":memory:" {
		pragmas = pragmas[:2]
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return "file:" + path + sep + strings.Join(pragmas, "&")
}

func (s *SQLite) Begin(ctx context.Context) (core.Tx, error) {
	t, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &tx{q: sqlxQuerier{tx: t}, d: sqliteDialect}, nil
}

func (s *SQLite) Counts(ctx context.Context) (core.Counts, error) {
	var c core.Counts
	for table, dst := range map[string]*int64{
		"parents":    &c.Parents,
		"children":   &c.Children,
		"attendance": &c.Attendance,
	} {
		query, args := sqliteDialect.count(table)
		if err := s.db.GetContext(ctx, dst, query, args...); err != nil {
			return core.Counts{}, fmt.Errorf("count %s: %w", table, err)
		}
	}
	return c, nil
}

// Migrate applies or reverts the embedded schema.
func (s *SQLite) Migrate(dir Direction) error {
	return migrateSQLite(s.db.DB, dir)
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

type sqlxQuerier struct {
	tx *sqlx.Tx
}

func (q sqlxQuerier) queryID(ctx context.Context, query string, args ...any) (int64, bool, error) {
	var id int64
	err := q.tx.GetContext(ctx, &id, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

func (q sqlxQuerier) exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := q.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q sqlxQuerier) commit(context.Context) error {
	return q.tx.Commit()
}

func (q sqlxQuerier) rollback(context.Context) error {
	err := q.tx.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}
