package store

import (
	"context"
	"fmt"
	"time"

	"github.com/JonMunkholm/attendance/internal/core"
)

// querier is the driver-specific half of a row transaction.
type querier interface {
	// queryID scans a single id column. found is false when no row matched.
	queryID(ctx context.Context, query string, args ...any) (id int64, found bool, err error)
	// exec runs a statement and returns the affected row count.
	exec(ctx context.Context, query string, args ...any) (int64, error)
	commit(ctx context.Context) error
	// rollback is a no-op after commit.
	rollback(ctx context.Context) error
}

// tx implements core.Tx on top of a querier.
type tx struct {
	q querier
	d dialect
}

func (t *tx) FindParentByPhone(ctx context.Context, phone string) (int64, bool, error) {
	query, args := t.d.selectParentByPhone(phone)
	id, found, err := t.q.queryID(ctx, query, args...)
	if err != nil {
		return 0, false, fmt.Errorf("find parent: %w", err)
	}
	return id, found, nil
}

func (t *tx) InsertParent(ctx context.Context, p core.ParentFields) (int64, bool, error) {
	query, args := t.d.insertParent(p)
	id, inserted, err := t.q.queryID(ctx, query, args...)
	if err != nil {
		return 0, false, fmt.Errorf("insert parent: %w", err)
	}
	return id, inserted, nil
}

func (t *tx) FindChild(ctx context.Context, parentID int64, nameKey string, age int) (int64, bool, error) {
	query, args := t.d.selectChild(parentID, nameKey, age)
	id, found, err := t.q.queryID(ctx, query, args...)
	if err != nil {
		return 0, false, fmt.Errorf("find child: %w", err)
	}
	return id, found, nil
}

func (t *tx) InsertChild(ctx context.Context, parentID int64, nameKey string, c core.ChildFields) (int64, bool, error) {
	query, args := t.d.insertChild(parentID, nameKey, c)
	id, inserted, err := t.q.queryID(ctx, query, args...)
	if err != nil {
		return 0, false, fmt.Errorf("insert child: %w", err)
	}
	return id, inserted, nil
}

func (t *tx) InsertAttendance(ctx context.Context, childID int64, service string, date time.Time) (bool, error) {
	query, args := t.d.insertAttendance(childID, service, date)
	n, err := t.q.exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("insert attendance: %w", err)
	}
	return n > 0, nil
}

func (t *tx) Commit(ctx context.Context) error {
	if err := t.q.commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (t *tx) Rollback(ctx context.Context) error {
	return t.q.rollback(ctx)
}
