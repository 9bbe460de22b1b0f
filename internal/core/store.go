package core

import (
	"context"
	"time"
)

// Store is the persisted attendance store used in incremental mode.
// Implementations live in internal/store.
type Store interface {
	// Begin opens the transaction one submission row is applied in.
	Begin(ctx context.Context) (Tx, error)

	// Counts returns the number of rows per entity table.
	Counts(ctx context.Context) (Counts, error)

	Close() error
}

// Tx is a row-scoped store transaction.
//
// Insert methods never fail on a natural-key conflict: they report
// inserted=false so the caller can re-read the winner.
type Tx interface {
	FindParentByPhone(ctx context.Context, phone string) (id int64, found bool, err error)
	InsertParent(ctx context.Context, p ParentFields) (id int64, inserted bool, err error)

	FindChild(ctx context.Context, parentID int64, nameKey string, age int) (id int64, found bool, err error)
	InsertChild(ctx context.Context, parentID int64, nameKey string, c ChildFields) (id int64, inserted bool, err error)

	InsertAttendance(ctx context.Context, childID int64, service string, date time.Time) (inserted bool, err error)

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Counts is a snapshot of the store size.
type Counts struct {
	Parents    int64 `json:"parents"`
	Children   int64 `json:"children"`
	Attendance int64 `json:"attendance"`
}
