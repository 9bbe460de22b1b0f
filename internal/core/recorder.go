package core

import (
	"context"
	"fmt"
	"time"
)

// Recorder inserts at most one attendance fact per (child, service, date).
// recorded is false when the fact already existed; that is never an error.
type Recorder interface {
	Record(ctx context.Context, childID int64, service string, date time.Time) (recorded bool, err error)
}

// AttendanceDate truncates t to its calendar date in t's location, returned as UTC midnight.
func AttendanceDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type attendanceKey struct {
	childID int64
	service string
	date    string
}

// MemoryRecorder keeps batch attendance in memory, numbering facts 1..n in
// insertion order.
type MemoryRecorder struct {
	keys map[attendanceKey]struct{}
	rows []Attendance
}

// NewMemoryRecorder creates an empty batch recorder.
func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{keys: make(map[attendanceKey]struct{})}
}

// Record adds the fact unless its natural key is already present.
func (r *MemoryRecorder) Record(_ context.Context, childID int64, service string, date time.Time) (bool, error) {
	date = AttendanceDate(date)
	k := attendanceKey{childID: childID, service: service, date: date.Format(time.DateOnly)}
	if _, ok := r.keys[k]; ok {
		return false, nil
	}

	r.keys[k] = struct{}{}
	r.rows = append(r.rows, Attendance{
		ID:             int64(len(r.rows) + 1),
		ChildID:        childID,
		ServiceName:    service,
		AttendanceDate: date,
		WasPresent:     true,
	})
	return true, nil
}

func (r *MemoryRecorder) mark() int {
	return len(r.rows)
}

func (r *MemoryRecorder) rewind(n int) {
	for _, a := range r.rows[n:] {
		delete(r.keys, attendanceKey{childID: a.ChildID, service: a.ServiceName, date: a.AttendanceDate.Format(time.DateOnly)})
	}
	r.rows = r.rows[:n]
}

// Attendance returns the recorded facts ordered by id.
func (r *MemoryRecorder) Attendance() []Attendance {
	return append([]Attendance(nil), r.rows...)
}

// StoreRecorder records attendance in a store transaction. The natural-key
// constraint makes re-insertion a no-op.
type StoreRecorder struct {
	tx Tx
}

// NewStoreRecorder binds a recorder to tx.
func NewStoreRecorder(tx Tx) *StoreRecorder {
	return &StoreRecorder{tx: tx}
}

// Record inserts the fact, reporting whether a row was added.
func (r *StoreRecorder) Record(ctx context.Context, childID int64, service string, date time.Time) (bool, error) {
	inserted, err := r.tx.InsertAttendance(ctx, childID, service, AttendanceDate(date))
	if err != nil {
		return false, fmt.Errorf("insert attendance: %w", err)
	}
	return inserted, nil
}
