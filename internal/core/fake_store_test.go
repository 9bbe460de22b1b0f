package core

import (
	"context"
	"time"
)

// fakeStore is a non-transactional Store for exercising the store-backed
// resolver and recorder without a database.
type fakeStore struct {
	parents    map[string]int64
	children   map[ChildKey]int64
	attendance map[attendanceKey]bool
	nextID     int64

	beginErr  error
	commits   int
	rollbacks int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		parents:    make(map[string]int64),
		children:   make(map[ChildKey]int64),
		attendance: make(map[attendanceKey]bool),
		nextID:     100,
	}
}

func (s *fakeStore) tx() *fakeTx { return &fakeTx{s: s} }

func (s *fakeStore) Begin(context.Context) (Tx, error) {
	if s.beginErr != nil {
		return nil, s.beginErr
	}
	return s.tx(), nil
}

func (s *fakeStore) Counts(context.Context) (Counts, error) {
	return Counts{
		Parents:    int64(len(s.parents)),
		Children:   int64(len(s.children)),
		Attendance: int64(len(s.attendance)),
	}, nil
}

func (s *fakeStore) Close() error { return nil }

type fakeTx struct {
	s        *fakeStore
	hideOnce bool
	err      error
}

func (t *fakeTx) FindParentByPhone(_ context.Context, phone string) (int64, bool, error) {
	if t.err != nil {
		return 0, false, t.err
	}
	if t.hideOnce {
		t.hideOnce = false
		return 0, false, nil
	}
	id, ok := t.s.parents[phone]
	return id, ok, nil
}

func (t *fakeTx) InsertParent(_ context.Context, p ParentFields) (int64, bool, error) {
	if t.err != nil {
		return 0, false, t.err
	}
	if _, ok := t.s.parents[p.PhoneNumber]; ok {
		return 0, false, nil
	}
	t.s.nextID++
	t.s.parents[p.PhoneNumber] = t.s.nextID
	return t.s.nextID, true, nil
}

func (t *fakeTx) FindChild(_ context.Context, parentID int64, nameKey string, age int) (int64, bool, error) {
	if t.err != nil {
		return 0, false, t.err
	}
	id, ok := t.s.children[ChildKey{ParentID: parentID, Name: nameKey, Age: age}]
	return id, ok, nil
}

func (t *fakeTx) InsertChild(_ context.Context, parentID int64, nameKey string, c ChildFields) (int64, bool, error) {
	if t.err != nil {
		return 0, false, t.err
	}
	k := ChildKey{ParentID: parentID, Name: nameKey, Age: c.Age}
	if _, ok := t.s.children[k]; ok {
		return 0, false, nil
	}
	t.s.nextID++
	t.s.children[k] = t.s.nextID
	return t.s.nextID, true, nil
}

func (t *fakeTx) InsertAttendance(_ context.Context, childID int64, service string, date time.Time) (bool, error) {
	if t.err != nil {
		return false, t.err
	}
	k := attendanceKey{childID: childID, service: service, date: date.Format(time.DateOnly)}
	if t.s.attendance[k] {
		return false, nil
	}
	t.s.attendance[k] = true
	return true, nil
}

func (t *fakeTx) Commit(context.Context) error {
	t.s.commits++
	return nil
}

func (t *fakeTx) Rollback(context.Context) error {
	t.s.rollbacks++
	return nil
}
