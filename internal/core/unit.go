package core

import (
	"context"
	"fmt"
)

// UnitOfWork opens the scope one submission row is applied in. Either all of
// a row's effects are kept (Commit) or none are (Rollback).
type UnitOfWork interface {
	Begin(ctx context.Context) (*Unit, error)
}

// Unit is a Resolver and Recorder bound to one row's transaction.
type Unit struct {
	Resolver Resolver
	Recorder Recorder

	commit   func(ctx context.Context) error
	rollback func(ctx context.Context) error
}

// Commit keeps the row's effects.
func (u *Unit) Commit(ctx context.Context) error {
	if u.commit == nil {
		return nil
	}
	return u.commit(ctx)
}

// Rollback discards the row's effects. Safe to call after Commit.
func (u *Unit) Rollback(ctx context.Context) error {
	if u.rollback == nil {
		return nil
	}
	return u.rollback(ctx)
}

// Batch is the in-memory unit of work for batch mode. Rolling back a row
// rewinds the resolver and recorder to where the row started.
type Batch struct {
	Resolver *MemoryResolver
	Recorder *MemoryRecorder
}

// NewBatch creates empty batch state.
func NewBatch() *Batch {
	return &Batch{Resolver: NewMemoryResolver(), Recorder: NewMemoryRecorder()}
}

// Begin marks the current state so the row can be undone.
func (b *Batch) Begin(_ context.Context) (*Unit, error) {
	rm := b.Resolver.mark()
	am := b.Recorder.mark()
	done := false

	return &Unit{
		Resolver: b.Resolver,
		Recorder: b.Recorder,
		commit: func(context.Context) error {
			done = true
			return nil
		},
		rollback: func(context.Context) error {
			if done {
				return nil
			}
			done = true
			b.Recorder.rewind(am)
			b.Resolver.rewind(rm)
			return nil
		},
	}, nil
}

// Dataset returns the materialized batch output. Prepared parent ids whose
// every row failed leave holes; parents are renumbered 1..n in id order so
// the exported ids stay contiguous.
func (b *Batch) Dataset() Dataset {
	parents := b.Resolver.Parents()
	children := b.Resolver.Children()

	renumbered := make(map[int64]int64, len(parents))
	for i := range parents {
		id := int64(i + 1)
		renumbered[parents[i].ID] = id
		parents[i].ID = id
	}
	for i := range children {
		children[i].ParentID = renumbered[children[i].ParentID]
	}

	return Dataset{
		Parents:    parents,
		Children:   children,
		Attendance: b.Recorder.Attendance(),
	}
}

// StoreWork opens one store transaction per row.
type StoreWork struct {
	store Store
}

// NewStoreWork creates the incremental unit of work over store.
func NewStoreWork(store Store) *StoreWork {
	return &StoreWork{store: store}
}

// Begin starts a transaction. Failing to begin means the store is unavailable.
func (w *StoreWork) Begin(ctx context.Context) (*Unit, error) {
	tx, err := w.store.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: begin: %w", ErrStoreUnavailable, err)
	}

	return &Unit{
		Resolver: NewStoreResolver(tx),
		Recorder: NewStoreRecorder(tx),
		commit:   tx.Commit,
		rollback: tx.Rollback,
	}, nil
}
