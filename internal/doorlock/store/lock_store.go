package store

import (
	"context"
	"time"
)

// LockState is the single current door state.
type LockState struct {
	Status    LockStatus
	UpdatedAt time.Time
}

// HistoryRecord is one immutable transition. JSTTimestamp is stored as
// rendered at write time and never recomputed from UTCTimestamp.
type HistoryRecord struct {
	ID           int64
	Status       LockStatus
	At           time.Time // instant of the transition, UTC
	UTCTimestamp string
	JSTTimestamp string
}

// LockStore owns the lock state and its transition history.
type LockStore interface {
	// EnsureState creates the lock state as UNLOCKED if it does not exist.
	EnsureState(ctx context.Context, now time.Time) error

	GetState(ctx context.Context) (LockState, error)

	// SetState overwrites the lock state with rec.Status and appends rec to
	// the history in one atomic unit. The returned record carries its id.
	SetState(ctx context.Context, rec HistoryRecord) (HistoryRecord, error)

	// ListHistory returns every record, newest first.
	ListHistory(ctx context.Context) ([]HistoryRecord, error)

	// ListHistoryBetween returns records with from <= At < to, newest first.
	ListHistoryBetween(ctx context.Context, from, to time.Time) ([]HistoryRecord, error)

	// ClearHistory deletes every record and reports how many were removed.
	ClearHistory(ctx context.Context) (int64, error)
}
