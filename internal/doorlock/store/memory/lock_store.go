package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/BrandonDHaskell/doorlock/internal/doorlock/store"
)

// LockStore is an in-memory LockStore. It is intended for tests and
// throwaway dev runs; nothing survives a restart.
type LockStore struct {
	mu      sync.RWMutex
	state   *store.LockState
	history []store.HistoryRecord
	nextID  int64
	err     error
}

func NewLockStore() *LockStore {
	return &LockStore{nextID: 1}
}

// Fail makes every subsequent call return err wrapped as a StorageError.
// Passing nil restores normal operation.
func (s *LockStore) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *LockStore) EnsureState(_ context.Context, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return store.Wrap("EnsureState", s.err)
	}
	if s.state == nil {
		s.state = &store.LockState{Status: store.StatusUnlocked, UpdatedAt: now.UTC()}
	}
	return nil
}

func (s *LockStore) GetState(_ context.Context) (store.LockState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.err != nil {
		return store.LockState{}, store.Wrap("GetState", s.err)
	}
	if s.state == nil {
		return store.LockState{}, store.Wrap("GetState", store.ErrNotInitialized)
	}
	return *s.state, nil
}

func (s *LockStore) SetState(_ context.Context, rec store.HistoryRecord) (store.HistoryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return store.HistoryRecord{}, store.Wrap("SetState", s.err)
	}
	if s.state == nil {
		return store.HistoryRecord{}, store.Wrap("SetState", store.ErrNotInitialized)
	}
	if rec.At.IsZero() {
		rec.At = time.Now().UTC()
	}

	rec.ID = s.nextID
	s.nextID++
	s.state.Status = rec.Status
	s.state.UpdatedAt = rec.At.UTC()
	s.history = append(s.history, rec)
	return rec, nil
}

func (s *LockStore) ListHistory(_ context.Context) ([]store.HistoryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.err != nil {
		return nil, store.Wrap("ListHistory", s.err)
	}
	return newestFirst(s.history, func(store.HistoryRecord) bool { return true }), nil
}

func (s *LockStore) ListHistoryBetween(_ context.Context, from, to time.Time) ([]store.HistoryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.err != nil {
		return nil, store.Wrap("ListHistoryBetween", s.err)
	}
	return newestFirst(s.history, func(r store.HistoryRecord) bool {
		return !r.At.Before(from) && r.At.Before(to)
	}), nil
}

func (s *LockStore) ClearHistory(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return 0, store.Wrap("ClearHistory", s.err)
	}
	n := int64(len(s.history))
	s.history = nil
	return n, nil
}

func newestFirst(recs []store.HistoryRecord, keep func(store.HistoryRecord) bool) []store.HistoryRecord {
	out := make([]store.HistoryRecord, 0, len(recs))
	for _, r := range recs {
		if keep(r) {
			out = append(out, r)
		}
	}
	slices.Reverse(out)
	return out
}
