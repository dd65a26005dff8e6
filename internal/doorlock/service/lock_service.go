package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/BrandonDHaskell/doorlock/internal/doorlock/store"
	"github.com/BrandonDHaskell/doorlock/internal/doorlock/types"
)

type Options struct {
	// StorageTimeout bounds every call into the lock store.  Defaults to 5s.
	StorageTimeout time.Duration

	// Now is the clock used to stamp transitions.  Defaults to time.Now.
	Now func() time.Time

	Logger zerolog.Logger
}

// LockService is the single entry point for reading and changing the door
// state.  The lock store is authoritative; the log mirror is best-effort.
type LockService struct {
	store   store.LockStore
	mirror  *LogMirror
	timeout time.Duration
	now     func() time.Time
	logger  zerolog.Logger
}

func NewLockService(ls store.LockStore, mirror *LogMirror, opts Options) *LockService {
	if opts.StorageTimeout <= 0 {
		opts.StorageTimeout = 5 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &LockService{
		store:   ls,
		mirror:  mirror,
		timeout: opts.StorageTimeout,
		now:     opts.Now,
		logger:  opts.Logger.With().Str("component", "lock_service").Logger(),
	}
}

// Init creates the lock state as UNLOCKED if it does not exist yet.
// Callers treat a failure as fatal.
func (s *LockService) Init(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	return s.store.EnsureState(ctx, s.now().UTC())
}

func (s *LockService) GetState(ctx context.Context) (store.LockState, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	return s.store.GetState(ctx)
}

// SetStatus validates a wire request and applies it.
func (s *LockService) SetStatus(ctx context.Context, req types.SetStatusRequest) (store.HistoryRecord, error) {
	if req.Status == nil {
		return store.HistoryRecord{}, ErrInvalidStatus
	}
	return s.SetState(ctx, store.StatusFromBool(*req.Status))
}

// SetState records a transition to status: the lock state and a new
// history record are written together, then the record is handed to the
// log mirror.  The mirror outcome never affects the result.
func (s *LockService) SetState(ctx context.Context, status store.LockStatus) (store.HistoryRecord, error) {
	if !status.Valid() {
		return store.HistoryRecord{}, ErrInvalidStatus
	}

	rec := newRecord(status, s.now())

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	saved, err := s.store.SetState(ctx, rec)
	if err != nil {
		return store.HistoryRecord{}, err
	}

	s.logger.Info().
		Int64("history_id", saved.ID).
		Str("status", saved.Status.String()).
		Str("utc", saved.UTCTimestamp).
		Msg("lock state changed")

	if s.mirror != nil {
		s.mirror.Submit(saved)
	}
	return saved, nil
}

// ListHistory returns the full history, newest first.
func (s *LockService) ListHistory(ctx context.Context) ([]store.HistoryRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	return s.store.ListHistory(ctx)
}

// ListHistoryByDate returns the records of one UTC calendar day, newest
// first.  date is "YYYY-MM-DD".
func (s *LockService) ListHistoryByDate(ctx context.Context, date string) ([]store.HistoryRecord, error) {
	from, to, err := DayRange(date)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	return s.store.ListHistoryBetween(ctx, from, to)
}

// ClearHistory deletes all history records.  The lock state and the text
// log are left alone.
func (s *LockService) ClearHistory(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	n, err := s.store.ClearHistory(ctx)
	if err != nil {
		return 0, err
	}
	s.logger.Info().Int64("deleted", n).Msg("history cleared")
	return n, nil
}

// ReadLog returns the mirrored text log in file order.
func (s *LockService) ReadLog(ctx context.Context) ([]string, error) {
	if s.mirror == nil {
		return []string{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	return s.mirror.ReadAll(ctx)
}
