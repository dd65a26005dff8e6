package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	dbpkg "github.com/BrandonDHaskell/doorlock/internal/db"
	"github.com/BrandonDHaskell/doorlock/internal/doorlock/store"
)

// LockStore keeps the lock state and its history in SQLite. Reads go to
// the *sql.DB directly; writes are serialized through the db.Worker.
type LockStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewLockStore(db *sql.DB, writer *dbpkg.Worker) *LockStore {
	return &LockStore{db: db, writer: writer}
}

func (s *LockStore) GetState(ctx context.Context) (store.LockState, error) {
	var (
		locked    int
		updatedMs int64
	)
	err := s.db.QueryRowContext(ctx, `
SELECT locked, updated_at_ms FROM lock_state WHERE id = ?;
`, lockStateID).Scan(&locked, &updatedMs)
	if errors.Is(err, sql.ErrNoRows) {
		return store.LockState{}, store.Wrap("GetState", store.ErrNotInitialized)
	}
	if err != nil {
		return store.LockState{}, store.Wrap("GetState", err)
	}

	return store.LockState{
		Status:    statusFromInt(locked),
		UpdatedAt: time.UnixMilli(updatedMs).UTC(),
	}, nil
}

func (s *LockStore) SetState(ctx context.Context, rec store.HistoryRecord) (store.HistoryRecord, error) {
	if !rec.Status.Valid() {
		return store.HistoryRecord{}, fmt.Errorf("SetState: invalid status %v", rec.Status)
	}
	if rec.At.IsZero() {
		rec.At = time.Now().UTC()
	}
	atMs := rec.At.UTC().UnixMilli()
	locked := intFromStatus(rec.Status)

	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
UPDATE lock_state
SET locked = ?,
    updated_at_ms = ?
WHERE id = ?;
`, locked, atMs, lockStateID)
		if err != nil {
			return fmt.Errorf("SetState update lock_state: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("SetState update lock_state: %w", err)
		} else if n == 0 {
			return store.ErrNotInitialized
		}

		res, err = tx.ExecContext(ctx, `
INSERT INTO lock_history(locked, utc_at_ms, utc_timestamp, jst_timestamp)
VALUES (?, ?, ?, ?);
`, locked, atMs, rec.UTCTimestamp, rec.JSTTimestamp)
		if err != nil {
			return fmt.Errorf("SetState insert history: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("SetState history id: %w", err)
		}
		rec.ID = id
		return nil
	})
	if err != nil {
		return store.HistoryRecord{}, store.Wrap("SetState", err)
	}

	rec.At = time.UnixMilli(atMs).UTC()
	return rec, nil
}

func (s *LockStore) ListHistory(ctx context.Context) ([]store.HistoryRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, locked, utc_at_ms, utc_timestamp, jst_timestamp
FROM lock_history
ORDER BY id DESC;
`)
	if err != nil {
		return nil, store.Wrap("ListHistory", err)
	}
	recs, err := scanHistory(rows)
	return recs, store.Wrap("ListHistory", err)
}

// ListHistoryBetween uses idx_lock_history_utc for the range scan.
func (s *LockStore) ListHistoryBetween(ctx context.Context, from, to time.Time) ([]store.HistoryRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, locked, utc_at_ms, utc_timestamp, jst_timestamp
FROM lock_history
WHERE utc_at_ms >= ? AND utc_at_ms < ?
ORDER BY id DESC;
`, from.UTC().UnixMilli(), to.UTC().UnixMilli())
	if err != nil {
		return nil, store.Wrap("ListHistoryBetween", err)
	}
	recs, err := scanHistory(rows)
	return recs, store.Wrap("ListHistoryBetween", err)
}

func (s *LockStore) ClearHistory(ctx context.Context) (int64, error) {
	var deleted int64
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM lock_history;`)
		if err != nil {
			return fmt.Errorf("ClearHistory: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("ClearHistory rows affected: %w", err)
		}
		deleted = n
		return nil
	})
	if err != nil {
		return 0, store.Wrap("ClearHistory", err)
	}
	return deleted, nil
}

func scanHistory(rows *sql.Rows) ([]store.HistoryRecord, error) {
	defer rows.Close()

	out := []store.HistoryRecord{}
	for rows.Next() {
		var (
			rec    store.HistoryRecord
			locked int
			atMs   int64
		)
		if err := rows.Scan(&rec.ID, &locked, &atMs, &rec.UTCTimestamp, &rec.JSTTimestamp); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		rec.Status = statusFromInt(locked)
		rec.At = time.UnixMilli(atMs).UTC()
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return out, nil
}

func statusFromInt(locked int) store.LockStatus {
	return store.StatusFromBool(locked == 1)
}

func intFromStatus(s store.LockStatus) int {
	if s.Locked() {
		return 1
	}
	return 0
}
