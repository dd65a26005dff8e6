package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/BrandonDHaskell/doorlock/internal/doorlock/store"
)

// lockStateID is the fixed primary key of the singleton lock_state row.
const lockStateID = 1

// EnsureState creates the lock_state row as unlocked when it is missing.
// It checks before inserting, inside a single writer transaction, so
// repeated calls (and restarts) leave exactly one row untouched.
func (s *LockStore) EnsureState(ctx context.Context, now time.Time) error {
	if now.IsZero() {
		now = time.Now().UTC()
	}
	nowMs := now.UTC().UnixMilli()

	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var n int
		if err := tx.QueryRowContext(ctx, `
SELECT COUNT(*) FROM lock_state WHERE id = ?;
`, lockStateID).Scan(&n); err != nil {
			return fmt.Errorf("EnsureState count: %w", err)
		}
		if n > 0 {
			return nil
		}

		if _, err := tx.ExecContext(ctx, `
INSERT INTO lock_state(id, locked, created_at_ms, updated_at_ms)
VALUES (?, 0, ?, ?);
`, lockStateID, nowMs, nowMs); err != nil {
			return fmt.Errorf("EnsureState insert: %w", err)
		}
		return nil
	})
	return store.Wrap("EnsureState", err)
}
