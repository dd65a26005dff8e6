package db_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/BrandonDHaskell/doorlock/internal/db"
)

func openWorkerDB(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := db.Open(context.Background(), db.Config{Path: filepath.Join(t.TempDir(), "worker.db")})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func insertHistory(id int) db.TxFn {
	return func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
INSERT INTO lock_history(id, locked, utc_at_ms, utc_timestamp, jst_timestamp)
VALUES (?, 1, 0, '', '');
`, id)
		return err
	}
}

func historyExists(t *testing.T, conn *sql.DB, id int) bool {
	t.Helper()
	var n int
	if err := conn.QueryRow(`SELECT COUNT(*) FROM lock_history WHERE id = ?`, id).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	return n == 1
}

// ── Do ───────────────────────────────────────────────────────────────────────

func TestWorker_Do_Commits(t *testing.T) {
	conn := openWorkerDB(t)
	w := db.NewWorker(conn)
	defer w.Close()

	if err := w.Do(context.Background(), insertHistory(1)); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if !historyExists(t, conn, 1) {
		t.Fatal("expected the row to be committed")
	}
}

func TestWorker_Do_ErrorRollsBack(t *testing.T) {
	conn := openWorkerDB(t)
	w := db.NewWorker(conn)
	defer w.Close()

	boom := errors.New("boom")
	err := w.Do(context.Background(), func(ctx context.Context, tx *sql.Tx) error {
		if err := insertHistory(1)(ctx, tx); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if historyExists(t, conn, 1) {
		t.Fatal("a failed job must not leave its writes behind")
	}
}

func TestWorker_Do_CancelledMidJobIsNotCommitted(t *testing.T) {
	conn := openWorkerDB(t)
	w := db.NewWorker(conn)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err := w.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if err := insertHistory(1)(ctx, tx); err != nil {
			return err
		}
		cancel()
		return nil
	})
	if err == nil {
		t.Fatal("expected an error once ctx was cancelled before commit")
	}
	if historyExists(t, conn, 1) {
		t.Fatal("an error result must mean nothing was committed")
	}
}

// The reported result must always agree with what was stored, however the
// deadline falls relative to the commit.
func TestWorker_Do_ResultMatchesCommit(t *testing.T) {
	conn := openWorkerDB(t)
	w := db.NewWorker(conn)
	defer w.Close()

	for i := 1; i <= 200; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), time.Duration(i%40)*10*time.Microsecond)
		err := w.Do(ctx, insertHistory(i))
		cancel()

		if stored := historyExists(t, conn, i); stored != (err == nil) {
			t.Fatalf("job %d: err=%v but stored=%v", i, err, stored)
		}
	}
}

// ── Close ────────────────────────────────────────────────────────────────────

func TestWorker_Close_Idempotent(t *testing.T) {
	w := db.NewWorker(openWorkerDB(t))

	w.Close()
	w.Close()

	if err := w.Do(context.Background(), insertHistory(1)); !errors.Is(err, db.ErrWorkerClosed) {
		t.Fatalf("expected ErrWorkerClosed, got %v", err)
	}
}
