package service_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/BrandonDHaskell/doorlock/internal/doorlock/service"
	"github.com/BrandonDHaskell/doorlock/internal/doorlock/store"
	"github.com/BrandonDHaskell/doorlock/internal/doorlock/store/memory"
	"github.com/BrandonDHaskell/doorlock/internal/doorlock/types"
)

// stepClock returns a clock that starts at start and moves one second
// forward on every call.
func stepClock(start time.Time) func() time.Time {
	next := start
	return func() time.Time {
		t := next
		next = next.Add(time.Second)
		return t
	}
}

// syncBuffer lets the mirror goroutine and the test share one log sink.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type testEnv struct {
	svc    *service.LockService
	store  *memory.LockStore
	log    *memory.HistoryLog
	mirror *service.LogMirror
	out    *syncBuffer
}

// newTestLockService builds a bootstrapped LockService backed by in-memory
// stores, returning the pieces tests need to inspect.
func newTestLockService(t *testing.T, start time.Time) testEnv {
	t.Helper()

	out := &syncBuffer{}
	logger := zerolog.New(out)

	ls := memory.NewLockStore()
	hl := memory.NewHistoryLog()
	mirror := service.NewLogMirror(hl, service.MirrorConfig{}, logger)
	t.Cleanup(mirror.Close)

	svc := service.NewLockService(ls, mirror, service.Options{
		StorageTimeout: time.Second,
		Now:            stepClock(start),
		Logger:         logger,
	})
	if err := svc.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return testEnv{svc: svc, store: ls, log: hl, mirror: mirror, out: out}
}

func locked(b bool) *bool { return &b }

// ── Bootstrap ────────────────────────────────────────────────────────────────

func TestInit_TwiceLeavesUnlocked(t *testing.T) {
	env := newTestLockService(t, time.Now())

	if err := env.svc.Init(context.Background()); err != nil {
		t.Fatalf("second Init: %v", err)
	}

	st, err := env.svc.GetState(context.Background())
	if err != nil {
		t.Fatalf("GetState: %v", err)
	}
	if st.Status != store.StatusUnlocked {
		t.Errorf("expected UNLOCKED, got %v", st.Status)
	}
}

func TestInit_StorageFailure(t *testing.T) {
	ls := memory.NewLockStore()
	ls.Fail(errors.New("disk on fire"))
	svc := service.NewLockService(ls, nil, service.Options{Logger: zerolog.Nop()})

	err := svc.Init(context.Background())
	if !errors.Is(err, store.ErrStorage) {
		t.Fatalf("expected storage error, got %v", err)
	}
}

// ── SetState ─────────────────────────────────────────────────────────────────

func TestSetState_RoundTrip(t *testing.T) {
	env := newTestLockService(t, time.Now())
	ctx := context.Background()

	for _, want := range []store.LockStatus{store.StatusLocked, store.StatusUnlocked} {
		if _, err := env.svc.SetState(ctx, want); err != nil {
			t.Fatalf("SetState(%v): %v", want, err)
		}
		st, err := env.svc.GetState(ctx)
		if err != nil {
			t.Fatalf("GetState: %v", err)
		}
		if st.Status != want {
			t.Errorf("expected %v, got %v", want, st.Status)
		}
	}
}

func TestSetState_StampsBothTimezones(t *testing.T) {
	start := time.Date(2024, 3, 10, 23, 30, 0, 123456789, time.UTC)
	env := newTestLockService(t, start)

	// Init consumed the first tick.
	rec, err := env.svc.SetState(context.Background(), store.StatusLocked)
	if err != nil {
		t.Fatalf("SetState: %v", err)
	}

	if rec.UTCTimestamp != "2024-03-10T23:30:01.123Z" {
		t.Errorf("unexpected utc timestamp %q", rec.UTCTimestamp)
	}
	if rec.JSTTimestamp != "2024-03-11T08:30:01.123+09:00" {
		t.Errorf("unexpected jst timestamp %q", rec.JSTTimestamp)
	}
	if rec.ID == 0 {
		t.Error("expected id to be assigned")
	}
}

func TestSetState_InvalidStatus_NoStorageAccess(t *testing.T) {
	env := newTestLockService(t, time.Now())

	_, err := env.svc.SetState(context.Background(), store.LockStatus(0))
	if !errors.Is(err, service.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	recs, _ := env.svc.ListHistory(context.Background())
	if len(recs) != 0 {
		t.Errorf("expected no history for invalid status, got %d", len(recs))
	}
}

func TestSetStatus_MissingField(t *testing.T) {
	env := newTestLockService(t, time.Now())

	_, err := env.svc.SetStatus(context.Background(), types.SetStatusRequest{})
	if !errors.Is(err, service.ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestSetStatus_MapsBoolean(t *testing.T) {
	env := newTestLockService(t, time.Now())
	ctx := context.Background()

	rec, err := env.svc.SetStatus(ctx, types.SetStatusRequest{Status: locked(true)})
	if err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if rec.Status != store.StatusLocked {
		t.Errorf("true must mean LOCKED, got %v", rec.Status)
	}
}

func TestSetState_StorageFailureSurfaces(t *testing.T) {
	env := newTestLockService(t, time.Now())
	env.store.Fail(errors.New("database is locked"))

	_, err := env.svc.SetState(context.Background(), store.StatusLocked)
	if !errors.Is(err, store.ErrStorage) {
		t.Fatalf("expected storage error, got %v", err)
	}

	if err := env.mirror.Flush(context.Background()); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	lines, _ := env.log.ReadAll(context.Background())
	if len(lines) != 0 {
		t.Errorf("failed transition must not be mirrored, got %v", lines)
	}
}

// ── History ──────────────────────────────────────────────────────────────────

func TestListHistory_OrderNewestFirst(t *testing.T) {
	env := newTestLockService(t, time.Now())
	ctx := context.Background()

	for _, st := range []store.LockStatus{store.StatusLocked, store.StatusUnlocked, store.StatusLocked} {
		if _, err := env.svc.SetState(ctx, st); err != nil {
			t.Fatalf("SetState: %v", err)
		}
	}

	recs, err := env.svc.ListHistory(ctx)
	if err != nil {
		t.Fatalf("ListHistory: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("expected 3 records, got %d", len(recs))
	}
	want := []store.LockStatus{store.StatusLocked, store.StatusUnlocked, store.StatusLocked}
	for i := range want {
		if recs[i].Status != want[i] {
			t.Errorf("record %d: expected %v, got %v", i, want[i], recs[i].Status)
		}
	}
	if !recs[0].At.After(recs[2].At) {
		t.Errorf("expected newest first: %v vs %v", recs[0].At, recs[2].At)
	}
}

func TestListHistoryByDate_UTCBoundaries(t *testing.T) {
	// Init takes 23:29:59, the transition lands at 23:30:00.
	env := newTestLockService(t, time.Date(2024, 3, 10, 23, 29, 59, 0, time.UTC))
	ctx := context.Background()

	if _, err := env.svc.SetState(ctx, store.StatusLocked); err != nil {
		t.Fatalf("SetState: %v", err)
	}

	recs, err := env.svc.ListHistoryByDate(ctx, "2024-03-10")
	if err != nil {
		t.Fatalf("ListHistoryByDate: %v", err)
	}
	if len(recs) != 1 {
		t.Errorf("expected 1 record on 2024-03-10, got %d", len(recs))
	}

	// The JST rendering is already 2024-03-11, but filtering is by UTC day.
	recs, err = env.svc.ListHistoryByDate(ctx, "2024-03-11")
	if err != nil {
		t.Fatalf("ListHistoryByDate: %v", err)
	}
	if len(recs) != 0 {
		t.Errorf("expected 0 records on 2024-03-11, got %d", len(recs))
	}
}

func TestListHistoryByDate_InvalidDate(t *testing.T) {
	env := newTestLockService(t, time.Now())

	for _, d := range []string{"", "yesterday", "2024-13-01", "2024/03/10", "2024-03-10T00:00:00Z"} {
		_, err := env.svc.ListHistoryByDate(context.Background(), d)
		if !errors.Is(err, service.ErrInvalidDate) {
			t.Errorf("date %q: expected ErrInvalidDate, got %v", d, err)
		}
	}
}

func TestClearHistory_TotalAndScoped(t *testing.T) {
	env := newTestLockService(t, time.Now())
	ctx := context.Background()

	for _, st := range []store.LockStatus{store.StatusUnlocked, store.StatusLocked} {
		if _, err := env.svc.SetState(ctx, st); err != nil {
			t.Fatalf("SetState: %v", err)
		}
	}

	n, err := env.svc.ClearHistory(ctx)
	if err != nil {
		t.Fatalf("ClearHistory: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 deleted, got %d", n)
	}

	recs, _ := env.svc.ListHistory(ctx)
	if len(recs) != 0 {
		t.Errorf("expected empty history, got %d", len(recs))
	}
	st, _ := env.svc.GetState(ctx)
	if st.Status != store.StatusLocked {
		t.Errorf("clear must not change state, got %v", st.Status)
	}

	n, err = env.svc.ClearHistory(ctx)
	if err != nil || n != 0 {
		t.Errorf("second clear: expected (0, nil), got (%d, %v)", n, err)
	}
}

// ── Mirror ───────────────────────────────────────────────────────────────────

func TestSetState_MirrorsLogLine(t *testing.T) {
	env := newTestLockService(t, time.Date(2024, 3, 10, 23, 29, 59, 0, time.UTC))
	ctx := context.Background()

	if _, err := env.svc.SetState(ctx, store.StatusLocked); err != nil {
		t.Fatalf("SetState: %v", err)
	}
	if err := env.mirror.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	lines, err := env.svc.ReadLog(ctx)
	if err != nil {
		t.Fatalf("ReadLog: %v", err)
	}
	want := "2024-03-10T23:30:00.000Z (JST: 2024-03-11T08:30:00.000+09:00) - Locked"
	if len(lines) != 1 || lines[0] != want {
		t.Errorf("expected [%q], got %q", want, lines)
	}
}

func TestSetState_MirrorFailureDoesNotFailTransition(t *testing.T) {
	env := newTestLockService(t, time.Now())
	ctx := context.Background()
	env.log.FailAppend(true)

	rec, err := env.svc.SetState(ctx, store.StatusLocked)
	if err != nil {
		t.Fatalf("SetState must succeed when the mirror fails: %v", err)
	}

	recs, err := env.svc.ListHistory(ctx)
	if err != nil {
		t.Fatalf("ListHistory: %v", err)
	}
	if len(recs) != 1 || recs[0].ID != rec.ID {
		t.Errorf("expected the new record in history, got %+v", recs)
	}

	if err := env.mirror.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if !strings.Contains(env.out.String(), "history log append failed") {
		t.Errorf("expected a warning about the mirror, log was: %s", env.out.String())
	}
}

func TestReadLog_EmptyBeforeAnyWrite(t *testing.T) {
	env := newTestLockService(t, time.Now())

	lines, err := env.svc.ReadLog(context.Background())
	if err != nil {
		t.Fatalf("ReadLog: %v", err)
	}
	if len(lines) != 0 {
		t.Errorf("expected empty log, got %v", lines)
	}
}
