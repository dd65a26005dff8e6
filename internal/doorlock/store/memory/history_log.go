package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/BrandonDHaskell/doorlock/internal/doorlock/store"
	"github.com/BrandonDHaskell/doorlock/internal/doorlock/store/logfile"
)

// ErrAppendFailed is what HistoryLog.Append returns while FailAppend is set.
var ErrAppendFailed = errors.New("simulated history log write failure")

// HistoryLog is an in-memory HistoryLog that formats lines exactly like
// the file-backed log.
type HistoryLog struct {
	mu         sync.Mutex
	lines      []string
	failAppend bool
}

func NewHistoryLog() *HistoryLog {
	return &HistoryLog{}
}

// FailAppend makes subsequent Append calls fail until called with false.
func (l *HistoryLog) FailAppend(fail bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failAppend = fail
}

func (l *HistoryLog) Append(_ context.Context, rec store.HistoryRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.failAppend {
		return store.Wrap("HistoryLog.Append", ErrAppendFailed)
	}
	l.lines = append(l.lines, logfile.FormatLine(rec))
	return nil
}

func (l *HistoryLog) ReadAll(_ context.Context) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]string, len(l.lines))
	copy(out, l.lines)
	return out, nil
}
