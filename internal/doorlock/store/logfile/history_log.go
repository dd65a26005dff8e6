// Package logfile implements the text mirror of the lock history: one
// line per transition, appended to a plain file.
package logfile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/BrandonDHaskell/doorlock/internal/doorlock/store"
)

const filePerm = 0o644

// FormatLine renders rec as `<utc> (JST: <jst>) - <Locked|Unlocked>`.
func FormatLine(rec store.HistoryRecord) string {
	return fmt.Sprintf("%s (JST: %s) - %s", rec.UTCTimestamp, rec.JSTTimestamp, rec.Status.Label())
}

// HistoryLog appends formatted lines to a file. Appends from one process
// are serialized; the file is opened per write so an external rotation or
// deletion is picked up on the next append.
type HistoryLog struct {
	path string
	mu   sync.Mutex
}

func New(path string) *HistoryLog {
	return &HistoryLog{path: path}
}

func (l *HistoryLog) Append(ctx context.Context, rec store.HistoryRecord) error {
	if err := ctx.Err(); err != nil {
		return store.Wrap("HistoryLog.Append", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return store.Wrap("HistoryLog.Append", fmt.Errorf("mkdir log dir: %w", err))
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, filePerm)
	if err != nil {
		return store.Wrap("HistoryLog.Append", err)
	}

	if _, err := f.WriteString(FormatLine(rec) + "\n"); err != nil {
		_ = f.Close()
		return store.Wrap("HistoryLog.Append", err)
	}
	return store.Wrap("HistoryLog.Append", f.Close())
}

func (l *HistoryLog) ReadAll(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, store.Wrap("HistoryLog.ReadAll", err)
	}

	data, err := os.ReadFile(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, store.Wrap("HistoryLog.ReadAll", err)
	}

	return SplitLines(string(data)), nil
}

// SplitLines splits on line breaks and drops empty lines.
func SplitLines(s string) []string {
	out := []string{}
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
