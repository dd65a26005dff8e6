package store

import "context"

// HistoryLog is the best-effort, human-readable mirror of the history.
// It is never authoritative; losing it only degrades the raw log view.
type HistoryLog interface {
	Append(ctx context.Context, rec HistoryRecord) error

	// ReadAll returns the log lines in file order, without empty lines.
	// A log that was never written reads as empty.
	ReadAll(ctx context.Context) ([]string, error)
}
