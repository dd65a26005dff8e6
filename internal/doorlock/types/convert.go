package types

import "github.com/BrandonDHaskell/doorlock/internal/doorlock/store"

// HistoryEntries converts store records to wire entries.  The result is
// never nil so an empty history encodes as [].
func HistoryEntries(recs []store.HistoryRecord) []HistoryEntry {
	out := make([]HistoryEntry, 0, len(recs))
	for _, rec := range recs {
		out = append(out, HistoryEntry{
			ID:           rec.ID,
			Status:       rec.Status.String(),
			UTCTimestamp: rec.UTCTimestamp,
			JSTTimestamp: rec.JSTTimestamp,
		})
	}
	return out
}
