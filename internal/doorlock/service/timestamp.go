package service

import (
	"strings"
	"time"

	"github.com/BrandonDHaskell/doorlock/internal/doorlock/store"
)

// timestampLayout is ISO 8601 with millisecond precision. In UTC it ends
// in "Z", in JST in "+09:00".
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

const dateLayout = "2006-01-02"

var jst = time.FixedZone("JST", 9*60*60)

func UTCTimestamp(t time.Time) string { return t.UTC().Format(timestampLayout) }

func JSTTimestamp(t time.Time) string { return t.In(jst).Format(timestampLayout) }

// newRecord captures a transition at the given instant. The instant is cut
// to milliseconds so the stored instant and both strings agree exactly.
func newRecord(status store.LockStatus, at time.Time) store.HistoryRecord {
	at = at.UTC().Truncate(time.Millisecond)
	return store.HistoryRecord{
		Status:       status,
		At:           at,
		UTCTimestamp: UTCTimestamp(at),
		JSTTimestamp: JSTTimestamp(at),
	}
}

// DayRange parses a calendar date and returns the half-open UTC range
// [date 00:00Z, date+1 00:00Z). Day boundaries are always UTC.
func DayRange(date string) (from, to time.Time, err error) {
	d, err := time.ParseInLocation(dateLayout, strings.TrimSpace(date), time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, ErrInvalidDate
	}
	return d, d.AddDate(0, 0, 1), nil
}
