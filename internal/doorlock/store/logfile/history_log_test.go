package logfile_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrandonDHaskell/doorlock/internal/doorlock/store"
	"github.com/BrandonDHaskell/doorlock/internal/doorlock/store/logfile"
)

var sample = []store.HistoryRecord{
	{ID: 1, Status: store.StatusLocked, UTCTimestamp: "2024-03-10T23:30:00.000Z", JSTTimestamp: "2024-03-11T08:30:00.000+09:00"},
	{ID: 2, Status: store.StatusUnlocked, UTCTimestamp: "2024-03-11T00:15:42.120Z", JSTTimestamp: "2024-03-11T09:15:42.120+09:00"},
	{ID: 3, Status: store.StatusLocked, UTCTimestamp: "2024-03-11T07:05:09.007Z", JSTTimestamp: "2024-03-11T16:05:09.007+09:00"},
}

func TestFormatLine(t *testing.T) {
	assert.Equal(t,
		"2024-03-10T23:30:00.000Z (JST: 2024-03-11T08:30:00.000+09:00) - Locked",
		logfile.FormatLine(sample[0]))
	assert.Equal(t,
		"2024-03-11T00:15:42.120Z (JST: 2024-03-11T09:15:42.120+09:00) - Unlocked",
		logfile.FormatLine(sample[1]))
}

func TestHistoryLog_AppendMatchesGolden(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lock-history.log")
	l := logfile.New(path)
	ctx := context.Background()

	for _, rec := range sample {
		require.NoError(t, l.Append(ctx, rec))
	}

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "history_log", data)
}

func TestHistoryLog_ReadAll_FileOrder(t *testing.T) {
	l := logfile.New(filepath.Join(t.TempDir(), "nested", "lock-history.log"))
	ctx := context.Background()

	for _, rec := range sample {
		require.NoError(t, l.Append(ctx, rec))
	}

	lines, err := l.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, lines, 3)
	for i, rec := range sample {
		assert.Equal(t, logfile.FormatLine(rec), lines[i])
	}
}

func TestHistoryLog_ReadAll_MissingFileIsEmpty(t *testing.T) {
	l := logfile.New(filepath.Join(t.TempDir(), "never-written.log"))

	lines, err := l.ReadAll(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, lines)
	assert.Empty(t, lines)
}

func TestHistoryLog_ReadAll_DropsEmptyLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lock-history.log")
	require.NoError(t, os.WriteFile(path, []byte("\nfirst\r\n\n\nsecond\n"), 0o644))

	lines, err := logfile.New(path).ReadAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, lines)
}

func TestHistoryLog_ReadAll_UnreadableIsStorageError(t *testing.T) {
	// A directory exists at the path but cannot be read as a file.
	path := t.TempDir()

	_, err := logfile.New(path).ReadAll(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrStorage)
}

func TestHistoryLog_Append_FailureIsStorageError(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	err := logfile.New(filepath.Join(blocker, "lock-history.log")).Append(context.Background(), sample[0])
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrStorage)
}
