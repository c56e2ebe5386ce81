package live

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJournal_Appends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.jsonl")
	entry := JournalEntry{
		Timestamp:  time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
		Symbol:     "EURUSD",
		Direction:  "buy",
		Lot:        0.5,
		Entry:      1.1,
		StopLoss:   1.098,
		TakeProfit: 1.103,
		Result:     ResultExecuted,
	}

	j, err := OpenJournal(path)
	require.NoError(t, err)
	require.NoError(t, j.Record(entry))
	require.NoError(t, j.Close())

	// Reopening appends rather than truncates
	j, err = OpenJournal(path)
	require.NoError(t, err)
	require.NoError(t, j.Record(entry))
	require.NoError(t, j.Close())

	entries := readJournal(t, path)
	require.Len(t, entries, 2)
	assert.Equal(t, entry, entries[0])
}

func TestJournal_RecordAfterClose(t *testing.T) {
	j, err := OpenJournal(filepath.Join(t.TempDir(), "trades.jsonl"))
	require.NoError(t, err)
	require.NoError(t, j.Close())
	require.NoError(t, j.Close())

	assert.Error(t, j.Record(JournalEntry{Symbol: "EURUSD"}))
}
