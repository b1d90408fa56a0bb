package logger

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zapcore.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("verbose"))
}

func TestInitToFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "console.log")
	require.NoError(t, Init("info", p))
	Named("session").Info("rule saved")
	Debug("hidden")
	Sync()

	data, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"logger":"session"`)
	assert.Contains(t, string(data), `"msg":"rule saved"`)
	assert.NotContains(t, string(data), "hidden")
}

func TestChangeLogJournal(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "audit")
	require.NoError(t, InitChangeLog(dir))

	day := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	entries := []*ChangeLogEntry{
		{Timestamp: day, Kind: "saved", Category: "event", RuleID: "r1", Created: true},
		{Timestamp: day.Add(time.Hour), Kind: "saved", Category: "alert", RuleID: "r1"},
		{Timestamp: day.Add(26 * time.Hour), Kind: "deleted", Category: "event", RuleID: "r1"},
	}
	for _, e := range entries {
		require.NoError(t, WriteChangeLog(dir, e))
	}
	assert.FileExists(t, filepath.Join(dir, "changes-2024-03-15.jsonl"))
	assert.FileExists(t, filepath.Join(dir, "changes-2024-03-16.jsonl"))

	start, end := day.Add(-time.Hour), day.AddDate(0, 0, 2)
	res, err := QueryChangeLogs(dir, &ChangeLogQuery{Category: "event", StartTime: &start, EndTime: &end})
	require.NoError(t, err)
	require.Equal(t, 2, res.Total)
	assert.Equal(t, "deleted", res.Entries[0].Kind)
	assert.Equal(t, "saved", res.Entries[1].Kind)

	res, err = QueryChangeLogs(dir, &ChangeLogQuery{StartTime: &start, EndTime: &end, Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Total)
	require.Len(t, res.Entries, 1)
	assert.Equal(t, "alert", res.Entries[0].Category)
}
