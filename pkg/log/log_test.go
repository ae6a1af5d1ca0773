package log

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aeferreira/binsim-paper/pkg/errors"
)

func TestNewLogger_EmitsJSON(t *testing.T) {
	tl := NewTestLogger("info")

	tl.Info("permutation test finished",
		DatasetKey, "grapevine_neg",
		TreatmentKey, "binsim",
		ClassifierKey, "random_forest",
		AccuracyKey, 0.93,
		PValueKey, 0.0099,
	)

	entries, err := tl.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 1)

	record := entries[0]
	assert.Equal(t, "permutation test finished", record["msg"])
	assert.Equal(t, "grapevine_neg", record[DatasetKey])
	assert.Equal(t, "binsim", record[TreatmentKey])
	assert.InDelta(t, 0.0099, record[PValueKey].(float64), 1e-12)
}

func TestErrFmtHandler_AddsStacktrace(t *testing.T) {
	tl := NewTestLogger("info")

	err := errors.NewDimensionError("PermutationTestScore", 40, 38, 0)
	tl.Error("trial aborted", ErrAttr(err))

	entries, perr := tl.Entries()
	require.NoError(t, perr)
	require.Len(t, entries, 1)

	st, ok := entries[0][StacktraceAttrKey].(string)
	require.True(t, ok, "expected a stacktrace attribute")
	assert.Contains(t, st, "log_test.go")
}

func TestTestLogger_Inspection(t *testing.T) {
	tl := NewTestLogger("debug")

	tl.Info("fold scored", FoldsKey, 5, ClassifierKey, "plsda")
	tl.Debug("shuffling labels", SeedKey, int64(42))

	assert.True(t, tl.ContainsMessage("fold scored"))
	assert.False(t, tl.ContainsMessage("trial aborted"))
	assert.True(t, tl.ContainsField(ClassifierKey, "plsda"))
	assert.True(t, tl.ContainsField(FoldsKey, float64(5)))
	assert.False(t, tl.ContainsField(ClassifierKey, "random_forest"))

	tl.Clear()
	assert.Empty(t, tl.Output())
	assert.False(t, tl.ContainsMessage("fold scored"))
}

func TestToLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ToLogLevel("debug"))
	assert.Equal(t, slog.LevelInfo, ToLogLevel("info"))
	assert.Equal(t, slog.LevelWarn, ToLogLevel("warn"))
	assert.Equal(t, slog.LevelError, ToLogLevel("error"))
	assert.Panics(t, func() { ToLogLevel("verbose") })
}

func TestLevelFiltering(t *testing.T) {
	tl := NewTestLogger("warn")

	tl.Info("should be filtered")
	assert.Empty(t, tl.Output())

	tl.Warn("should appear")
	assert.NotEmpty(t, tl.Output())
}
