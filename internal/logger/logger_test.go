package logger

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	require.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	require.Equal(t, slog.LevelWarn, ParseLevel("WARN"))
	require.Equal(t, slog.LevelError, ParseLevel("ERROR"))
	require.Equal(t, slog.LevelInfo, ParseLevel("INFO"))
	require.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestNewFiltersLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, slog.LevelWarn)

	l.Info("dropped")
	l.Warn("kept", "label", "nvs")

	require.NotContains(t, buf.String(), "dropped")
	require.Contains(t, buf.String(), "label=nvs")
}

func TestOpenAppendsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "flashpart.log")

	l, f, err := Open(path, slog.LevelInfo)
	require.NoError(t, err)
	l.Info("erase done")
	require.NoError(t, f.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "erase done")
}
