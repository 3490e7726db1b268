package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetupWithOptionsWritesStructuredLines(t *testing.T) {
	var buf bytes.Buffer
	file := filepath.Join(t.TempDir(), "sweeperd.log")
	logger := SetupWithOptions("sweeperd", "test", Options{Output: &buf, File: file, MaxSizeMB: 1})
	defer slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	logger.Info("transaction applied", slog.String("tx_type", "clone_forwarder"))

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	require.Equal(t, "transaction applied", line["message"])
	require.Equal(t, "INFO", line["severity"])
	require.Equal(t, "sweeperd", line["service"])
	require.Equal(t, "test", line["env"])
	require.Equal(t, "clone_forwarder", line["tx_type"])
	require.Contains(t, line, "timestamp")

	contents, err := os.ReadFile(file)
	require.NoError(t, err)
	require.Contains(t, string(contents), "transaction applied")
}

func TestSetupWithOptionsHonoursLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupWithOptions("sweeperd", "", Options{Output: &buf, Level: slog.LevelWarn})
	defer slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	logger.Info("dropped")
	require.Zero(t, buf.Len())
	logger.Warn("kept")
	require.Contains(t, buf.String(), "kept")
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	require.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	require.Equal(t, slog.LevelInfo, ParseLevel(""))
}

func TestMaskField(t *testing.T) {
	require.Equal(t, RedactedValue, MaskField("passphrase", "hunter2").Value.String())
	require.Equal(t, "0xabc", MaskField("sender", "0xabc").Value.String())
	require.Equal(t, "", MaskField("passphrase", "").Value.String())
	require.Equal(t, "Bearer "+RedactedValue, MaskBearer("Bearer eyJhbGciOi"))
	require.Equal(t, RedactedValue, MaskBearer("opaque"))
}
