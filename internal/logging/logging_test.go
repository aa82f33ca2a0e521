package logging_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vireo-systems/warden/internal/logging"
	"github.com/vireo-systems/warden/internal/spec"
)

func TestConsoleWriter(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	w := logging.NewConsoleWriter(&buf)
	w.Write(logging.LogEvent{Level: logging.LevelInfo, Service: "web", EventType: "spawned", Message: "pid 42"})
	assert.Contains(t, buf.String(), "[web]")
	assert.Contains(t, buf.String(), "spawned")
	assert.Contains(t, buf.String(), "pid 42")
}

func TestJSONWriter(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	w := logging.NewJSONWriter(&buf)
	w.Write(logging.LogEvent{Level: logging.LevelWarn, Service: "web", EventType: "unhealthy", Message: "probe failed"})

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "warn", line["level"])
	assert.Equal(t, "web", line["service"])
	assert.Equal(t, "unhealthy", line["event_type"])
}

func TestMultiLoggerFiltersBelowMinLevel(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	console := logging.NewConsoleWriter(&buf)
	logger := logging.NewMultiLogger(logging.LevelWarn, console)

	logger.Debug("web", "tick", "ignored", nil)
	logger.Info("web", "tick", "ignored too", nil)
	assert.Empty(t, buf.String())

	logger.Warn("web", "unhealthy", "now it shows", nil)
	assert.Contains(t, buf.String(), "now it shows")
}

func TestMultiLoggerFansOutToEveryWriter(t *testing.T) {
	t.Parallel()
	var a, b bytes.Buffer
	logger := logging.NewMultiLogger(logging.LevelDebug, logging.NewConsoleWriter(&a), logging.NewJSONWriter(&b))
	logger.Error("web", "spawn_failed", "boom", nil)
	assert.Contains(t, a.String(), "boom")
	assert.Contains(t, b.String(), "boom")
}

func TestFileSinkRotatesNumbered(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "out.log")

	sink, err := logging.NewFileSink(path, 10, false)
	require.NoError(t, err)
	defer sink.Close()

	_, err = sink.Write([]byte("0123456789")) // fills to exactly rotateSize
	require.NoError(t, err)
	_, err = sink.Write([]byte("more")) // crosses threshold, should rotate first
	require.NoError(t, err)

	rotated := path + ".1"
	_, statErr := os.Stat(rotated)
	require.NoError(t, statErr)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "more", string(content))
}

func TestFileSinkRotatesWithTimestampSuffix(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "out.log")

	sink, err := logging.NewFileSink(path, 5, true)
	require.NoError(t, err)
	defer sink.Close()

	_, err = sink.Write([]byte("12345"))
	require.NoError(t, err)
	_, err = sink.Write([]byte("rotateme"))
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var rotatedFound bool
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "out.log.") {
			rotatedFound = true
		}
	}
	assert.True(t, rotatedFound, "expected a timestamp-suffixed rotated file")
}

func TestOpenSinkFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "svc.log")

	w, err := logging.OpenSink(spec.Sink{Kind: spec.SinkFile, Path: path})
	require.NoError(t, err)
	defer w.Close()

	_, err = w.Write([]byte("hello\n"))
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(content))
}

func TestOpenSinkInherit(t *testing.T) {
	t.Parallel()
	w, err := logging.OpenSink(spec.Sink{Kind: spec.SinkInheritStdout})
	require.NoError(t, err)
	assert.NoError(t, w.Close())

	w, err = logging.OpenSink(spec.Sink{Kind: spec.SinkInheritStderr})
	require.NoError(t, err)
	assert.NoError(t, w.Close())
}

func TestParseLevel(t *testing.T) {
	t.Parallel()
	tests := map[string]logging.Level{
		"debug":   logging.LevelDebug,
		"warn":    logging.LevelWarn,
		"warning": logging.LevelWarn,
		"error":   logging.LevelError,
		"info":    logging.LevelInfo,
		"":        logging.LevelInfo,
		"bogus":   logging.LevelInfo,
	}
	for input, want := range tests {
		assert.Equal(t, want, logging.ParseLevel(input), "input=%q", input)
	}
}
