package observability

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewLogger_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "debug", "json")

	logger.Debug("batch done", "batch", 3)
	assert.Contains(t, buf.String(), `"msg":"batch done"`)
	assert.Contains(t, buf.String(), `"batch":3`)
}

func TestNewLogger_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "warn", "text")

	logger.Info("hidden")
	logger.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("bogus"))
}

func TestMetrics_WriteTextfile(t *testing.T) {
	m := NewMetricsForTesting()
	m.CacheLookups.WithLabelValues("hit").Add(3)
	m.ElevationRetries.Inc()

	assert.Equal(t, 3.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("hit")))

	path := filepath.Join(t.TempDir(), "kml2dxf.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `kml2dxf_elevation_cache_lookups_total{result="hit"} 3`)
	assert.Contains(t, string(data), "kml2dxf_elevation_retries_total 1")
}

func TestInitTracing_Disabled(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), TracingConfig{}, discardLogger())
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestInitTracing_Stdout(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := InitTracing(context.Background(), TracingConfig{
		Enabled:     true,
		ServiceName: "kml2dxf-test",
		Exporter:    "stdout",
		Writer:      &buf,
	}, discardLogger())
	require.NoError(t, err)
	ShutdownWithTimeout(context.Background(), shutdown, discardLogger())
}

func TestInitTracing_UnsupportedExporter(t *testing.T) {
	_, err := InitTracing(context.Background(), TracingConfig{Enabled: true, Exporter: "zipkin"}, discardLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "zipkin")
}
