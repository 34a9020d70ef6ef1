// Package report emits run reports locally: as JSON on stdout or in a file,
// and as a Prometheus textfile for node_exporter collection.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/couchcryptid/kml2dxf/internal/domain"
)

// JSONWriter writes the run report as indented JSON. An empty path selects
// the fallback writer (stdout in the command).
type JSONWriter struct {
	path     string
	fallback io.Writer
	logger   *slog.Logger
}

// NewJSONWriter returns a JSONWriter for path, or for fallback when path is empty.
func NewJSONWriter(path string, fallback io.Writer, logger *slog.Logger) *JSONWriter {
	return &JSONWriter{path: path, fallback: fallback, logger: logger}
}

// Publish encodes the report. It implements pipeline.ReportPublisher.
func (w *JSONWriter) Publish(_ context.Context, r domain.RunReport) error {
	if w.path == "" {
		return encode(w.fallback, r)
	}

	f, err := os.Create(w.path)
	if err != nil {
		return fmt.Errorf("create metrics file: %w", err)
	}
	if err := encode(f, r); err != nil {
		f.Close() //nolint:errcheck // encode error takes precedence
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close metrics file: %w", err)
	}
	w.logger.Info("run metrics written", "path", w.path)
	return nil
}

func encode(out io.Writer, r domain.RunReport) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode run report: %w", err)
	}
	return nil
}

// TextfileGatherer is satisfied by observability.Metrics.
type TextfileGatherer interface {
	WriteTextfile(path string) error
}

// Textfile dumps the process metrics to a node_exporter textfile once the
// run report is known.
type Textfile struct {
	path    string
	metrics TextfileGatherer
	logger  *slog.Logger
}

// NewTextfile returns a Textfile publisher writing to path.
func NewTextfile(path string, metrics TextfileGatherer, logger *slog.Logger) *Textfile {
	return &Textfile{path: path, metrics: metrics, logger: logger}
}

// Publish writes the textfile. It implements pipeline.ReportPublisher.
func (t *Textfile) Publish(_ context.Context, r domain.RunReport) error {
	if err := t.metrics.WriteTextfile(t.path); err != nil {
		return fmt.Errorf("write prometheus textfile: %w", err)
	}
	t.logger.Info("prometheus textfile written", "path", t.path, "run_id", r.RunID)
	return nil
}
