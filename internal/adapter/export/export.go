// Package export writes resolved drawings to DXF, CSV, GeoJSON and KML.
package export

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/couchcryptid/kml2dxf/internal/config"
	"github.com/couchcryptid/kml2dxf/internal/domain"
)

// Exporter serializes a drawing in one output format.
type Exporter interface {
	Format() string
	Export(w io.Writer, d *domain.Drawing) error
}

// New returns the exporter for a configured format name.
func New(format string, logger *slog.Logger) (Exporter, error) {
	switch format {
	case config.FormatDXF:
		return NewDXF(logger), nil
	case config.FormatCSV:
		return CSV{}, nil
	case config.FormatGeoJSON:
		return GeoJSON{}, nil
	case config.FormatKML:
		return KML{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format %q", format)
	}
}

// OutputPath derives the file name for a format from the main output path.
// DXF uses the path as given; other formats swap the extension.
func OutputPath(base, format string) string {
	if format == config.FormatDXF {
		return base
	}
	return strings.TrimSuffix(base, filepath.Ext(base)) + "." + format
}

// WriteFile exports d to path, replacing any existing file.
func WriteFile(path string, e Exporter, d *domain.Drawing) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s output: %w", e.Format(), err)
	}

	w := bufio.NewWriter(f)
	if err := e.Export(w, d); err != nil {
		f.Close() //nolint:errcheck // export error takes precedence
		return fmt.Errorf("write %s output: %w", e.Format(), err)
	}
	if err := w.Flush(); err != nil {
		f.Close() //nolint:errcheck // flush error takes precedence
		return fmt.Errorf("flush %s output: %w", e.Format(), err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s output: %w", e.Format(), err)
	}
	return nil
}

// FileTarget writes one format to one file. It implements pipeline.OutputTarget.
type FileTarget struct {
	Path     string
	Exporter Exporter
}

// Name implements pipeline.OutputTarget.
func (t *FileTarget) Name() string { return t.Exporter.Format() + ":" + t.Path }

// Write implements pipeline.OutputTarget.
func (t *FileTarget) Write(ctx context.Context, d *domain.Drawing) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return WriteFile(t.Path, t.Exporter, d)
}

// ErrPathConflict is returned when a derived output path would overwrite the
// input or another output of the same run.
var ErrPathConflict = errors.New("output path conflict")

// Targets builds one FileTarget per distinct format, deriving each path from
// output. A path that resolves to the input file or to another target's path
// is rejected before anything is written.
func Targets(input, output string, formats []string, logger *slog.Logger) ([]*FileTarget, error) {
	claimed := map[string]string{absPath(input): "input"}
	seen := make(map[string]bool, len(formats))
	targets := make([]*FileTarget, 0, len(formats))
	for _, format := range formats {
		if seen[format] {
			continue
		}
		seen[format] = true

		e, err := New(format, logger)
		if err != nil {
			return nil, err
		}
		path := OutputPath(output, format)
		key := absPath(path)
		if owner, ok := claimed[key]; ok {
			return nil, fmt.Errorf("%w: %s output %s would overwrite the %s", ErrPathConflict, format, path, owner)
		}
		claimed[key] = format + " output"
		targets = append(targets, &FileTarget{Path: path, Exporter: e})
	}
	return targets, nil
}

func absPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return abs
}
