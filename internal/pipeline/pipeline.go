package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/couchcryptid/kml2dxf/internal/domain"
	"github.com/couchcryptid/kml2dxf/internal/observability"
	"github.com/couchcryptid/kml2dxf/internal/projection"
)

// Source loads the geometry document for a run.
type Source interface {
	Load(ctx context.Context, path string) (*domain.Document, error)
}

// Resolver enriches coordinates with elevations. ElevationResolver implements it.
type Resolver interface {
	Resolve(ctx context.Context, coords []domain.Coordinate, opts ResolveOptions) ([]domain.Elevation, domain.RunStatistics, error)
}

// OutputTarget writes a finished drawing to one destination.
type OutputTarget interface {
	Name() string
	Write(ctx context.Context, d *domain.Drawing) error
}

// ReportPublisher receives the run report. Publishing is best-effort.
type ReportPublisher interface {
	Publish(ctx context.Context, report domain.RunReport) error
}

// Options describes one conversion run.
type Options struct {
	InputPath  string
	OutputPath string
	Dataset    string
	Strict     bool
	Resolve    ResolveOptions
}

// Converter runs source -> elevation -> projection -> export -> report.
type Converter struct {
	source     Source
	resolver   Resolver
	projector  projection.Projector
	targets    []OutputTarget
	publishers []ReportPublisher
	tracer     trace.Tracer
	logger     *slog.Logger
	metrics    *observability.Metrics
	ready      atomic.Bool
}

// New creates a Converter with the given stages and observability.
func New(source Source, resolver Resolver, projector projection.Projector, targets []OutputTarget, publishers []ReportPublisher, logger *slog.Logger, metrics *observability.Metrics) *Converter {
	return &Converter{
		source:     source,
		resolver:   resolver,
		projector:  projector,
		targets:    targets,
		publishers: publishers,
		tracer:     otel.Tracer(observability.TracerName),
		logger:     logger,
		metrics:    metrics,
	}
}

// CheckReadiness returns nil once the input has been parsed.
func (c *Converter) CheckReadiness(_ context.Context) error {
	if !c.ready.Load() {
		return errors.New("input has not been parsed yet")
	}
	return nil
}

// Run executes one conversion. Input errors are returned before any network
// call. In strict mode an unresolved point rejects the run after the report
// is published and before anything is projected or written, so existing
// outputs are left untouched.
func (c *Converter) Run(ctx context.Context, opts Options) (domain.RunReport, error) {
	c.logger.Info("conversion started", "input", opts.InputPath, "output", opts.OutputPath, "dataset", opts.Dataset)
	c.metrics.PipelineRunning.Set(1)
	defer c.metrics.PipelineRunning.Set(0)

	ctx, span := c.tracer.Start(ctx, "convert", trace.WithAttributes(
		attribute.String("input", opts.InputPath),
		attribute.String("elevation.dataset", opts.Dataset),
	))
	defer span.End()

	report, err := c.run(ctx, opts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return report, err
}

func (c *Converter) run(ctx context.Context, opts Options) (domain.RunReport, error) {
	doc, err := c.source.Load(ctx, opts.InputPath)
	if err != nil {
		return domain.RunReport{}, fmt.Errorf("read input: %w", err)
	}
	c.ready.Store(true)

	elevations, stats, err := c.resolver.Resolve(ctx, doc.Coordinates(), opts.Resolve)
	if err != nil {
		return domain.RunReport{}, fmt.Errorf("resolve elevations: %w", err)
	}

	report := domain.NewRunReport(stats, opts.Dataset, opts.InputPath, opts.OutputPath)
	report.Strict = opts.Strict

	if opts.Strict && stats.UnresolvedPoints > 0 {
		c.publish(ctx, report)
		return report, fmt.Errorf("%w: %d of %d points", domain.ErrUnresolvedElevation, stats.UnresolvedPoints, stats.PointsTotal)
	}

	drawing, err := BuildDrawing(doc, elevations, c.projector)
	if err != nil {
		return domain.RunReport{}, err
	}

	for _, t := range c.targets {
		if err := t.Write(ctx, drawing); err != nil {
			return domain.RunReport{}, err
		}
		c.logger.Info("output written", "target", t.Name(), "records", len(drawing.Records), "features", len(drawing.Features))
	}

	c.publish(ctx, report)
	return report, nil
}

func (c *Converter) publish(ctx context.Context, report domain.RunReport) {
	for _, p := range c.publishers {
		if err := p.Publish(ctx, report); err != nil {
			c.logger.Warn("run report not published", "run_id", report.RunID, "error", err)
		}
	}
}

// LogProgress returns a ProgressFunc that logs every finished batch.
func LogProgress(logger *slog.Logger) domain.ProgressFunc {
	return func(done, total int) {
		logger.Info("elevation progress", "batches_done", done, "batches_total", total)
	}
}
