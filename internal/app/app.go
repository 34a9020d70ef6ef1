// Package app assembles a conversion run from configuration: KML source,
// elevation client and cache, projector, file exporters and report publishers.
package app

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/kml2dxf/internal/adapter/cachefile"
	"github.com/couchcryptid/kml2dxf/internal/adapter/export"
	kafkaadapter "github.com/couchcryptid/kml2dxf/internal/adapter/kafka"
	"github.com/couchcryptid/kml2dxf/internal/adapter/kml"
	"github.com/couchcryptid/kml2dxf/internal/adapter/opentopodata"
	"github.com/couchcryptid/kml2dxf/internal/adapter/report"
	"github.com/couchcryptid/kml2dxf/internal/config"
	"github.com/couchcryptid/kml2dxf/internal/domain"
	"github.com/couchcryptid/kml2dxf/internal/observability"
	"github.com/couchcryptid/kml2dxf/internal/pipeline"
	"github.com/couchcryptid/kml2dxf/internal/projection"
)

// App is a fully wired converter plus the resources it must release.
type App struct {
	Converter *pipeline.Converter

	cfg     *config.Config
	closers []io.Closer
	logger  *slog.Logger
}

// New wires every stage from cfg. Report JSON without -metrics-out goes to stdout.
func New(cfg *config.Config, stdout io.Writer, metrics *observability.Metrics, logger *slog.Logger) (*App, error) {
	projName := projection.NameIdentity
	if cfg.UTM {
		projName = projection.NameUTM
	}
	projector, err := projection.New(projName)
	if err != nil {
		return nil, err
	}

	fileTargets, err := export.Targets(cfg.InputPath, cfg.OutputPath, cfg.Formats, logger)
	if err != nil {
		return nil, err
	}
	targets := make([]pipeline.OutputTarget, len(fileTargets))
	for i, t := range fileTargets {
		targets[i] = t
	}

	client := opentopodata.NewClient(cfg, metrics, logger)
	openCache := func(path string) pipeline.ElevationCache {
		return cachefile.Load(path, logger)
	}
	resolver := pipeline.NewElevationResolver(client, openCache, clockwork.NewRealClock(), metrics, logger)

	a := &App{cfg: cfg, logger: logger}

	var publishers []pipeline.ReportPublisher
	if cfg.MetricsJSON || cfg.MetricsPath != "" {
		publishers = append(publishers, report.NewJSONWriter(cfg.MetricsPath, stdout, logger))
	}
	if cfg.PromTextfile != "" {
		publishers = append(publishers, report.NewTextfile(cfg.PromTextfile, metrics, logger))
	}
	if cfg.ReportTopic != "" {
		w := kafkaadapter.NewReportWriter(cfg, logger)
		publishers = append(publishers, w)
		a.closers = append(a.closers, w)
		logger.Info("run report publishing enabled", "publisher", w.Name())
	}

	a.Converter = pipeline.New(kml.NewSource(logger), resolver, projector, targets, publishers, logger, metrics)
	return a, nil
}

// Options maps the configuration onto one conversion run.
func (a *App) Options() pipeline.Options {
	opts := pipeline.Options{
		InputPath:  a.cfg.InputPath,
		OutputPath: a.cfg.OutputPath,
		Dataset:    a.cfg.ElevationDataset,
		Strict:     a.cfg.Strict,
		Resolve: pipeline.ResolveOptions{
			UseCache:   a.cfg.CacheEnabled,
			CachePath:  a.cfg.CachePath,
			ClusterEps: a.cfg.ClusterEpsilon(),
		},
	}
	if a.cfg.Progress {
		opts.Resolve.Progress = pipeline.LogProgress(a.logger)
	}
	return opts
}

// Run executes the configured conversion.
func (a *App) Run(ctx context.Context) (domain.RunReport, error) {
	return a.Converter.Run(ctx, a.Options())
}

// Close releases publisher connections.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
