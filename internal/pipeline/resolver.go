package pipeline

import (
	"context"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/kml2dxf/internal/cluster"
	"github.com/couchcryptid/kml2dxf/internal/domain"
	"github.com/couchcryptid/kml2dxf/internal/observability"
)

// ElevationCache is the persistent coordinate-to-elevation table consulted
// before the network.
type ElevationCache interface {
	Lookup(c domain.Coordinate) (float64, bool)
	Put(c domain.Coordinate, elevation float64)
	Save(path string) error
}

// CacheOpener loads the cache stored at path. It must not fail: a missing or
// unreadable file yields an empty cache.
type CacheOpener func(path string) ElevationCache

// ResolveOptions controls one ElevationResolver run.
type ResolveOptions struct {
	UseCache   bool
	CachePath  string
	ClusterEps float64 // degrees; <= 0 disables clustering
	Progress   domain.ProgressFunc
}

// ElevationResolver enriches an ordered list of coordinates with elevations,
// layering clustering and the persistent cache in front of a provider. The
// result always has the input's length and order; clustering and caching only
// change which coordinates reach the network.
type ElevationResolver struct {
	provider  domain.ElevationProvider
	openCache CacheOpener
	clock     clockwork.Clock
	metrics   *observability.Metrics
	logger    *slog.Logger
}

// NewElevationResolver creates a resolver. openCache may be nil when the cache
// is never enabled.
func NewElevationResolver(provider domain.ElevationProvider, openCache CacheOpener, clock clockwork.Clock, metrics *observability.Metrics, logger *slog.Logger) *ElevationResolver {
	return &ElevationResolver{
		provider:  provider,
		openCache: openCache,
		clock:     clock,
		metrics:   metrics,
		logger:    logger,
	}
}

// Resolve runs the full enrichment: load cache, cluster once, short-circuit
// cache hits, query the misses in to-query order, remember new values, save
// the cache best-effort, expand representatives back onto every input and
// compute statistics. The only error returned is the provider's, which means
// the run was cancelled; the partial result is still complete in length.
func (r *ElevationResolver) Resolve(ctx context.Context, coords []domain.Coordinate, opts ResolveOptions) ([]domain.Elevation, domain.RunStatistics, error) {
	start := r.clock.Now()
	stats := domain.RunStatistics{PointsTotal: len(coords)}
	result := make([]domain.Elevation, len(coords))
	if len(coords) == 0 {
		stats.SetElapsed(r.clock.Since(start))
		return result, stats, nil
	}

	var cache ElevationCache
	if opts.UseCache && r.openCache != nil {
		cache = r.openCache(opts.CachePath)
	}

	assignment := domain.IdentityAssignment(len(coords))
	if opts.ClusterEps > 0 && len(coords) > 1 {
		assignment = cluster.Assign(coords, opts.ClusterEps)
		r.logger.Info("coordinates clustered",
			"points", len(coords), "clusters", assignment.Clusters(), "eps", opts.ClusterEps)
	}
	stats.Clusters = assignment.Clusters()
	r.metrics.ClusterRepresentants.Set(float64(assignment.Clusters()))

	// One value per cluster label; with clustering off every label is an input index.
	resolved := make([]domain.Elevation, assignment.Clusters())

	var (
		missLabels []int
		missCoords []domain.Coordinate
	)
	for label, c := range cluster.Representatives(coords, assignment) {
		if cache != nil {
			if v, ok := cache.Lookup(c); ok {
				resolved[label] = domain.Meters(v)
				stats.CacheHits++
				continue
			}
		}
		missLabels = append(missLabels, label)
		missCoords = append(missCoords, c)
	}
	stats.CacheMissPoints = len(missCoords)
	if cache != nil {
		r.metrics.CacheLookups.WithLabelValues("hit").Add(float64(stats.CacheHits))
		r.metrics.CacheLookups.WithLabelValues("miss").Add(float64(stats.CacheMissPoints))
	}

	var runErr error
	if len(missCoords) > 0 {
		outcome, err := r.provider.Resolve(ctx, missCoords, opts.Progress)
		runErr = err

		for j, label := range missLabels {
			if j < len(outcome.Elevations) {
				resolved[label] = outcome.Elevations[j]
			}
		}
		stats.APIBatches = outcome.Batches
		stats.ShortBatches = outcome.ShortBatches
		stats.FailedBatches = outcome.FailedBatches
		stats.Retries = outcome.Retries

		if cache != nil {
			for j, label := range missLabels {
				if e := resolved[label]; e.Valid {
					cache.Put(missCoords[j], e.Value)
				}
			}
		}
	}

	if cache != nil {
		if err := cache.Save(opts.CachePath); err != nil {
			r.logger.Warn("elevation cache not saved", "path", opts.CachePath, "error", err)
		}
	}

	for i := range coords {
		result[i] = resolved[assignment.Labels[i]]
	}

	stats.UnresolvedPoints = domain.Unresolved(result)
	elapsed := r.clock.Since(start)
	stats.SetElapsed(elapsed)

	r.metrics.PointsProcessed.Add(float64(stats.PointsTotal))
	r.metrics.UnresolvedPoints.Add(float64(stats.UnresolvedPoints))
	r.metrics.RunDuration.Observe(elapsed.Seconds())

	r.logger.Info("elevations resolved",
		"points", stats.PointsTotal,
		"cache_hits", stats.CacheHits,
		"queried", stats.CacheMissPoints,
		"batches", stats.APIBatches,
		"unresolved", stats.UnresolvedPoints,
		"elapsed", elapsed,
	)
	return result, stats, runErr
}
