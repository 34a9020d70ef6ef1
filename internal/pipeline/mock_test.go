package pipeline_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/couchcryptid/kml2dxf/internal/domain"
	"github.com/couchcryptid/kml2dxf/internal/observability"
	"github.com/couchcryptid/kml2dxf/internal/pipeline"
)

// --- mocks ---

// fakeProvider answers every coordinate with elevationOf and records what it
// was asked for.
type fakeProvider struct {
	mu        sync.Mutex
	calls     [][]domain.Coordinate
	batchSize int
	absent    map[domain.Coordinate]bool
	err       error
	onResolve func()
}

func (p *fakeProvider) Resolve(_ context.Context, coords []domain.Coordinate, progress domain.ProgressFunc) (domain.BatchOutcome, error) {
	p.mu.Lock()
	p.calls = append(p.calls, append([]domain.Coordinate(nil), coords...))
	p.mu.Unlock()

	if p.onResolve != nil {
		p.onResolve()
	}

	size := p.batchSize
	if size <= 0 {
		size = 100
	}
	out := domain.BatchOutcome{
		Elevations: make([]domain.Elevation, len(coords)),
		Batches:    (len(coords) + size - 1) / size,
	}
	if p.err != nil {
		return out, p.err
	}
	for i, c := range coords {
		if !p.absent[c] {
			out.Elevations[i] = domain.Meters(elevationOf(c))
		}
	}
	for b := 1; b <= out.Batches; b++ {
		if progress != nil {
			progress(b, out.Batches)
		}
	}
	return out, nil
}

func (p *fakeProvider) queried() []domain.Coordinate {
	p.mu.Lock()
	defer p.mu.Unlock()
	var all []domain.Coordinate
	for _, c := range p.calls {
		all = append(all, c...)
	}
	return all
}

func (p *fakeProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

func elevationOf(c domain.Coordinate) float64 {
	return c.Lat*100 + c.Lon
}

// memCache is an in-memory ElevationCache.
type memCache struct {
	entries map[string]float64
	saves   int
	saveErr error
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string]float64)}
}

func (m *memCache) Lookup(c domain.Coordinate) (float64, bool) {
	v, ok := m.entries[c.Key()]
	return v, ok
}

func (m *memCache) Put(c domain.Coordinate, v float64) { m.entries[c.Key()] = v }

func (m *memCache) Save(string) error {
	m.saves++
	return m.saveErr
}

func (m *memCache) opener() pipeline.CacheOpener {
	return func(string) pipeline.ElevationCache { return m }
}

type mockSource struct {
	doc   *domain.Document
	err   error
	calls int
}

func (m *mockSource) Load(_ context.Context, _ string) (*domain.Document, error) {
	m.calls++
	return m.doc, m.err
}

type mockTarget struct {
	name    string
	err     error
	written []*domain.Drawing
}

func (m *mockTarget) Name() string { return m.name }

func (m *mockTarget) Write(_ context.Context, d *domain.Drawing) error {
	if m.err != nil {
		return m.err
	}
	m.written = append(m.written, d)
	return nil
}

type mockPublisher struct {
	err     error
	reports []domain.RunReport
}

func (m *mockPublisher) Publish(_ context.Context, r domain.RunReport) error {
	m.reports = append(m.reports, r)
	return m.err
}

var errPublish = errors.New("broker unavailable")

func newTestMetrics() *observability.Metrics {
	return observability.NewMetricsForTesting()
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
