// Package opentopodata resolves elevations against an OpenTopoData-compatible
// terrain service: GET {endpoint}/{dataset}?locations=lat,lon|lat,lon...
package opentopodata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/kml2dxf/internal/config"
	"github.com/couchcryptid/kml2dxf/internal/domain"
	"github.com/couchcryptid/kml2dxf/internal/observability"
)

const statusOK = "OK"

// Client implements domain.ElevationProvider.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	dataset     string
	batchSize   int
	maxRetries  int
	concurrency int
	clock       clockwork.Clock
	tracer      trace.Tracer
	metrics     *observability.Metrics
	logger      *slog.Logger
}

// NewClient creates an elevation client from the run configuration. Each
// attempt is bounded by cfg.ElevationTimeout.
func NewClient(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout:   cfg.ElevationTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		baseURL:     cfg.ElevationEndpoint,
		dataset:     cfg.ElevationDataset,
		batchSize:   cfg.ElevationBatchSize,
		maxRetries:  cfg.ElevationMaxRetries,
		concurrency: cfg.ElevationConcurrency,
		clock:       clockwork.NewRealClock(),
		tracer:      otel.Tracer(observability.TracerName),
		metrics:     metrics,
		logger:      logger,
	}
}

// Resolve splits coords into consecutive batches and resolves each one
// independently. The returned elevations always match coords in length and
// order; anything the service could not answer stays absent. A non-nil error
// is only returned when ctx is cancelled.
func (c *Client) Resolve(ctx context.Context, coords []domain.Coordinate, progress domain.ProgressFunc) (domain.BatchOutcome, error) {
	out := domain.BatchOutcome{Elevations: make([]domain.Elevation, len(coords))}
	if len(coords) == 0 {
		return out, nil
	}

	states := c.plan(coords, out.Elevations)
	out.Batches = len(states)

	var (
		mu   sync.Mutex
		done int
	)
	finished := func() {
		if progress == nil {
			return
		}
		mu.Lock()
		done++
		progress(done, len(states))
		mu.Unlock()
	}

	var err error
	if c.concurrency > 1 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(c.concurrency)
		for i := range states {
			st := &states[i]
			g.Go(func() error {
				if err := c.resolveBatch(gctx, st); err != nil {
					return err
				}
				finished()
				return nil
			})
		}
		err = g.Wait()
	} else {
		for i := range states {
			if err = c.resolveBatch(ctx, &states[i]); err != nil {
				break
			}
			finished()
		}
	}

	for i := range states {
		st := &states[i]
		if st.attempts > 1 {
			out.Retries += st.attempts - 1
		}
		switch {
		case st.short:
			out.ShortBatches++
		case !st.resolved:
			out.FailedBatches++
		}
	}
	if err != nil {
		return out, err
	}
	return out, ctx.Err()
}

// batchState carries one batch through its retry loop. Each batch owns its
// state; nothing is shared between batches.
type batchState struct {
	index    int
	coords   []domain.Coordinate
	results  []domain.Elevation // window into the caller's output slice
	attempts int
	resolved bool
	short    bool
}

func (c *Client) plan(coords []domain.Coordinate, results []domain.Elevation) []batchState {
	size := c.batchSize
	if size <= 0 {
		size = len(coords)
	}
	states := make([]batchState, 0, (len(coords)+size-1)/size)
	for start := 0; start < len(coords); start += size {
		end := min(start+size, len(coords))
		states = append(states, batchState{
			index:   len(states),
			coords:  coords[start:end],
			results: results[start:end],
		})
	}
	return states
}

// attemptResult classifies a single request.
type attemptResult int

const (
	attemptOK attemptResult = iota
	attemptRetryable
	attemptPermanent
)

// resolveBatch runs up to 1+maxRetries attempts. After the k-th failed
// attempt it waits 2^k seconds before the next one.
func (c *Client) resolveBatch(ctx context.Context, st *batchState) error {
	ctx, span := c.tracer.Start(ctx, "elevation.batch", trace.WithAttributes(
		attribute.Int("batch.index", st.index),
		attribute.Int("batch.size", len(st.coords)),
		attribute.String("elevation.dataset", c.dataset),
	))
	defer span.End()

	maxAttempts := 1 + max(c.maxRetries, 0)
	for {
		if err := ctx.Err(); err != nil {
			span.SetStatus(codes.Error, "cancelled")
			return err
		}

		st.attempts++
		result, err := c.attempt(ctx, st)
		switch result {
		case attemptOK:
			c.metrics.ElevationBatches.WithLabelValues(batchLabel(st)).Inc()
			span.SetAttributes(attribute.Int("batch.attempts", st.attempts))
			return nil
		case attemptPermanent:
			c.logger.Warn("elevation batch rejected",
				"batch", st.index, "size", len(st.coords), "error", err)
			c.metrics.ElevationBatches.WithLabelValues("failed").Inc()
			span.SetStatus(codes.Error, err.Error())
			return nil
		}

		if ctx.Err() != nil {
			span.SetStatus(codes.Error, "cancelled")
			return ctx.Err()
		}
		if st.attempts >= maxAttempts {
			c.logger.Warn("elevation batch retries exhausted",
				"batch", st.index, "size", len(st.coords), "attempts", st.attempts, "error", err)
			c.metrics.ElevationBatches.WithLabelValues("failed").Inc()
			span.SetStatus(codes.Error, err.Error())
			return nil
		}

		backoff := time.Duration(1<<st.attempts) * time.Second
		c.logger.Debug("elevation batch failed, retrying",
			"batch", st.index, "attempt", st.attempts, "backoff", backoff, "error", err)
		c.metrics.ElevationRetries.Inc()
		if !sleepWithContext(ctx, c.clock, backoff) {
			span.SetStatus(codes.Error, "cancelled")
			return ctx.Err()
		}
	}
}

func batchLabel(st *batchState) string {
	if st.short {
		return "short"
	}
	return "resolved"
}

// attempt issues one request and, on logical success, writes the results
// into the batch window.
func (c *Client) attempt(ctx context.Context, st *batchState) (attemptResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.batchURL(st.coords), nil)
	if err != nil {
		return attemptPermanent, fmt.Errorf("create request: %w", err)
	}

	start := c.clock.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.ElevationAPIDuration.WithLabelValues(c.dataset).Observe(c.clock.Since(start).Seconds())
	if err != nil {
		c.metrics.ElevationRequests.WithLabelValues("transport_error").Inc()
		return attemptRetryable, fmt.Errorf("elevation request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		c.metrics.ElevationRequests.WithLabelValues("server_error").Inc()
		return attemptRetryable, statusError(resp)
	case resp.StatusCode != http.StatusOK:
		c.metrics.ElevationRequests.WithLabelValues("client_error").Inc()
		return attemptPermanent, statusError(resp)
	}

	var body response
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		c.metrics.ElevationRequests.WithLabelValues("transport_error").Inc()
		return attemptRetryable, fmt.Errorf("decode response: %w", err)
	}
	if body.Status != statusOK {
		c.metrics.ElevationRequests.WithLabelValues("logical_failure").Inc()
		return attemptPermanent, fmt.Errorf("elevation API status %q: %s", body.Status, body.Error)
	}

	c.metrics.ElevationRequests.WithLabelValues("ok").Inc()
	n := min(len(body.Results), len(st.results))
	for i := range n {
		if v := body.Results[i].Elevation; v != nil {
			st.results[i] = domain.Meters(*v)
		}
	}
	st.resolved = true
	if len(body.Results) < len(st.results) {
		st.short = true
		c.logger.Warn("elevation response shorter than batch, trailing points left unresolved",
			"batch", st.index, "requested", len(st.results), "returned", len(body.Results))
	}
	return attemptOK, nil
}

func (c *Client) batchURL(coords []domain.Coordinate) string {
	locs := make([]string, len(coords))
	for i, co := range coords {
		locs[i] = strconv.FormatFloat(co.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(co.Lon, 'f', -1, 64)
	}
	params := url.Values{"locations": {strings.Join(locs, "|")}}
	return fmt.Sprintf("%s/%s?%s", c.baseURL, url.PathEscape(c.dataset), params.Encode())
}

func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("elevation API error: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
}

// sleepWithContext waits for d on clock and reports false if ctx ended first.
func sleepWithContext(ctx context.Context, clock clockwork.Clock, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}

// OpenTopoData API response types.

type response struct {
	Status  string   `json:"status"`
	Error   string   `json:"error,omitempty"`
	Results []result `json:"results"`
}

type result struct {
	Elevation *float64 `json:"elevation"`
}
