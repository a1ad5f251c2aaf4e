// Package ingest orchestrates one ingestion run: it drives the primary feed
// stream through the scanner/parser/aggregator pipeline, throttles snapshot
// emission, optionally races a speculative range preview for very early
// headers, and persists the final summary.
package ingest

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/m-a-x-v/buildings-dashboard/internal/aggregate"
	"github.com/m-a-x-v/buildings-dashboard/internal/stream"
	"github.com/m-a-x-v/buildings-dashboard/internal/transport"
	"github.com/m-a-x-v/buildings-dashboard/pkg/models"
)

// ErrRunActive is returned when a run is requested while one is in flight.
// Only one primary stream is modeled per ingestor.
var ErrRunActive = errors.New("an ingestion run is already active")

// Source provides the primary feed stream and the speculative range stream.
type Source interface {
	Fetch(ctx context.Context) (io.ReadCloser, error)
	FetchRange(ctx context.Context, limit int64) (io.ReadCloser, error)
}

// SummaryCache persists summaries across sessions. Both operations are
// best-effort; implementations swallow their own failures.
type SummaryCache interface {
	LoadSummary(ctx context.Context) (*models.CachedSummary, bool)
	SaveSummary(ctx context.Context, summary models.CachedSummary)
}

// Options tune the orchestration timings. Zero values take defaults.
type Options struct {
	// EmitInterval is the minimum time between snapshot emissions.
	EmitInterval time.Duration
	// PreviewDelay is how long the primary stream may stay silent before
	// the speculative range read starts.
	PreviewDelay time.Duration
	// PreviewBytes is the byte range requested by the preview.
	PreviewBytes int64
	// PreviewHeaderCap stops the preview after this many headers.
	PreviewHeaderCap int
}

func (o Options) withDefaults() Options {
	if o.EmitInterval == 0 {
		o.EmitInterval = 250 * time.Millisecond
	}
	if o.PreviewDelay == 0 {
		o.PreviewDelay = 1200 * time.Millisecond
	}
	if o.PreviewBytes == 0 {
		o.PreviewBytes = 2_000_000
	}
	if o.PreviewHeaderCap == 0 {
		o.PreviewHeaderCap = 8
	}
	return o
}

// Ingestor runs the ingestion pipeline. All aggregator mutation is
// serialized behind one mutex: the primary stream, the preview stream, and
// the deferred emission timer never touch the accumulator concurrently.
type Ingestor struct {
	source Source
	cache  SummaryCache
	logger *zap.Logger
	opts   Options
	notify func(State)

	mu      sync.Mutex
	state   State
	running bool
	settled bool // run reached its terminal state; partial emissions are void
}

// New creates an ingestor. cache may be nil (no persistence); notify may be
// nil (poll State instead).
func New(source Source, cache SummaryCache, logger *zap.Logger, opts Options, notify func(State)) *Ingestor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ingestor{
		source: source,
		cache:  cache,
		logger: logger,
		opts:   opts.withDefaults(),
		notify: notify,
		state:  State{Status: StatusIdle},
	}
}

// State returns the latest consumer-visible state.
func (ing *Ingestor) State() State {
	ing.mu.Lock()
	defer ing.mu.Unlock()
	return ing.state
}

// Running reports whether a run is in flight.
func (ing *Ingestor) Running() bool {
	ing.mu.Lock()
	defer ing.mu.Unlock()
	return ing.running
}

// Run executes one ingestion to completion. It returns ErrRunActive if a
// run is already in flight, the context error on cancellation, and the
// transport error if the primary stream fails outright.
func (ing *Ingestor) Run(ctx context.Context) error {
	if err := ing.claim(); err != nil {
		return err
	}
	defer ing.release()
	return ing.run(ctx)
}

// Start launches Run in a new goroutine, failing fast with ErrRunActive.
func (ing *Ingestor) Start(ctx context.Context) error {
	if err := ing.claim(); err != nil {
		return err
	}
	go func() {
		defer ing.release()
		if err := ing.run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			ing.logger.Warn("ingestion run failed", zap.Error(err))
		}
	}()
	return nil
}

func (ing *Ingestor) claim() error {
	ing.mu.Lock()
	defer ing.mu.Unlock()
	if ing.running {
		return ErrRunActive
	}
	ing.running = true
	ing.settled = false
	return nil
}

func (ing *Ingestor) release() {
	ing.mu.Lock()
	ing.running = false
	ing.mu.Unlock()
}

func (ing *Ingestor) run(ctx context.Context) error {
	runID := uuid.NewString()
	logger := ing.logger.With(zap.String("run_id", runID))
	started := time.Now()

	hadCache := false
	if ing.cache != nil {
		if summary, ok := ing.cache.LoadSummary(ctx); ok {
			hadCache = true
			snap := aggregate.HydrateSummary(*summary)
			ing.setState(func(s *State) {
				s.Status = StatusSuccess
				s.Snapshot = &snap
				s.Err = ""
				s.Refreshing = true
				s.RunID = runID
			})
			logger.Info("hydrated cached summary",
				zap.Int("buildings", snap.Totals.Buildings),
				zap.Time("generated_at", summary.GeneratedAt),
			)
		}
	}
	if !hadCache {
		ing.setState(func(s *State) {
			s.Status = StatusLoading
			s.Err = ""
			s.Refreshing = true
			s.RunID = runID
		})
	}

	// The accumulator's memory belongs to this run alone.
	acc := aggregate.New(logger.Named("aggregate"))
	var aggMu sync.Mutex

	em := newEmitter(ing.opts.EmitInterval, func() {
		if ctx.Err() != nil {
			return
		}
		aggMu.Lock()
		snap := acc.Snapshot(false)
		aggMu.Unlock()
		ing.emitPartial(&snap)
	})
	defer em.stop()

	// Speculative preview: one shot, started only if the primary stream is
	// still silent after the delay and nothing cached was shown.
	previewCtx, cancelPreview := context.WithCancel(ctx)
	defer cancelPreview()
	var (
		firstSeen    sync.Once
		previewTimer *time.Timer
	)
	markHasBuilding := func() {
		firstSeen.Do(func() {
			if previewTimer != nil {
				previewTimer.Stop()
			}
			cancelPreview()
		})
	}
	if !hadCache {
		previewTimer = time.AfterFunc(ing.opts.PreviewDelay, func() {
			ing.runPreview(previewCtx, acc, &aggMu, em, logger)
		})
		defer previewTimer.Stop()
	}

	body, err := ing.source.Fetch(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		runsTotal.WithLabelValues("transport_error").Inc()
		ing.setTerminalError(err)
		return err
	}
	defer body.Close()

	var headerCount, recordCount int
	err = stream.Buildings(ctx, meteredReader{body}, stream.Handlers{
		OnHeader: func(h models.BuildingHeader) {
			aggMu.Lock()
			acc.AddHeader(h)
			aggMu.Unlock()
			markHasBuilding()
			headersTotal.Inc()
			headerCount++
			if headerCount == 1 || headerCount%3 == 0 {
				em.request()
			}
		},
		OnRecord: func(b *models.RawBuilding) {
			aggMu.Lock()
			acc.AddRecord(b)
			aggMu.Unlock()
			markHasBuilding()
			recordsTotal.Inc()
			recordCount++
			if recordCount == 1 || recordCount%4 == 0 {
				em.request()
			}
		},
		OnRecordError: func(err error) {
			recordErrorsTotal.Inc()
			logger.Debug("building record skipped", zap.Error(err))
		},
	})
	if err != nil {
		if ctx.Err() != nil {
			// Cancellation suppresses further emissions and callbacks.
			return ctx.Err()
		}
		runsTotal.WithLabelValues("stream_error").Inc()
		ing.setTerminalError(err)
		return err
	}

	// Stop scheduling new emissions. A deferred emission already in flight
	// is voided by settle below via the settled flag.
	em.stop()
	markHasBuilding()

	aggMu.Lock()
	final := acc.Finalize()
	aggMu.Unlock()

	if ing.cache != nil {
		// Only finalized state may cross the persistence boundary.
		ing.cache.SaveSummary(ctx, aggregate.BuildSummary(final))
	}

	ing.settle(func(s *State) {
		s.Status = StatusSuccess
		s.Snapshot = &final
		s.Err = ""
		s.Refreshing = false
	})
	runsTotal.WithLabelValues("success").Inc()
	runDuration.Observe(time.Since(started).Seconds())
	logger.Info("ingestion complete",
		zap.Int("buildings", final.Totals.Buildings),
		zap.Int("devices", final.Totals.Devices),
		zap.Int("records", recordCount),
		zap.Duration("elapsed", time.Since(started)),
	)
	return nil
}

// runPreview issues the speculative partial-range read. It is strictly
// best-effort: every failure is swallowed, and it stops as soon as it has
// yielded its header quota or the primary stream produces anything.
func (ing *Ingestor) runPreview(ctx context.Context, acc *aggregate.Accumulator, aggMu *sync.Mutex, em *emitter, logger *zap.Logger) {
	if ctx.Err() != nil {
		return
	}
	body, err := ing.source.FetchRange(ctx, ing.opts.PreviewBytes)
	if err != nil {
		if errors.Is(err, transport.ErrPreviewUnavailable) {
			logger.Debug("range preview unavailable")
		} else if ctx.Err() == nil {
			logger.Debug("range preview failed", zap.Error(err))
		}
		return
	}
	defer body.Close()

	previewCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	headers := 0
	err = stream.Buildings(previewCtx, body, stream.Handlers{
		OnHeader: func(h models.BuildingHeader) {
			aggMu.Lock()
			acc.AddHeader(h)
			aggMu.Unlock()
			previewHeadersTotal.Inc()
			em.force()
			headers++
			if headers >= ing.opts.PreviewHeaderCap {
				cancel()
			}
		},
	})
	if err != nil && ctx.Err() == nil && !errors.Is(err, context.Canceled) {
		logger.Debug("range preview stream failed", zap.Error(err))
	}
}

// meteredReader counts primary stream bytes as they are consumed.
type meteredReader struct {
	r io.Reader
}

func (m meteredReader) Read(p []byte) (int, error) {
	n, err := m.r.Read(p)
	if n > 0 {
		bytesTotal.Add(float64(n))
	}
	return n, err
}

func (ing *Ingestor) setTerminalError(err error) {
	ing.settle(func(s *State) {
		// Keep showing the last good snapshot if one exists; the error is
		// recorded either way.
		if s.Snapshot != nil {
			s.Status = StatusSuccess
		} else {
			s.Status = StatusError
		}
		s.Err = err.Error()
		s.Refreshing = false
	})
}

// emitPartial publishes a partial snapshot unless the run has already
// settled. The emitter's stop cannot cancel a deferred emission that is
// past its stopped check, so the guard lives here, under the state lock,
// where a late emission and the terminal transition are serialized.
func (ing *Ingestor) emitPartial(snap *aggregate.Snapshot) {
	ing.mu.Lock()
	if ing.settled {
		ing.mu.Unlock()
		return
	}
	snapshotsTotal.Inc()
	if ing.state.Status != StatusSuccess {
		ing.state.Status = StatusLoading
	}
	ing.state.Snapshot = snap
	ing.state.Err = ""
	ing.state.Refreshing = true
	st := ing.state
	ing.mu.Unlock()
	if ing.notify != nil {
		ing.notify(st)
	}
}

// settle records the run's terminal state and voids any emission still in
// flight.
func (ing *Ingestor) settle(mutate func(*State)) {
	ing.setState(func(s *State) {
		ing.settled = true
		mutate(s)
	})
}

func (ing *Ingestor) setState(mutate func(*State)) {
	ing.mu.Lock()
	mutate(&ing.state)
	st := ing.state
	ing.mu.Unlock()
	if ing.notify != nil {
		ing.notify(st)
	}
}
