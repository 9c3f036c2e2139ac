package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"acvcharts/internal/amqp"
	"acvcharts/internal/cache"
	"acvcharts/internal/core"
	applog "acvcharts/internal/log"
	"acvcharts/internal/records"
)

// loadTimeout bounds a shared source load, which no single caller owns.
const loadTimeout = 30 * time.Second

// ChartsService loads records from the configured source and aggregates
// them. Reports are cached per source; concurrent misses share one load.
// Returned reports are shared with the cache and must be treated as
// read-only.
type ChartsService struct {
	source     records.Source
	aggregator core.Aggregator
	reports    *cache.LRUCache[core.Report]
	group      singleflight.Group
	logger     *applog.Logger
	structured *applog.StructuredLogger

	// generation is bumped by Invalidate; a load only caches its report if
	// no invalidation happened while it ran.
	cacheMu    sync.Mutex
	generation uint64

	aggregations atomic.Int64
	failures     atomic.Int64
	invalidated  atomic.Int64
}

// Stats is a snapshot of service counters.
type Stats struct {
	Aggregations  int64
	Failures      int64
	Invalidations int64
	CacheHits     int64
	CacheMisses   int64
	CacheSize     int
}

func NewChartsService(source records.Source, aggregator core.Aggregator, reports *cache.LRUCache[core.Report], logger *applog.Logger) *ChartsService {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentCharts)
	return &ChartsService{
		source:     source,
		aggregator: aggregator,
		reports:    reports,
		logger:     logger,
		structured: applog.NewStructuredLogger(logger),
	}
}

// Report returns the aggregate of the source's current records. The load
// runs detached from ctx so one caller going away does not fail the others
// waiting on it; ctx still bounds how long this caller waits.
func (s *ChartsService) Report(ctx context.Context) (core.Report, error) {
	key := s.source.Name()
	if s.reports != nil {
		if report, ok := s.reports.Get(key); ok {
			return report, nil
		}
	}

	ch := s.group.DoChan(key, func() (any, error) {
		gen := s.currentGeneration()
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()

		recs, err := s.source.LoadRecords(loadCtx)
		if err != nil {
			return nil, fmt.Errorf("load records from %s: %w", key, err)
		}
		report, err := s.aggregate(loadCtx, key, recs)
		if err != nil {
			return nil, err
		}
		s.store(key, gen, report)
		return report, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return core.Report{}, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		s.failures.Add(1)
		s.structured.LogError(ctx, "Failed to build report", res.Err, applog.OpAggregate,
			applog.NewFields().WithErrorType(errorType(res.Err)))
		return core.Report{}, res.Err
	}
	if res.Shared {
		s.logger.DebugContext(ctx, "Report load shared with concurrent request", applog.FieldSource, key)
	}
	return res.Val.(core.Report), nil
}

func (s *ChartsService) currentGeneration() uint64 {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	return s.generation
}

// store caches report unless the cache was invalidated after gen was read.
func (s *ChartsService) store(key string, gen uint64, report core.Report) {
	if s.reports == nil {
		return
	}
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	if s.generation != gen {
		s.logger.Debug("Discarding report loaded before invalidation", applog.FieldSource, key)
		return
	}
	s.reports.Set(key, report)
}

// Compute aggregates a caller-supplied batch. The result is not cached.
func (s *ChartsService) Compute(ctx context.Context, recs []core.RawRecord) (core.Report, error) {
	report, err := s.aggregate(ctx, "request", recs)
	if err != nil {
		s.failures.Add(1)
		return core.Report{}, err
	}
	return report, nil
}

func (s *ChartsService) aggregate(ctx context.Context, source string, recs []core.RawRecord) (core.Report, error) {
	report, err := s.aggregator.Aggregate(recs)
	if err != nil {
		return core.Report{}, err
	}
	s.aggregations.Add(1)

	custTypes := report.Totals.Len() - 1
	total, _ := report.Totals.Get(core.TotalType)
	s.structured.LogReportComputed(ctx, source, len(recs), len(report.CustomerData), custTypes, total.ACV)
	return report, nil
}

// Invalidate drops every cached report and returns how many were removed.
// Loads already in flight finish for their callers but are not cached, and
// the next Report starts a fresh load.
func (s *ChartsService) Invalidate() int {
	s.invalidated.Add(1)

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.generation++
	s.group.Forget(s.source.Name())
	if s.reports == nil {
		return 0
	}
	return s.reports.Clear()
}

// HandleRecordsImported invalidates cached reports when a new batch lands.
func (s *ChartsService) HandleRecordsImported(ctx context.Context, msg *amqp.RecordsImportedMessage) error {
	n := s.Invalidate()
	s.logger.InfoContext(ctx, "Records imported, cached reports dropped",
		applog.FieldSource, msg.Source,
		applog.FieldRecords, msg.Records,
		"dropped", n)
	return nil
}

// Ready checks that the source can be reached. Sources that can ping are
// pinged; the others are loaded.
func (s *ChartsService) Ready(ctx context.Context) error {
	if p, ok := s.source.(records.Pinger); ok {
		return p.Ping(ctx)
	}
	_, err := s.source.LoadRecords(ctx)
	return err
}

func (s *ChartsService) Stats() Stats {
	st := Stats{
		Aggregations:  s.aggregations.Load(),
		Failures:      s.failures.Load(),
		Invalidations: s.invalidated.Load(),
	}
	if s.reports != nil {
		cs := s.reports.Stats()
		st.CacheHits, st.CacheMisses, st.CacheSize = cs.Hits, cs.Misses, cs.Size
	}
	return st
}

func errorType(err error) string {
	switch {
	case errors.Is(err, core.ErrMalformedRecord):
		return applog.ErrorTypeValidation
	case errors.Is(err, core.ErrDegenerateBucket):
		return applog.ErrorTypeDegenerate
	case errors.Is(err, context.DeadlineExceeded):
		return applog.ErrorTypeTimeout
	default:
		return applog.ErrorTypeInternal
	}
}
