package series

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/bacendata/sgs-client/pkg/apierr"
	"github.com/bacendata/sgs-client/pkg/cache"
	"github.com/bacendata/sgs-client/pkg/catalog"
	"github.com/bacendata/sgs-client/pkg/client"
	"github.com/bacendata/sgs-client/pkg/dates"
	"github.com/bacendata/sgs-client/pkg/logging"
	"github.com/bacendata/sgs-client/pkg/ratelimit"
)

var (
	seriesFetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sgs_series_fetches_total",
		Help: "Completed series fetches by result",
	}, []string{"result"})

	seriesChunksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sgs_series_chunks_total",
		Help: "Per-chunk outcomes during chunked fetches",
	}, []string{"source"})
)

// errBatchAborted marks work skipped because a sibling in the same
// batch already failed. It never escapes to callers: the sibling's
// error is the one reported.
var errBatchAborted = errors.New("batch aborted")

// Config tunes the fetch pipeline.
type Config struct {
	// MaxSpanYears is the widest range a single upstream request may
	// cover. Wider requests are partitioned into sub-ranges of at most
	// this many years. It is also the span of the default range when
	// the caller gives no dates.
	MaxSpanYears int

	// MaxConcurrent bounds upstream requests in flight per top-level
	// Fetch or FetchMultiple call.
	MaxConcurrent int
}

// DefaultConfig returns the pipeline defaults: ten-year windows, five
// concurrent upstream requests.
func DefaultConfig() Config {
	return Config{
		MaxSpanYears:  10,
		MaxConcurrent: ratelimit.DefaultMaxConcurrent,
	}
}

// Options selects what to fetch for one series. The zero value means
// "the default range": the last MaxSpanYears years ending today.
type Options struct {
	// Start and End bound the range, inclusive. A zero Start with a set
	// End means MaxSpanYears years ending at End; a set Start with a
	// zero End means Start through today.
	Start dates.Date
	End   dates.Date

	// Last, when positive, requests the most recent Last observations
	// instead of a date range. It is mutually exclusive with Start/End.
	Last int
}

// OptionsFrom builds Options from loosely typed boundary values as they
// arrive at the API edge: nil (no boundary), dates.Date, time.Time, or
// a string in ISO or day-first form. A positive last with either
// boundary set is rejected here rather than deep in the pipeline.
func OptionsFrom(start, end any, last int) (Options, error) {
	var opts Options

	s, startSet, err := dates.Normalize(start)
	if err != nil {
		return opts, err
	}
	e, endSet, err := dates.Normalize(end)
	if err != nil {
		return opts, err
	}

	if last > 0 && (startSet || endSet) {
		return opts, apierr.InvalidParamsf("last cannot be combined with a date range")
	}
	if startSet {
		opts.Start = s
	}
	if endSet {
		opts.End = e
	}
	opts.Last = last
	return opts, nil
}

// Service is the fetch pipeline: it resolves series references against
// the catalog, partitions wide ranges, fans sub-range fetches out under
// a concurrency gate with the cache consulted per sub-range, and
// assembles the merged series.
type Service struct {
	client  *client.Client
	cache   *cache.Manager
	catalog *catalog.Registry
	config  Config
	logger  zerolog.Logger
}

// NewService wires a fetch pipeline. A nil registry means the built-in
// catalog; a nil cache manager means caching stays disabled. Zero
// config fields take their defaults.
func NewService(c *client.Client, m *cache.Manager, reg *catalog.Registry, cfg Config) *Service {
	if reg == nil {
		reg = catalog.Default()
	}
	if m == nil {
		m = cache.NewManager(reg)
	}
	def := DefaultConfig()
	if cfg.MaxSpanYears <= 0 {
		cfg.MaxSpanYears = def.MaxSpanYears
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = def.MaxConcurrent
	}
	return &Service{
		client:  c,
		cache:   m,
		catalog: reg,
		config:  cfg,
		logger:  logging.NewLogger("series"),
	}
}

// Cache exposes the service's cache manager for lifecycle and admin
// operations (Activate, Purge, PurgeExpired).
func (s *Service) Cache() *cache.Manager {
	return s.cache
}

// Catalog exposes the registry the service resolves references against.
func (s *Service) Catalog() *catalog.Registry {
	return s.catalog
}

// Fetch retrieves one series. The reference is resolved against the
// catalog, the range is partitioned into sub-ranges of at most
// MaxSpanYears, and sub-ranges are fetched concurrently with cached
// results reused per sub-range. The result is sorted by date with
// duplicate dates collapsed.
func (s *Service) Fetch(ctx context.Context, ref catalog.Ref, opts Options) ([]Point, error) {
	code, err := s.catalog.Resolve(ref)
	if err != nil {
		seriesFetchesTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	gate := ratelimit.NewGate(s.config.MaxConcurrent)
	var aborted atomic.Bool
	points, err := s.fetchResolved(ctx, code, opts, gate, &aborted)
	if err != nil {
		seriesFetchesTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	seriesFetchesTotal.WithLabelValues("ok").Inc()
	return points, nil
}

// fetchResolved runs the pipeline for an already resolved code under a
// caller-supplied gate and abort flag, so multi-series calls share one
// request bound and one failure domain across all their sub-range
// fetches.
func (s *Service) fetchResolved(ctx context.Context, code int, opts Options, gate *ratelimit.Gate, aborted *atomic.Bool) ([]Point, error) {
	if opts.Last > 0 {
		if !opts.Start.IsZero() || !opts.End.IsZero() {
			return nil, apierr.InvalidParamsf("last cannot be combined with a date range")
		}
		obs, err := s.fetchLast(ctx, code, opts.Last, gate, aborted)
		if err != nil {
			return nil, err
		}
		return Assemble(obs)
	}

	rng, err := s.effectiveRange(opts)
	if err != nil {
		return nil, err
	}
	chunks, err := dates.Partition(rng.Start, rng.End, s.config.MaxSpanYears)
	if err != nil {
		return nil, err
	}

	s.logger.Debug().
		Int("series", code).
		Str("range", rng.String()).
		Int("chunks", len(chunks)).
		Msg("Fetching series")

	raw, err := s.fetchChunks(ctx, code, chunks, gate, aborted)
	if err != nil {
		return nil, err
	}
	points, err := Assemble(raw)
	if err != nil {
		return nil, err
	}
	if len(points) == 0 {
		s.logger.Warn().Int("series", code).Str("range", rng.String()).Msg("Series returned no data")
	}
	return points, nil
}

// effectiveRange applies the default-range rules to the caller's
// options. The default end is today; the default start is the same
// month and day nine years earlier, a span that always fits a single
// ten-year upstream window.
func (s *Service) effectiveRange(opts Options) (dates.Range, error) {
	end := opts.End
	if end.IsZero() {
		end = dates.Today()
	}
	start := opts.Start
	if start.IsZero() {
		start = dates.New(end.Year()-(s.config.MaxSpanYears-1), end.Month(), end.Day())
	}
	if start.After(end) {
		return dates.Range{}, apierr.InvalidParamsf("start date %s is after end date %s", start, end)
	}
	return dates.Range{Start: start, End: end}, nil
}

// fetchChunks fans the sub-range fetches out, at most gate.Cap in
// flight. The first failure aborts the batch: running fetches finish
// and release their slots, queued ones never reach the upstream, even
// when they were already blocked waiting for a slot.
func (s *Service) fetchChunks(ctx context.Context, code int, chunks []dates.Range, gate *ratelimit.Gate, aborted *atomic.Bool) ([]client.Observation, error) {
	results := make([][]client.Observation, len(chunks))

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	for i, rng := range chunks {
		wg.Add(1)
		go func(i int, rng dates.Range) {
			defer wg.Done()
			if aborted.Load() {
				return
			}
			obs, err := s.fetchChunk(ctx, code, rng, gate, aborted)
			if err != nil {
				// An upstream failure already set the flag inside
				// fetchChunk; storing again covers the Acquire error
				// path. Aborted chunks carry no error of their own.
				if !errors.Is(err, errBatchAborted) {
					errOnce.Do(func() { firstErr = err })
				}
				aborted.Store(true)
				return
			}
			results[i] = obs
		}(i, rng)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if aborted.Load() {
		// Aborted from outside this series (a sibling in a multi-series
		// call failed): the partial results must not look complete.
		return nil, errBatchAborted
	}

	// Concatenate in chunk order so boundary duplicates resolve in
	// favor of the later chunk during assembly.
	var out []client.Observation
	for _, obs := range results {
		out = append(out, obs...)
	}
	return out, nil
}

// fetchChunk resolves one sub-range: cache first, then the upstream
// under a gate slot, with the fresh result written back to the cache.
// The abort flag is re-checked once the slot is held; a chunk that was
// queued behind a failing sibling releases its slot without issuing a
// request.
func (s *Service) fetchChunk(ctx context.Context, code int, rng dates.Range, gate *ratelimit.Gate, aborted *atomic.Bool) ([]client.Observation, error) {
	if payload, ok := s.cache.Lookup(ctx, code, rng); ok {
		var obs []client.Observation
		if err := json.Unmarshal(payload, &obs); err == nil {
			seriesChunksTotal.WithLabelValues("cache").Inc()
			return obs, nil
		}
		s.logger.Warn().Int("series", code).Str("range", rng.String()).Msg("Discarding undecodable cache entry")
	}

	if err := gate.Acquire(ctx); err != nil {
		return nil, err
	}
	defer gate.Release()

	if aborted.Load() {
		return nil, errBatchAborted
	}

	obs, err := s.client.FetchRange(ctx, code, rng)
	if err != nil {
		seriesChunksTotal.WithLabelValues("error").Inc()
		// Set before the deferred Release so a sibling waiting on the
		// slot observes the flag as soon as it acquires.
		aborted.Store(true)
		return nil, err
	}
	seriesChunksTotal.WithLabelValues("upstream").Inc()

	if payload, err := json.Marshal(obs); err == nil {
		s.cache.Store(ctx, code, rng, payload)
	}
	return obs, nil
}

// fetchLast retrieves the most recent n observations. Last-N results
// are never cached: the window they cover moves with every new
// observation, so a (series, range) key cannot name them.
func (s *Service) fetchLast(ctx context.Context, code, n int, gate *ratelimit.Gate, aborted *atomic.Bool) ([]client.Observation, error) {
	if err := gate.Acquire(ctx); err != nil {
		return nil, err
	}
	defer gate.Release()

	if aborted.Load() {
		return nil, errBatchAborted
	}
	obs, err := s.client.FetchLast(ctx, code, n)
	if err != nil {
		aborted.Store(true)
		return nil, err
	}
	return obs, nil
}

// Metadata retrieves descriptive metadata for a series reference.
func (s *Service) Metadata(ctx context.Context, ref catalog.Ref) (*client.Metadata, error) {
	code, err := s.catalog.Resolve(ref)
	if err != nil {
		return nil, err
	}
	return s.client.FetchMetadata(ctx, code)
}
