package engine

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/fieldmem/internal/config"
	"github.com/fyrsmithlabs/fieldmem/internal/coordinate"
	"github.com/fyrsmithlabs/fieldmem/internal/emergent"
	"github.com/fyrsmithlabs/fieldmem/internal/field"
	"github.com/fyrsmithlabs/fieldmem/internal/index"
	"github.com/fyrsmithlabs/fieldmem/internal/logging"
	"github.com/fyrsmithlabs/fieldmem/internal/pattern"
)

const tracerName = "github.com/fyrsmithlabs/fieldmem/internal/engine"

// precisionRadiusScale tightens the index radius for precision queries.
const precisionRadiusScale = 0.5

const (
	// creativeRadiusScale and creativeThresholdDrop loosen the field for
	// creative queries relative to plain discovery.
	creativeRadiusScale   = 1.25
	creativeThresholdDrop = 0.1

	// explorationProbabilityDrop is how much full exploration lowers the
	// collapse floor.
	explorationProbabilityDrop = 0.8
)

// Option configures a Service.
type Option func(*serviceOptions)

type serviceOptions struct {
	rng *rand.Rand
	now func() time.Time
}

// WithRand injects the random source seeding the mapper jitter and dream
// strategy. Tests pass a seeded source for determinism.
func WithRand(rng *rand.Rand) Option {
	return func(o *serviceOptions) {
		if rng != nil {
			o.rng = rng
		}
	}
}

// WithClock injects the time source.
func WithClock(now func() time.Time) Option {
	return func(o *serviceOptions) {
		if now != nil {
			o.now = now
		}
	}
}

// Service is the query orchestrator. One Service owns one store, one
// field engine, one discovery engine and one scheduler; there is no
// process-wide instance, callers construct and share as needed.
type Service struct {
	logger *logging.Logger
	tracer trace.Tracer
	now    func() time.Time

	mapper    *coordinate.Mapper
	index     *index.Index
	field     *field.Engine
	emergent  *emergent.Engine
	scheduler *emergent.Scheduler
	tracker   *Tracker

	mu  sync.RWMutex
	cfg *config.Config
}

// New wires the full engine from configuration. A nil config means
// config.Default(); a nil logger means a default stdout logger.
func New(cfg *config.Config, logger *logging.Logger, opts ...Option) (*Service, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		var err error
		logger, err = logging.NewLogger(logging.NewDefaultConfig(), nil)
		if err != nil {
			return nil, fmt.Errorf("default logger: %w", err)
		}
	}

	o := serviceOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	mapperOpts := []coordinate.Option{coordinate.WithClock(o.now)}
	emergentOpts := []emergent.Option{
		emergent.WithClock(o.now),
		emergent.WithRetention(cfg.Emergent.InsightRetention.Duration()),
	}
	if o.rng != nil {
		// Derive independent child sources: the mapper and the discovery
		// engine lock their own rng, not each other's.
		mapperOpts = append(mapperOpts, coordinate.WithRand(rand.New(rand.NewSource(o.rng.Int63()))))
		emergentOpts = append(emergentOpts, emergent.WithRand(rand.New(rand.NewSource(o.rng.Int63()))))
	}

	mapper := coordinate.NewMapper(mapperOpts...)
	ix, err := index.New(mapper, logger.Underlying().Named("index"),
		index.WithMaxMemories(cfg.Performance.MaxMemories),
		index.WithClock(o.now))
	if err != nil {
		return nil, fmt.Errorf("index: %w", err)
	}
	fe, err := field.NewEngine(ix, logger.Underlying().Named("field"),
		field.WithMaxSuperposition(cfg.Performance.MaxSuperpositionSize))
	if err != nil {
		return nil, fmt.Errorf("field engine: %w", err)
	}
	em, err := emergent.NewEngine(ix, fe, logger.Underlying().Named("emergent"), emergentOpts...)
	if err != nil {
		return nil, fmt.Errorf("discovery engine: %w", err)
	}
	sched, err := emergent.NewScheduler(em, logger.Underlying().Named("scheduler"),
		emergent.WithInterval(cfg.Emergent.Interval.Duration()))
	if err != nil {
		return nil, fmt.Errorf("scheduler: %w", err)
	}

	return &Service{
		logger:    logger,
		tracer:    otel.Tracer(tracerName),
		now:       o.now,
		mapper:    mapper,
		index:     ix,
		field:     fe,
		emergent:  em,
		scheduler: sched,
		tracker:   NewTracker(o.now),
		cfg:       cfg.Clone(),
	}, nil
}

// Store inserts or merges one memory and returns its id, generating one
// when the caller left it blank.
func (s *Service) Store(ctx context.Context, mem *pattern.Memory) (string, error) {
	if mem == nil {
		return "", fmt.Errorf("%w: nil memory", pattern.ErrInvalidMemory)
	}
	if mem.ID == "" {
		mem = mem.Clone()
		mem.ID = uuid.New().String()
	}
	if err := s.index.Store(mem); err != nil {
		return "", err
	}
	s.logger.Debug(ctx, "memory stored",
		zap.String("memory.id", mem.ID),
		zap.String("category", string(mem.Harmonics.Category)))
	return mem.ID, nil
}

// BulkStore inserts a batch all-or-nothing and returns ids in input
// order. Blank ids are generated before the batch is handed down, so a
// rejected batch never half-assigns identity.
func (s *Service) BulkStore(ctx context.Context, mems []*pattern.Memory) ([]string, error) {
	if len(mems) == 0 {
		return nil, nil
	}
	batch := make([]*pattern.Memory, len(mems))
	ids := make([]string, len(mems))
	for i, m := range mems {
		if m == nil {
			return nil, fmt.Errorf("%w: nil memory at %d", pattern.ErrInvalidMemory, i)
		}
		if m.ID == "" {
			m = m.Clone()
			m.ID = uuid.New().String()
		}
		batch[i] = m
		ids[i] = m.ID
	}
	if err := s.index.BulkStore(batch); err != nil {
		return nil, err
	}
	s.logger.Debug(ctx, "bulk store committed", zap.Int("records", len(batch)))
	return ids, nil
}

// Get looks up one memory by id, recording the access.
func (s *Service) Get(ctx context.Context, id string) (*pattern.Memory, bool) {
	return s.index.Get(id)
}

// Remove deletes a memory by id, reporting whether it existed.
func (s *Service) Remove(ctx context.Context, id string) bool {
	removed := s.index.Remove(id)
	if removed {
		s.logger.Debug(ctx, "memory removed", zap.String("memory.id", id))
	}
	return removed
}

// Clear removes every stored memory.
func (s *Service) Clear(ctx context.Context) {
	s.index.Clear()
	s.logger.Info(ctx, "store cleared")
}

// Len returns the number of stored memories.
func (s *Service) Len() int {
	return s.index.Len()
}

// Search wraps free-form text into the default discovery query.
func (s *Service) Search(ctx context.Context, text string) (*UnifiedResult, error) {
	return s.Query(ctx, pattern.DefaultQuery(text))
}

// Query executes one typed query. Precision queries run a tight-radius
// index pass only; discovery and creative queries always run the field
// and attempt inline insight generation; hybrid runs both paths. The
// two contributions are blended per-memory: confidence weights the
// index score, its complement weights the field relevance, and the same
// id appearing on both paths is deduplicated with summed contributions.
func (s *Service) Query(ctx context.Context, q pattern.MemoryQuery, ops ...pattern.LogicOperation) (*UnifiedResult, error) {
	start := time.Now()
	if err := q.Validate(); err != nil {
		return nil, err
	}
	for _, op := range ops {
		if err := op.Validate(); err != nil {
			return nil, err
		}
	}

	cfg := s.Config()
	ctx = logging.WithQueryID(ctx, uuid.New().String())
	ctx, span := s.tracer.Start(ctx, "fieldmem.query", trace.WithAttributes(
		attribute.String("query.type", string(q.Type)),
		attribute.Float64("query.confidence", q.Confidence),
		attribute.Float64("query.exploration", q.Exploration),
	))
	defer span.End()

	seed := s.mapper.Seed(q.HarmonicSignature, q.Text)
	fieldCfg := s.fieldConfig(q, cfg)
	maxResults := q.MaxResults
	if maxResults <= 0 {
		maxResults = index.DefaultMaxResults
	}
	processed := s.index.Len()
	fieldActive := cfg.Field.Enabled && q.Type != pattern.QueryPrecision

	var indexHits []index.Scored
	// When the field cannot run, the index is the only path left and
	// answers regardless of the confidence dial.
	if cfg.Index.Enabled && (indexContributes(q) || !fieldActive) {
		radius := cfg.Index.DefaultRadius
		if q.Type == pattern.QueryPrecision {
			radius *= precisionRadiusScale
		}
		hits, err := s.index.Query(seed, ops, index.QueryOptions{
			Radius:           radius,
			MaxResults:       maxResults * 2,
			QualityThreshold: cfg.Index.QualityThreshold,
		})
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		indexHits = hits
	}

	var fieldRes *field.Result
	var superposition time.Duration
	if fieldActive {
		t0 := time.Now()
		res, err := s.field.Run(seed, fieldCfg)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("field run: %w", err)
		}
		superposition = time.Since(t0)
		fieldRes = res
	}

	memories := mergeResults(q, indexHits, fieldRes, maxResults)

	insights := make([]pattern.Insight, 0)
	if fieldRes != nil && (q.Type == pattern.QueryDiscovery || q.Type == pattern.QueryCreative) {
		if in, ok := s.emergent.InsightFromInterference(fieldRes, ""); ok {
			s.emergent.Record(in)
			insights = append(insights, in)
			queryInsightsTotal.Inc()
		}
	}

	ids := make([]string, len(memories))
	categories := make([]pattern.Category, 0, len(memories))
	seenCats := make(map[pattern.Category]struct{})
	for i, sm := range memories {
		ids[i] = sm.Memory.ID
		if c := sm.Memory.Harmonics.Category; c != "" {
			if _, ok := seenCats[c]; !ok {
				seenCats[c] = struct{}{}
				categories = append(categories, c)
			}
		}
	}
	s.index.Touch(ids)

	result := &UnifiedResult{
		Memories:             memories,
		InterferencePatterns: []pattern.InterferencePattern{},
		EmergentInsights:     insights,
		FieldConfig:          fieldCfg,
	}
	if fieldRes != nil {
		result.InterferencePatterns = fieldRes.InterferencePatterns
		result.CoherenceLevel = fieldRes.CoherenceLevel
	}
	total := time.Since(start)
	result.Metrics = ExecutionMetrics{
		TotalTime:         total,
		MemoriesProcessed: processed,
		SuperpositionTime: superposition,
	}

	s.tracker.Record(QueryRecord{
		Type:       q.Type,
		Duration:   total,
		Results:    len(memories),
		Insights:   len(insights),
		Categories: categories,
	})
	queriesTotal.WithLabelValues(string(q.Type)).Inc()
	queryDuration.WithLabelValues(string(q.Type)).Observe(total.Seconds())
	span.SetAttributes(
		attribute.Int("query.results", len(memories)),
		attribute.Float64("query.coherence", result.CoherenceLevel),
	)
	s.logger.Debug(ctx, "query completed",
		zap.String("type", string(q.Type)),
		zap.Int("results", len(memories)),
		zap.Int("insights", len(insights)),
		zap.Duration("took", total))
	return result, nil
}

// indexContributes reports whether the index pass can affect the result:
// precision and hybrid always run it, discovery and creative only when
// confidence gives it a non-zero weight.
func indexContributes(q pattern.MemoryQuery) bool {
	switch q.Type {
	case pattern.QueryPrecision, pattern.QueryHybrid:
		return true
	default:
		return q.Confidence > 0
	}
}

// fieldConfig derives the per-query field parameters: exploration widens
// the radius and lowers the collapse floor, creative queries loosen both
// further, and the tracker's latency feedback shrinks the radius when
// recent queries ran over budget.
func (s *Service) fieldConfig(q pattern.MemoryQuery, cfg *config.Config) pattern.FieldConfiguration {
	radius := cfg.Field.DefaultRadius * (0.5 + q.Exploration)
	threshold := cfg.Field.InterferenceThreshold
	if q.Type == pattern.QueryCreative {
		radius *= creativeRadiusScale
		threshold -= creativeThresholdDrop
		if threshold < 0 {
			threshold = 0
		}
	}
	radius *= s.tracker.RadiusBias()
	return pattern.FieldConfiguration{
		Radius:                radius,
		MinProbability:        cfg.Field.MinProbability * (1 - explorationProbabilityDrop*q.Exploration),
		InterferenceThreshold: threshold,
	}
}

// mergeResults blends the two paths into one ranked list. Precision
// takes the raw index scores; every other type sums confidence-weighted
// index scores with complement-weighted field relevances, deduplicating
// by id. Without a field result the index carries full weight.
func mergeResults(q pattern.MemoryQuery, indexHits []index.Scored, fieldRes *field.Result, maxResults int) []ScoredMemory {
	if q.Type == pattern.QueryPrecision {
		out := make([]ScoredMemory, 0, len(indexHits))
		for _, h := range indexHits {
			out = append(out, ScoredMemory{Memory: h.Memory, Score: h.Score})
		}
		if len(out) > maxResults {
			out = out[:maxResults]
		}
		return out
	}

	indexWeight := q.Confidence
	fieldWeight := 1 - q.Confidence
	if fieldRes == nil {
		indexWeight = 1
	}
	combined := make(map[string]*ScoredMemory)
	for _, h := range indexHits {
		combined[h.Memory.ID] = &ScoredMemory{Memory: h.Memory, Score: indexWeight * h.Score}
	}
	if fieldRes != nil {
		for _, c := range fieldRes.Memories {
			if e, ok := combined[c.Memory.ID]; ok {
				e.Score += fieldWeight * c.Relevance
			} else {
				combined[c.Memory.ID] = &ScoredMemory{Memory: c.Memory, Score: fieldWeight * c.Relevance}
			}
		}
	}

	out := make([]ScoredMemory, 0, len(combined))
	for _, e := range combined {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Memory.ID < out[j].Memory.ID
	})
	if len(out) > maxResults {
		out = out[:maxResults]
	}
	return out
}

// SimilarOptions tune FindSimilar.
type SimilarOptions struct {
	// MinSimilarity filters by 1 - distance/radius. Zero keeps everything
	// inside the radius.
	MinSimilarity float64
	// Radius overrides the configured index radius when positive.
	Radius float64
	// MaxResults truncates the result. Zero means the index default.
	MaxResults int
}

// FindSimilar returns the neighbors of a stored memory, nearest first.
// An unknown id yields an empty result.
func (s *Service) FindSimilar(ctx context.Context, id string, opts SimilarOptions) []index.Scored {
	cfg := s.Config()
	radius := opts.Radius
	if radius <= 0 {
		radius = cfg.Index.DefaultRadius
	}
	hits := s.index.FindSimilar(id, index.QueryOptions{
		Radius:     radius,
		MaxResults: opts.MaxResults,
	})
	if opts.MinSimilarity <= 0 {
		return hits
	}
	kept := hits[:0]
	for _, h := range hits {
		if 1-h.Distance/radius >= opts.MinSimilarity {
			kept = append(kept, h)
		}
	}
	return kept
}

// QueryByCategory returns memories of one category ranked by strength.
func (s *Service) QueryByCategory(ctx context.Context, c pattern.Category, maxResults int) []index.Scored {
	return s.index.QueryByCategory(c, index.QueryOptions{MaxResults: maxResults})
}

// QueryByStrength returns memories with strength in [min,max], ranked.
func (s *Service) QueryByStrength(ctx context.Context, min, max float64, maxResults int) []index.Scored {
	return s.index.QueryByStrength(min, max, index.QueryOptions{MaxResults: maxResults})
}

// TriggerEmergentDiscovery runs one named strategy immediately,
// independent of the scheduler.
func (s *Service) TriggerEmergentDiscovery(ctx context.Context, name string) ([]pattern.Insight, error) {
	strategy, err := emergent.ParseStrategy(name)
	if err != nil {
		return nil, err
	}
	ctx, span := s.tracer.Start(ctx, "fieldmem.discovery",
		trace.WithAttributes(attribute.String("discovery.strategy", string(strategy))))
	defer span.End()

	insights, err := s.emergent.Trigger(strategy)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("discovery.insights", len(insights)))
	s.logger.Info(ctx, "discovery triggered",
		zap.String("strategy", string(strategy)),
		zap.Int("insights", len(insights)))
	return insights, nil
}

// Insights returns the retained insight log, newest first.
func (s *Service) Insights() []pattern.Insight {
	return s.emergent.Insights()
}

// GetStats aggregates store statistics with the adaptation context.
func (s *Service) GetStats(ctx context.Context) Stats {
	return Stats{
		Index:            s.index.Stats(),
		Context:          s.tracker.Snapshot(),
		RetainedInsights: len(s.emergent.Insights()),
		SchedulerRunning: s.scheduler.Running(),
	}
}

// Config returns a copy of the active configuration.
func (s *Service) Config() *config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Clone()
}

// UpdateConfig applies a partial update atomically: the merged config is
// validated before it replaces the active one, and the resource caps are
// pushed down to the index and field engine. An invalid update leaves
// everything untouched.
func (s *Service) UpdateConfig(ctx context.Context, u config.Update) (*config.Config, error) {
	s.mu.Lock()
	next, err := s.cfg.Apply(u)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.cfg = next
	s.mu.Unlock()

	s.index.SetMaxMemories(next.Performance.MaxMemories)
	s.field.SetMaxSuperposition(next.Performance.MaxSuperpositionSize)
	s.logger.Info(ctx, "configuration updated",
		zap.Float64("field.radius", next.Field.DefaultRadius),
		zap.Int("performance.max_memories", next.Performance.MaxMemories))
	return next.Clone(), nil
}

// StartScheduler begins background discovery. It fails when discovery is
// disabled in configuration or the scheduler is already running.
func (s *Service) StartScheduler(ctx context.Context) error {
	if !s.Config().Emergent.Enabled {
		return fmt.Errorf("emergent discovery is disabled")
	}
	return s.scheduler.Start()
}

// StopScheduler stops background discovery. Stopping a stopped scheduler
// is a no-op.
func (s *Service) StopScheduler(ctx context.Context) error {
	return s.scheduler.Stop()
}

// Close stops background work and flushes the logger.
func (s *Service) Close() error {
	if err := s.scheduler.Stop(); err != nil {
		return err
	}
	return s.logger.Sync()
}
