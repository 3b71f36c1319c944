// Package index implements the deterministic in-memory pattern store:
// radius queries over the coordinate space, the logic-gate filter
// pipeline, and attribute queries by category and strength.
package index

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/fieldmem/internal/coordinate"
	"github.com/fyrsmithlabs/fieldmem/internal/pattern"
)

// ErrCapacityExceeded is returned when a store would exceed the configured
// memory cap. The policy is reject: the batch is refused whole and the
// store is left untouched. Callers retry after external eviction.
var ErrCapacityExceeded = errors.New("capacity exceeded")

const (
	// DefaultRadius is the reference radius for gather steps.
	DefaultRadius = 0.35

	// DefaultMaxResults bounds result sets when the caller does not.
	DefaultMaxResults = 20

	// bulkParallelThreshold is the batch size above which coordinate
	// mapping fans out across goroutines.
	bulkParallelThreshold = 32
)

// QueryOptions tune a single index query.
type QueryOptions struct {
	// Radius bounds the gather step. Zero means DefaultRadius.
	Radius float64
	// MaxResults truncates the ranked result. Zero means DefaultMaxResults.
	MaxResults int
	// QualityThreshold admits memories with strength >= threshold OR
	// confidence >= threshold. Zero admits everything.
	QualityThreshold float64
}

func (o QueryOptions) withDefaults() QueryOptions {
	if o.Radius <= 0 {
		o.Radius = DefaultRadius
	}
	if o.MaxResults <= 0 {
		o.MaxResults = DefaultMaxResults
	}
	return o
}

// Scored pairs a memory clone with its effective score and seed distance.
type Scored struct {
	Memory   *pattern.Memory
	Score    float64
	Distance float64
}

// Index is the deterministic store. A single writer mutates under the
// write lock; readers take the read lock and only ever see clones, so no
// query can observe a half-written record.
type Index struct {
	mu       sync.RWMutex
	mapper   *coordinate.Mapper
	patterns map[string]*pattern.Memory

	maxMemories int
	now         func() time.Time
	logger      *zap.Logger
}

// Option configures an Index.
type Option func(*Index)

// WithMaxMemories caps the number of stored patterns. Zero means no cap.
func WithMaxMemories(n int) Option {
	return func(ix *Index) { ix.maxMemories = n }
}

// WithClock injects the time source used for access bookkeeping.
func WithClock(now func() time.Time) Option {
	return func(ix *Index) {
		if now != nil {
			ix.now = now
		}
	}
}

// New creates an index backed by the given coordinate mapper.
func New(mapper *coordinate.Mapper, logger *zap.Logger, opts ...Option) (*Index, error) {
	if mapper == nil {
		return nil, fmt.Errorf("coordinate mapper cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ix := &Index{
		mapper:   mapper,
		patterns: make(map[string]*pattern.Memory),
		now:      time.Now,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix, nil
}

// Store inserts or merges one pattern. Coordinates are always recomputed;
// client-supplied coordinates are never trusted. Storing an id twice
// merges into the existing record, so identical input is idempotent.
func (ix *Index) Store(mem *pattern.Memory) error {
	if err := mem.Validate(); err != nil {
		return err
	}
	entry := mem.Clone()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = ix.now()
	}
	entry.Coordinates = ix.mapper.Map(entry)

	ix.mu.Lock()
	defer ix.mu.Unlock()

	if existing, ok := ix.patterns[entry.ID]; ok {
		existing.MergeFrom(entry)
		existing.Coordinates = ix.mapper.Map(existing)
		storesTotal.WithLabelValues("merge").Inc()
		return nil
	}
	if ix.maxMemories > 0 && len(ix.patterns) >= ix.maxMemories {
		storesTotal.WithLabelValues("rejected").Inc()
		return fmt.Errorf("%w: store full at %d patterns", ErrCapacityExceeded, ix.maxMemories)
	}
	ix.patterns[entry.ID] = entry
	storesTotal.WithLabelValues("insert").Inc()
	patternsGauge.Set(float64(len(ix.patterns)))
	return nil
}

// BulkStore inserts a batch all-or-nothing: every record is validated and
// the capacity check runs against the whole batch before anything is
// committed. Coordinate mapping is fanned out per-record for large
// batches; the commit itself is a sequential pass in input order.
func (ix *Index) BulkStore(mems []*pattern.Memory) error {
	if len(mems) == 0 {
		return nil
	}
	for i, m := range mems {
		if err := m.Validate(); err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
	}

	entries := make([]*pattern.Memory, len(mems))
	now := ix.now()
	prepare := func(i int) {
		e := mems[i].Clone()
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now
		}
		e.Coordinates = ix.mapper.Map(e)
		entries[i] = e
	}
	if len(mems) >= bulkParallelThreshold {
		var wg sync.WaitGroup
		for i := range mems {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				prepare(i)
			}(i)
		}
		wg.Wait()
	} else {
		for i := range mems {
			prepare(i)
		}
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	newIDs := 0
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if _, dup := seen[e.ID]; dup {
			continue
		}
		seen[e.ID] = struct{}{}
		if _, ok := ix.patterns[e.ID]; !ok {
			newIDs++
		}
	}
	if ix.maxMemories > 0 && len(ix.patterns)+newIDs > ix.maxMemories {
		storesTotal.WithLabelValues("rejected").Inc()
		return fmt.Errorf("%w: batch of %d new patterns would exceed cap %d (have %d)",
			ErrCapacityExceeded, newIDs, ix.maxMemories, len(ix.patterns))
	}

	for _, e := range entries {
		if existing, ok := ix.patterns[e.ID]; ok {
			existing.MergeFrom(e)
			existing.Coordinates = ix.mapper.Map(existing)
			continue
		}
		ix.patterns[e.ID] = e
	}
	storesTotal.WithLabelValues("bulk").Add(float64(len(entries)))
	patternsGauge.Set(float64(len(ix.patterns)))
	ix.logger.Debug("bulk store committed",
		zap.Int("records", len(entries)),
		zap.Int("new", newIDs),
		zap.Int("total", len(ix.patterns)))
	return nil
}

// Remove deletes a pattern by id, reporting whether it existed.
func (ix *Index) Remove(id string) bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if _, ok := ix.patterns[id]; !ok {
		return false
	}
	delete(ix.patterns, id)
	patternsGauge.Set(float64(len(ix.patterns)))
	return true
}

// Clear removes every pattern.
func (ix *Index) Clear() {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.patterns = make(map[string]*pattern.Memory)
	patternsGauge.Set(0)
}

// Get looks up one pattern by id, recording the access. Unknown ids
// return ok=false, never an error.
func (ix *Index) Get(id string) (*pattern.Memory, bool) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	m, ok := ix.patterns[id]
	if !ok {
		return nil, false
	}
	m.Touch(ix.now())
	return m.Clone(), true
}

// Touch records an access on each of the given ids. Unknown ids are
// ignored.
func (ix *Index) Touch(ids []string) {
	if len(ids) == 0 {
		return
	}
	now := ix.now()
	ix.mu.Lock()
	defer ix.mu.Unlock()
	for _, id := range ids {
		if m, ok := ix.patterns[id]; ok {
			m.Touch(now)
		}
	}
}

// SetMaxMemories re-caps the store at runtime. Existing patterns above a
// lowered cap stay; the cap only gates new inserts.
func (ix *Index) SetMaxMemories(n int) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.maxMemories = n
}

// Len returns the number of stored patterns.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.patterns)
}

// Snapshot returns clones of every stored pattern, sorted by id for
// deterministic iteration. Field and discovery engines work exclusively
// on snapshots and never mutate stored records.
func (ix *Index) Snapshot() []*pattern.Memory {
	ix.mu.RLock()
	out := make([]*pattern.Memory, 0, len(ix.patterns))
	for _, m := range ix.patterns {
		out = append(out, m.Clone())
	}
	ix.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Query gathers every pattern within opts.Radius of seed, applies the
// logic pipeline in order, ranks by effective score with deterministic
// tie-breaks (strength, then confidence, then id), and truncates to
// opts.MaxResults.
func (ix *Index) Query(seed []float64, ops []pattern.LogicOperation, opts QueryOptions) ([]Scored, error) {
	start := time.Now()
	defer func() { queryDuration.WithLabelValues("query").Observe(time.Since(start).Seconds()) }()

	for _, op := range ops {
		if err := op.Validate(); err != nil {
			return nil, err
		}
	}
	opts = opts.withDefaults()

	candidates := ix.gather(seed, opts.Radius, opts.QualityThreshold)
	candidates, err := applyPipeline(candidates, ops)
	if err != nil {
		return nil, err
	}
	rank(candidates)
	if len(candidates) > opts.MaxResults {
		candidates = candidates[:opts.MaxResults]
	}
	queriesTotal.WithLabelValues("query").Inc()
	return candidates, nil
}

// QueryByCategory returns patterns of one category ranked by strength.
func (ix *Index) QueryByCategory(c pattern.Category, opts QueryOptions) []Scored {
	opts = opts.withDefaults()
	ix.mu.RLock()
	out := make([]Scored, 0)
	for _, m := range ix.patterns {
		if m.Harmonics.Category != c {
			continue
		}
		if !passesQuality(m, opts.QualityThreshold) {
			continue
		}
		out = append(out, Scored{Memory: m.Clone(), Score: m.Harmonics.Strength})
	}
	ix.mu.RUnlock()
	rank(out)
	if len(out) > opts.MaxResults {
		out = out[:opts.MaxResults]
	}
	queriesTotal.WithLabelValues("category").Inc()
	return out
}

// QueryByStrength returns patterns with strength in [min,max], ranked.
func (ix *Index) QueryByStrength(min, max float64, opts QueryOptions) []Scored {
	opts = opts.withDefaults()
	ix.mu.RLock()
	out := make([]Scored, 0)
	for _, m := range ix.patterns {
		if m.Harmonics.Strength < min || m.Harmonics.Strength > max {
			continue
		}
		out = append(out, Scored{Memory: m.Clone(), Score: m.Harmonics.Strength})
	}
	ix.mu.RUnlock()
	rank(out)
	if len(out) > opts.MaxResults {
		out = out[:opts.MaxResults]
	}
	queriesTotal.WithLabelValues("strength").Inc()
	return out
}

// FindSimilar returns the patterns within opts.Radius of the named
// pattern, nearest first, excluding the pattern itself. An unknown id
// yields an empty result, never an error.
func (ix *Index) FindSimilar(id string, opts QueryOptions) []Scored {
	opts = opts.withDefaults()

	ix.mu.RLock()
	anchor, ok := ix.patterns[id]
	if !ok {
		ix.mu.RUnlock()
		return []Scored{}
	}
	seed := append([]float64(nil), anchor.Coordinates...)
	ix.mu.RUnlock()

	out := ix.gather(seed, opts.Radius, opts.QualityThreshold)
	filtered := out[:0]
	for _, s := range out {
		if s.Memory.ID != id {
			filtered = append(filtered, s)
		}
	}
	out = filtered
	sort.Slice(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		return out[i].Memory.ID < out[j].Memory.ID
	})
	if len(out) > opts.MaxResults {
		out = out[:opts.MaxResults]
	}
	queriesTotal.WithLabelValues("similar").Inc()
	return out
}

// gather collects all patterns within radius of seed that pass the
// quality threshold, scored by proximity-weighted quality.
func (ix *Index) gather(seed []float64, radius, quality float64) []Scored {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	out := make([]Scored, 0)
	for _, m := range ix.patterns {
		d := coordinate.Distance(seed, m.Coordinates)
		if d > radius {
			continue
		}
		if !passesQuality(m, quality) {
			continue
		}
		out = append(out, Scored{
			Memory:   m.Clone(),
			Score:    effectiveScore(m, d, radius),
			Distance: d,
		})
	}
	return out
}

// effectiveScore blends seed proximity with the memory's quality scores.
func effectiveScore(m *pattern.Memory, dist, radius float64) float64 {
	proximity := 1 - dist/radius
	return 0.6*proximity + 0.25*m.Harmonics.Strength + 0.15*m.Harmonics.Confidence
}

// passesQuality admits strength >= threshold OR confidence >= threshold.
func passesQuality(m *pattern.Memory, threshold float64) bool {
	if threshold <= 0 {
		return true
	}
	return m.Harmonics.Strength >= threshold || m.Harmonics.Confidence >= threshold
}

// rank sorts descending by score with strength, confidence, id tie-breaks
// so identical inputs always produce identical orderings.
func rank(items []Scored) {
	sort.Slice(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Memory.Harmonics.Strength != b.Memory.Harmonics.Strength {
			return a.Memory.Harmonics.Strength > b.Memory.Harmonics.Strength
		}
		if a.Memory.Harmonics.Confidence != b.Memory.Harmonics.Confidence {
			return a.Memory.Harmonics.Confidence > b.Memory.Harmonics.Confidence
		}
		return a.Memory.ID < b.Memory.ID
	})
}
