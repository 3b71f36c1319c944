// Package field implements the probability-weighted, radius-bounded
// retrieval path: amplitude assignment, collapse pruning, pairwise
// interference resolution and the coherence metric.
//
// "Interference" and "phase alignment" are retrieval heuristics, not
// physics: alignment is a weighted blend of complexity similarity and tag
// overlap between nearby, category-related candidates.
package field

import (
	"errors"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/fieldmem/internal/coordinate"
	"github.com/fyrsmithlabs/fieldmem/internal/pattern"
)

var errNilSource = errors.New("field source cannot be nil")

const (
	// DefaultCoherenceWindow is the maximum pair distance at which two
	// survivors can interfere.
	DefaultCoherenceWindow = 0.12

	// DefaultDestructiveFloor is the alignment below which a pair with
	// disjoint tags interferes destructively.
	DefaultDestructiveFloor = 0.2

	// DefaultMaxSuperposition caps the survivors entering the pairwise
	// pass; the pass is quadratic in the survivor count.
	DefaultMaxSuperposition = 64

	// amplifyGain and suppressGain scale how much an interference event
	// moves a candidate's relevance.
	amplifyGain  = 0.25
	suppressGain = 0.3

	// parallelThreshold is the candidate count above which amplitude
	// scoring fans out across goroutines.
	parallelThreshold = 64
)

// Source supplies the read-only pattern snapshot a field run operates on.
// *index.Index satisfies it.
type Source interface {
	Snapshot() []*pattern.Memory
}

// Candidate is one field survivor with its probability amplitude and
// interference-adjusted relevance.
type Candidate struct {
	Memory    *pattern.Memory
	Amplitude float64
	Relevance float64
	Distance  float64
}

// Result is the outcome of one field run.
type Result struct {
	Memories             []Candidate
	InterferencePatterns []pattern.InterferencePattern
	CoherenceLevel       float64
	Config               pattern.FieldConfiguration
}

// Engine executes field queries against an index snapshot. It holds no
// mutable state of its own and never writes back to the store.
type Engine struct {
	source           Source
	coherenceWindow  float64
	destructiveFloor float64
	logger           *zap.Logger

	mu               sync.RWMutex
	maxSuperposition int
}

// Option configures an Engine.
type Option func(*Engine)

// WithCoherenceWindow overrides the pair-distance window.
func WithCoherenceWindow(w float64) Option {
	return func(e *Engine) {
		if w > 0 {
			e.coherenceWindow = w
		}
	}
}

// WithMaxSuperposition caps the survivors entering the pairwise pass.
func WithMaxSuperposition(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxSuperposition = n
		}
	}
}

// NewEngine creates a field engine over the given source.
func NewEngine(source Source, logger *zap.Logger, opts ...Option) (*Engine, error) {
	if source == nil {
		return nil, errNilSource
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		source:           source,
		coherenceWindow:  DefaultCoherenceWindow,
		destructiveFloor: DefaultDestructiveFloor,
		maxSuperposition: DefaultMaxSuperposition,
		logger:           logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// SetMaxSuperposition re-caps the pairwise pass at runtime.
func (e *Engine) SetMaxSuperposition(n int) {
	if n <= 0 {
		return
	}
	e.mu.Lock()
	e.maxSuperposition = n
	e.mu.Unlock()
}

func (e *Engine) superpositionCap() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.maxSuperposition
}

// Run executes one field query. Amplitude scoring is fanned out
// per-record for large candidate sets; pruning, the pairwise pass and the
// final ranking are deterministic sequential reductions, so scheduling
// order never changes the result.
func (e *Engine) Run(seed []float64, cfg pattern.FieldConfiguration) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	snapshot := e.source.Snapshot()
	candidates := e.score(snapshot, seed, cfg)

	// Collapse: drop amplitudes below the probability floor.
	survivors := candidates[:0]
	for _, c := range candidates {
		if c.Amplitude >= cfg.MinProbability {
			survivors = append(survivors, c)
		}
	}

	// Deterministic order before capping: amplitude desc, id asc.
	sort.Slice(survivors, func(i, j int) bool {
		if survivors[i].Amplitude != survivors[j].Amplitude {
			return survivors[i].Amplitude > survivors[j].Amplitude
		}
		return survivors[i].Memory.ID < survivors[j].Memory.ID
	})
	if cap := e.superpositionCap(); len(survivors) > cap {
		survivors = survivors[:cap]
	}

	interference, coherence := e.interfere(survivors, cfg)

	sort.Slice(survivors, func(i, j int) bool {
		if survivors[i].Relevance != survivors[j].Relevance {
			return survivors[i].Relevance > survivors[j].Relevance
		}
		if survivors[i].Amplitude != survivors[j].Amplitude {
			return survivors[i].Amplitude > survivors[j].Amplitude
		}
		return survivors[i].Memory.ID < survivors[j].Memory.ID
	})

	return &Result{
		Memories:             survivors,
		InterferencePatterns: interference,
		CoherenceLevel:       coherence,
		Config:               cfg,
	}, nil
}

// score assigns each in-radius pattern a probability amplitude: inversely
// related to seed distance, positively to strength x confidence.
func (e *Engine) score(snapshot []*pattern.Memory, seed []float64, cfg pattern.FieldConfiguration) []Candidate {
	out := make([]Candidate, len(snapshot))
	scoreOne := func(i int) {
		m := snapshot[i]
		d := coordinate.Distance(seed, m.Coordinates)
		if d > cfg.Radius {
			return
		}
		proximity := 1 - d/cfg.Radius
		amp := proximity * (0.3 + 0.7*m.Harmonics.Strength*m.Harmonics.Confidence)
		out[i] = Candidate{Memory: m, Amplitude: amp, Relevance: amp, Distance: d}
	}

	if len(snapshot) >= parallelThreshold {
		var wg sync.WaitGroup
		for i := range snapshot {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				scoreOne(i)
			}(i)
		}
		wg.Wait()
	} else {
		for i := range snapshot {
			scoreOne(i)
		}
	}

	kept := out[:0]
	for _, c := range out {
		if c.Memory != nil {
			kept = append(kept, c)
		}
	}
	return kept
}

// interfere runs the pairwise pass over survivors. Pairs inside the
// coherence window whose categories match or relate either amplify
// (alignment above the threshold) or suppress (alignment below the
// destructive floor with disjoint tags) the pair's relevance. Coherence
// is the mean alignment over all survivor pairs, 0 below two survivors.
func (e *Engine) interfere(survivors []Candidate, cfg pattern.FieldConfiguration) ([]pattern.InterferencePattern, float64) {
	patterns := make([]pattern.InterferencePattern, 0)
	if len(survivors) < 2 {
		return patterns, 0
	}

	var alignSum float64
	pairs := 0
	for i := 0; i < len(survivors); i++ {
		for j := i + 1; j < len(survivors); j++ {
			a, b := &survivors[i], &survivors[j]
			align := phaseAlignment(a.Memory, b.Memory)
			alignSum += align
			pairs++

			d := coordinate.Distance(a.Memory.Coordinates, b.Memory.Coordinates)
			if d > e.coherenceWindow {
				continue
			}
			if !pattern.RelatedCategories(a.Memory.Harmonics.Category, b.Memory.Harmonics.Category) {
				continue
			}

			switch {
			case align > cfg.InterferenceThreshold:
				patterns = append(patterns, pattern.InterferencePattern{
					InvolvedMemories: []string{a.Memory.ID, b.Memory.ID},
					Strength:         align,
					Mechanism:        pattern.InterferenceConstructive,
				})
				a.Relevance = clamp01(a.Relevance * (1 + amplifyGain*align))
				b.Relevance = clamp01(b.Relevance * (1 + amplifyGain*align))
			case align < e.destructiveFloor && pattern.TagJaccard(a.Memory, b.Memory) == 0:
				patterns = append(patterns, pattern.InterferencePattern{
					InvolvedMemories: []string{a.Memory.ID, b.Memory.ID},
					Strength:         e.destructiveFloor - align,
					Mechanism:        pattern.InterferenceDestructive,
				})
				a.Relevance *= 1 - suppressGain*(e.destructiveFloor-align)
				b.Relevance *= 1 - suppressGain*(e.destructiveFloor-align)
			}
		}
	}

	coherence := alignSum / float64(pairs)
	return patterns, clamp01(coherence)
}

// phaseAlignment blends complexity similarity with tag overlap. A pair
// where both sides carry no tags has no overlap evidence either way, so
// alignment falls back to complexity similarity alone.
func phaseAlignment(a, b *pattern.Memory) float64 {
	complexityDelta := a.Harmonics.Complexity - b.Harmonics.Complexity
	if complexityDelta < 0 {
		complexityDelta = -complexityDelta
	}
	complexitySim := 1 - complexityDelta/pattern.MaxComplexity
	if len(a.Content.Tags) == 0 && len(b.Content.Tags) == 0 {
		return clamp01(complexitySim)
	}
	return clamp01(0.5*complexitySim + 0.5*pattern.TagJaccard(a, b))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
