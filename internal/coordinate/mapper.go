// Package coordinate derives the fixed-dimensional point a memory
// occupies in the retrieval space.
//
// The mapping is deterministic given a memory's harmonic properties and
// creation time, modulo a bounded jitter drawn from an injected random
// source. Axis 0 is the category band, axis 1 normalized complexity,
// axis 2 linear recency decay. Distance is Euclidean.
package coordinate

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/fyrsmithlabs/fieldmem/internal/pattern"
)

// Dimensions is the size of the coordinate space.
const Dimensions = 3

const (
	// DefaultRecencyHorizon is the window over which the recency axis
	// decays linearly from 1 to 0.
	DefaultRecencyHorizon = 30 * 24 * time.Hour

	// DefaultJitter is the symmetric per-axis jitter amplitude added to
	// avoid coincident points. It never crosses a category band boundary.
	DefaultJitter = 0.01
)

// Mapper maps memories and query seeds into the coordinate space.
// The zero value is not usable; construct with NewMapper.
type Mapper struct {
	horizon time.Duration
	jitter  float64
	now     func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

// Option configures a Mapper.
type Option func(*Mapper)

// WithRecencyHorizon sets the recency decay window.
func WithRecencyHorizon(d time.Duration) Option {
	return func(m *Mapper) {
		if d > 0 {
			m.horizon = d
		}
	}
}

// WithJitter sets the jitter amplitude. Amplitudes above 0.01 are clamped;
// a larger jitter could escape a category band.
func WithJitter(amplitude float64) Option {
	return func(m *Mapper) {
		if amplitude < 0 {
			amplitude = 0
		}
		if amplitude > DefaultJitter {
			amplitude = DefaultJitter
		}
		m.jitter = amplitude
	}
}

// WithRand injects the random source used for jitter. Tests pass a seeded
// source to make mapping fully deterministic.
func WithRand(rng *rand.Rand) Option {
	return func(m *Mapper) {
		if rng != nil {
			m.rng = rng
		}
	}
}

// WithClock injects the time source used for recency.
func WithClock(now func() time.Time) Option {
	return func(m *Mapper) {
		if now != nil {
			m.now = now
		}
	}
}

// NewMapper creates a mapper with the reference defaults.
func NewMapper(opts ...Option) *Mapper {
	m := &Mapper{
		horizon: DefaultRecencyHorizon,
		jitter:  DefaultJitter,
		now:     time.Now,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Band returns the [lo, hi) sub-interval of axis 0 owned by a category.
// Unrecognized categories share the neutral center.
func Band(c pattern.Category) (lo, hi float64) {
	i, ok := c.BandIndex()
	if !ok {
		center := 0.5
		return center, center
	}
	width := 1.0 / float64(pattern.CategoryCount())
	return float64(i) * width, float64(i+1) * width
}

// BandCenter returns the axis-0 center for a category.
func BandCenter(c pattern.Category) float64 {
	lo, hi := Band(c)
	return (lo + hi) / 2
}

// Map derives the coordinates for a memory. The result has exactly
// Dimensions components, each in [0,1].
func (m *Mapper) Map(mem *pattern.Memory) []float64 {
	coords := make([]float64, Dimensions)
	lo, hi := Band(mem.Harmonics.Category)
	coords[0] = m.jittered(BandCenter(mem.Harmonics.Category), lo, hi)
	coords[1] = m.jittered(clamp01(mem.Harmonics.Complexity/pattern.MaxComplexity), 0, 1)
	coords[2] = m.jittered(m.recency(mem.CreatedAt), 0, 1)
	return coords
}

// Seed resolves a query seed coordinate. Precedence: an explicit partial
// harmonic signature, then free-form text run through the category
// heuristics, then the neutral center. Seeds are never jittered; two
// identical queries must start from the same point.
func (m *Mapper) Seed(sig *pattern.HarmonicSignature, text string) []float64 {
	coords := []float64{0.5, 0.5, 1.0} // neutral category, mid complexity, "now"

	category := pattern.CategoryNeutral
	if sig != nil && sig.Category != "" {
		category = sig.Category
		if !category.Recognized() {
			category = pattern.CategoryFromText(string(sig.Category))
		}
	} else if text != "" {
		category = pattern.CategoryFromText(text)
	}
	coords[0] = BandCenter(category)

	if sig != nil && sig.Complexity != nil {
		coords[1] = clamp01(*sig.Complexity / pattern.MaxComplexity)
	}
	return coords
}

// recency decays linearly from 1 (created now) to 0 at the horizon,
// clamped at 0 for anything older.
func (m *Mapper) recency(createdAt time.Time) float64 {
	if createdAt.IsZero() {
		return 0
	}
	age := m.now().Sub(createdAt)
	if age <= 0 {
		return 1
	}
	if age >= m.horizon {
		return 0
	}
	return 1 - float64(age)/float64(m.horizon)
}

// jittered adds symmetric jitter to v, clamped into [lo,hi] so the value
// never leaves its band, then into [0,1].
func (m *Mapper) jittered(v, lo, hi float64) float64 {
	if m.jitter > 0 && hi > lo {
		m.mu.Lock()
		v += (m.rng.Float64()*2 - 1) * m.jitter
		m.mu.Unlock()
		if v < lo {
			v = lo
		}
		if v > hi {
			v = hi
		}
	}
	return clamp01(v)
}

// Distance is the Euclidean distance between two coordinates. Vectors of
// unequal length compare over the shorter prefix; stored coordinates are
// always Dimensions long so this only matters for malformed input.
func Distance(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
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
