package engine

import (
	"sort"
	"sync"
	"time"

	"github.com/fyrsmithlabs/fieldmem/internal/pattern"
)

const (
	// historySize bounds the query ring buffer.
	historySize = 64

	// ewmaAlpha weights new samples in the moving averages.
	ewmaAlpha = 0.2

	// activeCategoryTTL is how long a category stays "active" after its
	// last appearance in a result set.
	activeCategoryTTL = 10 * time.Minute

	// latencyBudget is the soft per-query latency target. Sustained
	// overshoot shrinks the field radius bias toward minRadiusBias.
	latencyBudget = 50 * time.Millisecond

	// minRadiusBias is the floor of the adaptive radius scale.
	minRadiusBias = 0.8
)

// QueryRecord is one completed query as seen by the tracker.
type QueryRecord struct {
	Type       pattern.QueryType
	Duration   time.Duration
	Results    int
	Insights   int
	Categories []pattern.Category
	At         time.Time
}

// ContextStats is a point-in-time view of recent query activity.
type ContextStats struct {
	RecentQueries       int                `json:"recent_queries" yaml:"recent_queries"`
	ActiveCategories    []pattern.Category `json:"active_categories" yaml:"active_categories"`
	AverageResponseTime time.Duration      `json:"average_response_time" yaml:"average_response_time"`
	HitRate             float64            `json:"hit_rate" yaml:"hit_rate"`
	EmergenceFrequency  float64            `json:"emergence_frequency" yaml:"emergence_frequency"`
}

// Tracker accumulates adaptation context across queries: a bounded
// history ring, the set of recently seen categories, and exponentially
// weighted response time, hit rate and emergence frequency. It only ever
// influences field sizing, never result membership.
type Tracker struct {
	mu  sync.Mutex
	now func() time.Time

	history [historySize]QueryRecord
	head    int
	size    int

	active map[pattern.Category]time.Time

	avgLatency float64 // seconds
	hitRate    float64
	emergence  float64
	samples    int
}

// NewTracker creates an empty tracker. A nil clock means time.Now.
func NewTracker(now func() time.Time) *Tracker {
	if now == nil {
		now = time.Now
	}
	return &Tracker{
		now:    now,
		active: make(map[pattern.Category]time.Time),
	}
}

// Record folds one completed query into the context.
func (t *Tracker) Record(rec QueryRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if rec.At.IsZero() {
		rec.At = t.now()
	}
	t.history[t.head] = rec
	t.head = (t.head + 1) % historySize
	if t.size < historySize {
		t.size++
	}

	for _, c := range rec.Categories {
		if c.Recognized() {
			t.active[c] = rec.At
		}
	}
	t.pruneLocked(rec.At)

	hit := 0.0
	if rec.Results > 0 {
		hit = 1
	}
	emerged := 0.0
	if rec.Insights > 0 {
		emerged = 1
	}
	latency := rec.Duration.Seconds()

	if t.samples == 0 {
		t.avgLatency = latency
		t.hitRate = hit
		t.emergence = emerged
	} else {
		t.avgLatency += ewmaAlpha * (latency - t.avgLatency)
		t.hitRate += ewmaAlpha * (hit - t.hitRate)
		t.emergence += ewmaAlpha * (emerged - t.emergence)
	}
	t.samples++
}

// RadiusBias returns the adaptive scale applied to the field radius:
// 1.0 while the average latency stays inside the budget, shrinking
// linearly to minRadiusBias at twice the budget.
func (t *Tracker) RadiusBias() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.samples == 0 {
		return 1
	}
	budget := latencyBudget.Seconds()
	if t.avgLatency <= budget {
		return 1
	}
	over := (t.avgLatency - budget) / budget
	if over > 1 {
		over = 1
	}
	return 1 - (1-minRadiusBias)*over
}

// Snapshot returns the current context stats. Active categories are
// sorted for deterministic output.
func (t *Tracker) Snapshot() ContextStats {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.pruneLocked(t.now())
	cats := make([]pattern.Category, 0, len(t.active))
	for c := range t.active {
		cats = append(cats, c)
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i] < cats[j] })

	return ContextStats{
		RecentQueries:       t.size,
		ActiveCategories:    cats,
		AverageResponseTime: time.Duration(t.avgLatency * float64(time.Second)),
		HitRate:             t.hitRate,
		EmergenceFrequency:  t.emergence,
	}
}

func (t *Tracker) pruneLocked(now time.Time) {
	for c, last := range t.active {
		if now.Sub(last) > activeCategoryTTL {
			delete(t.active, c)
		}
	}
}
