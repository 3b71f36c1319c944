package emergent

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/fieldmem/internal/coordinate"
	"github.com/fyrsmithlabs/fieldmem/internal/field"
	"github.com/fyrsmithlabs/fieldmem/internal/index"
	"github.com/fyrsmithlabs/fieldmem/internal/pattern"
)

var fixedNow = time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

// newTestEngine wires a real index and field engine with deterministic
// coordinates so strategy geometry is exact.
func newTestEngine(t *testing.T, mems ...*pattern.Memory) (*Engine, *index.Index) {
	t.Helper()
	mapper := coordinate.NewMapper(coordinate.WithClock(fixedClock), coordinate.WithJitter(0))
	ix, err := index.New(mapper, zap.NewNop(), index.WithClock(fixedClock))
	require.NoError(t, err)
	for _, m := range mems {
		require.NoError(t, ix.Store(m))
	}
	fe, err := field.NewEngine(ix, zap.NewNop())
	require.NoError(t, err)
	e, err := NewEngine(ix, fe, zap.NewNop(),
		WithClock(fixedClock),
		WithRand(rand.New(rand.NewSource(11))))
	require.NoError(t, err)
	return e, ix
}

func strategyMem(id string, c pattern.Category, strength, confidence, relevance float64, tags ...string) *pattern.Memory {
	return &pattern.Memory{
		ID:        id,
		CreatedAt: fixedNow,
		Content:   pattern.Content{Title: "pattern " + id, Tags: tags},
		Harmonics: pattern.HarmonicProperties{
			Category:   c,
			Strength:   strength,
			Confidence: confidence,
			Complexity: 5,
		},
		RelevanceScore: relevance,
	}
}

func TestParseStrategy(t *testing.T) {
	t.Parallel()

	for _, s := range Strategies() {
		got, err := ParseStrategy(string(s))
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
	got, err := ParseStrategy("  Dream ")
	require.NoError(t, err)
	assert.Equal(t, StrategyDream, got)

	_, err = ParseStrategy("visions")
	assert.ErrorIs(t, err, ErrUnknownStrategy)
}

func TestTriggerUnknownStrategy(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t)
	_, err := e.Trigger(Strategy("visions"))
	assert.ErrorIs(t, err, ErrUnknownStrategy)
}

func TestTriggerEmptyStore(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t)
	for _, s := range Strategies() {
		insights, err := e.Trigger(s)
		require.NoError(t, err, string(s))
		assert.Empty(t, insights, string(s))
	}
}

func TestDreamFindsCrossCategoryConnections(t *testing.T) {
	t.Parallel()

	// Authentication and authorization own adjacent bands and are
	// related, so constructive pairs can cross the category line.
	e, _ := newTestEngine(t,
		strategyMem("auth-1", pattern.CategoryAuthentication, 0.9, 0.9, 0.8, "session"),
		strategyMem("auth-2", pattern.CategoryAuthentication, 0.85, 0.9, 0.8, "session"),
		strategyMem("authz-1", pattern.CategoryAuthorization, 0.9, 0.85, 0.8, "session"),
	)

	insights, err := e.Trigger(StrategyDream)
	require.NoError(t, err)
	require.Len(t, insights, 1)

	in := insights[0]
	assert.Equal(t, pattern.InsightNovelConnection, in.Type)
	assert.Contains(t, in.ContributingMemories, "authz-1")
	assert.NotEmpty(t, in.Description)
	assert.Greater(t, in.NoveltyScore, 0.0)
}

func TestFlashbackReportsHighStrengthClusters(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t,
		strategyMem("c1", pattern.CategoryCaching, 0.9, 0.8, 0.8, "lru"),
		strategyMem("c2", pattern.CategoryCaching, 0.85, 0.8, 0.8, "lru"),
		strategyMem("c3", pattern.CategoryCaching, 0.95, 0.8, 0.8, "lru"),
		// Strong but isolated in another band: no cluster of three.
		strategyMem("lone", pattern.CategoryMessaging, 0.9, 0.8, 0.8),
	)

	insights, err := e.Trigger(StrategyFlashback)
	require.NoError(t, err)
	require.Len(t, insights, 1)

	in := insights[0]
	assert.Equal(t, pattern.InsightNovelConnection, in.Type)
	assert.ElementsMatch(t, []string{"c1", "c2", "c3"}, in.ContributingMemories)
	assert.Greater(t, in.ConfidenceLevel, 0.8)
}

func TestFlashbackNeedsThreeStrongPatterns(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t,
		strategyMem("c1", pattern.CategoryCaching, 0.9, 0.8, 0.8),
		strategyMem("c2", pattern.CategoryCaching, 0.85, 0.8, 0.8),
		strategyMem("weak", pattern.CategoryCaching, 0.4, 0.8, 0.8),
	)

	insights, err := e.Trigger(StrategyFlashback)
	require.NoError(t, err)
	assert.Empty(t, insights)
}

func TestDejavuSurfacesOverlookedPatterns(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t,
		// Weak scores but geometrically indistinguishable from a strong
		// neighbor: the overlooked pattern.
		strategyMem("overlooked", pattern.CategoryCaching, 0.3, 0.3, 0.1, "ttl"),
		strategyMem("strong", pattern.CategoryCaching, 0.95, 0.95, 0.5, "ttl"),
	)

	insights, err := e.Trigger(StrategyDejavu)
	require.NoError(t, err)
	require.Len(t, insights, 1)

	in := insights[0]
	assert.Equal(t, pattern.InsightUnexpectedRelevance, in.Type)
	assert.Contains(t, in.ContributingMemories, "overlooked")
	assert.Contains(t, in.ContributingMemories, "strong")
	assert.Less(t, in.ConfidenceLevel, 0.5, "unexpected relevance is low-confidence by definition")
}

func TestSynthesisBridgesCategories(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t,
		strategyMem("e1", pattern.CategoryErrorHandling, 0.9, 0.9, 0.8, "resilience", "retry"),
		strategyMem("v1", pattern.CategoryValidation, 0.9, 0.9, 0.8, "resilience", "schema"),
		strategyMem("l1", pattern.CategoryLogging, 0.9, 0.9, 0.8, "audit"),
	)

	insights, err := e.Trigger(StrategySynthesis)
	require.NoError(t, err)
	require.Len(t, insights, 1)

	in := insights[0]
	assert.Equal(t, pattern.InsightPatternSynthesis, in.Type)
	assert.Contains(t, in.Description, "resilience")
	assert.ElementsMatch(t, []string{"e1", "v1"}, in.ContributingMemories)
}

func TestSynthesisNeedsThreeCategories(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t,
		strategyMem("e1", pattern.CategoryErrorHandling, 0.9, 0.9, 0.8, "resilience"),
		strategyMem("v1", pattern.CategoryValidation, 0.9, 0.9, 0.8, "resilience"),
	)

	insights, err := e.Trigger(StrategySynthesis)
	require.NoError(t, err)
	assert.Empty(t, insights)
}

func TestInsightsNewestFirstAndRecord(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t)
	e.Record(pattern.Insight{ID: "old", Type: pattern.InsightNovelConnection, CreatedAt: fixedNow.Add(-time.Hour)})
	e.Record(pattern.Insight{ID: "new", Type: pattern.InsightNovelConnection, CreatedAt: fixedNow})

	got := e.Insights()
	require.Len(t, got, 2)
	assert.Equal(t, "new", got[0].ID)
	assert.Equal(t, "old", got[1].ID)
}

func TestInsightLogRetentionAndCap(t *testing.T) {
	t.Parallel()

	log := newInsightLog(2, time.Hour)
	log.append(pattern.Insight{ID: "a", CreatedAt: fixedNow.Add(-2 * time.Hour)}, fixedNow)
	log.append(pattern.Insight{ID: "b", CreatedAt: fixedNow}, fixedNow)
	log.append(pattern.Insight{ID: "c", CreatedAt: fixedNow}, fixedNow)
	log.append(pattern.Insight{ID: "d", CreatedAt: fixedNow}, fixedNow)

	got := log.all(fixedNow)
	require.Len(t, got, 2, "cap bounds the log")
	assert.Equal(t, "d", got[0].ID)
	assert.Equal(t, "c", got[1].ID)

	// Everything ages out past the retention window.
	got = log.all(fixedNow.Add(2 * time.Hour))
	assert.Empty(t, got)
}
