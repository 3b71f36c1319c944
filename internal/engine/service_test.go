package engine

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/fieldmem/internal/config"
	"github.com/fyrsmithlabs/fieldmem/internal/emergent"
	"github.com/fyrsmithlabs/fieldmem/internal/index"
	"github.com/fyrsmithlabs/fieldmem/internal/logging"
	"github.com/fyrsmithlabs/fieldmem/internal/pattern"
)

var fixedNow = time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func newTestService(t *testing.T, mutate func(*config.Config)) *Service {
	t.Helper()
	cfg := config.Default()
	if mutate != nil {
		mutate(cfg)
	}
	svc, err := New(cfg, logging.NewTestLogger().Logger,
		WithClock(fixedClock),
		WithRand(rand.New(rand.NewSource(5))))
	require.NoError(t, err)
	return svc
}

func testPattern(id string, c pattern.Category, strength, confidence float64, tags ...string) *pattern.Memory {
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
	}
}

func TestStoreGeneratesID(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, nil)
	m := testPattern("", pattern.CategoryCaching, 0.8, 0.8)
	id, err := svc.Store(context.Background(), m)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	got, ok := svc.Get(context.Background(), id)
	require.True(t, ok)
	assert.Equal(t, "pattern ", got.Content.Title)
}

func TestStoreNilMemory(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, nil)
	_, err := svc.Store(context.Background(), nil)
	assert.ErrorIs(t, err, pattern.ErrInvalidMemory)
}

func TestBulkStoreReturnsIDsInOrder(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, nil)
	ids, err := svc.BulkStore(context.Background(), []*pattern.Memory{
		testPattern("first", pattern.CategoryCaching, 0.8, 0.8),
		testPattern("", pattern.CategoryLogging, 0.7, 0.7),
	})
	require.NoError(t, err)
	require.Len(t, ids, 2)
	assert.Equal(t, "first", ids[0])
	assert.NotEmpty(t, ids[1])
	assert.Equal(t, 2, svc.Len())
}

func TestRemoveAndClear(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, nil)
	ctx := context.Background()
	_, err := svc.Store(ctx, testPattern("a", pattern.CategoryCaching, 0.8, 0.8))
	require.NoError(t, err)

	assert.True(t, svc.Remove(ctx, "a"))
	assert.False(t, svc.Remove(ctx, "a"))

	_, err = svc.Store(ctx, testPattern("b", pattern.CategoryCaching, 0.8, 0.8))
	require.NoError(t, err)
	svc.Clear(ctx)
	assert.Equal(t, 0, svc.Len())
}

func TestPrecisionQuerySkipsField(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, nil)
	ctx := context.Background()
	_, err := svc.Store(ctx, testPattern("a", pattern.CategoryCaching, 0.9, 0.9, "redis"))
	require.NoError(t, err)
	_, err = svc.Store(ctx, testPattern("b", pattern.CategoryCaching, 0.7, 0.7, "memcached"))
	require.NoError(t, err)

	res, err := svc.Query(ctx, pattern.MemoryQuery{
		Type:              pattern.QueryPrecision,
		Confidence:        0.9,
		HarmonicSignature: &pattern.HarmonicSignature{Category: pattern.CategoryCaching},
	})
	require.NoError(t, err)

	require.NotEmpty(t, res.Memories)
	assert.Equal(t, "a", res.Memories[0].Memory.ID)
	assert.Empty(t, res.InterferencePatterns, "precision never runs the field")
	assert.Empty(t, res.EmergentInsights, "precision suppresses insight generation")
	assert.Equal(t, 0.0, res.CoherenceLevel)
	assert.Equal(t, time.Duration(0), res.Metrics.SuperpositionTime)
	assert.Equal(t, 2, res.Metrics.MemoriesProcessed)
}

func TestDiscoveryQueryReportsInterference(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, nil)
	ctx := context.Background()
	// Two same-category patterns with identical tags sit near the neutral
	// center and interfere constructively.
	for _, id := range []string{"cfg-1", "cfg-2"} {
		_, err := svc.Store(ctx, testPattern(id, pattern.CategoryConfiguration, 0.9, 0.9, "env"))
		require.NoError(t, err)
	}

	res, err := svc.Query(ctx, pattern.MemoryQuery{
		Type:        pattern.QueryDiscovery,
		Exploration: 0.8,
	})
	require.NoError(t, err)

	require.Len(t, res.Memories, 2)
	require.NotEmpty(t, res.InterferencePatterns)
	assert.Equal(t, pattern.InterferenceConstructive, res.InterferencePatterns[0].Mechanism)
	assert.InDelta(t, 1.0, res.CoherenceLevel, 1e-9)
	assert.Greater(t, res.FieldConfig.Radius, config.Default().Field.DefaultRadius)
}

func TestDiscoveryInterferenceWithoutTags(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, nil)
	ctx := context.Background()
	// Same category, no tags at all: alignment comes from complexity
	// similarity, so the close pair still interferes constructively.
	for _, id := range []string{"c-1", "c-2"} {
		_, err := svc.Store(ctx, testPattern(id, pattern.CategoryCaching, 0.9, 0.9))
		require.NoError(t, err)
	}

	res, err := svc.Query(ctx, pattern.MemoryQuery{
		Type:        pattern.QueryDiscovery,
		Exploration: 0.8,
	})
	require.NoError(t, err)

	require.Len(t, res.Memories, 2)
	require.NotEmpty(t, res.InterferencePatterns)
	assert.Equal(t, pattern.InterferenceConstructive, res.InterferencePatterns[0].Mechanism)
}

func TestDiscoveryQueryEmitsInsight(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, nil)
	ctx := context.Background()
	// Two cross-category constructive pairs around the authentication
	// band produce an inline novel-connection insight.
	for _, m := range []*pattern.Memory{
		testPattern("auth-1", pattern.CategoryAuthentication, 0.9, 0.9, "session"),
		testPattern("auth-2", pattern.CategoryAuthentication, 0.85, 0.9, "session"),
		testPattern("authz-1", pattern.CategoryAuthorization, 0.9, 0.85, "session"),
	} {
		_, err := svc.Store(ctx, m)
		require.NoError(t, err)
	}

	res, err := svc.Query(ctx, pattern.MemoryQuery{
		Type:              pattern.QueryDiscovery,
		Exploration:       0.5,
		HarmonicSignature: &pattern.HarmonicSignature{Category: pattern.CategoryAuthentication},
	})
	require.NoError(t, err)

	require.Len(t, res.EmergentInsights, 1)
	assert.Equal(t, pattern.InsightNovelConnection, res.EmergentInsights[0].Type)
	// Inline insights land in the shared log too.
	assert.NotEmpty(t, svc.Insights())
}

func TestCreativeLoosensTheField(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, nil)
	ctx := context.Background()

	discovery, err := svc.Query(ctx, pattern.MemoryQuery{Type: pattern.QueryDiscovery, Exploration: 0.5})
	require.NoError(t, err)
	creative, err := svc.Query(ctx, pattern.MemoryQuery{Type: pattern.QueryCreative, Exploration: 0.5})
	require.NoError(t, err)

	assert.Greater(t, creative.FieldConfig.Radius, discovery.FieldConfig.Radius)
	assert.Less(t, creative.FieldConfig.InterferenceThreshold, discovery.FieldConfig.InterferenceThreshold)
}

func TestExplorationWidensAndLowersFloor(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, nil)
	ctx := context.Background()

	narrow, err := svc.Query(ctx, pattern.MemoryQuery{Type: pattern.QueryDiscovery, Exploration: 0.1})
	require.NoError(t, err)
	wide, err := svc.Query(ctx, pattern.MemoryQuery{Type: pattern.QueryDiscovery, Exploration: 0.9})
	require.NoError(t, err)

	assert.Greater(t, wide.FieldConfig.Radius, narrow.FieldConfig.Radius)
	assert.Less(t, wide.FieldConfig.MinProbability, narrow.FieldConfig.MinProbability)
}

func TestHybridDeduplicatesAcrossPaths(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, nil)
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		_, err := svc.Store(ctx, testPattern(id, pattern.CategoryCaching, 0.8, 0.8, "redis"))
		require.NoError(t, err)
	}

	res, err := svc.Query(ctx, pattern.MemoryQuery{
		Type:              pattern.QueryHybrid,
		Confidence:        0.5,
		Exploration:       0.5,
		HarmonicSignature: &pattern.HarmonicSignature{Category: pattern.CategoryCaching},
	})
	require.NoError(t, err)

	require.NotEmpty(t, res.Memories)
	seen := make(map[string]bool)
	for _, sm := range res.Memories {
		assert.False(t, seen[sm.Memory.ID], "id %s appeared twice", sm.Memory.ID)
		seen[sm.Memory.ID] = true
		assert.Greater(t, sm.Score, 0.0)
	}
}

func TestQueryAppliesLogicOperations(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, nil)
	ctx := context.Background()
	_, err := svc.Store(ctx, testPattern("keep", pattern.CategoryCaching, 0.9, 0.9, "redis"))
	require.NoError(t, err)
	_, err = svc.Store(ctx, testPattern("drop", pattern.CategoryCaching, 0.9, 0.9, "deprecated"))
	require.NoError(t, err)

	res, err := svc.Query(ctx, pattern.MemoryQuery{
		Type:              pattern.QueryPrecision,
		Confidence:        1,
		HarmonicSignature: &pattern.HarmonicSignature{Category: pattern.CategoryCaching},
	}, pattern.LogicOperation{Type: pattern.OpNot, Params: []string{"deprecated"}})
	require.NoError(t, err)

	require.Len(t, res.Memories, 1)
	assert.Equal(t, "keep", res.Memories[0].Memory.ID)
}

func TestQueryFailsFastOnInvalidInput(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.Query(ctx, pattern.MemoryQuery{Type: "psychic"})
	assert.ErrorIs(t, err, pattern.ErrInvalidQuery)

	_, err = svc.Query(ctx, pattern.DefaultQuery("x"),
		pattern.LogicOperation{Type: pattern.OpThreshold, Params: []string{"title"}})
	assert.ErrorIs(t, err, pattern.ErrInvalidQuery)
}

func TestQueryMaxResults(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, nil)
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c", "d"} {
		_, err := svc.Store(ctx, testPattern(id, pattern.CategoryCaching, 0.8, 0.8))
		require.NoError(t, err)
	}

	res, err := svc.Query(ctx, pattern.MemoryQuery{
		Type:              pattern.QueryHybrid,
		Confidence:        0.5,
		Exploration:       0.5,
		MaxResults:        2,
		HarmonicSignature: &pattern.HarmonicSignature{Category: pattern.CategoryCaching},
	})
	require.NoError(t, err)
	assert.Len(t, res.Memories, 2)
}

func TestSearchUsesDiscoveryDefaults(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, nil)
	ctx := context.Background()
	_, err := svc.Store(ctx, testPattern("a", pattern.CategoryCaching, 0.9, 0.9, "redis"))
	require.NoError(t, err)

	res, err := svc.Search(ctx, "cache eviction policy")
	require.NoError(t, err)
	require.NotEmpty(t, res.Memories)
	assert.Equal(t, "a", res.Memories[0].Memory.ID)
}

func TestFindSimilar(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, nil)
	ctx := context.Background()
	for _, id := range []string{"anchor", "twin"} {
		_, err := svc.Store(ctx, testPattern(id, pattern.CategoryCaching, 0.8, 0.8))
		require.NoError(t, err)
	}
	_, err := svc.Store(ctx, testPattern("far", pattern.CategoryAPIDesign, 0.8, 0.8))
	require.NoError(t, err)

	got := svc.FindSimilar(ctx, "anchor", SimilarOptions{})
	require.Len(t, got, 1)
	assert.Equal(t, "twin", got[0].Memory.ID)

	// A strict similarity floor drops even close neighbors.
	got = svc.FindSimilar(ctx, "anchor", SimilarOptions{MinSimilarity: 0.999})
	assert.Empty(t, got)

	assert.Empty(t, svc.FindSimilar(ctx, "missing", SimilarOptions{}))
}

func TestQueryByCategoryAndStrength(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, nil)
	ctx := context.Background()
	_, err := svc.Store(ctx, testPattern("a", pattern.CategoryCaching, 0.9, 0.8))
	require.NoError(t, err)
	_, err = svc.Store(ctx, testPattern("b", pattern.CategoryLogging, 0.4, 0.8))
	require.NoError(t, err)

	byCat := svc.QueryByCategory(ctx, pattern.CategoryCaching, 0)
	require.Len(t, byCat, 1)
	assert.Equal(t, "a", byCat[0].Memory.ID)

	byStrength := svc.QueryByStrength(ctx, 0.8, 1, 0)
	require.Len(t, byStrength, 1)
	assert.Equal(t, "a", byStrength[0].Memory.ID)
}

func TestTriggerEmergentDiscovery(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, nil)
	ctx := context.Background()
	for _, id := range []string{"c1", "c2", "c3"} {
		_, err := svc.Store(ctx, testPattern(id, pattern.CategoryCaching, 0.9, 0.8, "lru"))
		require.NoError(t, err)
	}

	insights, err := svc.TriggerEmergentDiscovery(ctx, "flashback")
	require.NoError(t, err)
	require.Len(t, insights, 1)
	assert.Equal(t, pattern.InsightNovelConnection, insights[0].Type)

	_, err = svc.TriggerEmergentDiscovery(ctx, "visions")
	assert.ErrorIs(t, err, emergent.ErrUnknownStrategy)
}

func TestGetStats(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, nil)
	ctx := context.Background()
	_, err := svc.Store(ctx, testPattern("a", pattern.CategoryCaching, 0.8, 0.8))
	require.NoError(t, err)
	_, err = svc.Search(ctx, "cache")
	require.NoError(t, err)

	st := svc.GetStats(ctx)
	assert.Equal(t, 1, st.Index.TotalPatterns)
	assert.Equal(t, 1, st.Context.RecentQueries)
	assert.False(t, st.SchedulerRunning)
}

func TestUpdateConfig(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, nil)
	ctx := context.Background()

	radius := 0.5
	next, err := svc.UpdateConfig(ctx, config.Update{FieldDefaultRadius: &radius})
	require.NoError(t, err)
	assert.Equal(t, 0.5, next.Field.DefaultRadius)
	assert.Equal(t, 0.5, svc.Config().Field.DefaultRadius)

	bad := -1.0
	_, err = svc.UpdateConfig(ctx, config.Update{FieldDefaultRadius: &bad})
	require.Error(t, err)
	assert.Equal(t, 0.5, svc.Config().Field.DefaultRadius, "invalid updates leave config untouched")
}

func TestUpdateConfigPropagatesCapacity(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, nil)
	ctx := context.Background()
	_, err := svc.Store(ctx, testPattern("a", pattern.CategoryCaching, 0.8, 0.8))
	require.NoError(t, err)

	one := 1
	_, err = svc.UpdateConfig(ctx, config.Update{MaxMemories: &one})
	require.NoError(t, err)

	_, err = svc.Store(ctx, testPattern("b", pattern.CategoryCaching, 0.8, 0.8))
	assert.ErrorIs(t, err, index.ErrCapacityExceeded)
}

func TestSchedulerLifecycle(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, nil)
	ctx := context.Background()

	require.NoError(t, svc.StartScheduler(ctx))
	assert.Error(t, svc.StartScheduler(ctx), "double start must fail")
	require.NoError(t, svc.StopScheduler(ctx))
	assert.NoError(t, svc.StopScheduler(ctx), "double stop is a no-op")
}

func TestSchedulerDisabledByConfig(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, func(c *config.Config) { c.Emergent.Enabled = false })
	assert.Error(t, svc.StartScheduler(context.Background()))
}

func TestFieldDisabledByConfig(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, func(c *config.Config) { c.Field.Enabled = false })
	ctx := context.Background()
	_, err := svc.Store(ctx, testPattern("a", pattern.CategoryCaching, 0.9, 0.9))
	require.NoError(t, err)

	res, err := svc.Query(ctx, pattern.MemoryQuery{
		Type:              pattern.QueryDiscovery,
		Confidence:        0.5,
		HarmonicSignature: &pattern.HarmonicSignature{Category: pattern.CategoryCaching},
	})
	require.NoError(t, err)
	// The index path still answers at full weight.
	assert.NotEmpty(t, res.Memories)
	assert.Empty(t, res.InterferencePatterns)

	// Even a zero-confidence query falls back to the index when the
	// field cannot run.
	res, err = svc.Query(ctx, pattern.MemoryQuery{
		Type:              pattern.QueryDiscovery,
		Confidence:        0,
		HarmonicSignature: &pattern.HarmonicSignature{Category: pattern.CategoryCaching},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Memories)
}
