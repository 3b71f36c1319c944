// Package emergent implements the discovery strategies that synthesize
// insights from field statistics: dream, flashback, dejavu and synthesis.
// Strategies are read-only over pattern data; their output accumulates in
// a bounded, time-pruned insight log.
package emergent

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/fieldmem/internal/coordinate"
	"github.com/fyrsmithlabs/fieldmem/internal/field"
	"github.com/fyrsmithlabs/fieldmem/internal/pattern"
)

// ErrUnknownStrategy is returned for strategy names outside the four
// recognized ones.
var ErrUnknownStrategy = errors.New("unknown discovery strategy")

// Strategy names a discovery mode.
type Strategy string

const (
	// StrategyDream runs a wide-radius field query from a random seed
	// pattern and reports cross-category constructive interference.
	StrategyDream Strategy = "dream"
	// StrategyFlashback finds tight clusters of high-strength patterns
	// and reports each cluster as a cascade.
	StrategyFlashback Strategy = "flashback"
	// StrategyDejavu re-queries from low-relevance or low-confidence
	// patterns with higher exploration and surfaces unexpected matches.
	StrategyDejavu Strategy = "dejavu"
	// StrategySynthesis looks for field results spanning three or more
	// categories with cross-category tag overlap.
	StrategySynthesis Strategy = "synthesis"
)

// Strategies lists the recognized strategies in scheduler rotation order.
func Strategies() []Strategy {
	return []Strategy{StrategyDream, StrategyFlashback, StrategyDejavu, StrategySynthesis}
}

// ParseStrategy validates a strategy name.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case StrategyDream:
		return StrategyDream, nil
	case StrategyFlashback:
		return StrategyFlashback, nil
	case StrategyDejavu:
		return StrategyDejavu, nil
	case StrategySynthesis:
		return StrategySynthesis, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
	}
}

const (
	// DefaultInsightRetention is how long insights stay in the log.
	DefaultInsightRetention = 7 * 24 * time.Hour

	// DefaultInsightCap bounds the log regardless of age.
	DefaultInsightCap = 256

	// wideRadius is the discovery-mode field radius used by dream and
	// synthesis runs.
	wideRadius = 0.6

	// strongStrength is the flashback cluster admission threshold.
	strongStrength = 0.8

	// clusterWindow is the mutual-distance bound for flashback clusters.
	clusterWindow = field.DefaultCoherenceWindow

	// dejavuRelevanceFloor and dejavuConfidenceFloor select the weak
	// seeds dejavu re-queries from.
	dejavuRelevanceFloor  = 0.3
	dejavuConfidenceFloor = 0.4
)

// Source is the read-only store view the strategies need.
type Source interface {
	Snapshot() []*pattern.Memory
}

// Engine runs discovery strategies on demand or from the scheduler.
type Engine struct {
	source Source
	field  *field.Engine
	log    *insightLog
	logger *zap.Logger
	now    func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

// Option configures an Engine.
type Option func(*Engine)

// WithRand injects the random source used for dream seed selection.
func WithRand(rng *rand.Rand) Option {
	return func(e *Engine) {
		if rng != nil {
			e.rng = rng
		}
	}
}

// WithClock injects the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithRetention overrides how long insights are kept.
func WithRetention(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.log.retention = d
		}
	}
}

// NewEngine creates a discovery engine over the given source and field
// engine.
func NewEngine(source Source, fieldEngine *field.Engine, logger *zap.Logger, opts ...Option) (*Engine, error) {
	if source == nil {
		return nil, fmt.Errorf("source cannot be nil")
	}
	if fieldEngine == nil {
		return nil, fmt.Errorf("field engine cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		source: source,
		field:  fieldEngine,
		log:    newInsightLog(DefaultInsightCap, DefaultInsightRetention),
		logger: logger,
		now:    time.Now,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Trigger runs one strategy and returns the insights it produced.
// Finding nothing is not an error; the list is simply empty.
func (e *Engine) Trigger(strategy Strategy) ([]pattern.Insight, error) {
	var (
		insights []pattern.Insight
		err      error
	)
	switch strategy {
	case StrategyDream:
		insights, err = e.dream()
	case StrategyFlashback:
		insights, err = e.flashback()
	case StrategyDejavu:
		insights, err = e.dejavu()
	case StrategySynthesis:
		insights, err = e.synthesis()
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, strategy)
	}
	if err != nil {
		return nil, err
	}

	now := e.now()
	for _, in := range insights {
		e.log.append(in, now)
	}
	runsTotal.WithLabelValues(string(strategy)).Inc()
	insightsTotal.WithLabelValues(string(strategy)).Add(float64(len(insights)))
	if len(insights) > 0 {
		e.logger.Debug("discovery produced insights",
			zap.String("strategy", string(strategy)),
			zap.Int("insights", len(insights)))
	}
	return insights, nil
}

// Insights returns the retained insight log, newest first. Pruning is
// best-effort and happens on read and append.
func (e *Engine) Insights() []pattern.Insight {
	return e.log.all(e.now())
}

// Record appends an externally produced insight (the orchestrator emits
// them during discovery queries) to the shared log.
func (e *Engine) Record(in pattern.Insight) {
	e.log.append(in, e.now())
}

// dream picks a random seed pattern and runs a wide, permissive field
// query. Two or more constructive interference patterns crossing category
// boundaries make a novel connection.
func (e *Engine) dream() ([]pattern.Insight, error) {
	snapshot := e.source.Snapshot()
	if len(snapshot) == 0 {
		return nil, nil
	}

	e.mu.Lock()
	seedMem := snapshot[e.rng.Intn(len(snapshot))]
	e.mu.Unlock()

	res, err := e.field.Run(seedMem.Coordinates, pattern.FieldConfiguration{
		Radius:                wideRadius,
		MinProbability:        0.05,
		InterferenceThreshold: 0.5,
	})
	if err != nil {
		return nil, fmt.Errorf("dream field run: %w", err)
	}

	if in, ok := e.InsightFromInterference(res, seedMem.ID); ok {
		return []pattern.Insight{in}, nil
	}
	return nil, nil
}

// InsightFromInterference builds a novel-connection insight from a field
// result that contains at least two cross-category constructive patterns.
// The orchestrator reuses it for discovery-mode queries.
func (e *Engine) InsightFromInterference(res *field.Result, seedID string) (pattern.Insight, bool) {
	byID := make(map[string]*pattern.Memory, len(res.Memories))
	for _, c := range res.Memories {
		byID[c.Memory.ID] = c.Memory
	}

	crossCategory := make([]pattern.InterferencePattern, 0)
	involved := make(map[string]struct{})
	for _, ip := range res.InterferencePatterns {
		if ip.Mechanism != pattern.InterferenceConstructive || len(ip.InvolvedMemories) < 2 {
			continue
		}
		a, b := byID[ip.InvolvedMemories[0]], byID[ip.InvolvedMemories[1]]
		if a == nil || b == nil || a.Harmonics.Category == b.Harmonics.Category {
			continue
		}
		crossCategory = append(crossCategory, ip)
		for _, id := range ip.InvolvedMemories {
			involved[id] = struct{}{}
		}
	}
	if len(crossCategory) < 2 {
		return pattern.Insight{}, false
	}

	ids := make([]string, 0, len(involved)+1)
	if seedID != "" {
		ids = append(ids, seedID)
	}
	for id := range involved {
		if id != seedID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	return pattern.Insight{
		ID:                   uuid.New().String(),
		Type:                 pattern.InsightNovelConnection,
		Description:          fmt.Sprintf("%d cross-category constructive interferences converge around the same region", len(crossCategory)),
		ContributingMemories: ids,
		NoveltyScore:         clamp01(res.CoherenceLevel + 0.2),
		ConfidenceLevel:      clamp01(meanStrength(crossCategory)),
		SuggestedAction:      "review the involved patterns for an undocumented shared mechanism",
		CreatedAt:            e.now(),
	}, true
}

// flashback finds clusters of three or more high-strength patterns within
// the coherence window of each other and reports each as a cascade.
func (e *Engine) flashback() ([]pattern.Insight, error) {
	snapshot := e.source.Snapshot()
	strong := make([]*pattern.Memory, 0)
	for _, m := range snapshot {
		if m.Harmonics.Strength >= strongStrength {
			strong = append(strong, m)
		}
	}
	if len(strong) < 3 {
		return nil, nil
	}

	insights := make([]pattern.Insight, 0)
	assigned := make(map[string]bool, len(strong))
	for i, anchor := range strong {
		if assigned[anchor.ID] {
			continue
		}
		cluster := []*pattern.Memory{anchor}
		for j := i + 1; j < len(strong); j++ {
			cand := strong[j]
			if assigned[cand.ID] {
				continue
			}
			mutual := true
			for _, member := range cluster {
				if coordinate.Distance(member.Coordinates, cand.Coordinates) > clusterWindow {
					mutual = false
					break
				}
			}
			if mutual {
				cluster = append(cluster, cand)
			}
		}
		if len(cluster) < 3 {
			continue
		}

		ids := make([]string, len(cluster))
		var strengthSum float64
		for k, m := range cluster {
			ids[k] = m.ID
			strengthSum += m.Harmonics.Strength
			assigned[m.ID] = true
		}
		sort.Strings(ids)

		insights = append(insights, pattern.Insight{
			ID:                   uuid.New().String(),
			Type:                 pattern.InsightNovelConnection,
			Description:          fmt.Sprintf("resonance cascade: %d high-strength patterns occupy the same region", len(cluster)),
			ContributingMemories: ids,
			NoveltyScore:         0.6,
			ConfidenceLevel:      clamp01(strengthSum / float64(len(cluster))),
			SuggestedAction:      "consolidate the cluster into a single documented pattern",
			CreatedAt:            e.now(),
		})
	}
	return insights, nil
}

// dejavu re-queries from low-relevance or low-confidence patterns with a
// wider, more permissive field and surfaces the weak seeds that still
// match strongly. The resulting insights carry a confidence level below
// 0.5 by definition: low confidence is their signature.
func (e *Engine) dejavu() ([]pattern.Insight, error) {
	snapshot := e.source.Snapshot()
	insights := make([]pattern.Insight, 0)
	for _, seed := range snapshot {
		if seed.RelevanceScore >= dejavuRelevanceFloor && seed.Harmonics.Confidence >= dejavuConfidenceFloor {
			continue
		}
		res, err := e.field.Run(seed.Coordinates, pattern.FieldConfiguration{
			Radius:                wideRadius,
			MinProbability:        0.02,
			InterferenceThreshold: 0.6,
		})
		if err != nil {
			return nil, fmt.Errorf("dejavu field run: %w", err)
		}

		matched := make([]string, 0)
		for _, c := range res.Memories {
			if c.Memory.ID != seed.ID && c.Relevance >= 0.6 {
				matched = append(matched, c.Memory.ID)
			}
		}
		if len(matched) == 0 {
			continue
		}
		sort.Strings(matched)

		insights = append(insights, pattern.Insight{
			ID:                   uuid.New().String(),
			Type:                 pattern.InsightUnexpectedRelevance,
			Description:          fmt.Sprintf("overlooked pattern %q aligns strongly with %d others despite its low scores", seed.Content.Title, len(matched)),
			ContributingMemories: append([]string{seed.ID}, matched...),
			NoveltyScore:         0.7,
			ConfidenceLevel:      0.35, // below 0.5 by definition
			SuggestedAction:      "re-evaluate the seed pattern's relevance score",
			CreatedAt:            e.now(),
		})
	}
	return insights, nil
}

// synthesis runs a wide field from the neutral center and looks for
// survivors spanning three or more categories that share tags across
// category lines.
func (e *Engine) synthesis() ([]pattern.Insight, error) {
	seed := []float64{0.5, 0.5, 1.0}
	res, err := e.field.Run(seed, pattern.FieldConfiguration{
		Radius:                wideRadius,
		MinProbability:        0.05,
		InterferenceThreshold: 0.6,
	})
	if err != nil {
		return nil, fmt.Errorf("synthesis field run: %w", err)
	}

	tagCategories := make(map[string]map[pattern.Category]struct{})
	categories := make(map[pattern.Category]struct{})
	for _, c := range res.Memories {
		categories[c.Memory.Harmonics.Category] = struct{}{}
		for _, t := range c.Memory.Content.Tags {
			if tagCategories[t] == nil {
				tagCategories[t] = make(map[pattern.Category]struct{})
			}
			tagCategories[t][c.Memory.Harmonics.Category] = struct{}{}
		}
	}
	if len(categories) < 3 {
		return nil, nil
	}

	bridging := make([]string, 0)
	for tag, cats := range tagCategories {
		if len(cats) >= 2 {
			bridging = append(bridging, tag)
		}
	}
	if len(bridging) == 0 {
		return nil, nil
	}
	sort.Strings(bridging)

	ids := make([]string, 0)
	for _, c := range res.Memories {
		for _, t := range c.Memory.Content.Tags {
			if len(tagCategories[t]) >= 2 {
				ids = append(ids, c.Memory.ID)
				break
			}
		}
	}
	sort.Strings(ids)
	if len(ids) == 0 {
		return nil, nil
	}

	return []pattern.Insight{{
		ID:                   uuid.New().String(),
		Type:                 pattern.InsightPatternSynthesis,
		Description:          fmt.Sprintf("tags %s bridge %d categories", strings.Join(bridging, ", "), len(categories)),
		ContributingMemories: ids,
		NoveltyScore:         clamp01(0.4 + 0.1*float64(len(categories))),
		ConfidenceLevel:      clamp01(res.CoherenceLevel),
		SuggestedAction:      "extract the bridging concern into a shared pattern",
		CreatedAt:            e.now(),
	}}, nil
}

func meanStrength(ips []pattern.InterferencePattern) float64 {
	if len(ips) == 0 {
		return 0
	}
	var sum float64
	for _, ip := range ips {
		sum += ip.Strength
	}
	return sum / float64(len(ips))
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
