package pattern

import "time"

// InsightType classifies what a discovery strategy found.
type InsightType string

const (
	// InsightNovelConnection links memories that are not related by any
	// stored reference but interfere constructively.
	InsightNovelConnection InsightType = "novel_connection"
	// InsightPatternSynthesis describes a higher-level pattern spanning
	// several categories.
	InsightPatternSynthesis InsightType = "pattern_synthesis"
	// InsightUnexpectedRelevance flags a low-confidence or low-relevance
	// memory that turned out to match strongly under wider exploration.
	// Its confidence level is below 0.5 by definition.
	InsightUnexpectedRelevance InsightType = "unexpected_relevance"
)

// Insight is a synthesized observation over stored memories. It is not a
// stored pattern itself; it lives in the bounded, time-pruned insight log.
type Insight struct {
	ID                   string      `json:"id" yaml:"id"`
	Type                 InsightType `json:"type" yaml:"type"`
	Description          string      `json:"description" yaml:"description"`
	ContributingMemories []string    `json:"contributing_memories" yaml:"contributing_memories"`
	NoveltyScore         float64     `json:"novelty_score" yaml:"novelty_score"`
	ConfidenceLevel      float64     `json:"confidence_level" yaml:"confidence_level"`
	SuggestedAction      string      `json:"suggested_action,omitempty" yaml:"suggested_action,omitempty"`
	CreatedAt            time.Time   `json:"created_at" yaml:"created_at"`
}

// InterferenceMechanism labels how two candidates interacted.
type InterferenceMechanism string

const (
	InterferenceConstructive InterferenceMechanism = "constructive"
	InterferenceDestructive  InterferenceMechanism = "destructive"
)

// InterferencePattern records one pairwise interaction from a field
// query: two nearby, category-related candidates whose phase alignment
// amplified (constructive) or suppressed (destructive) their relevance.
type InterferencePattern struct {
	InvolvedMemories []string              `json:"involved_memories" yaml:"involved_memories"`
	Strength         float64               `json:"strength" yaml:"strength"`
	Mechanism        InterferenceMechanism `json:"mechanism" yaml:"mechanism"`
}
