package engine

import (
	"time"

	"github.com/fyrsmithlabs/fieldmem/internal/index"
	"github.com/fyrsmithlabs/fieldmem/internal/pattern"
)

// ScoredMemory pairs a memory with its merged score. When both paths
// return the same id, the score is the weighted sum of both
// contributions; the record itself is deduplicated.
type ScoredMemory struct {
	Memory *pattern.Memory `json:"memory" yaml:"memory"`
	Score  float64         `json:"score" yaml:"score"`
}

// ExecutionMetrics describes the cost of one query.
type ExecutionMetrics struct {
	TotalTime         time.Duration `json:"total_time" yaml:"total_time"`
	MemoriesProcessed int           `json:"memories_processed" yaml:"memories_processed"`
	SuperpositionTime time.Duration `json:"superposition_time" yaml:"superposition_time"`
}

// UnifiedResult is the single result shape every query path returns.
// Precision queries leave the field sections empty rather than absent;
// callers never branch on result shape.
type UnifiedResult struct {
	Memories             []ScoredMemory                `json:"memories" yaml:"memories"`
	InterferencePatterns []pattern.InterferencePattern `json:"interference_patterns" yaml:"interference_patterns"`
	EmergentInsights     []pattern.Insight             `json:"emergent_insights" yaml:"emergent_insights"`
	CoherenceLevel       float64                       `json:"coherence_level" yaml:"coherence_level"`
	FieldConfig          pattern.FieldConfiguration    `json:"field_config" yaml:"field_config"`
	Metrics              ExecutionMetrics              `json:"metrics" yaml:"metrics"`
}

// Stats aggregates store statistics with adaptation context.
type Stats struct {
	Index            index.Stats  `json:"index" yaml:"index"`
	Context          ContextStats `json:"context" yaml:"context"`
	RetainedInsights int          `json:"retained_insights" yaml:"retained_insights"`
	SchedulerRunning bool         `json:"scheduler_running" yaml:"scheduler_running"`
}
