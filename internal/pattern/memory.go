package pattern

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// Common errors for pattern records and queries.
var (
	ErrInvalidMemory = errors.New("invalid memory")

	// ErrInvalidQuery marks a programmer error in query construction:
	// dials outside [0,1], an unknown operation type, or a THRESHOLD
	// naming a non-numeric property. It is distinct from the silent
	// clamping applied to coordinate jitter and probability pruning.
	ErrInvalidQuery = errors.New("invalid query")
)

// MaxComplexity is the ceiling for the complexity score and the
// normalization divisor for the complexity coordinate axis.
const MaxComplexity = 10.0

// Location points at the source range where a pattern was observed.
type Location struct {
	File      string `json:"file" yaml:"file"`
	StartLine int    `json:"start_line" yaml:"start_line"`
	EndLine   int    `json:"end_line" yaml:"end_line"`
}

// Content holds the descriptive part of a memory. Data is an opaque
// producer payload: the engine stores and returns it verbatim and never
// looks inside.
type Content struct {
	Title       string         `json:"title" yaml:"title"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	Kind        string         `json:"kind,omitempty" yaml:"kind,omitempty"`
	Tags        []string       `json:"tags,omitempty" yaml:"tags,omitempty"`
	Data        map[string]any `json:"data,omitempty" yaml:"data,omitempty"`
}

// HarmonicProperties are the analyzer-assigned quality scores that drive
// coordinate derivation and field amplitudes.
type HarmonicProperties struct {
	Category    Category `json:"category" yaml:"category"`
	Strength    float64  `json:"strength" yaml:"strength"`
	Complexity  float64  `json:"complexity" yaml:"complexity"`
	Confidence  float64  `json:"confidence" yaml:"confidence"`
	Occurrences int      `json:"occurrences" yaml:"occurrences"`
}

// Memory is a stored code-pattern record.
//
// Coordinates are derived from HarmonicProperties and CreatedAt by the
// coordinate mapper and are recomputed on every store; client-supplied
// coordinates are never trusted. RelatedPatterns, CausesPatterns and
// RequiredBy are weak references by id — dangling ids are tolerated.
type Memory struct {
	ID           string    `json:"id" yaml:"id"`
	CreatedAt    time.Time `json:"created_at" yaml:"created_at"`
	LastAccessed time.Time `json:"last_accessed" yaml:"last_accessed"`
	AccessCount  int       `json:"access_count" yaml:"access_count"`

	Content   Content            `json:"content" yaml:"content"`
	Harmonics HarmonicProperties `json:"harmonic_properties" yaml:"harmonic_properties"`

	Coordinates    []float64 `json:"coordinates" yaml:"coordinates"`
	RelevanceScore float64   `json:"relevance_score" yaml:"relevance_score"`

	Locations []Location `json:"locations,omitempty" yaml:"locations,omitempty"`
	Evidence  []string   `json:"evidence,omitempty" yaml:"evidence,omitempty"`

	RelatedPatterns []string `json:"related_patterns,omitempty" yaml:"related_patterns,omitempty"`
	CausesPatterns  []string `json:"causes_patterns,omitempty" yaml:"causes_patterns,omitempty"`
	RequiredBy      []string `json:"required_by,omitempty" yaml:"required_by,omitempty"`
}

// Validate checks the memory's scalar ranges. An unrecognized category is
// not an error; it is mapped to the neutral axis center downstream.
func (m *Memory) Validate() error {
	if m == nil {
		return fmt.Errorf("%w: nil memory", ErrInvalidMemory)
	}
	if m.ID == "" {
		return fmt.Errorf("%w: id cannot be empty", ErrInvalidMemory)
	}
	if m.Content.Title == "" {
		return fmt.Errorf("%w: title cannot be empty", ErrInvalidMemory)
	}
	if m.Harmonics.Strength < 0 || m.Harmonics.Strength > 1 {
		return fmt.Errorf("%w: strength must be in [0,1], got %v", ErrInvalidMemory, m.Harmonics.Strength)
	}
	if m.Harmonics.Complexity < 0 || m.Harmonics.Complexity > MaxComplexity {
		return fmt.Errorf("%w: complexity must be in [0,%v], got %v", ErrInvalidMemory, MaxComplexity, m.Harmonics.Complexity)
	}
	if m.Harmonics.Confidence < 0 || m.Harmonics.Confidence > 1 {
		return fmt.Errorf("%w: confidence must be in [0,1], got %v", ErrInvalidMemory, m.Harmonics.Confidence)
	}
	if m.Harmonics.Occurrences < 0 {
		return fmt.Errorf("%w: occurrences cannot be negative", ErrInvalidMemory)
	}
	if m.RelevanceScore < 0 || m.RelevanceScore > 1 {
		return fmt.Errorf("%w: relevance score must be in [0,1], got %v", ErrInvalidMemory, m.RelevanceScore)
	}
	return nil
}

// Clone returns a deep copy. Readers always receive clones so a
// concurrent write can never produce a torn view of a record.
func (m *Memory) Clone() *Memory {
	if m == nil {
		return nil
	}
	out := *m
	out.Content.Tags = append([]string(nil), m.Content.Tags...)
	if m.Content.Data != nil {
		out.Content.Data = make(map[string]any, len(m.Content.Data))
		for k, v := range m.Content.Data {
			out.Content.Data[k] = v
		}
	}
	out.Coordinates = append([]float64(nil), m.Coordinates...)
	out.Locations = append([]Location(nil), m.Locations...)
	out.Evidence = append([]string(nil), m.Evidence...)
	out.RelatedPatterns = append([]string(nil), m.RelatedPatterns...)
	out.CausesPatterns = append([]string(nil), m.CausesPatterns...)
	out.RequiredBy = append([]string(nil), m.RequiredBy...)
	return &out
}

// Touch records an access.
func (m *Memory) Touch(now time.Time) {
	m.LastAccessed = now
	m.AccessCount++
}

// MergeFrom folds a re-stored record into the existing one: tags,
// evidence, locations and references are unioned, scalar quality scores
// take the maximum. Merging a record with an identical copy of itself is
// a no-op, which keeps Store idempotent.
func (m *Memory) MergeFrom(other *Memory) {
	if other == nil {
		return
	}
	m.Content.Tags = unionStrings(m.Content.Tags, other.Content.Tags)
	m.Evidence = unionStrings(m.Evidence, other.Evidence)
	m.RelatedPatterns = unionStrings(m.RelatedPatterns, other.RelatedPatterns)
	m.CausesPatterns = unionStrings(m.CausesPatterns, other.CausesPatterns)
	m.RequiredBy = unionStrings(m.RequiredBy, other.RequiredBy)
	m.Locations = unionLocations(m.Locations, other.Locations)

	if other.Content.Description != "" {
		m.Content.Description = other.Content.Description
	}
	if other.Harmonics.Strength > m.Harmonics.Strength {
		m.Harmonics.Strength = other.Harmonics.Strength
	}
	if other.Harmonics.Confidence > m.Harmonics.Confidence {
		m.Harmonics.Confidence = other.Harmonics.Confidence
	}
	if other.Harmonics.Complexity > m.Harmonics.Complexity {
		m.Harmonics.Complexity = other.Harmonics.Complexity
	}
	if other.Harmonics.Occurrences > m.Harmonics.Occurrences {
		m.Harmonics.Occurrences = other.Harmonics.Occurrences
	}
	if other.RelevanceScore > m.RelevanceScore {
		m.RelevanceScore = other.RelevanceScore
	}
}

// HasAllTags reports whether the memory's tag set is a superset of want.
func (m *Memory) HasAllTags(want []string) bool {
	for _, w := range want {
		if !containsString(m.Content.Tags, w) {
			return false
		}
	}
	return true
}

// HasAnyTag reports whether the memory's tag set intersects want.
func (m *Memory) HasAnyTag(want []string) bool {
	for _, w := range want {
		if containsString(m.Content.Tags, w) {
			return true
		}
	}
	return false
}

// Numeric property names accepted by THRESHOLD operations.
const (
	PropertyStrength    = "strength"
	PropertyConfidence  = "confidence"
	PropertyComplexity  = "complexity"
	PropertyRelevance   = "relevance"
	PropertyOccurrences = "occurrences"
)

// NumericProperty resolves a named numeric property. The second return
// is false for unknown names.
func (m *Memory) NumericProperty(name string) (float64, bool) {
	switch name {
	case PropertyStrength:
		return m.Harmonics.Strength, true
	case PropertyConfidence:
		return m.Harmonics.Confidence, true
	case PropertyComplexity:
		return m.Harmonics.Complexity, true
	case PropertyRelevance:
		return m.RelevanceScore, true
	case PropertyOccurrences:
		return float64(m.Harmonics.Occurrences), true
	default:
		return 0, false
	}
}

// TagJaccard computes the Jaccard similarity of two memories' tag sets.
// Two empty sets score 0, not 1: no evidence of overlap is not overlap.
func TagJaccard(a, b *Memory) float64 {
	if len(a.Content.Tags) == 0 && len(b.Content.Tags) == 0 {
		return 0
	}
	inter := 0
	for _, t := range a.Content.Tags {
		if containsString(b.Content.Tags, t) {
			inter++
		}
	}
	union := len(uniqueStrings(a.Content.Tags)) + len(uniqueStrings(b.Content.Tags)) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func unionStrings(a, b []string) []string {
	out := uniqueStrings(append(append([]string(nil), a...), b...))
	sort.Strings(out)
	return out
}

func unionLocations(a, b []Location) []Location {
	seen := make(map[Location]struct{}, len(a)+len(b))
	out := make([]Location, 0, len(a)+len(b))
	for _, l := range append(append([]Location(nil), a...), b...) {
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	return out
}
