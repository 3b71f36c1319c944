package pattern

import "fmt"

// OperationType identifies one logic-gate step.
type OperationType string

const (
	OpAnd       OperationType = "AND"
	OpOr        OperationType = "OR"
	OpNot       OperationType = "NOT"
	OpThreshold OperationType = "THRESHOLD"
	OpBoost     OperationType = "BOOST"
)

// LogicOperation is one step of the ordered filter/re-rank pipeline.
// Operations compose left-to-right; they do not form a boolean tree.
//
//   - AND keeps memories whose tags are a superset of Params.
//   - OR keeps memories whose tags intersect Params.
//   - NOT drops memories whose tags intersect Params.
//   - THRESHOLD drops memories whose numeric property Params[0] is below
//     Threshold.
//   - BOOST multiplies the effective score by Weight for memories whose
//     tags intersect Params; it never changes membership.
type LogicOperation struct {
	Type      OperationType `json:"type" yaml:"type"`
	Params    []string      `json:"params,omitempty" yaml:"params,omitempty"`
	Threshold float64       `json:"threshold,omitempty" yaml:"threshold,omitempty"`
	Weight    float64       `json:"weight,omitempty" yaml:"weight,omitempty"`
}

// Validate fails fast on malformed operations. A THRESHOLD naming a
// non-numeric property is a programmer error, not a soft no-match.
func (op LogicOperation) Validate() error {
	switch op.Type {
	case OpAnd, OpOr, OpNot:
		return nil
	case OpThreshold:
		if len(op.Params) != 1 {
			return fmt.Errorf("%w: THRESHOLD takes exactly one property name, got %d", ErrInvalidQuery, len(op.Params))
		}
		switch op.Params[0] {
		case PropertyStrength, PropertyConfidence, PropertyComplexity, PropertyRelevance, PropertyOccurrences:
			return nil
		default:
			return fmt.Errorf("%w: THRESHOLD property %q is not numeric", ErrInvalidQuery, op.Params[0])
		}
	case OpBoost:
		if op.Weight <= 0 {
			return fmt.Errorf("%w: BOOST weight must be positive, got %v", ErrInvalidQuery, op.Weight)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown operation type %q", ErrInvalidQuery, op.Type)
	}
}

// QueryType selects the orchestrator dispatch path.
type QueryType string

const (
	// QueryPrecision biases to a tight-radius index-only path and
	// suppresses insight generation.
	QueryPrecision QueryType = "precision"
	// QueryDiscovery always runs the field engine and attempts insight
	// generation.
	QueryDiscovery QueryType = "discovery"
	// QueryCreative is discovery with a wider radius and a lower
	// interference bar.
	QueryCreative QueryType = "creative"
	// QueryHybrid runs both paths and merges by score.
	QueryHybrid QueryType = "hybrid"
)

// HarmonicSignature is a partial signature seeding the search coordinate.
// Unset fields default to the neutral axis value.
type HarmonicSignature struct {
	Category   Category `json:"category,omitempty" yaml:"category,omitempty"`
	Strength   *float64 `json:"strength,omitempty" yaml:"strength,omitempty"`
	Complexity *float64 `json:"complexity,omitempty" yaml:"complexity,omitempty"`
}

// MemoryQuery is a typed query against the engine. Confidence and
// Exploration are independent dials, not complements: confidence weights
// the exact-index contribution, exploration widens the field.
type MemoryQuery struct {
	Type              QueryType          `json:"type" yaml:"type"`
	Confidence        float64            `json:"confidence" yaml:"confidence"`
	Exploration       float64            `json:"exploration" yaml:"exploration"`
	HarmonicSignature *HarmonicSignature `json:"harmonic_signature,omitempty" yaml:"harmonic_signature,omitempty"`
	Text              string             `json:"text,omitempty" yaml:"text,omitempty"`
	MaxResults        int                `json:"max_results,omitempty" yaml:"max_results,omitempty"`
}

// DefaultQuery wraps free-form text into the default discovery query.
func DefaultQuery(text string) MemoryQuery {
	return MemoryQuery{
		Type:        QueryDiscovery,
		Confidence:  0.5,
		Exploration: 0.5,
		Text:        text,
	}
}

// Validate fails fast on out-of-range dials or an unknown query type.
func (q MemoryQuery) Validate() error {
	switch q.Type {
	case QueryPrecision, QueryDiscovery, QueryCreative, QueryHybrid:
	default:
		return fmt.Errorf("%w: unknown query type %q", ErrInvalidQuery, q.Type)
	}
	if q.Confidence < 0 || q.Confidence > 1 {
		return fmt.Errorf("%w: confidence must be in [0,1], got %v", ErrInvalidQuery, q.Confidence)
	}
	if q.Exploration < 0 || q.Exploration > 1 {
		return fmt.Errorf("%w: exploration must be in [0,1], got %v", ErrInvalidQuery, q.Exploration)
	}
	if q.MaxResults < 0 {
		return fmt.Errorf("%w: max results cannot be negative", ErrInvalidQuery)
	}
	return nil
}

// FieldConfiguration carries the per-query field parameters. It is
// derived from a MemoryQuery plus adaptation context and never persisted.
type FieldConfiguration struct {
	Radius                float64 `json:"radius" yaml:"radius"`
	MinProbability        float64 `json:"min_probability" yaml:"min_probability"`
	InterferenceThreshold float64 `json:"interference_threshold" yaml:"interference_threshold"`
}

// Validate checks the field configuration ranges.
func (c FieldConfiguration) Validate() error {
	if c.Radius <= 0 {
		return fmt.Errorf("%w: field radius must be positive, got %v", ErrInvalidQuery, c.Radius)
	}
	if c.MinProbability < 0 || c.MinProbability >= 1 {
		return fmt.Errorf("%w: min probability must be in [0,1), got %v", ErrInvalidQuery, c.MinProbability)
	}
	if c.InterferenceThreshold < 0 || c.InterferenceThreshold > 1 {
		return fmt.Errorf("%w: interference threshold must be in [0,1], got %v", ErrInvalidQuery, c.InterferenceThreshold)
	}
	return nil
}
