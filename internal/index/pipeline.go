package index

import (
	"fmt"

	"github.com/fyrsmithlabs/fieldmem/internal/pattern"
)

// applyPipeline runs the logic operations left-to-right over the gathered
// candidates. Filters (AND/OR/NOT/THRESHOLD) narrow membership; BOOST
// only re-weights scores and never drops anything. Operations are assumed
// pre-validated.
func applyPipeline(items []Scored, ops []pattern.LogicOperation) ([]Scored, error) {
	for _, op := range ops {
		switch op.Type {
		case pattern.OpAnd:
			items = keep(items, func(s Scored) bool {
				return s.Memory.HasAllTags(op.Params)
			})
		case pattern.OpOr:
			items = keep(items, func(s Scored) bool {
				return s.Memory.HasAnyTag(op.Params)
			})
		case pattern.OpNot:
			items = keep(items, func(s Scored) bool {
				return !s.Memory.HasAnyTag(op.Params)
			})
		case pattern.OpThreshold:
			prop := op.Params[0]
			items = keep(items, func(s Scored) bool {
				v, ok := s.Memory.NumericProperty(prop)
				return ok && v >= op.Threshold
			})
		case pattern.OpBoost:
			for i := range items {
				if items[i].Memory.HasAnyTag(op.Params) {
					items[i].Score *= op.Weight
				}
			}
		default:
			return nil, fmt.Errorf("%w: unknown operation type %q", pattern.ErrInvalidQuery, op.Type)
		}
	}
	return items, nil
}

func keep(items []Scored, pred func(Scored) bool) []Scored {
	out := items[:0]
	for _, s := range items {
		if pred(s) {
			out = append(out, s)
		}
	}
	return out
}
