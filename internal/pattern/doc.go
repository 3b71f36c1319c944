// Package pattern defines the data model for the fieldmem engine.
//
// # Overview
//
// A Memory is a discovered code-pattern record: a categorized,
// quality-scored structural or behavioral unit produced by an external
// analyzer. The engine places each memory at a derived point in a
// fixed-dimensional coordinate space and retrieves them through exact
// (index) and probabilistic (field) queries.
//
// The package also defines the query vocabulary shared by the engine
// packages:
//
//   - LogicOperation: one step of the compositional filter/boost pipeline
//     (AND/OR/NOT/THRESHOLD/BOOST) applied left-to-right after a radius
//     gather.
//   - MemoryQuery: typed query with independent confidence and exploration
//     dials.
//   - FieldConfiguration: per-query field parameters, derived and never
//     persisted.
//   - Insight: synthesized observation emitted by a discovery strategy.
//   - InterferencePattern: pairwise amplification or suppression record from
//     a field query.
//
// Memories reference each other by id only (RelatedPatterns, CausesPatterns,
// RequiredBy). Dangling ids are tolerated and resolved lazily by callers.
package pattern
