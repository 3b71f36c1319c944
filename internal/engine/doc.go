// Package engine is the query orchestrator: the single facade over the
// deterministic index, the probabilistic field engine and the emergent
// discovery strategies.
//
// A query's type selects the dispatch path (precision, discovery,
// creative, hybrid); its confidence dial weights the index contribution
// against the field contribution and its exploration dial widens the
// field. The orchestrator also tracks recent query context and feeds it
// back into field sizing.
package engine
