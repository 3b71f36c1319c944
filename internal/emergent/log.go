package emergent

import (
	"sync"
	"time"

	"github.com/fyrsmithlabs/fieldmem/internal/pattern"
)

// insightLog retains emitted insights for a bounded window. Pruning is
// best-effort: it runs on append and read, and losing an insight early is
// never a correctness problem.
type insightLog struct {
	mu        sync.Mutex
	entries   []pattern.Insight
	cap       int
	retention time.Duration
}

func newInsightLog(cap int, retention time.Duration) *insightLog {
	return &insightLog{
		entries:   make([]pattern.Insight, 0, cap),
		cap:       cap,
		retention: retention,
	}
}

func (l *insightLog) append(in pattern.Insight, now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pruneLocked(now)
	l.entries = append(l.entries, in)
	if len(l.entries) > l.cap {
		l.entries = l.entries[len(l.entries)-l.cap:]
	}
}

// all returns retained insights, newest first.
func (l *insightLog) all(now time.Time) []pattern.Insight {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pruneLocked(now)
	out := make([]pattern.Insight, len(l.entries))
	for i, in := range l.entries {
		out[len(l.entries)-1-i] = in
	}
	return out
}

func (l *insightLog) pruneLocked(now time.Time) {
	cutoff := now.Add(-l.retention)
	kept := l.entries[:0]
	for _, in := range l.entries {
		if in.CreatedAt.After(cutoff) {
			kept = append(kept, in)
		}
	}
	l.entries = kept
}
