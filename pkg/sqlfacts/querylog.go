package sqlfacts

import (
	"fmt"
	"strings"
	"sync"
)

// QueryLogEntry records one batch flush, spec §4.D.4's "append-only
// query log": the query actually issued (or served from cache), the row
// count it produced, and how it was satisfied.
type QueryLogEntry struct {
	Query    Query
	RowCount int
	Source   QuerySource
}

// QuerySource distinguishes how a batch flush was satisfied.
type QuerySource string

const (
	SourceExecuted   QuerySource = "executed"
	SourceCacheExact QuerySource = "cache-exact"
	SourceSubsumed   QuerySource = "cache-subsumed"
)

// String renders a pseudo-SQL description of the query for log/debug
// output — not a literal compiled statement, since that detail belongs
// to the DataStore implementation, but enough to see what was asked.
func (q Query) String() string {
	var b strings.Builder
	cols := "*"
	if len(q.SelectColumns) > 0 {
		cols = strings.Join(q.SelectColumns, ", ")
	}
	fmt.Fprintf(&b, "SELECT %s FROM %s", cols, q.Table)
	if len(q.Where) > 0 {
		parts := make([]string, len(q.Where))
		for i, w := range q.Where {
			switch w.Operator {
			case OpIn:
				parts[i] = fmt.Sprintf("%s IN %v", w.Column, w.Values)
			default:
				parts[i] = fmt.Sprintf("%s %s %v", w.Column, w.Operator, w.Value)
			}
		}
		fmt.Fprintf(&b, " WHERE %s", strings.Join(parts, " AND "))
	}
	return b.String()
}

// queryLog is an append-only, mutex-guarded log of flushes. Plain
// appends would be safe under the engine's cooperative single-thread
// model, but batches for distinct tables flush from distinct debouncer
// goroutines in this implementation, so a lock is genuinely needed here
// (documented in the design ledger as a deliberate divergence from the
// lock-free ideal).
type queryLog struct {
	mu      sync.Mutex
	entries []QueryLogEntry
}

func (l *queryLog) append(e QueryLogEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, e)
}

// Entries returns a snapshot of every logged flush, oldest first.
func (l *queryLog) Entries() []QueryLogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]QueryLogEntry(nil), l.entries...)
}
