package sqlfacts

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

// CacheManager stores query results keyed by a canonical encoding of the
// query shape, and supports subsumption lookup: a prior cache entry whose
// SELECT list is a superset of what's requested and whose WHERE clause is
// a subset of what's requested can answer the narrower request locally,
// spec §4.D.4.
type CacheManager interface {
	// Lookup returns a cached result usable for q: an exact match if one
	// exists, otherwise the first subsuming entry found by a linear scan.
	// The bool reports whether anything usable was found; subsumed rows
	// still need a local WHERE re-filter, which the caller performs via
	// filterRows (relation.go) since CacheManager only tracks shape, not
	// row content.
	Lookup(q Query) (rows []Row, exact bool, found bool)
	Store(q Query, rows []Row)
}

// canonicalKey encodes (table, sorted select columns, sorted where
// entries) into a comparable string, spec §4.D.4's cache key.
func canonicalKey(q Query) string {
	cols := append([]string(nil), q.SelectColumns...)
	sort.Strings(cols)

	wheres := make([]string, len(q.Where))
	for i, w := range q.Where {
		switch w.Operator {
		case OpIn:
			vals := make([]string, len(w.Values))
			for j, v := range w.Values {
				vals[j] = fmt.Sprintf("%v", v)
			}
			sort.Strings(vals)
			wheres[i] = fmt.Sprintf("%s %s [%s]", w.Column, w.Operator, strings.Join(vals, ","))
		default:
			wheres[i] = fmt.Sprintf("%s %s %v", w.Column, w.Operator, w.Value)
		}
	}
	sort.Strings(wheres)

	return q.Table + "|" + strings.Join(cols, ",") + "|" + strings.Join(wheres, ";")
}

// whereSubsetOf reports whether every condition in a also appears in b
// (by exact column/operator/value match) — the WHERE-subset half of
// subsumption.
func whereSubsetOf(a, b []WhereCondition) bool {
	present := make(map[string]bool, len(b))
	for _, w := range b {
		present[whereKey(w)] = true
	}
	for _, w := range a {
		if !present[whereKey(w)] {
			return false
		}
	}
	return true
}

func whereKey(w WhereCondition) string {
	if w.Operator == OpIn {
		vals := make([]string, len(w.Values))
		for i, v := range w.Values {
			vals[i] = fmt.Sprintf("%v", v)
		}
		sort.Strings(vals)
		return fmt.Sprintf("%s %s [%s]", w.Column, w.Operator, strings.Join(vals, ","))
	}
	return fmt.Sprintf("%s %s %v", w.Column, w.Operator, w.Value)
}

// selectSupersetOf reports whether every column in want is present in have.
func selectSupersetOf(have, want []string) bool {
	present := make(map[string]bool, len(have))
	for _, c := range have {
		present[c] = true
	}
	for _, c := range want {
		if !present[c] {
			return false
		}
	}
	return true
}

type cacheEntry struct {
	query Query
	rows  []Row
}

// MapCacheManager is the default, in-process CacheManager: an unbounded
// map keyed by canonicalKey, with a linear subsumption scan over stored
// entries for the same table. It is the implementation RelationFactory
// uses unless WithCacheManager overrides it.
type MapCacheManager struct {
	mu      sync.Mutex
	exact   map[string]cacheEntry
	byTable map[string][]cacheEntry
}

// NewMapCacheManager builds an empty MapCacheManager.
func NewMapCacheManager() *MapCacheManager {
	return &MapCacheManager{
		exact:   make(map[string]cacheEntry),
		byTable: make(map[string][]cacheEntry),
	}
}

func (m *MapCacheManager) Lookup(q Query) ([]Row, bool, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.exact[canonicalKey(q)]; ok {
		return e.rows, true, true
	}

	for _, e := range m.byTable[q.Table] {
		// e is usable for q when e was computed for a superset of the
		// requested columns and a subset of the requested constraints:
		// e's rows already cover every row q could match, just not yet
		// filtered down by whatever extra WHERE conditions q adds.
		if selectSupersetOf(e.query.SelectColumns, q.SelectColumns) && whereSubsetOf(e.query.Where, q.Where) {
			return e.rows, false, true
		}
	}
	return nil, false, false
}

func (m *MapCacheManager) Store(q Query, rows []Row) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := cacheEntry{query: q, rows: rows}
	m.exact[canonicalKey(q)] = e
	m.byTable[q.Table] = append(m.byTable[q.Table], e)
}

// TTLCacheManager is the optional golang-lru/v2 expirable-cache-backed
// CacheManager, for deployments that want cached rows to expire rather
// than live for the process lifetime. It answers only exact-key lookups:
// subsumption scanning requires iterating every live entry, which the
// LRU's eviction bookkeeping does not expose cheaply, so subsumption is a
// MapCacheManager-only feature — documented as a deliberate simplification.
type TTLCacheManager struct {
	c *lru.LRU[string, cacheEntry]
}

// NewTTLCacheManager builds a TTL-backed CacheManager holding up to size
// entries, each expiring ttl after being stored.
func NewTTLCacheManager(size int, ttl time.Duration) *TTLCacheManager {
	return &TTLCacheManager{c: lru.NewLRU[string, cacheEntry](size, nil, ttl)}
}

func (t *TTLCacheManager) Lookup(q Query) ([]Row, bool, bool) {
	e, ok := t.c.Get(canonicalKey(q))
	if !ok {
		return nil, false, false
	}
	return e.rows, true, true
}

func (t *TTLCacheManager) Store(q Query, rows []Row) {
	t.c.Add(canonicalKey(q), cacheEntry{query: q, rows: rows})
}
