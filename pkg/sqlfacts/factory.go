package sqlfacts

import (
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/dlashua/logic-sub002/pkg/kanren"
)

// RelationFactory builds SQL-backed relations sharing one DataStore,
// cache, batching policy, and query log — spec §4.D's per-configuration
// object, with functional-option defaults matching §6's RelationFactory
// config.
type RelationFactory struct {
	store DataStore

	batchSize     int
	debounce      time.Duration
	enableCaching bool
	enableMerging bool
	cache         CacheManager
	logger        hclog.Logger

	log *queryLog

	nextGoalID uint64
	registry   map[uint64]*goalRecord
}

// Option configures a RelationFactory.
type Option func(*RelationFactory)

// WithBatchSize overrides the default batch size (100) at which a
// goal's pending invocations flush immediately regardless of debounce.
func WithBatchSize(n int) Option {
	return func(f *RelationFactory) { f.batchSize = n }
}

// WithDebounce overrides the default debounce window (50ms) a goal's
// batch waits for more invocations before flushing early.
func WithDebounce(d time.Duration) Option {
	return func(f *RelationFactory) { f.debounce = d }
}

// WithCaching toggles ROW_CACHE / CacheManager use. Disabling it means
// every batch flush issues a fresh query.
func WithCaching(enabled bool) Option {
	return func(f *RelationFactory) { f.enableCaching = enabled }
}

// WithQueryMerging toggles merge-compatible peer discovery. Disabling it
// means every goal's batch is queried in isolation, still benefiting
// from batching across its own invocations but not from sibling goals'.
func WithQueryMerging(enabled bool) Option {
	return func(f *RelationFactory) { f.enableMerging = enabled }
}

// WithCacheManager overrides the default MapCacheManager, e.g. with a
// NewTTLCacheManager for bounded-lifetime caching.
func WithCacheManager(cm CacheManager) Option {
	return func(f *RelationFactory) { f.cache = cm }
}

// WithLogger overrides the default no-op logger. Each relation's flushes
// log at debug level (table, row count, source) and failures at error
// level, named under "sqlfacts.<table>".
func WithLogger(l hclog.Logger) Option {
	return func(f *RelationFactory) { f.logger = l }
}

// NewRelationFactory builds a factory over store with the spec's
// documented defaults (batch size 100, 50ms debounce, caching and query
// merging both enabled), then applies opts.
func NewRelationFactory(store DataStore, opts ...Option) *RelationFactory {
	f := &RelationFactory{
		store:         store,
		batchSize:     100,
		debounce:      50 * time.Millisecond,
		enableCaching: true,
		enableMerging: true,
		cache:         NewMapCacheManager(),
		logger:        hclog.NewNullLogger(),
		log:           &queryLog{},
		registry:      make(map[uint64]*goalRecord),
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// QueryLog returns every batch flush logged so far, oldest first.
func (f *RelationFactory) QueryLog() []QueryLogEntry {
	return f.log.Entries()
}

func (f *RelationFactory) nextGoalHandle() kanren.GoalHandle {
	return kanren.GoalHandle{ID: atomic.AddUint64(&f.nextGoalID, 1)}
}

func (f *RelationFactory) register(rec *goalRecord) {
	f.registry[rec.id.ID] = rec
}
