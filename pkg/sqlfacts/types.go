// Package sqlfacts implements the SQL-backed fact relation: the engine's
// "hard part", per spec §4.D. It wraps a relational table as a goal,
// batching concurrent invocations behind a debounced query, discovering
// merge-compatible and cache-compatible peer goals through the
// substitution's group metadata (pkg/kanren's GOAL_GROUP_ALL_GOALS), and
// caching rows with subsumption so a narrower subsequent query can be
// answered from a broader prior result without touching the database.
//
// The design is grounded on the teacher's pattern of small, focused
// interfaces around an external resource (its store package wraps BoltDB
// behind a narrow Txn-based interface) generalized here to a SQL backend
// via uptrace/bun, with golang-lru/v2 supplying the optional TTL cache.
package sqlfacts

import (
	"context"
)

// Operator is a WHERE comparison, spec §6's WhereCondition operator set.
type Operator string

const (
	OpEq   Operator = "eq"
	OpIn   Operator = "in"
	OpGt   Operator = "gt"
	OpLt   Operator = "lt"
	OpGte  Operator = "gte"
	OpLte  Operator = "lte"
	OpLike Operator = "like"
)

// WhereCondition is one predicate in a Query's WHERE clause.
type WhereCondition struct {
	Column   string
	Operator Operator
	Value    any   // used by Eq, Gt, Lt, Gte, Lte, Like
	Values   []any // used by In
}

// Query is the abstract shape of a single SELECT the relation layer
// issues against a table, independent of the DataStore implementation.
type Query struct {
	Table         string
	SelectColumns []string
	Where         []WhereCondition
	Limit         int
}

// Row is one returned record, keyed by column name. Values are whatever
// the driver returns (string, float64/int64, bool, []byte, nil).
type Row map[string]any

// DataStore is the abstraction the relation layer issues queries
// against, spec §6's external interface. BunDataStore is the production
// implementation; tests substitute a fake.
type DataStore interface {
	ExecuteQuery(ctx context.Context, q Query) ([]Row, error)
	Close() error
}
