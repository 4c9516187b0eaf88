package sqlfacts

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "modernc.org/sqlite"
)

// BunDataStore is the production DataStore, backed by uptrace/bun over a
// pure-Go SQLite driver (modernc.org/sqlite, no cgo), per spec §4.D's
// expansion. Any bun-supported dialect works; OpenSQLite is the common
// case constructor.
type BunDataStore struct {
	db *bun.DB
}

// NewBunDataStore wraps an already-configured *bun.DB.
func NewBunDataStore(db *bun.DB) *BunDataStore {
	return &BunDataStore{db: db}
}

// OpenSQLite opens dsn (a file path, or ":memory:") through
// modernc.org/sqlite and wraps it in a BunDataStore using bun's SQLite
// dialect.
func OpenSQLite(dsn string) (*BunDataStore, error) {
	sqldb, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "sqlfacts: opening sqlite database")
	}
	return NewBunDataStore(bun.NewDB(sqldb, sqlitedialect.New())), nil
}

// ExecuteQuery compiles q into a SELECT and scans every matching row into
// a Row map, preserving driver value types (numbers as int64/float64,
// text as string, blobs as []byte).
func (b *BunDataStore) ExecuteQuery(ctx context.Context, q Query) ([]Row, error) {
	sq := b.db.NewSelect().Table(q.Table)

	if len(q.SelectColumns) > 0 {
		sq = sq.Column(q.SelectColumns...)
	} else {
		sq = sq.ColumnExpr("*")
	}

	for _, w := range q.Where {
		switch w.Operator {
		case OpEq:
			sq = sq.Where("? = ?", bun.Ident(w.Column), w.Value)
		case OpIn:
			sq = sq.Where("? IN (?)", bun.Ident(w.Column), bun.In(w.Values))
		case OpGt:
			sq = sq.Where("? > ?", bun.Ident(w.Column), w.Value)
		case OpLt:
			sq = sq.Where("? < ?", bun.Ident(w.Column), w.Value)
		case OpGte:
			sq = sq.Where("? >= ?", bun.Ident(w.Column), w.Value)
		case OpLte:
			sq = sq.Where("? <= ?", bun.Ident(w.Column), w.Value)
		case OpLike:
			sq = sq.Where("? LIKE ?", bun.Ident(w.Column), w.Value)
		default:
			return nil, fmt.Errorf("sqlfacts: unknown operator %q", w.Operator)
		}
	}

	if q.Limit > 0 {
		sq = sq.Limit(q.Limit)
	}

	var rows []map[string]any
	if err := sq.Scan(ctx, &rows); err != nil {
		return nil, errors.Wrapf(err, "sqlfacts: executing query against %s", q.Table)
	}

	out := make([]Row, len(rows))
	for i, r := range rows {
		out[i] = Row(r)
	}
	return out, nil
}

// Close releases the underlying *sql.DB connection pool.
func (b *BunDataStore) Close() error {
	return b.db.Close()
}
