// Package memfacts implements the engine's in-memory indexed fact
// relation: a small hashicorp/go-memdb database with one table and one
// index per tuple position, used for fact sets small enough to live
// entirely in memory rather than behind pkg/sqlfacts' SQL backend.
package memfacts

import (
	"context"
	"fmt"
	"sync/atomic"

	memdb "github.com/hashicorp/go-memdb"

	"github.com/dlashua/logic-sub002/pkg/kanren"
)

const tableName = "facts"

// factRow is one stored tuple. Keys holds the canonical string encoding
// of every position (Term.String() of the term as stored), which is what
// go-memdb's per-position indexes are built over; Terms holds the actual
// terms so unification against a query is exact, not string-based.
type factRow struct {
	ID    uint64
	Keys  []string
	Terms []kanren.Term
}

// posIndexer indexes factRow.Keys[pos] as an exact-match string key. It
// implements memdb.Indexer the same way the teacher's state store indexes
// struct fields, generalized to a dynamic tuple position instead of a
// fixed field name.
type posIndexer struct {
	pos int
}

func (p *posIndexer) FromObject(obj any) (bool, []byte, error) {
	row, ok := obj.(*factRow)
	if !ok {
		return false, nil, fmt.Errorf("memfacts: unexpected object type %T", obj)
	}
	if p.pos >= len(row.Keys) {
		return false, nil, nil
	}
	return true, []byte(row.Keys[p.pos] + "\x00"), nil
}

func (p *posIndexer) FromArgs(args ...any) ([]byte, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("memfacts: index requires exactly one argument")
	}
	s, ok := args[0].(string)
	if !ok {
		return nil, fmt.Errorf("memfacts: index argument must be a string, got %T", args[0])
	}
	return []byte(s + "\x00"), nil
}

// Relation is an indexed table of fact tuples, spec §4.F.
type Relation struct {
	db        *memdb.MemDB
	arity     int
	symmetric bool
	nextID    uint64
	handle    kanren.GoalHandle
}

var handleCounter uint64

func nextHandle() kanren.GoalHandle {
	return kanren.GoalHandle{ID: atomic.AddUint64(&handleCounter, 1)}
}

// New builds an empty relation of the given arity, with one non-unique
// index per position plus a unique "id" index preserving insertion order.
func New(arity int) (*Relation, error) {
	return newRelation(arity, false)
}

// NewSymmetric builds a two-argument relation whose Set additionally
// stores the swapped tuple, spec §4.F's symmetric variant.
func NewSymmetric() (*Relation, error) {
	return newRelation(2, true)
}

func newRelation(arity int, symmetric bool) (*Relation, error) {
	if arity <= 0 {
		return nil, fmt.Errorf("memfacts: arity must be positive, got %d", arity)
	}

	indexes := map[string]*memdb.IndexSchema{
		"id": {
			Name:    "id",
			Unique:  true,
			Indexer: &memdb.UintFieldIndex{Field: "ID"},
		},
	}
	for i := 0; i < arity; i++ {
		indexes[fmt.Sprintf("pos%d", i)] = &memdb.IndexSchema{
			Name:    fmt.Sprintf("pos%d", i),
			Unique:  false,
			Indexer: &posIndexer{pos: i},
		}
	}

	schema := &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			tableName: {
				Name:    tableName,
				Indexes: indexes,
			},
		},
	}

	db, err := memdb.NewMemDB(schema)
	if err != nil {
		return nil, fmt.Errorf("memfacts: building schema: %w", err)
	}

	return &Relation{db: db, arity: arity, symmetric: symmetric, handle: nextHandle()}, nil
}

// Arity returns the relation's tuple width.
func (r *Relation) Arity() int { return r.arity }

// Handle returns the relation's GoalHandle, usable by callers that want
// to register it against GOAL_GROUP metadata the way sqlfacts does.
func (r *Relation) Handle() kanren.GoalHandle { return r.handle }

// Set appends one ground fact tuple. For a symmetric relation it also
// inserts the swapped orientation, per spec §4.F.
func (r *Relation) Set(terms ...kanren.Term) error {
	if len(terms) != r.arity {
		return fmt.Errorf("memfacts: expected %d terms, got %d", r.arity, len(terms))
	}
	if err := r.insert(terms); err != nil {
		return err
	}
	if r.symmetric {
		return r.insert([]kanren.Term{terms[1], terms[0]})
	}
	return nil
}

func (r *Relation) insert(terms []kanren.Term) error {
	keys := make([]string, len(terms))
	for i, t := range terms {
		keys[i] = t.String()
	}
	row := &factRow{
		ID:    atomic.AddUint64(&r.nextID, 1),
		Keys:  keys,
		Terms: append([]kanren.Term(nil), terms...),
	}

	txn := r.db.Txn(true)
	if err := txn.Insert(tableName, row); err != nil {
		txn.Abort()
		return fmt.Errorf("memfacts: insert: %w", err)
	}
	txn.Commit()
	return nil
}

// Goal returns the goal form of the relation: calling the relation with
// args unifies args against every stored tuple that survives the
// available index lookup plus the manual ground-position filter, per
// spec §4.F.
func (r *Relation) Goal(args ...kanren.Term) kanren.Goal {
	return func(ctx context.Context, s *kanren.Subst) *kanren.Stream {
		out := kanren.NewStream()
		go func() {
			defer out.Close()

			if len(args) != r.arity {
				return
			}

			walked := make([]kanren.Term, len(args))
			groundIdx := -1
			for i, a := range args {
				walked[i] = kanren.Walk(a, s)
				if groundIdx == -1 && isGround(walked[i]) {
					groundIdx = i
				}
			}

			txn := r.db.Txn(false)
			var (
				it  memdb.ResultIterator
				err error
			)
			if groundIdx >= 0 {
				it, err = txn.Get(tableName, fmt.Sprintf("pos%d", groundIdx), walked[groundIdx].String())
			} else {
				it, err = txn.Get(tableName, "id")
			}
			if err != nil {
				return
			}

			for {
				select {
				case <-ctx.Done():
					return
				default:
				}

				raw := it.Next()
				if raw == nil {
					return
				}
				row, ok := raw.(*factRow)
				if !ok {
					continue
				}

				cur := s
				matched := true
				for i, a := range args {
					ns := kanren.UnifyWake(a, row.Terms[i], cur)
					if ns == nil {
						matched = false
						break
					}
					cur = ns
				}
				if matched {
					if !out.Emit(cur) {
						return
					}
				}
			}
		}()
		return out
	}
}

// isGround reports whether t contains no unbound variable anywhere in its
// structure — it is assumed already Walked, so any *Var it finds really
// is unbound.
func isGround(t kanren.Term) bool {
	switch x := t.(type) {
	case *kanren.Var:
		return false
	case *kanren.Cons:
		return isGround(x.Head) && isGround(x.Tail)
	case kanren.Arr:
		for _, e := range x {
			if !isGround(e) {
				return false
			}
		}
		return true
	case kanren.Rec:
		for _, v := range x {
			if !isGround(v) {
				return false
			}
		}
		return true
	default:
		return true
	}
}
