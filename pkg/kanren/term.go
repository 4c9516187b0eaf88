// Package kanren implements the unification kernel, goal algebra, logic
// lists, and suspended-constraint mechanism of the engine: terms, logic
// variables, substitutions, unification with occurs-check, and the
// Goal/Stream abstractions that combinators are built from.
//
// The design follows the teacher's (gitrdm/gokanlogic) Term/Goal/Stream
// shape — a closed Term interface, Goal as a function from an input
// substitution to a stream of output substitutions, cold cancellable
// streams driven by context.Context — generalized to the five-way term
// sum (Var, Primitive, Arr, List, Rec) this engine's data model requires
// and to a persistent substitution backed by a radix tree instead of a
// plain map guarded by a mutex.
package kanren

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
)

// Term is any value the engine can unify: a logic variable, a primitive
// scalar, a structural array, a logic list, or a record. All concrete
// term types are defined in this package; the set is closed by
// convention (callers never implement Term themselves).
type Term interface {
	// String renders a human-readable form, used in debugging and the
	// query log.
	String() string

	// Equal is strict structural equality — not unification. Two
	// unbound variables are Equal only if they share an id.
	Equal(other Term) bool
}

// varCounter hands out the monotonic suffix appended to every minted
// variable's id, matching spec §4.K's "id is name concatenated with the
// next counter value".
var varCounter int64

// Var is a logic variable. Identity is entirely by Id; two *Var values
// with the same Id are the same variable even if allocated separately
// (which never happens in practice, since Lvar is the only constructor).
type Var struct {
	Id string
}

// Lvar allocates a fresh logic variable whose id is name with a
// monotonic counter suffix appended, per spec §4.K.
func Lvar(name string) *Var {
	n := atomic.AddInt64(&varCounter, 1)
	if name == "" {
		name = "_"
	}
	return &Var{Id: name + "." + strconv.FormatInt(n, 10)}
}

func (v *Var) String() string { return "_" + v.Id }

func (v *Var) Equal(other Term) bool {
	ov, ok := other.(*Var)
	return ok && ov.Id == v.Id
}

// Primitive wraps an atomic scalar: nil, bool, a number, or a string.
// Numbers are stored as float64 internally so that 1 and 1.0 unify;
// NewPrimitive converts int, int32, int64 and float32 before wrapping
// (other numeric types are wrapped unchanged).
type Primitive struct {
	Value any
}

// NewPrimitive wraps v as a Primitive term, normalizing integers to
// float64 so numeric literals compare equal regardless of the Go type
// the caller happened to write.
func NewPrimitive(v any) Primitive {
	switch n := v.(type) {
	case int:
		return Primitive{float64(n)}
	case int32:
		return Primitive{float64(n)}
	case int64:
		return Primitive{float64(n)}
	case float32:
		return Primitive{float64(n)}
	default:
		return Primitive{v}
	}
}

func (p Primitive) String() string {
	if p.Value == nil {
		return "null"
	}
	switch v := p.Value.(type) {
	case string:
		return strconv.Quote(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func (p Primitive) Equal(other Term) bool {
	op, ok := other.(Primitive)
	return ok && op.Value == p.Value
}

// Arr is a structural array of terms. Unlike List, an Arr does not carry
// logic-list identity (no Cons/Nil structure) — two Arrs unify only if
// they have the same length and unify pairwise, element by element, per
// spec §4.K.
type Arr []Term

func (a Arr) String() string {
	parts := make([]string, len(a))
	for i, t := range a {
		parts[i] = t.String()
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func (a Arr) Equal(other Term) bool {
	oa, ok := other.(Arr)
	if !ok || len(oa) != len(a) {
		return false
	}
	for i := range a {
		if !a[i].Equal(oa[i]) {
			return false
		}
	}
	return true
}

// NilList is the empty logic list. It is a comparable zero-size type so
// every NilList value is Equal to every other.
type NilList struct{}

// Nil is the canonical empty logic list term, spec §3's `Nil`.
var Nil Term = NilList{}

func (NilList) String() string   { return "()" }
func (NilList) Equal(t Term) bool {
	_, ok := t.(NilList)
	return ok
}

// Cons is a logic-list pair: Head is the first element, Tail is the
// rest of the list (normally another *Cons or Nil, but may be an
// unbound Var mid-construction).
type Cons struct {
	Head Term
	Tail Term
}

// NewCons builds a single cons cell, spec §3's `cons`.
func NewCons(head, tail Term) *Cons {
	return &Cons{Head: head, Tail: tail}
}

func (c *Cons) String() string {
	var b strings.Builder
	b.WriteByte('(')
	cur := Term(c)
	first := true
	for {
		cell, ok := cur.(*Cons)
		if !ok {
			break
		}
		if !first {
			b.WriteByte(' ')
		}
		first = false
		b.WriteString(cell.Head.String())
		cur = cell.Tail
	}
	if _, isNil := cur.(NilList); !isNil {
		b.WriteString(" . ")
		b.WriteString(cur.String())
	}
	b.WriteByte(')')
	return b.String()
}

func (c *Cons) Equal(other Term) bool {
	oc, ok := other.(*Cons)
	return ok && c.Head.Equal(oc.Head) && c.Tail.Equal(oc.Tail)
}

// ListOf builds a proper logic list out of items, terminated by Nil,
// e.g. ListOf(a, b, c) = (a . (b . (c . ()))).
func ListOf(items ...Term) Term {
	var result Term = Nil
	for i := len(items) - 1; i >= 0; i-- {
		result = NewCons(items[i], result)
	}
	return result
}

// Rec is a record: a mapping from field name to term, spec §3's
// Record<String, Term>. String renders fields in sorted key order.
type Rec map[string]Term

func (r Rec) String() string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s: %s", k, r[k].String())
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func (r Rec) Equal(other Term) bool {
	or, ok := other.(Rec)
	if !ok || len(or) != len(r) {
		return false
	}
	for k, v := range r {
		ov, exists := or[k]
		if !exists || !v.Equal(ov) {
			return false
		}
	}
	return true
}

// IsVar reports whether t is an unbound-or-bound logic variable term
// (identity, not whether it resolves to a ground value — callers Walk
// first if they need that).
func IsVar(t Term) bool {
	_, ok := t.(*Var)
	return ok
}
