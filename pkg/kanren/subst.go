package kanren

import (
	iradix "github.com/hashicorp/go-immutable-radix/v2"
)

// GroupFrame is one entry of GOAL_GROUP_PATH: the enclosing conjunction or
// disjunction a substitution currently carries, per spec §3.
type GroupFrame struct {
	Type   string // "and" or "or"
	ID     int64
	Branch int // branch index within an "or"; -1 for "and"
}

// GoalHandle is the explicit replacement for the "weakly associated goal
// IDs via a weak map from goal-function to id" pattern spec §9 calls out:
// every goal that wants to participate in group-metadata discovery (chiefly
// sqlfacts.Goal) carries one of these and registers itself under it.
type GoalHandle struct {
	ID uint64
}

// meta holds the six well-known substitution-level metadata keys from
// spec §3. It is copied (shallow) on every mutation so that a Subst handed
// to one branch of Or is never affected by another branch's extensions —
// the "substitution sharing" invariant of spec §5.
type meta struct {
	groupID       int64
	groupPath     []GroupFrame
	conjGoals     map[GoalHandle]struct{}
	allGoals      map[GoalHandle]struct{}
	suspended     []*Suspension
	rowCache      map[uint64]any // goal id -> opaque row slice (sqlfacts owns the concrete type)
}

func (m *meta) clone() *meta {
	if m == nil {
		return &meta{}
	}
	nm := &meta{
		groupID: m.groupID,
		suspended: append([]*Suspension(nil), m.suspended...),
	}
	nm.groupPath = append([]GroupFrame(nil), m.groupPath...)
	nm.conjGoals = cloneSet(m.conjGoals)
	nm.allGoals = cloneSet(m.allGoals)
	nm.rowCache = make(map[uint64]any, len(m.rowCache))
	for k, v := range m.rowCache {
		nm.rowCache[k] = v
	}
	return nm
}

func cloneSet(s map[GoalHandle]struct{}) map[GoalHandle]struct{} {
	ns := make(map[GoalHandle]struct{}, len(s))
	for k := range s {
		ns[k] = struct{}{}
	}
	return ns
}

// Subst is a persistent mapping from variable id to term, plus the
// well-known metadata keys of spec §3. It is immutable from the caller's
// perspective: every extension returns a new Subst that shares unmodified
// structure with its parent (the "new substitution is the input or a
// strict superset" invariant of spec §3), backed by
// hashicorp/go-immutable-radix so that the structural sharing is a real
// persistent tree rather than a full-map copy.
type Subst struct {
	bindings   *iradix.Tree[Term]
	meta       *meta
	occursCheck bool
}

// Empty returns the substitution with no bindings. occursCheck controls
// whether Unify rejects a variable binding to a term that structurally
// contains it; spec §9 says this "must default to enabled".
func Empty(occursCheck bool) *Subst {
	return &Subst{
		bindings:    iradix.New[Term](),
		meta:        &meta{},
		occursCheck: occursCheck,
	}
}

// Lookup returns the term bound to variable id, or (nil, false) if unbound.
func (s *Subst) Lookup(id string) (Term, bool) {
	return s.bindings.Get([]byte(id))
}

// Size returns the number of bindings in the substitution.
func (s *Subst) Size() int {
	return s.bindings.Len()
}

// Walk resolves t under s: if t is a variable bound in s, the binding
// chain is followed (iteratively, not recursively) until a non-variable
// or an unbound variable is reached; for Cons cells, Arr, and Rec, every
// element/value is walked recursively; Primitive terms pass through
// unchanged. This is spec §4.K's `walk`.
func Walk(t Term, s *Subst) Term {
	for {
		v, ok := t.(*Var)
		if !ok {
			break
		}
		bound, found := s.Lookup(v.Id)
		if !found {
			return v
		}
		t = bound
	}

	switch x := t.(type) {
	case *Cons:
		return &Cons{Head: Walk(x.Head, s), Tail: Walk(x.Tail, s)}
	case Arr:
		out := make(Arr, len(x))
		for i, e := range x {
			out[i] = Walk(e, s)
		}
		return out
	case Rec:
		out := make(Rec, len(x))
		for k, v := range x {
			out[k] = Walk(v, s)
		}
		return out
	default:
		return t
	}
}

// extend returns a new Subst with v.Id bound to val, after an occurs-check
// (when enabled). Returns nil if the occurs-check rejects the binding.
func (s *Subst) extend(v *Var, val Term) *Subst {
	if s.occursCheck && containsVar(val, v.Id) {
		return nil
	}
	txn := s.bindings.Txn()
	txn.Insert([]byte(v.Id), val)
	ns := &Subst{
		bindings:    txn.Commit(),
		meta:        s.meta,
		occursCheck: s.occursCheck,
	}
	return ns
}

// containsVar reports whether t, walked as far as it already has been,
// structurally contains a variable with the given id — spec §4.K's
// occurs-check.
func containsVar(t Term, id string) bool {
	switch x := t.(type) {
	case *Var:
		return x.Id == id
	case *Cons:
		return containsVar(x.Head, id) || containsVar(x.Tail, id)
	case Arr:
		for _, e := range x {
			if containsVar(e, id) {
				return true
			}
		}
		return false
	case Rec:
		for _, v := range x {
			if containsVar(v, id) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// Unify walks both sides and, if they are not already equal, extends the
// substitution so that they become equal, per spec §4.K. It returns nil on
// failure. Unify does not itself trigger suspended-constraint wakeup —
// callers that want wakeup semantics use UnifyWake (constraints.go), which
// is what Eq (goal.go) actually calls.
func Unify(u, v Term, s *Subst) *Subst {
	wu := Walk(u, s)
	wv := Walk(v, s)

	if wu.Equal(wv) {
		return s
	}

	if vu, ok := wu.(*Var); ok {
		return s.extend(vu, wv)
	}
	if vv, ok := wv.(*Var); ok {
		return s.extend(vv, wu)
	}

	switch cu := wu.(type) {
	case *Cons:
		cv, ok := wv.(*Cons)
		if !ok {
			return nil
		}
		s1 := Unify(cu.Head, cv.Head, s)
		if s1 == nil {
			return nil
		}
		return Unify(cu.Tail, cv.Tail, s1)

	case Arr:
		av, ok := wv.(Arr)
		if !ok || len(av) != len(cu) {
			return nil
		}
		cur := s
		for i := range cu {
			cur = Unify(cu[i], av[i], cur)
			if cur == nil {
				return nil
			}
		}
		return cur

	case Rec:
		rv, ok := wv.(Rec)
		if !ok || len(rv) != len(cu) {
			return nil
		}
		cur := s
		for k, val := range cu {
			other, exists := rv[k]
			if !exists {
				return nil
			}
			cur = Unify(val, other, cur)
			if cur == nil {
				return nil
			}
		}
		return cur

	default:
		return nil
	}
}
