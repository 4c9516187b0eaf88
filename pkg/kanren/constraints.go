package kanren

import (
	"context"
	"sort"
	"sync/atomic"
)

// Decision is the outcome of evaluating a suspended constraint's decision
// function, spec §3's `Subst | null | CHECK_LATER` tri-state.
type Decision int

const (
	// DecideFail means the constraint is violated; the branch fails.
	DecideFail Decision = iota
	// DecideSucceed means the constraint holds; the returned Subst (which
	// may add further bindings) becomes the new current substitution.
	DecideSucceed
	// DecideCheckLater means too few variables are ground yet; the
	// constraint is requeued and re-fires on the next relevant binding.
	DecideCheckLater
)

// Priority buckets for suspended-constraint wakeup order. Spec §9 leaves
// the concrete values as an implementation choice; within a bucket,
// constraints fire in the order they were suspended.
const (
	PriorityHigh   = 0
	PriorityNormal = 10
	PriorityLow    = 20
)

var suspensionCounter uint64

// Suspension is a deferred constraint: spec §3's "{ variables, body,
// priority }" record, created when body first returns DecideCheckLater.
type Suspension struct {
	id         uint64
	Vars       []Term
	FreeVarIDs map[string]struct{}
	Body       func(values []Term, s *Subst) (*Subst, Decision)
	Priority   int
}

// freeVarIDs collects the ids of every unbound variable reachable from
// terms, under s, so the suspension knows which bindings should wake it.
func freeVarIDs(terms []Term, s *Subst) map[string]struct{} {
	ids := make(map[string]struct{})
	var walkCollect func(Term)
	walkCollect = func(t Term) {
		wt := Walk(t, s)
		switch x := wt.(type) {
		case *Var:
			ids[x.Id] = struct{}{}
		case *Cons:
			walkCollect(x.Head)
			walkCollect(x.Tail)
		case Arr:
			for _, e := range x {
				walkCollect(e)
			}
		case Rec:
			for _, v := range x {
				walkCollect(v)
			}
		}
	}
	for _, t := range terms {
		walkCollect(t)
	}
	return ids
}

// wake re-evaluates every suspension keyed on newly bound variable ids,
// starting from id and cascading through whatever further variables a
// resolved constraint's own watch list names, until no more suspensions
// fire. It returns nil if any woken constraint fails. Constraint bodies
// must extend the substitution with plain Unify (not UnifyWake) so that
// all cascading is driven by this single worklist rather than by nested,
// hard-to-reason-about recursive wakeups.
func wake(id string, s *Subst) *Subst {
	cur := s
	queue := []string{id}
	queued := map[string]bool{id: true}

	for len(queue) > 0 {
		cid := queue[0]
		queue = queue[1:]

		pending := cur.meta.suspended
		if len(pending) == 0 {
			continue
		}

		var candidates, remaining []*Suspension
		for _, sp := range pending {
			if _, ok := sp.FreeVarIDs[cid]; ok {
				candidates = append(candidates, sp)
			} else {
				remaining = append(remaining, sp)
			}
		}
		if len(candidates) == 0 {
			continue
		}

		sort.SliceStable(candidates, func(i, j int) bool {
			if candidates[i].Priority != candidates[j].Priority {
				return candidates[i].Priority < candidates[j].Priority
			}
			return candidates[i].id < candidates[j].id
		})

		for _, sp := range candidates {
			vals := make([]Term, len(sp.Vars))
			for i, t := range sp.Vars {
				vals[i] = Walk(t, cur)
			}
			ns, decision := sp.Body(vals, cur)
			switch decision {
			case DecideFail:
				return nil
			case DecideSucceed:
				if ns != nil {
					cur = ns
				}
				for vid := range sp.FreeVarIDs {
					if !queued[vid] {
						queued[vid] = true
						queue = append(queue, vid)
					}
				}
			case DecideCheckLater:
				remaining = append(remaining, sp)
			}
		}

		nm := cur.meta.clone()
		nm.suspended = remaining
		cur = &Subst{bindings: cur.bindings, meta: nm, occursCheck: cur.occursCheck}
	}

	return cur
}

// bindAndWake extends s with v.Id -> val (after occurs-check) and then
// wakes any suspension keyed on v.Id.
func bindAndWake(v *Var, val Term, s *Subst) *Subst {
	s2 := s.extend(v, val)
	if s2 == nil {
		return nil
	}
	return wake(v.Id, s2)
}

// UnifyWake performs unification the same way Unify does, but routes every
// successful variable binding through bindAndWake so suspended constraints
// see it immediately — spec §4.K's "Constraint-aware unification wraps
// unify". Eq (goal.go) always calls UnifyWake, never the raw Unify.
func UnifyWake(u, v Term, s *Subst) *Subst {
	wu := Walk(u, s)
	wv := Walk(v, s)

	if wu.Equal(wv) {
		return s
	}

	if vu, ok := wu.(*Var); ok {
		return bindAndWake(vu, wv, s)
	}
	if vv, ok := wv.(*Var); ok {
		return bindAndWake(vv, wu, s)
	}

	switch cu := wu.(type) {
	case *Cons:
		cv, ok := wv.(*Cons)
		if !ok {
			return nil
		}
		s1 := UnifyWake(cu.Head, cv.Head, s)
		if s1 == nil {
			return nil
		}
		return UnifyWake(cu.Tail, cv.Tail, s1)

	case Arr:
		av, ok := wv.(Arr)
		if !ok || len(av) != len(cu) {
			return nil
		}
		cur := s
		for i := range cu {
			cur = UnifyWake(cu[i], av[i], cur)
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
			cur = UnifyWake(val, other, cur)
			if cur == nil {
				return nil
			}
		}
		return cur

	default:
		return nil
	}
}

// Suspendo builds a goal from a term list and a decision function, per
// spec §4.S. On each input substitution it walks vars, calls body, and
// either succeeds with the (possibly extended) substitution, fails, or
// enqueues a suspension annotated on the emitted substitution awaiting a
// future binding of one of vars' free variables.
func Suspendo(vars []Term, priority int, body func(values []Term, s *Subst) (*Subst, Decision)) Goal {
	return func(ctx context.Context, s *Subst) *Stream {
		out := NewStream()
		go func() {
			defer out.Close()

			select {
			case <-ctx.Done():
				return
			default:
			}

			vals := make([]Term, len(vars))
			for i, t := range vars {
				vals[i] = Walk(t, s)
			}

			ns, decision := body(vals, s)
			switch decision {
			case DecideFail:
				return
			case DecideSucceed:
				result := s
				if ns != nil {
					result = ns
				}
				out.Emit(result)
			case DecideCheckLater:
				sp := &Suspension{
					id:         atomic.AddUint64(&suspensionCounter, 1),
					Vars:       vars,
					FreeVarIDs: freeVarIDs(vars, s),
					Body:       body,
					Priority:   priority,
				}
				nm := s.meta.clone()
				nm.suspended = append(nm.suspended, sp)
				out.Emit(&Subst{bindings: s.bindings, meta: nm, occursCheck: s.occursCheck})
			}
		}()
		return out
	}
}

// HasUndecidedConstraints reports whether s still carries any suspended
// constraint that never resolved — spec §4.S: "a suspension that remains
// at the end of the stream is reported as an undecided constraint ... must
// not be reported as final". Query (pkg/query) filters these out before
// yielding results. Not (combinators.go) does not consult it: a result
// carrying suspensions still counts as a solution there.
func HasUndecidedConstraints(s *Subst) bool {
	return len(s.meta.suspended) > 0
}
