package kanren

// Membero succeeds once for every way x can unify with an element of the
// logic list l, spec §4.G's list membership relation.
func Membero(x, l Term) Goal {
	return Or(
		Eq(l, NewCons(x, Lvar("_"))),
		Fresh(2, func(vs []*Var) Goal {
			head, tail := vs[0], vs[1]
			return And(
				Eq(l, NewCons(head, tail)),
				Membero(x, tail),
			)
		}),
	)
}

// Appendo relates three logic lists such that l1 ++ l2 == l3, spec §4.G's
// classic relational append — usable to both concatenate and to split a
// list into every possible prefix/suffix pair depending on which
// arguments are ground.
func Appendo(l1, l2, l3 Term) Goal {
	return Or(
		And(Eq(l1, Nil), Eq(l2, l3)),
		Fresh(3, func(vs []*Var) Goal {
			h, t1, t3 := vs[0], vs[1], vs[2]
			return And(
				Eq(l1, NewCons(h, t1)),
				Eq(l3, NewCons(h, t3)),
				Appendo(t1, l2, t3),
			)
		}),
	)
}

// Lengtho relates a logic list to its length as a Primitive number.
func Lengtho(l Term, n Term) Goal {
	return Or(
		And(Eq(l, Nil), Eq(n, NewPrimitive(0.0))),
		Fresh(3, func(vs []*Var) Goal {
			h, t, n1 := vs[0], vs[1], vs[2]
			return And(
				Eq(l, NewCons(h, t)),
				decrementEq(n, n1),
				Lengtho(t, n1),
			)
		}),
	)
}

// decrementEq relates n to n1+1, used only by Lengtho to keep the
// recursive length count arithmetic inline without pulling in a general
// arithmetic relation the rest of the engine doesn't need.
func decrementEq(n, n1 Term) Goal {
	return Suspendo([]Term{n, n1}, PriorityNormal, func(values []Term, s *Subst) (*Subst, Decision) {
		nv, nOk := values[0].(Primitive)
		n1v, n1Ok := values[1].(Primitive)
		switch {
		case nOk:
			f, ok := nv.Value.(float64)
			if !ok {
				return nil, DecideFail
			}
			return UnifyWakeResult(n1, NewPrimitive(f-1), s)
		case n1Ok:
			f, ok := n1v.Value.(float64)
			if !ok {
				return nil, DecideFail
			}
			return UnifyWakeResult(n, NewPrimitive(f+1), s)
		default:
			return nil, DecideCheckLater
		}
	})
}

// UnifyWakeResult adapts Unify's nil-on-failure return into the
// (*Subst, Decision) shape Suspendo bodies use. It deliberately calls the
// plain, non-waking Unify: cascading through further suspensions is the
// wake worklist's job (constraints.go), not something a constraint body
// should trigger itself by re-entering UnifyWake.
func UnifyWakeResult(u, v Term, s *Subst) (*Subst, Decision) {
	ns := Unify(u, v, s)
	if ns == nil {
		return nil, DecideFail
	}
	return ns, DecideSucceed
}
