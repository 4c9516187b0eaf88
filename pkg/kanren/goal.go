package kanren

import "context"

// Goal is a function from an input substitution to a stream of output
// substitutions — spec §4.G's core abstraction. Every combinator in this
// package and in pkg/aggregate / pkg/memfacts / pkg/sqlfacts produces and
// consumes values of this type.
type Goal func(ctx context.Context, s *Subst) *Stream

// Success is the goal that always succeeds, unchanged, exactly once.
func Success(ctx context.Context, s *Subst) *Stream {
	return Single(s)
}

// Failure is the goal that never succeeds.
func Failure(ctx context.Context, s *Subst) *Stream {
	return EmptyStream()
}

// Eq unifies u and v, succeeding once with the extended substitution if
// they unify and failing otherwise — spec §4.G's `==`. It always goes
// through UnifyWake so any constraint suspended on a variable newly bound
// here fires immediately.
func Eq(u, v Term) Goal {
	return func(ctx context.Context, s *Subst) *Stream {
		ns := UnifyWake(u, v, s)
		if ns == nil {
			return EmptyStream()
		}
		return Single(ns)
	}
}

// Fresh introduces n fresh logic variables and passes them to build, which
// returns the goal to run with those variables in scope — spec §4.G's
// `fresh`. Each invocation mints brand-new variables, so a goal returned
// by Fresh can be reused across many input substitutions (e.g. inside a
// recursive relation) without variable collisions.
func Fresh(n int, build func(vars []*Var) Goal) Goal {
	return func(ctx context.Context, s *Subst) *Stream {
		vars := make([]*Var, n)
		for i := range vars {
			vars[i] = Lvar("_")
		}
		return build(vars)(ctx, s)
	}
}

// Run evaluates goal against the empty substitution (with occurs-check
// enabled, per spec §9's default) and collects up to n results, or every
// result if n is negative. It is the low-level entry point pkg/query
// builds its fluent API on top of. The returned error is non-nil iff the
// stream terminated via Fail — an infrastructure failure (e.g. a SQL
// fact relation's DataStore erroring out) rather than plain exhaustion,
// per spec §7.
func Run(ctx context.Context, n int, goal Goal) ([]*Subst, error) {
	st := goal(ctx, Empty(true))
	results := Take(ctx, st, n)
	return results, st.Err()
}

// RunAll evaluates goal to exhaustion.
func RunAll(ctx context.Context, goal Goal) ([]*Subst, error) {
	return Run(ctx, -1, goal)
}
