package kanren

import (
	"context"
	"sync"
)

// flatMap drains in, and for each substitution it emits, runs f and
// forwards every value of the resulting stream downstream before moving
// on to in's next value — the sequential composition And is built from.
// Cancellation (ctx, or the returned stream being Stopped) propagates
// into both the outer and the currently-running inner stream.
func flatMap(ctx context.Context, in *Stream, f func(*Subst) *Stream) *Stream {
	out := NewStream()
	go func() {
		defer out.Close()
		defer in.Stop()

	outer:
		for {
			select {
			case <-ctx.Done():
				return
			case <-out.Done():
				return
			case s, ok := <-in.Chan():
				if !ok {
					if err := in.Err(); err != nil {
						out.Fail(err)
					}
					return
				}
				inner := f(s)
			inward:
				for {
					select {
					case <-ctx.Done():
						inner.Stop()
						return
					case <-out.Done():
						inner.Stop()
						return
					case v, ok2 := <-inner.Chan():
						if !ok2 {
							if err := inner.Err(); err != nil {
								out.Fail(err)
								return
							}
							break inward
						}
						if !out.Emit(v) {
							inner.Stop()
							return
						}
					}
				}
				continue outer
			}
		}
	}()
	return out
}

// interleave fans in every stream of ins concurrently, so a disjunction's
// branches each make progress instead of the first branch exhausting
// itself before the next one is even started — spec §4.G's requirement
// that `or` interleave rather than concatenate. Branch goroutines racing
// to emit into the shared out stream naturally interleaves their output
// without imposing a strict round-robin order.
func interleave(ctx context.Context, ins []*Stream) *Stream {
	out := NewStream()

	var wg sync.WaitGroup
	var errOnce sync.Once
	var firstErr error
	wg.Add(len(ins))
	for _, branch := range ins {
		branch := branch
		go func() {
			defer wg.Done()
			ForEach(ctx, branch, func(v *Subst) bool {
				return out.Emit(v)
			})
			if err := branch.Err(); err != nil {
				errOnce.Do(func() { firstErr = err })
			}
		}()
	}

	go func() {
		wg.Wait()
		if firstErr != nil {
			out.Fail(firstErr)
			return
		}
		out.Close()
	}()

	return out
}

// And sequences goals: each substitution surviving goal i is fed into
// goal i+1, and every surviving combination is emitted — spec §4.G's
// conjunction. A fresh GOAL_GROUP_PATH frame of type "and" is pushed
// around the whole sequence so member goals can discover their siblings
// via ConjGoals.
func And(goals ...Goal) Goal {
	switch len(goals) {
	case 0:
		return Success
	case 1:
		return goals[0]
	}

	return func(ctx context.Context, s *Subst) *Stream {
		s = EnterGroup(s, GroupFrame{Type: "and", ID: nextGroupID(), Branch: -1})
		cur := goals[0](ctx, s)
		for _, g := range goals[1:] {
			g := g
			cur = flatMap(ctx, cur, func(s2 *Subst) *Stream {
				return g(ctx, s2)
			})
		}
		return cur
	}
}

// Or runs every goal against the same input substitution and interleaves
// their result streams — spec §4.G's disjunction. Each branch gets its own
// GOAL_GROUP_PATH frame of type "or" carrying its branch index.
func Or(goals ...Goal) Goal {
	switch len(goals) {
	case 0:
		return Failure
	case 1:
		return goals[0]
	}

	return func(ctx context.Context, s *Subst) *Stream {
		id := nextGroupID()
		branches := make([]*Stream, len(goals))
		for i, g := range goals {
			bs := EnterGroup(s, GroupFrame{Type: "or", ID: id, Branch: i})
			branches[i] = g(ctx, bs)
		}
		return interleave(ctx, branches)
	}
}

// Conde is Or over a slice of conjunctions, the classic miniKanren clause
// list: Conde([]Goal{a, b}, []Goal{c}) is equivalent to Or(And(a, b), c).
func Conde(clauses ...[]Goal) Goal {
	goals := make([]Goal, len(clauses))
	for i, c := range clauses {
		goals[i] = And(c...)
	}
	return Or(goals...)
}

// Onceo limits goal to at most one result, spec §4.G's commit operator.
func Onceo(goal Goal) Goal {
	return func(ctx context.Context, s *Subst) *Stream {
		results := Take(ctx, goal(ctx, s), 1)
		if len(results) == 0 {
			return EmptyStream()
		}
		return Single(results[0])
	}
}

// Not succeeds (without binding anything) iff goal produces no results
// against s, and fails otherwise — negation as finite failure. Any
// result counts, including one that only carries suspended constraints:
// a goal that merely suspends (neither proved nor refuted) emits a
// substitution, so Not of it fails.
func Not(goal Goal) Goal {
	return func(ctx context.Context, s *Subst) *Stream {
		results := Take(ctx, goal(ctx, s), 1)
		if len(results) == 0 {
			return Single(s)
		}
		return EmptyStream()
	}
}

// Ifte is soft-cut if-then-else, spec §4.G: if cond succeeds at least
// once, run then against every one of cond's results; otherwise run els
// against the original substitution. Unlike And(cond, then), Ifte commits
// to the then branch as soon as cond produces anything, without trying
// els afterward.
func Ifte(cond, then, els Goal) Goal {
	return func(ctx context.Context, s *Subst) *Stream {
		out := NewStream()
		go func() {
			defer out.Close()

			condStream := cond(ctx, s)
			first := true

			for {
				select {
				case <-ctx.Done():
					condStream.Stop()
					return
				case <-out.Done():
					condStream.Stop()
					return
				case cs, ok := <-condStream.Chan():
					if !ok {
						if first {
							elsStream := els(ctx, s)
							ForEach(ctx, elsStream, func(r *Subst) bool {
								return out.Emit(r)
							})
						}
						return
					}
					first = false
					thenStream := then(ctx, cs)
					stop := false
					ForEach(ctx, thenStream, func(r *Subst) bool {
						if !out.Emit(r) {
							stop = true
							return false
						}
						return true
					})
					if stop {
						condStream.Stop()
						return
					}
				}
			}
		}()
		return out
	}
}
