// Package aggregate implements the engine's relational aggregation and
// subquery layer over pkg/kanren: collecting, counting, grouping, sorting,
// and deduplicating the results of a nested goal without letting any of
// the inner goal's own variable bindings leak into the outer scope.
package aggregate

import (
	"context"
	"sort"

	"github.com/dlashua/logic-sub002/pkg/kanren"
	"golang.org/x/sync/errgroup"
)

// Aggregator reduces the walked values collected from an inner goal's
// results, plus the outer substitution they were collected under, to a
// single term to unify with Subquery's out argument.
type Aggregator func(values []kanren.Term, outer *kanren.Subst) kanren.Term

// collect runs g against s and returns every substitution it produces,
// draining the stream to exhaustion. When g's top-level shape is an Or or
// Conde, the branches already run concurrently (combinators.go's
// interleave); Subquery itself adds no further fan-out beyond draining
// that stream to completion, using an errgroup.Group only around the
// single drain so goroutine leaks are caught the same way batched
// sqlfacts work is (an idle errgroup with one member is indistinguishable
// from a plain call, but it keeps this package's fan-in idiom consistent
// with the rest of the collecting code below it).
func collect(ctx context.Context, g kanren.Goal, s *kanren.Subst) ([]*kanren.Subst, error) {
	var results []*kanren.Subst
	grp, gctx := errgroup.WithContext(ctx)
	grp.Go(func() error {
		var runErr error
		results, runErr = kanren.RunAll(gctx, func(ctx context.Context, _ *kanren.Subst) *kanren.Stream {
			return g(ctx, s)
		})
		return runErr
	})
	if err := grp.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Subquery is the core aggregation operator, spec §4.A: it collects every
// substitution g produces against s, extracts the walked value of key
// from each, applies agg to that value list plus the outer substitution
// s, and unifies the aggregator's result with out in s.
func Subquery(key kanren.Term, g kanren.Goal, out kanren.Term, agg Aggregator) kanren.Goal {
	return func(ctx context.Context, s *kanren.Subst) *kanren.Stream {
		results, err := collect(ctx, g, s)
		if err != nil {
			out := kanren.NewStream()
			out.Fail(err)
			return out
		}
		values := make([]kanren.Term, len(results))
		for i, r := range results {
			values[i] = kanren.Walk(key, r)
		}
		result := agg(values, s)
		return kanren.Eq(out, result)(ctx, s)
	}
}

// Collecto unifies out with a logic list of every walked value of x across
// g's results, in the order they were produced.
func Collecto(x kanren.Term, g kanren.Goal, out kanren.Term) kanren.Goal {
	return Subquery(x, g, out, func(values []kanren.Term, _ *kanren.Subst) kanren.Term {
		return kanren.ListOf(values...)
	})
}

// CollectDistincto is Collecto with duplicate values (by structural
// equality) removed before listing, first occurrence order preserved.
func CollectDistincto(x kanren.Term, g kanren.Goal, out kanren.Term) kanren.Goal {
	return Subquery(x, g, out, func(values []kanren.Term, _ *kanren.Subst) kanren.Term {
		return kanren.ListOf(dedupe(values)...)
	})
}

// Counto unifies out with the number of solutions g has against s.
func Counto(g kanren.Goal, out kanren.Term) kanren.Goal {
	return Subquery(kanren.NewPrimitive(true), g, out, func(values []kanren.Term, _ *kanren.Subst) kanren.Term {
		return kanren.NewPrimitive(float64(len(values)))
	})
}

// CountDistincto unifies out with the number of distinct walked values of
// x across g's results.
func CountDistincto(x kanren.Term, g kanren.Goal, out kanren.Term) kanren.Goal {
	return Subquery(x, g, out, func(values []kanren.Term, _ *kanren.Subst) kanren.Term {
		return kanren.NewPrimitive(float64(len(dedupe(values))))
	})
}

// CountValueo unifies out with the number of times value (walked in the
// outer substitution) occurs among x's walked values across g's results.
func CountValueo(x kanren.Term, g kanren.Goal, value, out kanren.Term) kanren.Goal {
	return Subquery(x, g, out, func(values []kanren.Term, outer *kanren.Subst) kanren.Term {
		target := kanren.Walk(value, outer)
		n := 0
		for _, v := range values {
			if v.Equal(target) {
				n++
			}
		}
		return kanren.NewPrimitive(float64(n))
	})
}

// dedupe removes structurally-equal duplicates from values, preserving
// first-occurrence order. String() is used as the set key since Term
// does not require a Go-comparable underlying representation (Arr, Rec,
// and *Cons are not comparable with ==).
func dedupe(values []kanren.Term) []kanren.Term {
	seen := make(map[string]struct{}, len(values))
	out := make([]kanren.Term, 0, len(values))
	for _, v := range values {
		k := v.String()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, v)
	}
	return out
}

// group buckets g's results by the walked value of key, preserving
// first-occurrence group order, and returns each group's key term plus
// the walked values of value within that group.
func group(ctx context.Context, key, value kanren.Term, g kanren.Goal, s *kanren.Subst) ([]kanren.Term, [][]kanren.Term, error) {
	results, err := collect(ctx, g, s)
	if err != nil {
		return nil, nil, err
	}

	var keys []kanren.Term
	index := make(map[string]int)
	var buckets [][]kanren.Term

	for _, r := range results {
		k := kanren.Walk(key, r)
		v := kanren.Walk(value, r)
		kk := k.String()
		idx, ok := index[kk]
		if !ok {
			idx = len(keys)
			index[kk] = idx
			keys = append(keys, k)
			buckets = append(buckets, nil)
		}
		buckets[idx] = append(buckets[idx], v)
	}
	return keys, buckets, nil
}

// GroupByAggo is the general grouping operator the spec's two named
// derivatives (GroupByCollecto, GroupByCounto) are built on: it groups g's
// results by key, and for each group emits one solution with outKey bound
// to the group's key and outList bound to agg applied to that group's
// walked values of value.
func GroupByAggo(key, value kanren.Term, g kanren.Goal, outKey, outList kanren.Term, agg func([]kanren.Term) kanren.Term) kanren.Goal {
	return func(ctx context.Context, s *kanren.Subst) *kanren.Stream {
		keys, buckets, err := group(ctx, key, value, g, s)
		out := kanren.NewStream()
		go func() {
			defer out.Close()
			if err != nil {
				out.Fail(err)
				return
			}
			for i := range keys {
				branch := kanren.And(
					kanren.Eq(outKey, keys[i]),
					kanren.Eq(outList, agg(buckets[i])),
				)
				kanren.ForEach(ctx, branch(ctx, s), func(r *kanren.Subst) bool {
					return out.Emit(r)
				})
			}
		}()
		return out
	}
}

// GroupByCollecto groups g's results by key and binds outList to the
// logic list of value's walked values within each group.
func GroupByCollecto(key, value kanren.Term, g kanren.Goal, outKey, outList kanren.Term) kanren.Goal {
	return GroupByAggo(key, value, g, outKey, outList, func(vs []kanren.Term) kanren.Term {
		return kanren.ListOf(vs...)
	})
}

// GroupByCounto groups g's results by key and binds outCount to the
// number of results in each group.
func GroupByCounto(key kanren.Term, g kanren.Goal, outKey, outCount kanren.Term) kanren.Goal {
	return GroupByAggo(key, kanren.NewPrimitive(true), g, outKey, outCount, func(vs []kanren.Term) kanren.Term {
		return kanren.NewPrimitive(float64(len(vs)))
	})
}

// Order selects ascending or descending comparison for SortByStreamo; it
// is ignored when SortByStreamo is given a non-nil Less.
type Order int

const (
	Ascending Order = iota
	Descending
)

// Less is a caller-supplied three-way-free comparator for SortByStreamo,
// used in place of Ascending/Descending when compareTerms' default
// ordering of the walked term isn't enough (e.g. custom tie-breaking).
type Less func(a, b kanren.Term) bool

// SortByStreamo buffers every result of g, sorts by the walked value of x
// according to order (Ascending/Descending), or by cmp when cmp is
// non-nil, and re-emits in sorted order — spec §4.A's sort_by_streamo.
func SortByStreamo(x kanren.Term, order Order, cmp Less, g kanren.Goal) kanren.Goal {
	return func(ctx context.Context, s *kanren.Subst) *kanren.Stream {
		results, err := collect(ctx, g, s)
		out := kanren.NewStream()
		go func() {
			defer out.Close()
			if err != nil {
				return
			}
			sorted := append([]*kanren.Subst(nil), results...)
			less := cmp
			if less == nil {
				less = defaultLess(order)
			}
			sort.SliceStable(sorted, func(i, j int) bool {
				return less(kanren.Walk(x, sorted[i]), kanren.Walk(x, sorted[j]))
			})
			for _, r := range sorted {
				if !out.Emit(r) {
					return
				}
			}
		}()
		return out
	}
}

func defaultLess(order Order) Less {
	return func(a, b kanren.Term) bool {
		less := compareTerms(a, b)
		if order == Descending {
			return less > 0
		}
		return less < 0
	}
}

// compareTerms orders two Primitive terms by number, then string, falling
// back to comparing their String() rendering for any other term shape so
// SortByStreamo always produces a total, stable order.
func compareTerms(a, b kanren.Term) int {
	pa, aok := a.(kanren.Primitive)
	pb, bok := b.(kanren.Primitive)
	if aok && bok {
		if fa, ok := pa.Value.(float64); ok {
			if fb, ok := pb.Value.(float64); ok {
				switch {
				case fa < fb:
					return -1
				case fa > fb:
					return 1
				default:
					return 0
				}
			}
		}
		if sa, ok := pa.Value.(string); ok {
			if sb, ok := pb.Value.(string); ok {
				switch {
				case sa < sb:
					return -1
				case sa > sb:
					return 1
				default:
					return 0
				}
			}
		}
	}
	as, bs := a.String(), b.String()
	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	default:
		return 0
	}
}

// TakeStreamo passes at most the first n results of g, then cancels g's
// stream rather than letting it run to completion — spec §4.A's
// take_streamo, thin sugar over kanren.Take that keeps the Goal shape.
func TakeStreamo(n int, g kanren.Goal) kanren.Goal {
	return func(ctx context.Context, s *kanren.Subst) *kanren.Stream {
		out := kanren.NewStream()
		go func() {
			defer out.Close()
			for _, r := range kanren.Take(ctx, g(ctx, s), n) {
				if !out.Emit(r) {
					return
				}
			}
		}()
		return out
	}
}

// Uniqueo deduplicates g's results by the walked value of t, keeping the
// first solution seen for each distinct value — spec §4.A's uniqueo.
func Uniqueo(t kanren.Term, g kanren.Goal) kanren.Goal {
	return func(ctx context.Context, s *kanren.Subst) *kanren.Stream {
		out := kanren.NewStream()
		go func() {
			defer out.Close()
			seen := make(map[string]struct{})
			kanren.ForEach(ctx, g(ctx, s), func(r *kanren.Subst) bool {
				k := kanren.Walk(t, r).String()
				if _, ok := seen[k]; ok {
					return true
				}
				seen[k] = struct{}{}
				return out.Emit(r)
			})
		}()
		return out
	}
}

// MinByStreamo emits the single result substitution of g minimizing the
// walked value of x (the first one seen on ties), per the
// extremum-selection specialization of sort_by_streamo this package adds.
func MinByStreamo(x kanren.Term, g kanren.Goal) kanren.Goal {
	return extremumBy(x, g, -1)
}

// MaxByStreamo emits the single result substitution of g maximizing the
// walked value of x (the first one seen on ties).
func MaxByStreamo(x kanren.Term, g kanren.Goal) kanren.Goal {
	return extremumBy(x, g, 1)
}

func extremumBy(x kanren.Term, g kanren.Goal, want int) kanren.Goal {
	return func(ctx context.Context, s *kanren.Subst) *kanren.Stream {
		results, err := collect(ctx, g, s)
		if err != nil || len(results) == 0 {
			return kanren.EmptyStream()
		}
		best := results[0]
		bestVal := kanren.Walk(x, best)
		for _, r := range results[1:] {
			v := kanren.Walk(x, r)
			if compareTerms(v, bestVal) == want {
				best = r
				bestVal = v
			}
		}
		return kanren.Single(best)
	}
}
