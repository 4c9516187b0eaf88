package aggregate

import (
	"context"

	"github.com/dlashua/logic-sub002/pkg/kanren"
)

// groupStream is shared by the *Streamo variants below: it collects g's
// results, groups them by the walked value of key, and for each group
// calls build with that group's key term, its member substitutions (in
// arrival order), and the agg(group values) term already computed from
// the walked values of value — leaving build to decide how to shape the
// emitted substitution (the drop-flag policy the two public variants
// implement differently).
func groupStream(
	ctx context.Context,
	key, value kanren.Term,
	g kanren.Goal,
	s *kanren.Subst,
	agg func([]kanren.Term) kanren.Term,
	build func(groupKey kanren.Term, members []*kanren.Subst, aggVal kanren.Term) *kanren.Subst,
) *kanren.Stream {
	out := kanren.NewStream()
	go func() {
		defer out.Close()

		results := kanren.Take(ctx, g(ctx, s), -1)

		var keys []kanren.Term
		index := make(map[string]int)
		var memberGroups [][]*kanren.Subst
		var valueGroups [][]kanren.Term

		for _, r := range results {
			k := kanren.Walk(key, r)
			v := kanren.Walk(value, r)
			kk := k.String()
			idx, ok := index[kk]
			if !ok {
				idx = len(keys)
				index[kk] = idx
				keys = append(keys, k)
				memberGroups = append(memberGroups, nil)
				valueGroups = append(valueGroups, nil)
			}
			memberGroups[idx] = append(memberGroups[idx], r)
			valueGroups[idx] = append(valueGroups[idx], v)
		}

		for i := range keys {
			ns := build(keys[i], memberGroups[i], agg(valueGroups[i]))
			if ns != nil && !out.Emit(ns) {
				return
			}
		}
	}()
	return out
}

// GroupByCollectStreamo groups g's results by key and binds outList to
// the logic list of value's walked values per group — spec §4.A's
// group_by_collect_streamo. When drop is true the emitted substitution
// is the outer substitution plus outKey/outList, discarding whatever
// other bindings the group's member substitutions picked up inside g;
// when drop is false,
// the first member substitution of the group is reused as the base (its
// own bindings survive alongside outKey/outList).
func GroupByCollectStreamo(key, value kanren.Term, g kanren.Goal, outKey, outList kanren.Term, drop bool) kanren.Goal {
	return func(ctx context.Context, s *kanren.Subst) *kanren.Stream {
		return groupStream(ctx, key, value, g, s,
			func(vs []kanren.Term) kanren.Term { return kanren.ListOf(vs...) },
			func(groupKey kanren.Term, members []*kanren.Subst, aggVal kanren.Term) *kanren.Subst {
				return bindGroupResult(ctx, s, members, drop, outKey, groupKey, outList, aggVal)
			},
		)
	}
}

// GroupByCountStreamo groups g's results by key and binds outCount to the
// number of results per group — spec §4.A's group_by_count_streamo.
func GroupByCountStreamo(key kanren.Term, g kanren.Goal, outKey, outCount kanren.Term, drop bool) kanren.Goal {
	return func(ctx context.Context, s *kanren.Subst) *kanren.Stream {
		return groupStream(ctx, key, kanren.NewPrimitive(true), g, s,
			func(vs []kanren.Term) kanren.Term { return kanren.NewPrimitive(float64(len(vs))) },
			func(groupKey kanren.Term, members []*kanren.Subst, aggVal kanren.Term) *kanren.Subst {
				return bindGroupResult(ctx, s, members, drop, outKey, groupKey, outCount, aggVal)
			},
		)
	}
}

// bindGroupResult unifies outKey/outField into either the outer
// substitution s (drop == true) or the group's first member substitution
// (drop == false), returning nil if unification fails.
func bindGroupResult(ctx context.Context, s *kanren.Subst, members []*kanren.Subst, drop bool, outKey, groupKey, outField, fieldVal kanren.Term) *kanren.Subst {
	base := s
	if !drop && len(members) > 0 {
		base = members[0]
	}
	results := kanren.Take(ctx, kanren.And(kanren.Eq(outKey, groupKey), kanren.Eq(outField, fieldVal))(ctx, base), 1)
	if len(results) == 0 {
		return nil
	}
	return results[0]
}
