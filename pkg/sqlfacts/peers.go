package sqlfacts

import (
	"sort"

	"github.com/dlashua/logic-sub002/pkg/kanren"
)

// goalRecord is the registry entry for one created goal: its table, the
// column->term mapping it was built with, and the debouncer that batches
// its invocations, spec §4.D.1.
type goalRecord struct {
	id          kanren.GoalHandle
	table       string
	queryObject map[string]kanren.Term
}

// mergeCompatible implements spec §4.D.2's stricter relation: a and b are
// merge-compatible when they query the same table over exactly the same
// set of columns, and every column's term resolves (under rep) to either
// the same variable or the same ground value on both sides. Goals
// satisfying this can share one query whose batched WHERE values are the
// union of both goals' ground contributions.
func mergeCompatible(a, b *goalRecord, rep *kanren.Subst) bool {
	if a.table != b.table || len(a.queryObject) != len(b.queryObject) {
		return false
	}
	for col, at := range a.queryObject {
		bt, ok := b.queryObject[col]
		if !ok {
			return false
		}
		if !columnsAgree(at, bt, rep) {
			return false
		}
	}
	return true
}

// cacheCompatible implements spec §4.D.2's looser relation: a and b are
// cache-compatible when they query the same table and agree (same
// variable identity, or same ground value) on every column they have in
// common, without requiring identical column sets. A cache-compatible
// peer can be served a copy of a's rows under its own goal id without
// re-querying, even though its SELECT list may differ from a's.
func cacheCompatible(a, b *goalRecord, rep *kanren.Subst) bool {
	if a.table != b.table {
		return false
	}
	shared := 0
	for col, at := range a.queryObject {
		bt, ok := b.queryObject[col]
		if !ok {
			continue
		}
		shared++
		if !columnsAgree(at, bt, rep) {
			return false
		}
	}
	return shared > 0
}

func columnsAgree(at, bt kanren.Term, rep *kanren.Subst) bool {
	aw, bw := kanren.Walk(at, rep), kanren.Walk(bt, rep)
	av, aIsVar := aw.(*kanren.Var)
	bv, bIsVar := bw.(*kanren.Var)
	switch {
	case aIsVar && bIsVar:
		return av.Id == bv.Id
	case !aIsVar && !bIsVar:
		return aw.Equal(bw)
	default:
		return false
	}
}

// unionVariableColumns returns the sorted union of column names whose
// term, walked under rep, is still an unbound variable across every
// record in recs — spec §4.D.3's "SELECT list is the union of this
// goal's and its peers' variable columns". flushBatch adds the WHERE
// columns to this list before issuing the query.
func unionVariableColumns(rep *kanren.Subst, recs ...*goalRecord) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, r := range recs {
		for col, t := range r.queryObject {
			if kanren.IsVar(kanren.Walk(t, rep)) {
				if _, ok := seen[col]; !ok {
					seen[col] = struct{}{}
					out = append(out, col)
				}
			}
		}
	}
	sort.Strings(out)
	return out
}

// buildWhere computes the WHERE clause for a batched query over rec: for
// every column rec's queryObject names, the set of ground values
// contributed by every pending invocation's substitution, plus every
// merge-compatible peer's own ground contribution (evaluated against the
// representative substitution, since merge-compatibility already proved
// these terms denote consistently there) — spec §4.D.3.
func buildWhere(rec *goalRecord, mergePeers []*goalRecord, batch []pendingInvocation, representative *kanren.Subst) []WhereCondition {
	order := []string{}
	values := map[string]map[string]any{}

	record := func(col string, term kanren.Term, s *kanren.Subst) {
		w := kanren.Walk(term, s)
		if kanren.IsVar(w) {
			return
		}
		if values[col] == nil {
			values[col] = map[string]any{}
			order = append(order, col)
		}
		values[col][w.String()] = termToValue(w)
	}

	for _, p := range batch {
		for col, term := range rec.queryObject {
			record(col, term, p.subst)
		}
	}
	for _, peer := range mergePeers {
		for col, term := range peer.queryObject {
			record(col, term, representative)
		}
	}

	sort.Strings(order)
	out := make([]WhereCondition, 0, len(order))
	for _, col := range order {
		set := values[col]
		vals := make([]any, 0, len(set))
		for _, v := range set {
			vals = append(vals, v)
		}
		if len(vals) == 1 {
			out = append(out, WhereCondition{Column: col, Operator: OpEq, Value: vals[0]})
		} else {
			out = append(out, WhereCondition{Column: col, Operator: OpIn, Values: vals})
		}
	}
	return out
}
