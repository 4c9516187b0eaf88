package sqlfacts

import "github.com/dlashua/logic-sub002/pkg/kanren"

// termToValue converts a ground kanren.Term into a driver-level value
// suitable for a WHERE parameter.
func termToValue(t kanren.Term) any {
	if p, ok := t.(kanren.Primitive); ok {
		return p.Value
	}
	return t.String()
}

// valueToTerm converts a driver-returned column value into a term,
// normalizing the handful of shapes database/sql drivers hand back.
func valueToTerm(v any) kanren.Term {
	switch x := v.(type) {
	case []byte:
		return kanren.NewPrimitive(string(x))
	default:
		return kanren.NewPrimitive(x)
	}
}

// unifyRow attempts to unify every column queryObject names against the
// matching value in row, walking queryObject's terms under s. Returns
// false if row is missing an expected column or unification fails on
// any column — spec §4.D.5.
func unifyRow(row Row, queryObject map[string]kanren.Term, s *kanren.Subst) (*kanren.Subst, bool) {
	cur := s
	for col, term := range queryObject {
		v, ok := row[col]
		if !ok {
			return nil, false
		}
		ns := kanren.UnifyWake(term, valueToTerm(v), cur)
		if ns == nil {
			return nil, false
		}
		cur = ns
	}
	return cur, true
}
