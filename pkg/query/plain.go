// Package query implements the fluent result-projection builder: spec
// §4.Q's `Query().Select(fmt).Where(goals...).Limit(n)`. It runs a
// conjunction of goals to completion, then projects each surviving
// substitution through a caller-supplied shape — a map/slice template of
// variables, a wildcard selecting every variable the shape function
// touched, or a struct type decoded via mapstructure.
package query

import "github.com/dlashua/logic-sub002/pkg/kanren"

// toPlain converts a walked term into the plain Go value a host program
// expects to receive: Primitive unwraps to its raw value, logic lists and
// Arr become []any, Rec becomes map[string]any, and an unresolved
// variable becomes nil.
func toPlain(t kanren.Term) any {
	switch x := t.(type) {
	case kanren.Primitive:
		return x.Value
	case kanren.Arr:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = toPlain(e)
		}
		return out
	case kanren.NilList:
		return []any{}
	case *kanren.Cons:
		var out []any
		var cur kanren.Term = x
		for {
			c, ok := cur.(*kanren.Cons)
			if !ok {
				break
			}
			out = append(out, toPlain(c.Head))
			cur = c.Tail
		}
		return out
	case kanren.Rec:
		out := make(map[string]any, len(x))
		for k, v := range x {
			out[k] = toPlain(v)
		}
		return out
	case *kanren.Var:
		return nil
	default:
		return t
	}
}
