package query

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/mitchellh/mapstructure"

	"github.com/dlashua/logic-sub002/pkg/kanren"
)

// Vars is the variable proxy a Select projector receives: calling Var
// with the same name twice returns the same logic variable, and every
// name ever asked for is remembered in arrival order so the wildcard
// projection ("*") knows what to include — spec §9's "eliminate the
// closed-over proxy-variable pattern by keying variables off an explicit
// identifier map" resolution.
type Vars struct {
	mu    sync.Mutex
	vars  map[string]*kanren.Var
	order []string
}

func newVars() *Vars {
	return &Vars{vars: make(map[string]*kanren.Var)}
}

// Var returns the logic variable registered under name, minting one the
// first time name is seen.
func (p *Vars) Var(name string) *kanren.Var {
	p.mu.Lock()
	defer p.mu.Unlock()
	if v, ok := p.vars[name]; ok {
		return v
	}
	v := kanren.Lvar(name)
	p.vars[name] = v
	p.order = append(p.order, name)
	return v
}

// Builder is the fluent query: Select a projection, Where one or more
// goals (conjoined), Limit the result count, then ToArray to run and
// collect.
type Builder struct {
	vars     *Vars
	selectFn func(*Vars) any
	wheres   []kanren.Goal
	limit    int
}

// New starts an unbounded query with no projection (defaults to "*")
// and no where-clauses; ToArray returns an error until Where has added
// at least one goal.
func New() *Builder {
	return &Builder{vars: newVars(), limit: -1}
}

// Select sets the projection: fn receives the query's variable proxy and
// returns either "*" (every variable touched through the proxy), a
// map[string]kanren.Term or []kanren.Term template, or a pointer to a
// struct type used purely as a decode target for every variable touched.
func (b *Builder) Select(fn func(*Vars) any) *Builder {
	b.selectFn = fn
	return b
}

// Where adds goals, conjoined with whatever Where has already
// accumulated. May be called more than once.
func (b *Builder) Where(goals ...kanren.Goal) *Builder {
	b.wheres = append(b.wheres, goals...)
	return b
}

// Limit caps the number of results; n < 0 means unbounded.
func (b *Builder) Limit(n int) *Builder {
	b.limit = n
	return b
}

func (b *Builder) goal() kanren.Goal {
	if len(b.wheres) == 0 {
		return kanren.Success
	}
	return kanren.And(b.wheres...)
}

// shape is resolved once per ToArray call, before running the query, so
// that every variable the projector touches is registered before results
// are walked.
type shape struct {
	wildcard   bool
	template   any
	structType reflect.Type
}

func (b *Builder) resolveShape() shape {
	if b.selectFn == nil {
		return shape{wildcard: true}
	}
	v := b.selectFn(b.vars)
	if s, ok := v.(string); ok && s == "*" {
		return shape{wildcard: true}
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr && !rv.IsNil() && rv.Elem().Kind() == reflect.Struct {
		return shape{structType: rv.Elem().Type()}
	}
	return shape{template: v}
}

// ToArray runs the conjoined where-goals to completion (or Limit
// results, whichever comes first) and projects each surviving
// substitution through the select shape. Results that still carry an
// undecided suspended constraint are dropped after the Limit is applied,
// so fewer than Limit results may be returned. ToArray returns an error
// if no Where goal was added.
func (b *Builder) ToArray(ctx context.Context) ([]any, error) {
	if len(b.wheres) == 0 {
		return nil, fmt.Errorf("query: no Where goal")
	}
	sh := b.resolveShape()
	results, err := kanren.Run(ctx, b.limit, b.goal())
	if err != nil {
		return nil, err
	}

	out := make([]any, 0, len(results))
	for _, s := range results {
		if kanren.HasUndecidedConstraints(s) {
			continue
		}
		projected, err := b.project(sh, s)
		if err != nil {
			return nil, err
		}
		out = append(out, projected)
	}
	return out, nil
}

func (b *Builder) project(sh shape, s *kanren.Subst) (any, error) {
	bindings := make(map[string]any, len(b.vars.order))
	for _, name := range b.vars.order {
		bindings[name] = toPlain(kanren.Walk(b.vars.vars[name], s))
	}

	if sh.wildcard {
		return bindings, nil
	}

	if sh.structType != nil {
		dest := reflect.New(sh.structType)
		if err := mapstructure.Decode(bindings, dest.Interface()); err != nil {
			return nil, fmt.Errorf("query: projecting into %s: %w", sh.structType, err)
		}
		return dest.Elem().Interface(), nil
	}

	return walkTemplate(sh.template, s), nil
}

func walkTemplate(t any, s *kanren.Subst) any {
	switch x := t.(type) {
	case map[string]kanren.Term:
		out := make(map[string]any, len(x))
		for k, v := range x {
			out[k] = toPlain(kanren.Walk(v, s))
		}
		return out
	case []kanren.Term:
		out := make([]any, len(x))
		for i, v := range x {
			out[i] = toPlain(kanren.Walk(v, s))
		}
		return out
	case kanren.Term:
		return toPlain(kanren.Walk(x, s))
	default:
		return t
	}
}
