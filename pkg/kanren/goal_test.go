package kanren

import (
	"context"
	"testing"
)

func TestEqSucceedsAndFails(t *testing.T) {
	ctx := context.Background()
	results, err := Run(ctx, -1, Eq(NewPrimitive(1.0), NewPrimitive(1.0)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}

	results, err = Run(ctx, -1, Eq(NewPrimitive(1.0), NewPrimitive(2.0)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected 0 results for mismatched primitives, got %d", len(results))
	}
}

func TestFreshBindsVariable(t *testing.T) {
	ctx := context.Background()
	var captured *Var
	goal := Fresh(1, func(vs []*Var) Goal {
		captured = vs[0]
		return Eq(vs[0], NewPrimitive(5.0))
	})

	results, err := Run(ctx, -1, goal)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	got := Walk(captured, results[0])
	if !got.Equal(NewPrimitive(5.0)) {
		t.Errorf("expected fresh variable to resolve to 5, got %s", got.String())
	}
}

func TestRunRespectsLimit(t *testing.T) {
	ctx := context.Background()
	x := Lvar("x")
	goal := Or(
		Eq(x, NewPrimitive(1.0)),
		Eq(x, NewPrimitive(2.0)),
		Eq(x, NewPrimitive(3.0)),
	)
	results, err := Run(ctx, 2, goal)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected exactly 2 results when limited, got %d", len(results))
	}
}
