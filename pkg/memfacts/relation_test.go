package memfacts

import (
	"context"
	"testing"

	"github.com/dlashua/logic-sub002/pkg/kanren"
)

func TestRelationGroundLookup(t *testing.T) {
	r, err := New(2)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := r.Set(kanren.NewPrimitive("alice"), kanren.NewPrimitive("bob")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := r.Set(kanren.NewPrimitive("alice"), kanren.NewPrimitive("carol")); err != nil {
		t.Fatalf("Set: %v", err)
	}

	ctx := context.Background()
	y := kanren.Lvar("y")
	goal := r.Goal(kanren.NewPrimitive("alice"), y)
	results, err := kanren.Run(ctx, -1, goal)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
}

func TestRelationFullScanWhenNoArgGround(t *testing.T) {
	r, err := New(2)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_ = r.Set(kanren.NewPrimitive("alice"), kanren.NewPrimitive("bob"))
	_ = r.Set(kanren.NewPrimitive("carol"), kanren.NewPrimitive("dave"))

	ctx := context.Background()
	x, y := kanren.Lvar("x"), kanren.Lvar("y")
	results, err := kanren.Run(ctx, -1, r.Goal(x, y))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results from full scan, got %d", len(results))
	}
}

func TestRelationFiltersOnSecondGroundArg(t *testing.T) {
	r, _ := New(2)
	_ = r.Set(kanren.NewPrimitive("alice"), kanren.NewPrimitive("bob"))
	_ = r.Set(kanren.NewPrimitive("alice"), kanren.NewPrimitive("carol"))

	ctx := context.Background()
	goal := r.Goal(kanren.NewPrimitive("alice"), kanren.NewPrimitive("carol"))
	results, err := kanren.Run(ctx, -1, goal)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
}

func TestSymmetricRelationStoresBothOrientations(t *testing.T) {
	r, err := NewSymmetric()
	if err != nil {
		t.Fatalf("NewSymmetric: %v", err)
	}
	if err := r.Set(kanren.NewPrimitive("alice"), kanren.NewPrimitive("bob")); err != nil {
		t.Fatalf("Set: %v", err)
	}

	ctx := context.Background()
	y := kanren.Lvar("y")

	forward, err := kanren.Run(ctx, -1, r.Goal(kanren.NewPrimitive("alice"), y))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(forward) != 1 {
		t.Fatalf("expected 1 forward result, got %d", len(forward))
	}

	backward, err := kanren.Run(ctx, -1, r.Goal(kanren.NewPrimitive("bob"), y))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(backward) != 1 {
		t.Fatalf("expected 1 backward result (symmetric relation), got %d", len(backward))
	}
}

func TestRelationArityMismatchFails(t *testing.T) {
	r, _ := New(2)
	if err := r.Set(kanren.NewPrimitive("only-one")); err == nil {
		t.Error("expected Set with wrong arity to return an error")
	}
}
