package kanren

import (
	"context"
	"testing"
)

// TestSuspendoChecksLaterThenResolves exercises the classic suspend-until-
// ground pattern: a constraint that two variables be unequal, which must
// wait for both sides to become ground before it can decide.
func TestSuspendoChecksLaterThenResolves(t *testing.T) {
	ctx := context.Background()
	x, y := Lvar("x"), Lvar("y")

	neq := Suspendo([]Term{x, y}, PriorityNormal, func(values []Term, s *Subst) (*Subst, Decision) {
		xp, xok := values[0].(Primitive)
		yp, yok := values[1].(Primitive)
		if !xok || !yok {
			return nil, DecideCheckLater
		}
		if xp.Equal(yp) {
			return nil, DecideFail
		}
		return s, DecideSucceed
	})

	goal := And(neq, Eq(x, NewPrimitive(1.0)), Eq(y, NewPrimitive(2.0)))
	results, err := Run(ctx, -1, goal)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if HasUndecidedConstraints(results[0]) {
		t.Error("expected the suspension to have resolved by the end of the stream")
	}
}

func TestSuspendoFailsWhenGroundValuesViolateConstraint(t *testing.T) {
	ctx := context.Background()
	x, y := Lvar("x"), Lvar("y")

	neq := Suspendo([]Term{x, y}, PriorityNormal, func(values []Term, s *Subst) (*Subst, Decision) {
		xp, xok := values[0].(Primitive)
		yp, yok := values[1].(Primitive)
		if !xok || !yok {
			return nil, DecideCheckLater
		}
		if xp.Equal(yp) {
			return nil, DecideFail
		}
		return s, DecideSucceed
	})

	goal := And(neq, Eq(x, NewPrimitive(5.0)), Eq(y, NewPrimitive(5.0)))
	results, err := Run(ctx, -1, goal)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected violated constraint to fail the whole conjunction, got %d results", len(results))
	}
}

func TestSuspendoLeavesUndecidedConstraintWhenNeverGrounded(t *testing.T) {
	ctx := context.Background()
	x, y := Lvar("x"), Lvar("y")

	neq := Suspendo([]Term{x, y}, PriorityNormal, func(values []Term, s *Subst) (*Subst, Decision) {
		_, xok := values[0].(Primitive)
		_, yok := values[1].(Primitive)
		if !xok || !yok {
			return nil, DecideCheckLater
		}
		return s, DecideSucceed
	})

	results, err := Run(ctx, -1, neq)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if !HasUndecidedConstraints(results[0]) {
		t.Error("expected the constraint to remain undecided with no variables ever bound")
	}
}

func TestLengthoCascadesSuspendedArithmetic(t *testing.T) {
	// Lengtho's recursive decrementEq suspensions must cascade all the way
	// down the chain once the base case grounds the innermost count.
	ctx := context.Background()
	n := Lvar("n")
	l := ListOf(NewPrimitive(1.0), NewPrimitive(2.0), NewPrimitive(3.0), NewPrimitive(4.0))
	results, err := Run(ctx, -1, Lengtho(l, n))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if got := Walk(n, results[0]); !got.Equal(NewPrimitive(4.0)) {
		t.Errorf("expected length 4, got %s", got.String())
	}
	if HasUndecidedConstraints(results[0]) {
		t.Error("expected all arithmetic suspensions to resolve")
	}
}
