package kanren

import (
	"context"
	"testing"
)

func TestMemberoFindsEachElement(t *testing.T) {
	ctx := context.Background()
	x := Lvar("x")
	l := ListOf(NewPrimitive(1.0), NewPrimitive(2.0), NewPrimitive(3.0))
	results, err := Run(ctx, -1, Membero(x, l))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
}

func TestMemberoFailsOnAbsentElement(t *testing.T) {
	ctx := context.Background()
	l := ListOf(NewPrimitive(1.0), NewPrimitive(2.0))
	results, err := Run(ctx, -1, Membero(NewPrimitive(9.0), l))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected 0 results, got %d", len(results))
	}
}

func TestAppendoConcatenatesGroundLists(t *testing.T) {
	ctx := context.Background()
	l3 := Lvar("l3")
	l1 := ListOf(NewPrimitive(1.0), NewPrimitive(2.0))
	l2 := ListOf(NewPrimitive(3.0))
	results, err := Run(ctx, -1, Appendo(l1, l2, l3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	got := Walk(l3, results[0])
	want := ListOf(NewPrimitive(1.0), NewPrimitive(2.0), NewPrimitive(3.0))
	if !got.Equal(want) {
		t.Errorf("expected l3 = %s, got %s", want.String(), got.String())
	}
}

func TestAppendoSplitsGroundResult(t *testing.T) {
	ctx := context.Background()
	l1, l2 := Lvar("l1"), Lvar("l2")
	l3 := ListOf(NewPrimitive(1.0), NewPrimitive(2.0))
	results, err := Run(ctx, -1, Appendo(l1, l2, l3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// (), (1), (1 2) are the three ways to split a two-element list.
	if len(results) != 3 {
		t.Fatalf("expected 3 splits, got %d", len(results))
	}
}

func TestLengthoCountsElements(t *testing.T) {
	ctx := context.Background()
	n := Lvar("n")
	l := ListOf(NewPrimitive(1.0), NewPrimitive(2.0), NewPrimitive(3.0))
	results, err := Run(ctx, -1, Lengtho(l, n))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if got := Walk(n, results[0]); !got.Equal(NewPrimitive(3.0)) {
		t.Errorf("expected length 3, got %s", got.String())
	}
}
