package kanren

import (
	"context"
	"testing"
)

func TestSingleEmitsOneValue(t *testing.T) {
	ctx := context.Background()
	s := Empty(true)
	results := Take(ctx, Single(s), -1)
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
}

func TestEmptyStreamEmitsNothing(t *testing.T) {
	ctx := context.Background()
	results := Take(ctx, EmptyStream(), -1)
	if len(results) != 0 {
		t.Fatalf("expected 0 results, got %d", len(results))
	}
}

func TestTakeStopsProducerEarly(t *testing.T) {
	ctx := context.Background()
	st := NewStream()
	go func() {
		defer st.Close()
		for i := 0; i < 1000; i++ {
			if !st.Emit(Empty(true)) {
				return
			}
		}
	}()

	results := Take(ctx, st, 3)
	if len(results) != 3 {
		t.Fatalf("expected exactly 3 results, got %d", len(results))
	}
}

func TestForEachCanStopEarly(t *testing.T) {
	ctx := context.Background()
	st := NewStream()
	go func() {
		defer st.Close()
		for i := 0; i < 1000; i++ {
			if !st.Emit(Empty(true)) {
				return
			}
		}
	}()

	count := 0
	ForEach(ctx, st, func(s *Subst) bool {
		count++
		return count < 5
	})
	if count != 5 {
		t.Errorf("expected ForEach to stop after 5 items, got %d", count)
	}
}
