package kanren

import "testing"

func TestLvarUniqueness(t *testing.T) {
	a := Lvar("x")
	b := Lvar("x")
	if a.Id == b.Id {
		t.Errorf("expected distinct ids for separately minted variables, got %q twice", a.Id)
	}
	if a.Equal(b) {
		t.Error("two separately minted variables with the same name should not be Equal")
	}
	if !a.Equal(a) {
		t.Error("a variable should be Equal to itself")
	}
}

func TestPrimitiveNormalizesIntegers(t *testing.T) {
	p1 := NewPrimitive(1)
	p2 := NewPrimitive(1.0)
	if !p1.Equal(p2) {
		t.Errorf("expected int 1 and float64 1.0 to normalize to the same Primitive")
	}

	p3 := NewPrimitive("a")
	p4 := NewPrimitive("b")
	if p3.Equal(p4) {
		t.Error("distinct strings should not be Equal")
	}
}

func TestArrEquality(t *testing.T) {
	a := Arr{NewPrimitive(1), NewPrimitive(2)}
	b := Arr{NewPrimitive(1), NewPrimitive(2)}
	c := Arr{NewPrimitive(1)}
	if !a.Equal(b) {
		t.Error("expected equal-length, equal-element arrays to be Equal")
	}
	if a.Equal(c) {
		t.Error("expected arrays of different length to not be Equal")
	}
}

func TestListOfAndConsString(t *testing.T) {
	l := ListOf(NewPrimitive(1), NewPrimitive(2), NewPrimitive(3))
	got := l.String()
	want := "(1 2 3)"
	if got != want {
		t.Errorf("ListOf(1,2,3).String() = %q, want %q", got, want)
	}

	if !Nil.Equal(NilList{}) {
		t.Error("Nil should Equal NilList{}")
	}
}

func TestImproperConsString(t *testing.T) {
	c := NewCons(NewPrimitive(1), Lvar("x"))
	s := c.String()
	if s[0] != '(' || s[len(s)-1] != ')' {
		t.Errorf("expected parenthesized rendering, got %q", s)
	}
}

func TestRecEquality(t *testing.T) {
	r1 := Rec{"a": NewPrimitive(1), "b": NewPrimitive(2)}
	r2 := Rec{"b": NewPrimitive(2), "a": NewPrimitive(1)}
	r3 := Rec{"a": NewPrimitive(1)}
	if !r1.Equal(r2) {
		t.Error("expected records with the same keys/values (different insertion order) to be Equal")
	}
	if r1.Equal(r3) {
		t.Error("expected records with different key sets to not be Equal")
	}
}

func TestIsVar(t *testing.T) {
	if !IsVar(Lvar("x")) {
		t.Error("expected Lvar result to be a Var")
	}
	if IsVar(NewPrimitive(1)) {
		t.Error("expected Primitive to not be a Var")
	}
}
