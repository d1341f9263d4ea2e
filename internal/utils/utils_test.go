package utils

import "testing"

func TestSet(t *testing.T) {
	s := MakeSet[string]()
	if s.Has("a") {
		t.Fatal("empty set should not have \"a\"")
	}
	s.Insert("a", "b", "a")
	if !s.Has("a") || !s.Has("b") || len(s) != 2 {
		t.Fatalf("unexpected set %v", s)
	}
	s2 := SetWith(1, 2, 3)
	if !s2.Has(3) || s2.Has(4) {
		t.Fatalf("unexpected set %v", s2)
	}
}
