package intern

import "testing"

func TestLookupDeduplicates(t *testing.T) {
	tbl := NewTable(StringHasher)

	a := tbl.Lookup("hello")
	b := tbl.Lookup("hello")
	c := tbl.Lookup("world")

	if a != b {
		t.Error("equal values should return the same pointer")
	}
	if a == c {
		t.Error("different values should return different pointers")
	}
	if tbl.Len() != 2 {
		t.Errorf("Len() = %d, want 2", tbl.Len())
	}
}

func TestLookupHashCollision(t *testing.T) {
	// Force every value into one bucket; equality must still separate them.
	tbl := NewTable(func(string) uint64 { return 42 })

	a := tbl.Lookup("a")
	b := tbl.Lookup("b")
	if a == b {
		t.Error("colliding hashes must be disambiguated by equality")
	}
	if got := tbl.Lookup("a"); got != a {
		t.Error("re-lookup in a colliding bucket should return the original pointer")
	}
	if tbl.Len() != 2 {
		t.Errorf("Len() = %d, want 2", tbl.Len())
	}
}

func TestStats(t *testing.T) {
	tbl := NewTable(StringHasher)
	tbl.Lookup("x")
	tbl.Lookup("x")
	tbl.Lookup("y")

	s := tbl.Stats()
	if s.Lookups != 3 {
		t.Errorf("Lookups = %d, want 3", s.Lookups)
	}
	if s.Hits != 1 {
		t.Errorf("Hits = %d, want 1", s.Hits)
	}
	if s.Len != 2 {
		t.Errorf("Len = %d, want 2", s.Len)
	}
	if s.HitRate <= 0.33 || s.HitRate >= 0.34 {
		t.Errorf("HitRate = %v, want 1/3", s.HitRate)
	}
}

func TestPointerStability(t *testing.T) {
	tbl := NewTable(StringHasher)
	first := tbl.Lookup("stable")
	for i := 0; i < 1000; i++ {
		tbl.Lookup(string(rune('a' + i%26)))
	}
	if got := tbl.Lookup("stable"); got != first {
		t.Error("pointer must remain stable across later insertions")
	}
}
