package scene

import (
	"strings"
	"testing"

	"github.com/lumenray/lumen"
)

func testLoc(line int) lumen.FileLoc {
	return lumen.FileLoc{Filename: "scene.txt", Line: line, Column: 1}
}

func TestNestingStackPushPop(t *testing.T) {
	var s nestingStack

	s.push(scopeAttribute, testLoc(1))
	s.push(scopeTransform, testLoc(2))
	if got := s.depth(); got != 2 {
		t.Fatalf("depth() = %d, want 2", got)
	}
	if err := s.pop(scopeTransform, testLoc(3)); err != nil {
		t.Fatalf("pop(scopeTransform) = %v, want nil", err)
	}
	if err := s.pop(scopeAttribute, testLoc(4)); err != nil {
		t.Fatalf("pop(scopeAttribute) = %v, want nil", err)
	}
	if got := s.depth(); got != 0 {
		t.Errorf("depth() = %d, want 0", got)
	}
}

func TestNestingStackPopEmpty(t *testing.T) {
	var s nestingStack

	err := s.pop(scopeAttribute, testLoc(5))
	if err == nil {
		t.Fatal("pop() on empty stack = nil, want error")
	}
	if !strings.Contains(err.Error(), "AttributeEnd") {
		t.Errorf("pop() error = %q, want mention of AttributeEnd", err)
	}
}

func TestNestingStackMismatch(t *testing.T) {
	var s nestingStack

	s.push(scopeObject, testLoc(10))
	err := s.pop(scopeAttribute, testLoc(20))
	if err == nil {
		t.Fatal("mismatched pop() = nil, want error")
	}
	for _, want := range []string{"AttributeEnd", "ObjectBegin", "scene.txt:10:1"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("pop() error = %q, want mention of %q", err, want)
		}
	}
	// The failed pop must not consume the entry.
	if got := s.depth(); got != 1 {
		t.Errorf("depth() after failed pop = %d, want 1", got)
	}
}

func TestNestingStackDrain(t *testing.T) {
	var s nestingStack

	s.push(scopeAttribute, testLoc(1))
	s.push(scopeTransform, testLoc(2))
	s.push(scopeObject, testLoc(3))

	var kinds []scopeKind
	s.drain(func(e scopeEntry) { kinds = append(kinds, e.kind) })

	want := []scopeKind{scopeObject, scopeTransform, scopeAttribute}
	if len(kinds) != len(want) {
		t.Fatalf("drain() visited %d entries, want %d", len(kinds), len(want))
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("drain() order[%d] = %v, want %v", i, kinds[i], want[i])
		}
	}
	if got := s.depth(); got != 0 {
		t.Errorf("depth() after drain = %d, want 0", got)
	}
}
