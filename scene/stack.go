package scene

import (
	"fmt"

	"github.com/lumenray/lumen"
)

// scopeKind identifies which Begin directive opened a nesting scope.
type scopeKind int

const (
	scopeAttribute scopeKind = iota
	scopeTransform
	scopeObject
)

func (k scopeKind) beginName() string {
	switch k {
	case scopeAttribute:
		return "AttributeBegin"
	case scopeTransform:
		return "TransformBegin"
	case scopeObject:
		return "ObjectBegin"
	}
	return fmt.Sprintf("scopeKind(%d)", int(k))
}

func (k scopeKind) endName() string {
	switch k {
	case scopeAttribute:
		return "AttributeEnd"
	case scopeTransform:
		return "TransformEnd"
	case scopeObject:
		return "ObjectEnd"
	}
	return fmt.Sprintf("scopeKind(%d)", int(k))
}

type scopeEntry struct {
	kind scopeKind
	loc  lumen.FileLoc
}

// nestingStack tracks open Begin/End scopes. Builder and Formatter both
// drive one so that malformed nesting is caught identically, and the
// Formatter derives its indentation from the current depth.
type nestingStack struct {
	entries []scopeEntry
}

func (s *nestingStack) push(kind scopeKind, loc lumen.FileLoc) {
	s.entries = append(s.entries, scopeEntry{kind: kind, loc: loc})
}

// pop removes the innermost scope. It fails when the stack is empty or
// when the innermost scope was opened by a different Begin directive;
// either way the stream cannot be trusted past this point.
func (s *nestingStack) pop(kind scopeKind, loc lumen.FileLoc) error {
	if len(s.entries) == 0 {
		return fmt.Errorf("scene: %s: unmatched %s with no open scope", loc, kind.endName())
	}
	top := s.entries[len(s.entries)-1]
	if top.kind != kind {
		return fmt.Errorf("scene: %s: %s does not close %s at %s",
			loc, kind.endName(), top.kind.beginName(), top.loc)
	}
	s.entries = s.entries[:len(s.entries)-1]
	return nil
}

func (s *nestingStack) depth() int {
	return len(s.entries)
}

// drain pops every open scope, innermost first, calling fn for each.
// Used at WorldEnd to report scopes that were never closed.
func (s *nestingStack) drain(fn func(scopeEntry)) {
	for i := len(s.entries) - 1; i >= 0; i-- {
		fn(s.entries[i])
	}
	s.entries = s.entries[:0]
}
