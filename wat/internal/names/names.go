// Package names implements name resolution for text modules: per-index-space
// declaration tables and the block-label scope stack.
package names

import "fmt"

// Space assigns declaration-order indices within one index space. Imports
// are declared before local definitions, so their indices come first.
type Space struct {
	byName map[string]uint32
	kind   string
	count  uint32
}

func NewSpace(kind string) *Space {
	return &Space{kind: kind, byName: make(map[string]uint32)}
}

// Declare assigns the next index to name. Anonymous entries pass "" and
// still occupy an index.
func (s *Space) Declare(name string) (uint32, error) {
	idx := s.count
	s.count++
	if name == "" {
		return idx, nil
	}
	if _, dup := s.byName[name]; dup {
		return 0, fmt.Errorf("duplicate %s name %s", s.kind, name)
	}
	s.byName[name] = idx
	return idx, nil
}

// Resolve maps a declared $name to its index. A reference to an
// undeclared name is fatal for the module.
func (s *Space) Resolve(name string) (uint32, error) {
	idx, ok := s.byName[name]
	if !ok {
		return 0, fmt.Errorf("unknown %s %s", s.kind, name)
	}
	return idx, nil
}

func (s *Space) Count() uint32 { return s.count }

// ScopeStack tracks block labels during body parsing. Resolve returns the
// relative depth of the nearest binding, so an inner label shadows an
// outer one of the same name for its extent.
type ScopeStack struct {
	labels []string
}

func (s *ScopeStack) Push(label string) { s.labels = append(s.labels, label) }

func (s *ScopeStack) Pop() {
	if len(s.labels) > 0 {
		s.labels = s.labels[:len(s.labels)-1]
	}
}

func (s *ScopeStack) Resolve(label string) (uint32, bool) {
	for i := len(s.labels) - 1; i >= 0; i-- {
		if s.labels[i] == label {
			return uint32(len(s.labels) - 1 - i), true
		}
	}
	return 0, false
}

func (s *ScopeStack) Depth() int { return len(s.labels) }
