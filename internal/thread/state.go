package thread

import (
	"sort"
	"strconv"
	"strings"
)

// State is the set of comment ids whose reply list the viewer expanded past
// the collapse threshold. It belongs to one thread view and lives as long as
// that view; server-rendered pages carry it across reloads with String and
// ParseState. A nil *State reads as empty.
type State struct {
	expanded map[uint]struct{}
}

// NewState returns a state with the given ids expanded.
func NewState(ids ...uint) *State {
	s := &State{expanded: make(map[uint]struct{}, len(ids))}
	for _, id := range ids {
		s.Expand(id)
	}
	return s
}

// ParseState reads a comma separated id list. Malformed entries are ignored.
func ParseState(raw string) *State {
	s := NewState()
	for _, part := range strings.Split(raw, ",") {
		id, err := strconv.ParseUint(strings.TrimSpace(part), 10, 64)
		if err != nil || id == 0 {
			continue
		}
		s.Expand(uint(id))
	}
	return s
}

// Expanded reports whether id is expanded.
func (s *State) Expanded(id uint) bool {
	if s == nil {
		return false
	}
	_, ok := s.expanded[id]
	return ok
}

// Expand marks id expanded.
func (s *State) Expand(id uint) {
	if s.expanded == nil {
		s.expanded = make(map[uint]struct{})
	}
	s.expanded[id] = struct{}{}
}

// Collapse returns id to the default collapse behaviour.
func (s *State) Collapse(id uint) {
	delete(s.expanded, id)
}

// IDs returns the expanded ids in ascending order.
func (s *State) IDs() []uint {
	if s == nil {
		return nil
	}
	ids := make([]uint, 0, len(s.expanded))
	for id := range s.expanded {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// String encodes the state for ParseState.
func (s *State) String() string {
	ids := s.IDs()
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatUint(uint64(id), 10)
	}
	return strings.Join(parts, ",")
}

// Clone returns an independent copy.
func (s *State) Clone() *State {
	return NewState(s.IDs()...)
}

// With returns a copy with id expanded.
func (s *State) With(id uint) *State {
	c := s.Clone()
	c.Expand(id)
	return c
}

// Without returns a copy with id collapsed.
func (s *State) Without(id uint) *State {
	c := s.Clone()
	c.Collapse(id)
	return c
}
