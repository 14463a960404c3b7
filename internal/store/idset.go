package store

import "slices"

// IDSet is an insertion-ordered set of argument ids with O(1) add, remove
// and membership checks.
type IDSet struct {
	pos map[uint64]int
	ids []uint64
}

func NewIDSet() *IDSet {
	return &IDSet{pos: make(map[uint64]int)}
}

func (s *IDSet) Add(id uint64) bool {
	if _, ok := s.pos[id]; ok {
		return false
	}
	s.pos[id] = len(s.ids)
	s.ids = append(s.ids, id)
	return true
}

// Remove swaps the last element into the removed slot.
func (s *IDSet) Remove(id uint64) bool {
	i, ok := s.pos[id]
	if !ok {
		return false
	}
	last := len(s.ids) - 1
	if i != last {
		moved := s.ids[last]
		s.ids[i] = moved
		s.pos[moved] = i
	}
	s.ids = s.ids[:last]
	delete(s.pos, id)
	return true
}

func (s *IDSet) Contains(id uint64) bool {
	_, ok := s.pos[id]
	return ok
}

func (s *IDSet) Len() int {
	return len(s.ids)
}

// Sorted returns the members in ascending order.
func (s *IDSet) Sorted() []uint64 {
	out := slices.Clone(s.ids)
	if out == nil {
		out = []uint64{}
	}
	slices.Sort(out)
	return out
}
