package core

// OrderedSet is a sequence of unique strings with O(1) membership checks.
// Comparison is exact and case-sensitive. The zero value is not usable;
// build one with NewOrderedSet.
type OrderedSet struct {
	items []string
	index map[string]struct{}
}

// NewOrderedSet builds a set from items, keeping the first occurrence of
// each duplicate.
func NewOrderedSet(items ...string) *OrderedSet {
	s := &OrderedSet{
		items: make([]string, 0, len(items)),
		index: make(map[string]struct{}, len(items)),
	}
	for _, it := range items {
		s.Append(it)
	}
	return s
}

// Contains reports whether item is in the set.
func (s *OrderedSet) Contains(item string) bool {
	_, ok := s.index[item]
	return ok
}

// Append adds item at the back unless it is already present.
func (s *OrderedSet) Append(item string) bool {
	if s.Contains(item) {
		return false
	}
	s.items = append(s.items, item)
	s.index[item] = struct{}{}
	return true
}

// Promote moves item to the front, inserting it when absent.
func (s *OrderedSet) Promote(item string) {
	if s.Contains(item) {
		s.remove(item)
	}
	s.items = append([]string{item}, s.items...)
	s.index[item] = struct{}{}
}

func (s *OrderedSet) remove(item string) {
	for i, it := range s.items {
		if it == item {
			s.items = append(s.items[:i], s.items[i+1:]...)
			break
		}
	}
	delete(s.index, item)
}

func (s *OrderedSet) Len() int {
	return len(s.items)
}

// Items returns a copy of the sequence.
func (s *OrderedSet) Items() []string {
	return append([]string{}, s.items...)
}
