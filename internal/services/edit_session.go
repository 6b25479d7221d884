package services

// EditSession tracks which collection index the form is editing, if any.
// The zero value is idle.
type EditSession struct {
	index  int
	active bool
}

func (s *EditSession) Begin(index int) {
	s.index = index
	s.active = true
}

// Index returns the edited index and whether a session is active.
func (s *EditSession) Index() (int, bool) {
	return s.index, s.active
}

func (s *EditSession) Clear() {
	s.index = 0
	s.active = false
}

// Removed keeps the session pointing at the same record after the element
// at index was deleted. Removing the edited record ends the session.
func (s *EditSession) Removed(index int) {
	if !s.active {
		return
	}
	switch {
	case index == s.index:
		s.Clear()
	case index < s.index:
		s.index--
	}
}
