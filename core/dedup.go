package orchestration

const defaultSeenCapacity = 1000

// seenEvents is a bounded set of recently processed event ids with FIFO
// eviction. Processing is single-threaded per session, so insertion order is
// arrival order and timestamps are unnecessary.
type seenEvents struct {
	capacity int
	ids      map[string]struct{}
	order    []string
}

func newSeenEvents(capacity int) *seenEvents {
	if capacity <= 0 {
		capacity = defaultSeenCapacity
	}
	return &seenEvents{
		capacity: capacity,
		ids:      make(map[string]struct{}, capacity),
	}
}

// Seen reports whether the id was already processed, recording it otherwise.
// Events without an id are never deduplicated.
func (s *seenEvents) Seen(id string) bool {
	if id == "" {
		return false
	}
	if _, ok := s.ids[id]; ok {
		return true
	}

	s.ids[id] = struct{}{}
	s.order = append(s.order, id)
	for len(s.ids) > s.capacity {
		delete(s.ids, s.order[0])
		s.order = s.order[1:]
	}
	return false
}

func (s *seenEvents) Len() int { return len(s.ids) }

// Clear forgets all recorded ids.
func (s *seenEvents) Clear() {
	s.ids = make(map[string]struct{}, s.capacity)
	s.order = nil
}
