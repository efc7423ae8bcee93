package orchestration

import "container/list"

// Role tags who produced a transcript entry.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// TranscriptEntry is the accumulated transcript for one conversation item.
type TranscriptEntry struct {
	ItemID string
	Role   Role
	Text   string
	Final  bool
}

const defaultTranscriptCapacity = 50

// transcriptStore is a capacity-bounded map from conversation item id to its
// accumulating transcript, with least-recently-used eviction. Entries are
// derived state, never a durability requirement.
type transcriptStore struct {
	capacity int
	entries  map[string]*list.Element
	// order keeps most-recently-used entries at the front.
	order *list.List
}

func newTranscriptStore(capacity int) *transcriptStore {
	if capacity <= 0 {
		capacity = defaultTranscriptCapacity
	}
	return &transcriptStore{
		capacity: capacity,
		entries:  make(map[string]*list.Element, capacity),
		order:    list.New(),
	}
}

// Seed creates an empty entry for the item if one doesn't exist yet.
func (s *transcriptStore) Seed(itemID string, role Role) *TranscriptEntry {
	if element, ok := s.entries[itemID]; ok {
		s.order.MoveToFront(element)
		return element.Value.(*TranscriptEntry)
	}

	entry := &TranscriptEntry{ItemID: itemID, Role: role}
	s.entries[itemID] = s.order.PushFront(entry)
	s.evictOver()
	return entry
}

// Append adds a transcript piece to the item's entry, creating the entry if
// the seeding event was lost. Created reports whether it had to.
func (s *transcriptStore) Append(itemID string, role Role, delta string) (entry *TranscriptEntry, created bool) {
	element, ok := s.entries[itemID]
	if !ok {
		entry = s.Seed(itemID, role)
		entry.Text = delta
		return entry, true
	}

	s.order.MoveToFront(element)
	entry = element.Value.(*TranscriptEntry)
	entry.Text += delta
	return entry, false
}

// Complete finalizes the item's entry with the terminal transcript text,
// creating the entry if it was never seeded.
func (s *transcriptStore) Complete(itemID string, role Role, text string) *TranscriptEntry {
	entry := s.Seed(itemID, role)
	if text != "" {
		entry.Text = text
	}
	entry.Final = true
	return entry
}

// Get returns the entry for the item without touching recency.
func (s *transcriptStore) Get(itemID string) (*TranscriptEntry, bool) {
	element, ok := s.entries[itemID]
	if !ok {
		return nil, false
	}
	return element.Value.(*TranscriptEntry), true
}

func (s *transcriptStore) Len() int { return len(s.entries) }

// Clear removes all entries.
func (s *transcriptStore) Clear() {
	s.entries = make(map[string]*list.Element, s.capacity)
	s.order.Init()
}

func (s *transcriptStore) evictOver() {
	for len(s.entries) > s.capacity {
		oldest := s.order.Back()
		if oldest == nil {
			return
		}
		s.order.Remove(oldest)
		delete(s.entries, oldest.Value.(*TranscriptEntry).ItemID)
	}
}
