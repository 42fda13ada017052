package segment

import "time"

// Store is a multi-map from segment ID to record. Retrieval is
// direction-insensitive: a lookup that misses on the queried ID retries the
// reversed ID. Records under one ID keep their insertion order, so a query
// matching several records deterministically picks the first. The store is
// populated once at startup and shared read-only across searches.
type Store struct {
	records map[ID][]*Record
	count   int
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{records: make(map[ID][]*Record)}
}

// Add appends a record under its ID, preserving insertion order.
func (s *Store) Add(r *Record) {
	s.records[r.ID] = append(s.records[r.ID], r)
	s.count++
}

// Lookup returns the first record valid at the given time-of-day, trying the
// queried direction before the reversed one. The boolean is false when no
// record in either direction covers the time.
func (s *Store) Lookup(id ID, timeOfDay time.Duration) (*Record, bool) {
	for _, candidate := range s.records[id] {
		if candidate.ValidAt(timeOfDay) {
			return candidate, true
		}
	}
	for _, candidate := range s.records[id.Reversed()] {
		if candidate.ValidAt(timeOfDay) {
			return candidate, true
		}
	}
	return nil, false
}

// Len returns the total number of records.
func (s *Store) Len() int {
	return s.count
}
