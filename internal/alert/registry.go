package alert

import (
	"sort"
	"sync"
)

// Registry maps destination -> subject -> Record for the lifetime of the process.
// The dispatcher is the only writer; the lock keeps HTTP snapshot reads safe.
type Registry struct {
	mu      sync.RWMutex
	records map[string]map[string]Record
}

func NewRegistry() *Registry {
	return &Registry{records: make(map[string]map[string]Record)}
}

// Upsert stores or replaces the record for its destination/subject pair.
func (r *Registry) Upsert(rec Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	bySubject, ok := r.records[rec.Destination]
	if !ok {
		bySubject = make(map[string]Record)
		r.records[rec.Destination] = bySubject
	}
	bySubject[rec.Subject] = rec
}

// Get returns a copy of the record for the pair, or ErrNotFound.
func (r *Registry) Get(destination, subject string) (Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[destination][subject]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

// Len returns the number of stored records.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, bySubject := range r.records {
		n += len(bySubject)
	}
	return n
}

// Snapshot returns all records ordered by destination then subject.
func (r *Registry) Snapshot() []Record {
	r.mu.RLock()
	out := make([]Record, 0, len(r.records))
	for _, bySubject := range r.records {
		for _, rec := range bySubject {
			out = append(out, rec)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Destination != out[j].Destination {
			return out[i].Destination < out[j].Destination
		}
		return out[i].Subject < out[j].Subject
	})
	return out
}
