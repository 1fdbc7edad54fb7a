package diagnostics

import (
	"slices"
	"sync"
)

// Store keeps the latest diagnostics snapshot per document.
type Store struct {
	mu   sync.RWMutex
	docs map[string][]Diagnostic
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{docs: make(map[string][]Diagnostic)}
}

// Update replaces the snapshot of every given document and returns the
// resulting change event. A document with no diagnostics is dropped from the
// store but still named in the event.
func (s *Store) Update(docs ...Document) ChangeEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	event := ChangeEvent{URIs: make([]string, 0, len(docs))}
	for _, doc := range docs {
		if len(doc.Diagnostics) == 0 {
			delete(s.docs, doc.URI)
		} else {
			s.docs[doc.URI] = slices.Clone(doc.Diagnostics)
		}
		if !slices.Contains(event.URIs, doc.URI) {
			event.URIs = append(event.URIs, doc.URI)
		}
	}
	return event
}

// Diagnostics returns a copy of the current snapshot for uri.
func (s *Store) Diagnostics(uri string) []Diagnostic {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.docs[uri])
}

// Len returns the number of documents with a non-empty snapshot.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}
