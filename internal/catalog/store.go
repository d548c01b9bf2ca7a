package catalog

import (
	"errors"
	"strings"
	"sync"
)

var (
	ErrTitleRequired   = errors.New("document title is required")
	ErrTextRequired    = errors.New("document text is required")
	ErrIDSpaceExceeded = errors.New("could not allocate a free document id")
)

const maxIDAttempts = 16

// Store is the document catalog: built-ins first, then custom documents in
// insertion order.
type Store struct {
	mu    sync.RWMutex
	docs  map[string]Document
	order []string
	ids   IDAllocator
}

func NewStore(ids IDAllocator) *Store {
	if ids == nil {
		ids = UUIDAllocator{}
	}
	s := &Store{
		docs: map[string]Document{},
		ids:  ids,
	}
	for _, doc := range Builtins() {
		s.docs[doc.ID] = doc
		s.order = append(s.order, doc.ID)
	}
	return s
}

func (s *Store) Get(id string) (Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	if !ok {
		return Document{}, false
	}
	return doc.clone(), true
}

func (s *Store) List() []Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Document, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.docs[id].clone())
	}
	return out
}

// Custom returns every document outside the built-in id set.
func (s *Store) Custom() []Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Document
	for _, id := range s.order {
		if IsBuiltin(id) {
			continue
		}
		out = append(out, s.docs[id].clone())
	}
	return out
}

// Add builds a custom document whose three sections share rawText as their
// grounding text.
func (s *Store) Add(title, subtitle, rawText string) (Document, error) {
	title = strings.TrimSpace(title)
	subtitle = strings.TrimSpace(subtitle)
	if title == "" {
		return Document{}, ErrTitleRequired
	}
	if strings.TrimSpace(rawText) == "" {
		return Document{}, ErrTextRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		id := s.ids.NewID()
		if id == "" || IsBuiltin(id) {
			continue
		}
		if _, taken := s.docs[id]; taken {
			continue
		}
		doc := newCustomDocument(id, title, subtitle, rawText)
		s.docs[id] = doc
		s.order = append(s.order, id)
		return doc.clone(), nil
	}
	return Document{}, ErrIDSpaceExceeded
}

// Restore merges previously persisted custom documents. Built-in ids and
// incomplete records are skipped; the number of documents kept is returned.
func (s *Store) Restore(docs []Document) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := 0
	for _, doc := range docs {
		if IsBuiltin(doc.ID) || !doc.Complete() {
			continue
		}
		if _, exists := s.docs[doc.ID]; !exists {
			s.order = append(s.order, doc.ID)
		}
		s.docs[doc.ID] = doc.clone()
		kept++
	}
	return kept
}
