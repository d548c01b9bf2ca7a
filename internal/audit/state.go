package audit

import (
	"sort"
	"sync"

	"github.com/cliniquerisimed-lab/jongwane/internal/catalog"
	"github.com/cliniquerisimed-lab/jongwane/internal/persist"
	"github.com/cliniquerisimed-lab/jongwane/internal/playback"
)

// Key addresses every per-section value.
type Key struct {
	DocumentID string        `json:"documentId"`
	Topic      catalog.Topic `json:"topic"`
}

// Narration is an audio buffer together with the revision it was stored at.
// Revisions grow monotonically across the whole State.
type Narration struct {
	Buffer   *playback.Buffer
	Revision uint64
}

type EventKind string

const (
	EventResponse EventKind = "response"
	EventAudio    EventKind = "audio"
	EventLoading  EventKind = "loading"
	EventNote     EventKind = "note"
	EventAlert    EventKind = "alert"
)

// Event describes one change. Present is false for deletions.
type Event struct {
	Kind     EventKind
	Key      Key
	Text     string
	Present  bool
	Loading  bool
	Audio    *playback.Buffer
	Revision uint64
}

type Observer func(Event)

// State holds responses, notes, narrations and loading flags in flat maps
// keyed by (document, topic).
//
// Observers run synchronously after the mutation, outside the data lock, in
// mutation order. They may read State but must not mutate it.
type State struct {
	dispatchMu sync.Mutex
	mu         sync.RWMutex
	responses  map[Key]string
	notes      map[Key]string
	audio      map[Key]Narration
	loading    map[Key]bool
	revision   uint64

	observersMu  sync.RWMutex
	observers    map[int]Observer
	nextObserver int
}

func NewState() *State {
	return &State{
		responses: map[Key]string{},
		notes:     map[Key]string{},
		audio:     map[Key]Narration{},
		loading:   map[Key]bool{},
		observers: map[int]Observer{},
	}
}

// Subscribe registers fn and returns its cancel function.
func (s *State) Subscribe(fn Observer) func() {
	s.observersMu.Lock()
	id := s.nextObserver
	s.nextObserver++
	s.observers[id] = fn
	s.observersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.observersMu.Lock()
			delete(s.observers, id)
			s.observersMu.Unlock()
		})
	}
}

func (s *State) apply(mutate func() []Event) {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	s.mu.Lock()
	events := mutate()
	s.mu.Unlock()
	if len(events) == 0 {
		return
	}

	s.observersMu.RLock()
	ids := make([]int, 0, len(s.observers))
	for id := range s.observers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	observers := make([]Observer, 0, len(ids))
	for _, id := range ids {
		observers = append(observers, s.observers[id])
	}
	s.observersMu.RUnlock()

	for _, ev := range events {
		for _, fn := range observers {
			fn(ev)
		}
	}
}

func (s *State) Response(key Key) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	text, ok := s.responses[key]
	return text, ok
}

// SetResponse replaces the stored text wholesale.
func (s *State) SetResponse(key Key, text string) {
	s.apply(func() []Event {
		s.responses[key] = text
		return []Event{{Kind: EventResponse, Key: key, Text: text, Present: true}}
	})
}

func (s *State) Audio(key Key) (Narration, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.audio[key]
	return n, ok
}

// SetAudio stores buf under a new revision; nil removes the narration.
func (s *State) SetAudio(key Key, buf *playback.Buffer) {
	s.apply(func() []Event {
		if buf == nil {
			if _, ok := s.audio[key]; !ok {
				return nil
			}
			delete(s.audio, key)
			return []Event{{Kind: EventAudio, Key: key}}
		}
		s.revision++
		s.audio[key] = Narration{Buffer: buf, Revision: s.revision}
		return []Event{{Kind: EventAudio, Key: key, Present: true, Audio: buf, Revision: s.revision}}
	})
}

func (s *State) Loading(key Key) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading[key]
}

// BeginLoading sets the flag unless it is already set.
func (s *State) BeginLoading(key Key) bool {
	started := false
	s.apply(func() []Event {
		if s.loading[key] {
			return nil
		}
		s.loading[key] = true
		started = true
		return []Event{{Kind: EventLoading, Key: key, Loading: true}}
	})
	return started
}

func (s *State) EndLoading(key Key) {
	s.apply(func() []Event {
		if !s.loading[key] {
			return nil
		}
		delete(s.loading, key)
		return []Event{{Kind: EventLoading, Key: key, Loading: false}}
	})
}

// Clear removes both the response and the narration for key. It reports
// whether anything was removed; a second call is a no-op.
func (s *State) Clear(key Key) bool {
	removed := false
	s.apply(func() []Event {
		var events []Event
		if _, ok := s.responses[key]; ok {
			delete(s.responses, key)
			events = append(events, Event{Kind: EventResponse, Key: key})
		}
		if _, ok := s.audio[key]; ok {
			delete(s.audio, key)
			events = append(events, Event{Kind: EventAudio, Key: key})
		}
		removed = len(events) > 0
		return events
	})
	return removed
}

func (s *State) Note(key Key) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.notes[key]
}

func (s *State) SetNote(key Key, text string) {
	s.apply(func() []Event {
		if current, ok := s.notes[key]; ok && current == text {
			return nil
		}
		s.notes[key] = text
		return []Event{{Kind: EventNote, Key: key, Text: text, Present: true}}
	})
}

// Alert broadcasts a user-visible failure without changing any value.
func (s *State) Alert(key Key, message string) {
	s.apply(func() []Event {
		return []Event{{Kind: EventAlert, Key: key, Text: message}}
	})
}

// Restore loads persisted responses and notes without notifying observers.
func (s *State) Restore(st persist.State) {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range st.Responses {
		s.responses[Key{DocumentID: e.DocumentID, Topic: e.Topic}] = e.Text
	}
	for _, e := range st.Notes {
		s.notes[Key{DocumentID: e.DocumentID, Topic: e.Topic}] = e.Text
	}
}

// Snapshot returns the durable values in a stable order.
func (s *State) Snapshot() (responses, notes []persist.Entry) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	responses = entries(s.responses)
	notes = entries(s.notes)
	return responses, notes
}

// Responses lists every stored response of one document.
func (s *State) Responses(documentID string) map[catalog.Topic]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := map[catalog.Topic]string{}
	for key, text := range s.responses {
		if key.DocumentID == documentID {
			out[key.Topic] = text
		}
	}
	return out
}

func entries(m map[Key]string) []persist.Entry {
	out := make([]persist.Entry, 0, len(m))
	for key, text := range m {
		out = append(out, persist.Entry{DocumentID: key.DocumentID, Topic: key.Topic, Text: text})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DocumentID != out[j].DocumentID {
			return out[i].DocumentID < out[j].DocumentID
		}
		return out[i].Topic < out[j].Topic
	})
	return out
}
