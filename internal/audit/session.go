package audit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/cliniquerisimed-lab/jongwane/internal/catalog"
	"github.com/cliniquerisimed-lab/jongwane/internal/playback"
	"github.com/cliniquerisimed-lab/jongwane/internal/richtext"
)

type EntryKind string

const (
	EntryExpert   EntryKind = "expert"
	EntryQuestion EntryKind = "question"
	EntryError    EntryKind = "error"
)

type TranscriptEntry struct {
	Kind EntryKind `json:"kind"`
	Text string    `json:"text"`
}

type SessionStatus string

const (
	StatusIdle   SessionStatus = "idle"
	StatusAsking SessionStatus = "asking"
	StatusClosed SessionStatus = "closed"
)

// SessionEvent is emitted whenever a panel's transcript or status changes.
type SessionEvent struct {
	Key        Key               `json:"key"`
	Status     SessionStatus     `json:"status"`
	Transcript []TranscriptEntry `json:"transcript"`
}

type SessionNotifier func(SessionEvent)

// Session is the live conversation of one open response panel. Its
// transcript and audio are never persisted.
type Session struct {
	coord    *Coordinator
	key      Key
	baseText string
	player   *playback.Controller
	notify   SessionNotifier

	mu           sync.Mutex
	transcript   []TranscriptEntry
	asking       bool
	closed       bool
	audio        *playback.Buffer
	seenRevision uint64

	unsubscribe func()
	wg          sync.WaitGroup
}

func newSession(c *Coordinator, topic catalog.Topic, baseText string, player *playback.Controller, notify SessionNotifier) *Session {
	if player == nil {
		player = playback.NewController(nil, c.log)
	}
	s := &Session{
		coord:    c,
		key:      c.key(topic),
		baseText: baseText,
		player:   player,
		notify:   notify,
	}
	if text, ok := c.state.Response(s.key); ok {
		s.transcript = []TranscriptEntry{{Kind: EntryExpert, Text: text}}
	}
	// The narration present at mount time counts as already heard.
	if n, ok := c.state.Audio(s.key); ok {
		s.seenRevision = n.Revision
		s.audio = n.Buffer
	}
	s.unsubscribe = c.state.Subscribe(s.observe)
	return s
}

func (s *Session) Key() Key {
	return s.key
}

func (s *Session) Status() SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusLocked()
}

func (s *Session) statusLocked() SessionStatus {
	switch {
	case s.closed:
		return StatusClosed
	case s.asking:
		return StatusAsking
	}
	return StatusIdle
}

func (s *Session) Transcript() []TranscriptEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]TranscriptEntry(nil), s.transcript...)
}

// Audio returns the narration this panel last played or received.
func (s *Session) Audio() *playback.Buffer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.audio
}

func (s *Session) observe(ev Event) {
	if ev.Key != s.key {
		return
	}
	switch ev.Kind {
	case EventResponse:
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return
		}
		// A full replacement always wins over appended turns.
		s.transcript = nil
		if ev.Present {
			s.transcript = []TranscriptEntry{{Kind: EntryExpert, Text: ev.Text}}
		}
		event := s.eventLocked()
		s.mu.Unlock()
		s.emit(event)
	case EventLoading:
		if ev.Loading {
			s.stopOwnAudio()
			return
		}
		if n, ok := s.coord.state.Audio(s.key); ok {
			s.maybePlay(n)
		}
	case EventAudio:
		if !ev.Present {
			s.stopOwnAudio()
			return
		}
		s.maybePlay(Narration{Buffer: ev.Audio, Revision: ev.Revision})
	}
}

// maybePlay starts a narration the panel has not played yet, unless an
// initial request is still loading.
func (s *Session) maybePlay(n Narration) {
	if n.Buffer == nil || s.coord.state.Loading(s.key) {
		return
	}
	s.mu.Lock()
	if s.closed || n.Revision <= s.seenRevision {
		s.mu.Unlock()
		return
	}
	s.seenRevision = n.Revision
	s.audio = n.Buffer
	s.mu.Unlock()
	_ = s.player.Play(n.Buffer)
}

func (s *Session) stopOwnAudio() {
	s.mu.Lock()
	buf := s.audio
	s.mu.Unlock()
	s.player.StopBuffer(buf)
}

// Ask submits a follow-up question. The question is appended at once; the
// answer (or an inline error) is appended when the call completes.
func (s *Session) Ask(ctx context.Context, question string) (*Task, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrQuestionEmpty
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSessionClosed
	}
	if s.asking {
		s.mu.Unlock()
		return nil, ErrSessionBusy
	}
	s.asking = true
	s.transcript = append(s.transcript, TranscriptEntry{Kind: EntryQuestion, Text: question})
	event := s.eventLocked()
	s.mu.Unlock()
	s.emit(event)

	req := AnalysisRequest{
		DocumentID: s.key.DocumentID,
		Topic:      s.key.Topic,
		BaseText:   s.baseText,
		Question:   question,
	}
	task := newTask()
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		outcome, err := s.answer(context.WithoutCancel(ctx), req)
		task.finish(outcome, err)
	}()
	return task, nil
}

func (s *Session) answer(ctx context.Context, req AnalysisRequest) (Outcome, error) {
	log := s.coord.log
	details := map[string]any{"document": s.key.DocumentID, "topic": s.key.Topic}

	text, err := s.coord.analyzer.Analyze(ctx, req)
	var parsed richtext.Text
	if err == nil {
		parsed = richtext.Parse(text)
		if parsed.Empty() {
			err = errors.New("empty answer")
		}
	}

	s.mu.Lock()
	s.asking = false
	if err != nil {
		message := FollowUpFailureMessage
		if errors.Is(err, ErrMissingCredential) {
			message = MissingCredentialMessage
		}
		s.transcript = append(s.transcript, TranscriptEntry{Kind: EntryError, Text: message})
		event := s.eventLocked()
		s.mu.Unlock()
		s.emit(event)

		details["error"] = err.Error()
		log.Warn("session", "follow-up failed", details)
		if errors.Is(err, ErrMissingCredential) {
			return Outcome{Text: message}, err
		}
		return Outcome{Text: message}, fmt.Errorf("%w: %v", ErrFollowUpFailed, err)
	}
	source := parsed.Source()
	s.transcript = append(s.transcript, TranscriptEntry{Kind: EntryExpert, Text: source})
	event := s.eventLocked()
	s.mu.Unlock()
	s.emit(event)
	log.Info("session", "follow-up answered", details)

	var audio *playback.Buffer
	if s.coord.speech != nil {
		audio = s.coord.speech.Synthesize(ctx, parsed.Plain())
	}
	if audio == nil {
		return Outcome{Text: source}, nil
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Outcome{Text: source, Audio: audio}, nil
	}
	s.audio = audio
	s.mu.Unlock()
	_ = s.player.Play(audio)
	return Outcome{Text: source, Audio: audio}, nil
}

// Replay plays the panel's narration again from the start.
func (s *Session) Replay() error {
	s.mu.Lock()
	buf := s.audio
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ErrSessionClosed
	}
	return s.player.Play(buf)
}

// Close stops the panel's playback, then removes the response and narration
// of its topic.
func (s *Session) Close() {
	s.detach()
	s.coord.CloseAnalysis(s.key.Topic)
}

// Detach unmounts the panel without touching stored state.
func (s *Session) Detach() {
	s.detach()
}

func (s *Session) detach() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	buf := s.audio
	event := s.eventLocked()
	s.mu.Unlock()

	s.player.StopBuffer(buf)
	s.unsubscribe()
	s.emit(event)
}

// Wait blocks until pending follow-ups have finished.
func (s *Session) Wait() {
	s.wg.Wait()
}

func (s *Session) eventLocked() SessionEvent {
	return SessionEvent{
		Key:        s.key,
		Status:     s.statusLocked(),
		Transcript: append([]TranscriptEntry(nil), s.transcript...),
	}
}

func (s *Session) emit(event SessionEvent) {
	if s.notify != nil {
		s.notify(event)
	}
}
