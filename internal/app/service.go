package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/cliniquerisimed-lab/jongwane/internal/audit"
	"github.com/cliniquerisimed-lab/jongwane/internal/catalog"
	"github.com/cliniquerisimed-lab/jongwane/internal/events"
	"github.com/cliniquerisimed-lab/jongwane/internal/export"
	"github.com/cliniquerisimed-lab/jongwane/internal/extract"
	"github.com/cliniquerisimed-lab/jongwane/internal/history"
	"github.com/cliniquerisimed-lab/jongwane/internal/logger"
	"github.com/cliniquerisimed-lab/jongwane/internal/media"
	"github.com/cliniquerisimed-lab/jongwane/internal/playback"
	"github.com/cliniquerisimed-lab/jongwane/internal/richtext"
	"github.com/cliniquerisimed-lab/jongwane/internal/search"
)

const backgroundQueue = 128

type pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies wires the service. Workspace is required; every other
// collaborator is optional and its feature is disabled when nil.
type Dependencies struct {
	Workspace *audit.Workspace
	Store     pinger
	Extractor *extract.Extractor
	Search    *search.Service
	History   *history.Service
	Archive   *media.Archive
	Exporter  *export.Service
	Hub       *events.Hub
	Log       logger.Logger
}

type Service struct {
	ws        *audit.Workspace
	store     pinger
	extractor *extract.Extractor
	search    *search.Service
	history   *history.Service
	archive   *media.Archive
	exporter  *export.Service
	hub       *events.Hub
	log       logger.Logger
	validate  *validator.Validate

	jobsMu      sync.RWMutex
	jobs        chan func()
	jobsClosed  bool
	jobsDone    sync.WaitGroup
	closeOnce   sync.Once
	unsubscribe []func()
}

type AddDocumentInput struct {
	Title    string `json:"title" validate:"required,max=200"`
	Subtitle string `json:"subtitle" validate:"max=200"`
	Text     string `json:"text" validate:"required,max=200000"`
}

type DocumentSummary struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	Custom   bool   `json:"custom"`
	Open     bool   `json:"open"`
}

type AnalysisView struct {
	Topic    catalog.Topic `json:"topic"`
	Text     string        `json:"text,omitempty"`
	HTML     string        `json:"html,omitempty"`
	Present  bool          `json:"present"`
	Loading  bool          `json:"loading"`
	HasAudio bool          `json:"hasAudio"`
	Note     string        `json:"note"`
	// Directives are the optional instructions offered for this section.
	Directives []catalog.Directive `json:"directives"`
}

type DocumentDetail struct {
	Document catalog.Document `json:"document"`
	Open     bool             `json:"open"`
	Analyses []AnalysisView   `json:"analyses"`
}

type SessionView struct {
	DocumentID string                  `json:"documentId"`
	Topic      catalog.Topic           `json:"topic"`
	Status     audit.SessionStatus     `json:"status"`
	Transcript []audit.TranscriptEntry `json:"transcript"`
	HasAudio   bool                    `json:"hasAudio"`
}

func NewService(deps Dependencies) *Service {
	if deps.Log == nil {
		deps.Log = logger.NewNop()
	}
	s := &Service{
		ws:        deps.Workspace,
		store:     deps.Store,
		extractor: deps.Extractor,
		search:    deps.Search,
		history:   deps.History,
		archive:   deps.Archive,
		exporter:  deps.Exporter,
		hub:       deps.Hub,
		log:       deps.Log,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		jobs:      make(chan func(), backgroundQueue),
	}
	if s.extractor == nil {
		s.extractor = extract.New(s.log)
	}
	if s.exporter == nil {
		s.exporter = export.NewService(s.ws, s.log)
	}
	if s.search == nil {
		s.search = search.NewService(nil, search.NewScanner(s.ws), s.log)
	}

	s.jobsDone.Add(1)
	go s.runJobs()

	state := s.ws.State()
	s.unsubscribe = append(s.unsubscribe, state.Subscribe(s.observe))
	if s.hub != nil {
		s.unsubscribe = append(s.unsubscribe, state.Subscribe(s.hub.StateObserver()))
	}
	return s
}

func (s *Service) runJobs() {
	defer s.jobsDone.Done()
	for job := range s.jobs {
		job()
	}
}

// observe mirrors stored analyses and narrations into the history
// repository, the search index and the narration archive.
func (s *Service) observe(ev audit.Event) {
	key := ev.Key
	switch ev.Kind {
	case audit.EventResponse:
		if ev.Present {
			if doc, ok := s.ws.Catalog().Get(key.DocumentID); ok {
				s.search.IndexAnalysis(doc, key.Topic, ev.Text)
			}
		} else {
			s.search.DeleteAnalysis(key.DocumentID, key.Topic)
		}
		if s.history != nil && ev.Present {
			text := ev.Text
			s.enqueue(func() {
				if _, err := s.history.Record(key.DocumentID, key.Topic, text); err != nil {
					s.log.Warn("history", "record analysis failed", map[string]any{
						"document": key.DocumentID, "topic": key.Topic, "error": err.Error(),
					})
				}
			})
		}
	case audit.EventAudio:
		if s.archive == nil {
			return
		}
		buf := ev.Audio
		present := ev.Present
		s.enqueue(func() {
			ctx := context.Background()
			if present {
				_ = s.archive.Put(ctx, key.DocumentID, key.Topic, buf)
				return
			}
			_ = s.archive.Remove(ctx, key.DocumentID, key.Topic)
		})
	}
}

// enqueue runs job on the background worker, in submission order. Jobs
// submitted after Close are dropped.
func (s *Service) enqueue(job func()) {
	s.jobsMu.RLock()
	defer s.jobsMu.RUnlock()
	if s.jobsClosed {
		s.log.Debug("app", "background job dropped after close", nil)
		return
	}
	s.jobs <- job
}

func (s *Service) Ping(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	return s.store.Ping(ctx)
}

func (s *Service) ListDocuments() []DocumentSummary {
	current := s.ws.Current()
	docs := s.ws.Documents()
	out := make([]DocumentSummary, 0, len(docs))
	for _, doc := range docs {
		out = append(out, DocumentSummary{
			ID:       doc.ID,
			Title:    doc.Title,
			Subtitle: doc.Subtitle,
			Custom:   !catalog.IsBuiltin(doc.ID),
			Open:     doc.ID == current,
		})
	}
	return out
}

func (s *Service) GetDocument(id string) (DocumentDetail, error) {
	doc, err := s.ws.Document(id)
	if err != nil {
		return DocumentDetail{}, err
	}
	state := s.ws.State()
	responses := state.Responses(id)
	detail := DocumentDetail{Document: doc, Open: s.ws.Current() == id}
	for _, topic := range catalog.Topics {
		key := audit.Key{DocumentID: id, Topic: topic}
		view := AnalysisView{
			Topic:      topic,
			Loading:    state.Loading(key),
			Note:       state.Note(key),
			Directives: catalog.Directives(id, topic),
		}
		if view.Directives == nil {
			view.Directives = []catalog.Directive{}
		}
		if text, ok := responses[topic]; ok {
			view.Present = true
			view.Text = text
			view.HTML = richtext.Parse(text).HTML()
		}
		_, view.HasAudio = state.Audio(key)
		detail.Analyses = append(detail.Analyses, view)
	}
	return detail, nil
}

func (s *Service) AddDocument(input AddDocumentInput) (catalog.Document, error) {
	if err := s.validate.Struct(input); err != nil {
		return catalog.Document{}, err
	}
	doc, err := s.ws.AddDocument(input.Title, input.Subtitle, input.Text)
	if err != nil {
		return catalog.Document{}, err
	}
	s.search.IndexDocument(doc)
	return doc, nil
}

func (s *Service) ExtractText(ctx context.Context, filename string, data []byte) (string, error) {
	return s.extractor.Extract(ctx, filename, data)
}

func (s *Service) OpenDocument(id string) (catalog.Document, error) {
	return s.ws.Open(id)
}

// requireOpen fails unless id is the open document.
func (s *Service) requireOpen(id string) error {
	if _, err := s.ws.Document(id); err != nil {
		return err
	}
	current := s.ws.Current()
	if current == "" {
		return audit.ErrNoOpenDocument
	}
	if current != id {
		return fmt.Errorf("%w: %s", audit.ErrDocumentNotOpen, id)
	}
	return nil
}

// resolveDirective accepts either the label of an offered directive or a
// free-form instruction.
func resolveDirective(documentID string, topic catalog.Topic, directive string) string {
	directive = strings.TrimSpace(directive)
	for _, d := range catalog.Directives(documentID, topic) {
		if strings.EqualFold(d.Label, directive) {
			return d.Text
		}
	}
	return directive
}

func (s *Service) RequestAnalysis(ctx context.Context, documentID string, topic catalog.Topic, directive string) (*audit.Task, error) {
	if err := s.requireOpen(documentID); err != nil {
		return nil, err
	}
	return s.ws.RequestAnalysis(ctx, topic, resolveDirective(documentID, topic, directive))
}

func (s *Service) CloseAnalysis(documentID string, topic catalog.Topic) error {
	if err := s.requireOpen(documentID); err != nil {
		return err
	}
	return s.ws.CloseAnalysis(topic)
}

func (s *Service) Audio(documentID string, topic catalog.Topic) (*playback.Buffer, error) {
	if _, err := s.ws.Document(documentID); err != nil {
		return nil, err
	}
	n, ok := s.ws.State().Audio(audit.Key{DocumentID: documentID, Topic: topic})
	if !ok {
		return nil, domainError(http.StatusNotFound, "NO_AUDIO", "No narration for this topic", nil)
	}
	return n.Buffer, nil
}

func (s *Service) AnalysisHistory(documentID string, topic catalog.Topic, limit int) ([]history.Revision, error) {
	if _, err := s.ws.Document(documentID); err != nil {
		return nil, err
	}
	if s.history == nil {
		return []history.Revision{}, nil
	}
	return s.history.History(documentID, topic, limit)
}

func (s *Service) AnalysisRevision(documentID string, topic catalog.Topic, hash string) (string, error) {
	if _, err := s.ws.Document(documentID); err != nil {
		return "", err
	}
	if s.history == nil {
		return "", history.ErrNoHistory
	}
	return s.history.Revision(documentID, hash, topic)
}

func (s *Service) OpenSession(documentID string, topic catalog.Topic) (SessionView, error) {
	if err := s.requireOpen(documentID); err != nil {
		return SessionView{}, err
	}
	session, err := s.ws.OpenSession(topic)
	if err != nil {
		return SessionView{}, err
	}
	return sessionView(session), nil
}

func (s *Service) mountedSession(documentID string, topic catalog.Topic) (*audit.Session, error) {
	if err := s.requireOpen(documentID); err != nil {
		return nil, err
	}
	session, ok := s.ws.Session(topic)
	if !ok {
		return nil, domainError(http.StatusNotFound, "SESSION_NOT_FOUND", "No open panel for this topic", nil)
	}
	return session, nil
}

func (s *Service) GetSession(documentID string, topic catalog.Topic) (SessionView, error) {
	session, err := s.mountedSession(documentID, topic)
	if err != nil {
		return SessionView{}, err
	}
	return sessionView(session), nil
}

func (s *Service) Ask(ctx context.Context, documentID string, topic catalog.Topic, question string) (*audit.Task, error) {
	session, err := s.mountedSession(documentID, topic)
	if err != nil {
		return nil, err
	}
	return session.Ask(ctx, question)
}

func (s *Service) Replay(documentID string, topic catalog.Topic) error {
	session, err := s.mountedSession(documentID, topic)
	if err != nil {
		return err
	}
	if err := session.Replay(); err != nil {
		if errors.Is(err, playback.ErrNoAudio) {
			return domainError(http.StatusNotFound, "NO_AUDIO", "No narration for this topic", nil)
		}
		return err
	}
	return nil
}

func (s *Service) DetachSession(documentID string, topic catalog.Topic) error {
	if err := s.requireOpen(documentID); err != nil {
		return err
	}
	if !s.ws.DetachSession(topic) {
		return domainError(http.StatusNotFound, "SESSION_NOT_FOUND", "No open panel for this topic", nil)
	}
	return nil
}

func (s *Service) SetNote(documentID string, topic catalog.Topic, text string) error {
	return s.ws.SetNote(documentID, topic, text)
}

func (s *Service) Export(ctx context.Context, documentID string, format export.Format) (*export.Result, error) {
	return s.exporter.Export(ctx, export.Request{DocumentID: documentID, Format: format})
}

func (s *Service) Search(q search.Query) search.Response {
	return s.search.Search(q)
}

func (s *Service) StopPlayback() {
	s.ws.Player().Stop()
}

// Close waits for in-flight requests, then drains background jobs.
func (s *Service) Close() {
	s.closeOnce.Do(func() {
		s.ws.Close()
		for _, unsubscribe := range s.unsubscribe {
			unsubscribe()
		}
		s.jobsMu.Lock()
		s.jobsClosed = true
		close(s.jobs)
		s.jobsMu.Unlock()
		s.jobsDone.Wait()
	})
}

func sessionView(session *audit.Session) SessionView {
	key := session.Key()
	return SessionView{
		DocumentID: key.DocumentID,
		Topic:      key.Topic,
		Status:     session.Status(),
		Transcript: session.Transcript(),
		HasAudio:   session.Audio() != nil,
	}
}
