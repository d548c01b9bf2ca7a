package audit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cliniquerisimed-lab/jongwane/internal/catalog"
	"github.com/cliniquerisimed-lab/jongwane/internal/logger"
	"github.com/cliniquerisimed-lab/jongwane/internal/persist"
	"github.com/cliniquerisimed-lab/jongwane/internal/playback"
)

const saveTimeout = 5 * time.Second

type WorkspaceOptions struct {
	Catalog  *catalog.Store
	State    *State
	Analyzer TextAnalyzer
	Speech   SpeechSynthesizer
	Player   *playback.Controller
	// Bridge is optional; without it nothing is persisted.
	Bridge *persist.Bridge
	Log    logger.Logger
	// OnSession receives every panel transcript or status change.
	OnSession SessionNotifier
}

// Workspace is the top-level audit state: the catalog, the open document,
// one coordinator per document and the panels mounted on the open document.
type Workspace struct {
	docs     *catalog.Store
	state    *State
	analyzer TextAnalyzer
	speech   SpeechSynthesizer
	player   *playback.Controller
	bridge   *persist.Bridge
	log      logger.Logger
	notify   SessionNotifier

	mu           sync.Mutex
	current      string
	coordinators map[string]*Coordinator
	sessions     map[Key]*Session

	saveMu      sync.Mutex
	unsubscribe func()
}

func NewWorkspace(opts WorkspaceOptions) *Workspace {
	if opts.Catalog == nil {
		opts.Catalog = catalog.NewStore(nil)
	}
	if opts.State == nil {
		opts.State = NewState()
	}
	if opts.Log == nil {
		opts.Log = logger.NewNop()
	}
	if opts.Player == nil {
		opts.Player = playback.NewController(nil, opts.Log)
	}
	w := &Workspace{
		docs:         opts.Catalog,
		state:        opts.State,
		analyzer:     opts.Analyzer,
		speech:       opts.Speech,
		player:       opts.Player,
		bridge:       opts.Bridge,
		log:          opts.Log,
		notify:       opts.OnSession,
		coordinators: map[string]*Coordinator{},
		sessions:     map[Key]*Session{},
	}
	w.unsubscribe = w.state.Subscribe(func(ev Event) {
		if ev.Kind == EventResponse || ev.Kind == EventNote {
			w.save()
		}
	})
	return w
}

func (w *Workspace) State() *State {
	return w.state
}

func (w *Workspace) Catalog() *catalog.Store {
	return w.docs
}

func (w *Workspace) Player() *playback.Controller {
	return w.player
}

// Load merges persisted custom documents, responses and notes. Built-ins
// always come from code.
func (w *Workspace) Load(ctx context.Context) {
	if w.bridge == nil {
		return
	}
	st := w.bridge.Load(ctx)
	kept := w.docs.Restore(st.Documents)
	w.state.Restore(st)
	w.log.Info("workspace", "state restored", map[string]any{"custom_documents": kept})
}

func (w *Workspace) save() {
	if w.bridge == nil {
		return
	}
	w.saveMu.Lock()
	defer w.saveMu.Unlock()

	responses, notes := w.state.Snapshot()
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	if err := w.bridge.Save(ctx, persist.State{
		Responses: responses,
		Notes:     notes,
		Documents: w.docs.List(),
	}); err != nil {
		w.log.Error("workspace", "save failed", map[string]any{"error": err.Error()})
	}
}

func (w *Workspace) Documents() []catalog.Document {
	return w.docs.List()
}

func (w *Workspace) Document(id string) (catalog.Document, error) {
	doc, ok := w.docs.Get(id)
	if !ok {
		return catalog.Document{}, fmt.Errorf("%w: %s", ErrUnknownDocument, id)
	}
	return doc, nil
}

// Open makes id the open document. Panels of the previously open document
// are unmounted and their playback stopped.
func (w *Workspace) Open(id string) (catalog.Document, error) {
	doc, ok := w.docs.Get(id)
	if !ok {
		return catalog.Document{}, fmt.Errorf("%w: %s", ErrUnknownDocument, id)
	}

	w.mu.Lock()
	var unmount []*Session
	if w.current != id {
		for key, s := range w.sessions {
			unmount = append(unmount, s)
			delete(w.sessions, key)
		}
	}
	w.current = id
	w.mu.Unlock()

	for _, s := range unmount {
		s.Detach()
	}
	return doc, nil
}

// Current returns the open document id, or "" when none is open.
func (w *Workspace) Current() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// AddDocument inserts a custom document and opens it.
func (w *Workspace) AddDocument(title, subtitle, rawText string) (catalog.Document, error) {
	doc, err := w.docs.Add(title, subtitle, rawText)
	if err != nil {
		return catalog.Document{}, err
	}
	w.log.Info("workspace", "document added", map[string]any{"document": doc.ID})
	w.save()
	if _, err := w.Open(doc.ID); err != nil {
		return catalog.Document{}, err
	}
	return doc, nil
}

// Coordinator returns the coordinator of id, creating it on first use.
func (w *Workspace) Coordinator(id string) (*Coordinator, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.coordinatorLocked(id)
}

func (w *Workspace) coordinatorLocked(id string) (*Coordinator, error) {
	if c, ok := w.coordinators[id]; ok {
		return c, nil
	}
	doc, ok := w.docs.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDocument, id)
	}
	c := NewCoordinator(doc, w.state, w.analyzer, w.speech, w.log)
	w.coordinators[id] = c
	return c, nil
}

func (w *Workspace) openCoordinator() (*Coordinator, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.current == "" {
		return nil, ErrNoOpenDocument
	}
	return w.coordinatorLocked(w.current)
}

// RequestAnalysis starts the analysis of topic on the open document and
// mounts its panel so the narration auto-plays when it arrives.
func (w *Workspace) RequestAnalysis(ctx context.Context, topic catalog.Topic, directive string) (*Task, error) {
	c, err := w.openCoordinator()
	if err != nil {
		return nil, err
	}
	if _, err := w.mountSession(c, topic); err != nil {
		return nil, err
	}
	return c.RequestAnalysis(ctx, topic, directive)
}

// OpenSession mounts (or returns) the panel of topic on the open document.
func (w *Workspace) OpenSession(topic catalog.Topic) (*Session, error) {
	c, err := w.openCoordinator()
	if err != nil {
		return nil, err
	}
	key := c.key(topic)
	if _, ok := w.state.Response(key); !ok && !w.state.Loading(key) {
		return nil, ErrNoAnalysis
	}
	return w.mountSession(c, topic)
}

// Session returns the mounted panel of topic, if any.
func (w *Workspace) Session(topic catalog.Topic) (*Session, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	s, ok := w.sessions[Key{DocumentID: w.current, Topic: topic}]
	return s, ok
}

func (w *Workspace) mountSession(c *Coordinator, topic catalog.Topic) (*Session, error) {
	key := c.key(topic)
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.current != key.DocumentID {
		return nil, ErrDocumentNotOpen
	}
	if s, ok := w.sessions[key]; ok {
		return s, nil
	}
	s, err := c.OpenSession(topic, w.player, w.notify)
	if err != nil {
		return nil, err
	}
	w.sessions[key] = s
	return s, nil
}

// CloseAnalysis stops the panel's playback, clears the topic's response and
// narration and unmounts the panel. Closing twice is a no-op.
func (w *Workspace) CloseAnalysis(topic catalog.Topic) error {
	c, err := w.openCoordinator()
	if err != nil {
		return err
	}
	key := c.key(topic)

	w.mu.Lock()
	s, mounted := w.sessions[key]
	delete(w.sessions, key)
	w.mu.Unlock()

	if mounted {
		s.Close()
		return nil
	}
	if n, ok := w.state.Audio(key); ok {
		w.player.StopBuffer(n.Buffer)
	}
	c.CloseAnalysis(topic)
	return nil
}

// DetachSession unmounts the panel of topic without clearing anything.
func (w *Workspace) DetachSession(topic catalog.Topic) bool {
	w.mu.Lock()
	key := Key{DocumentID: w.current, Topic: topic}
	s, ok := w.sessions[key]
	delete(w.sessions, key)
	w.mu.Unlock()
	if ok {
		s.Detach()
	}
	return ok
}

func (w *Workspace) SetNote(documentID string, topic catalog.Topic, text string) error {
	if _, ok := w.docs.Get(documentID); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownDocument, documentID)
	}
	if !topic.Valid() {
		return fmt.Errorf("%w: %q", catalog.ErrUnknownTopic, topic)
	}
	w.state.SetNote(Key{DocumentID: documentID, Topic: topic}, text)
	return nil
}

func (w *Workspace) Note(documentID string, topic catalog.Topic) string {
	return w.state.Note(Key{DocumentID: documentID, Topic: topic})
}

// Analyses returns the stored response of every analysed topic of a document.
func (w *Workspace) Analyses(documentID string) map[catalog.Topic]string {
	return w.state.Responses(documentID)
}

// Wait blocks until every in-flight analysis and follow-up has finished.
func (w *Workspace) Wait() {
	w.mu.Lock()
	coordinators := make([]*Coordinator, 0, len(w.coordinators))
	for _, c := range w.coordinators {
		coordinators = append(coordinators, c)
	}
	sessions := make([]*Session, 0, len(w.sessions))
	for _, s := range w.sessions {
		sessions = append(sessions, s)
	}
	w.mu.Unlock()

	for _, c := range coordinators {
		c.Wait()
	}
	for _, s := range sessions {
		s.Wait()
	}
}

// Close waits for in-flight work, stops playback and writes a final save.
func (w *Workspace) Close() {
	w.Wait()
	w.player.Stop()
	w.unsubscribe()
	w.save()
}
