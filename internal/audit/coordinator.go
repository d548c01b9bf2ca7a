package audit

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/cliniquerisimed-lab/jongwane/internal/catalog"
	"github.com/cliniquerisimed-lab/jongwane/internal/logger"
	"github.com/cliniquerisimed-lab/jongwane/internal/playback"
	"github.com/cliniquerisimed-lab/jongwane/internal/richtext"
)

// Coordinator dispatches the initial (or regenerated) analysis of each
// topic of one document, at most one in flight per topic.
type Coordinator struct {
	doc      catalog.Document
	state    *State
	analyzer TextAnalyzer
	speech   SpeechSynthesizer
	log      logger.Logger

	wg sync.WaitGroup
}

func NewCoordinator(doc catalog.Document, state *State, analyzer TextAnalyzer, speech SpeechSynthesizer, log logger.Logger) *Coordinator {
	if log == nil {
		log = logger.NewNop()
	}
	return &Coordinator{doc: doc, state: state, analyzer: analyzer, speech: speech, log: log}
}

func (c *Coordinator) Document() catalog.Document {
	return c.doc
}

func (c *Coordinator) key(topic catalog.Topic) Key {
	return Key{DocumentID: c.doc.ID, Topic: topic}
}

func (c *Coordinator) Loading(topic catalog.Topic) bool {
	return c.state.Loading(c.key(topic))
}

// RequestAnalysis starts an analysis of topic, optionally steered by
// directive. A call while the topic is loading returns ErrAnalysisInFlight
// and does nothing else. The returned task outlives ctx cancellation.
func (c *Coordinator) RequestAnalysis(ctx context.Context, topic catalog.Topic, directive string) (*Task, error) {
	section, ok := c.doc.Section(topic)
	if !ok {
		return nil, fmt.Errorf("%w: %q", catalog.ErrUnknownTopic, topic)
	}
	key := c.key(topic)
	if !c.state.BeginLoading(key) {
		return nil, ErrAnalysisInFlight
	}

	req := AnalysisRequest{
		DocumentID: c.doc.ID,
		Topic:      topic,
		BaseText:   section.RawText,
		Question:   directive,
	}
	task := newTask()
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		outcome, err := c.run(context.WithoutCancel(ctx), key, req)
		task.finish(outcome, err)
	}()
	return task, nil
}

func (c *Coordinator) run(ctx context.Context, key Key, req AnalysisRequest) (Outcome, error) {
	defer c.state.EndLoading(key)

	details := map[string]any{"document": key.DocumentID, "topic": key.Topic, "directive": req.Question != ""}
	text, err := c.analyzer.Analyze(ctx, req)
	if errors.Is(err, ErrMissingCredential) {
		c.log.Warn("coordinator", "analysis skipped: no credential", details)
		c.state.SetResponse(key, MissingCredentialMessage)
		c.state.SetAudio(key, nil)
		return Outcome{Text: MissingCredentialMessage}, ErrMissingCredential
	}
	if err == nil && richtext.Parse(text).Empty() {
		err = errors.New("empty analysis text")
	}
	if err != nil {
		details["error"] = err.Error()
		c.log.Error("coordinator", "analysis failed", details)
		c.state.Alert(key, AnalysisFailureMessage)
		return Outcome{}, fmt.Errorf("%w: %v", ErrAnalysisFailed, err)
	}

	parsed := richtext.Parse(text)
	source := parsed.Source()
	c.state.SetResponse(key, source)
	c.log.Info("coordinator", "analysis stored", details)

	audio := c.synthesize(ctx, parsed.Plain(), details)
	c.state.SetAudio(key, audio)
	return Outcome{Text: source, Audio: audio}, nil
}

func (c *Coordinator) synthesize(ctx context.Context, plain string, details map[string]any) *playback.Buffer {
	if c.speech == nil {
		return nil
	}
	audio := c.speech.Synthesize(ctx, plain)
	if audio == nil {
		c.log.Info("coordinator", "no narration for analysis", details)
	}
	return audio
}

// CloseAnalysis removes the stored response and narration of topic.
// Stopping playback is the caller's job.
func (c *Coordinator) CloseAnalysis(topic catalog.Topic) bool {
	return c.state.Clear(c.key(topic))
}

// OpenSession mounts a panel session on topic.
func (c *Coordinator) OpenSession(topic catalog.Topic, player *playback.Controller, notify SessionNotifier) (*Session, error) {
	section, ok := c.doc.Section(topic)
	if !ok {
		return nil, fmt.Errorf("%w: %q", catalog.ErrUnknownTopic, topic)
	}
	return newSession(c, topic, section.RawText, player, notify), nil
}

// Wait blocks until every request started by this coordinator has finished.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}
