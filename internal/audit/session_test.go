package audit

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cliniquerisimed-lab/jongwane/internal/catalog"
	"github.com/cliniquerisimed-lab/jongwane/internal/playback"
)

type sessionFixture struct {
	state    *State
	analyzer *fakeAnalyzer
	speech   *fakeSpeech
	device   *countingDevice
	player   *playback.Controller
	coord    *Coordinator
}

func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()
	f := &sessionFixture{
		state:    NewState(),
		analyzer: &fakeAnalyzer{},
		speech:   &fakeSpeech{},
		device:   &countingDevice{},
	}
	f.player = playback.NewController(f.device.factory(), nil)
	f.coord = NewCoordinator(sphinxDoc(t), f.state, f.analyzer, f.speech, nil)
	return f
}

func (f *sessionFixture) analyze(t *testing.T, topic catalog.Topic, text string) Outcome {
	t.Helper()
	f.analyzer.push(text, nil)
	task, err := f.coord.RequestAnalysis(context.Background(), topic, "")
	require.NoError(t, err)
	out, err := waitTask(t, task)
	require.NoError(t, err)
	return out
}

func TestFollowUpAppendsQuestionThenAnswer(t *testing.T) {
	f := newSessionFixture(t)
	f.analyze(t, catalog.Forces, "Analyse initiale")

	var mu sync.Mutex
	var statuses []SessionStatus
	s, err := f.coord.OpenSession(catalog.Forces, f.player, func(ev SessionEvent) {
		mu.Lock()
		defer mu.Unlock()
		statuses = append(statuses, ev.Status)
	})
	require.NoError(t, err)
	assert.Equal(t, []TranscriptEntry{{Kind: EntryExpert, Text: "Analyse initiale"}}, s.Transcript())

	f.analyzer.push("Réponse <strong>précise</strong>", nil)
	task, err := s.Ask(context.Background(), "  Quel budget ?  ")
	require.NoError(t, err)
	out, err := waitTask(t, task)
	require.NoError(t, err)

	assert.Equal(t, []TranscriptEntry{
		{Kind: EntryExpert, Text: "Analyse initiale"},
		{Kind: EntryQuestion, Text: "Quel budget ?"},
		{Kind: EntryExpert, Text: "Réponse <strong>précise</strong>"},
	}, s.Transcript())
	assert.Equal(t, StatusIdle, s.Status())
	assert.Equal(t, "Quel budget ?", f.analyzer.request(1).Question)

	stored, _ := f.state.Response(Key{DocumentID: catalog.SphinxID, Topic: catalog.Forces})
	assert.Equal(t, "Analyse initiale", stored, "follow-ups never write back")

	require.NotNil(t, out.Audio)
	assert.Same(t, out.Audio, f.player.Current())
	assert.Same(t, out.Audio, s.Audio())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []SessionStatus{StatusAsking, StatusIdle}, statuses)
}

func TestAskGuards(t *testing.T) {
	f := newSessionFixture(t)
	f.analyze(t, catalog.Forces, "Analyse")
	s, err := f.coord.OpenSession(catalog.Forces, f.player, nil)
	require.NoError(t, err)

	_, err = s.Ask(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrQuestionEmpty)

	f.analyzer.mu.Lock()
	f.analyzer.gate = make(chan struct{})
	f.analyzer.mu.Unlock()
	f.analyzer.push("ok", nil)

	task, err := s.Ask(context.Background(), "Première")
	require.NoError(t, err)
	assert.Equal(t, StatusAsking, s.Status())

	_, err = s.Ask(context.Background(), "Seconde")
	assert.ErrorIs(t, err, ErrSessionBusy)
	before := len(s.Transcript())

	close(f.analyzer.gate)
	_, err = waitTask(t, task)
	require.NoError(t, err)
	assert.Equal(t, before+1, len(s.Transcript()))
	assert.Equal(t, 2, f.analyzer.calls())

	s.Detach()
	_, err = s.Ask(context.Background(), "Après")
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestFollowUpFailureAppendsInlineError(t *testing.T) {
	f := newSessionFixture(t)
	first := f.analyze(t, catalog.Forces, "Analyse")
	s, err := f.coord.OpenSession(catalog.Forces, f.player, nil)
	require.NoError(t, err)

	f.analyzer.push("", errors.New("timeout"))
	task, err := s.Ask(context.Background(), "Pourquoi ?")
	require.NoError(t, err)
	_, err = waitTask(t, task)
	assert.ErrorIs(t, err, ErrFollowUpFailed)

	transcript := s.Transcript()
	require.Len(t, transcript, 3)
	assert.Equal(t, EntryError, transcript[2].Kind)
	assert.Equal(t, FollowUpFailureMessage, transcript[2].Text)
	assert.Equal(t, StatusIdle, s.Status())
	assert.Same(t, first.Audio, s.Audio(), "audio untouched on failure")
}

func TestRegenerationResetsTranscript(t *testing.T) {
	f := newSessionFixture(t)
	f.analyze(t, catalog.Forces, "Version 1")
	s, err := f.coord.OpenSession(catalog.Forces, f.player, nil)
	require.NoError(t, err)

	f.analyzer.push("Réponse", nil)
	task, err := s.Ask(context.Background(), "Question")
	require.NoError(t, err)
	_, err = waitTask(t, task)
	require.NoError(t, err)
	require.Len(t, s.Transcript(), 3)

	f.analyze(t, catalog.Forces, "Version 2")
	assert.Equal(t, []TranscriptEntry{{Kind: EntryExpert, Text: "Version 2"}}, s.Transcript())
}

func TestNewNarrationAutoPlaysOnce(t *testing.T) {
	f := newSessionFixture(t)
	f.analyzer.gate = make(chan struct{})
	f.analyzer.push("Analyse", nil)

	task, err := f.coord.RequestAnalysis(context.Background(), catalog.Forces, "")
	require.NoError(t, err)
	s, err := f.coord.OpenSession(catalog.Forces, f.player, nil)
	require.NoError(t, err)
	assert.Empty(t, s.Transcript(), "opened while loading")

	close(f.analyzer.gate)
	out, err := waitTask(t, task)
	require.NoError(t, err)
	require.NotNil(t, out.Audio)

	assert.Equal(t, []*playback.Buffer{out.Audio}, f.device.starts())
	assert.Same(t, out.Audio, f.player.Current())
	assert.Equal(t, []TranscriptEntry{{Kind: EntryExpert, Text: "Analyse"}}, s.Transcript())

	// Re-mounting the panel with an unchanged narration does not replay.
	s.Detach()
	assert.Nil(t, f.player.Current())
	again, err := f.coord.OpenSession(catalog.Forces, f.player, nil)
	require.NoError(t, err)
	assert.Len(t, f.device.starts(), 1)

	require.NoError(t, again.Replay())
	assert.Len(t, f.device.starts(), 2)
}

func TestLoadingStopsPanelAudio(t *testing.T) {
	f := newSessionFixture(t)
	f.analyze(t, catalog.Forces, "Analyse")
	s, err := f.coord.OpenSession(catalog.Forces, f.player, nil)
	require.NoError(t, err)
	require.NoError(t, s.Replay())
	require.NotNil(t, f.player.Current())

	f.analyzer.mu.Lock()
	f.analyzer.gate = make(chan struct{})
	f.analyzer.mu.Unlock()
	f.analyzer.push("Nouvelle", nil)
	task, err := f.coord.RequestAnalysis(context.Background(), catalog.Forces, "")
	require.NoError(t, err)
	assert.Nil(t, f.player.Current(), "regeneration silences the panel")

	close(f.analyzer.gate)
	out, err := waitTask(t, task)
	require.NoError(t, err)
	assert.Same(t, out.Audio, f.player.Current())
}

func TestSessionCloseStopsAudioAndClears(t *testing.T) {
	f := newSessionFixture(t)
	f.analyze(t, catalog.Forces, "Analyse")
	s, err := f.coord.OpenSession(catalog.Forces, f.player, nil)
	require.NoError(t, err)
	require.NoError(t, s.Replay())

	s.Close()
	assert.Nil(t, f.player.Current())
	assert.Equal(t, StatusClosed, s.Status())
	key := Key{DocumentID: catalog.SphinxID, Topic: catalog.Forces}
	_, ok := f.state.Response(key)
	assert.False(t, ok)
	_, ok = f.state.Audio(key)
	assert.False(t, ok)

	assert.NotPanics(t, s.Close)
	assert.ErrorIs(t, s.Replay(), ErrSessionClosed)
}

func TestOtherPanelsAudioIsNotStopped(t *testing.T) {
	f := newSessionFixture(t)
	f.analyze(t, catalog.Forces, "A")
	f.analyze(t, catalog.Faiblesses, "B")
	forces, err := f.coord.OpenSession(catalog.Forces, f.player, nil)
	require.NoError(t, err)
	risks, err := f.coord.OpenSession(catalog.Faiblesses, f.player, nil)
	require.NoError(t, err)

	require.NoError(t, risks.Replay())
	playing := f.player.Current()
	forces.Detach()
	assert.Same(t, playing, f.player.Current())
}
