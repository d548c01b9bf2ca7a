package audit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cliniquerisimed-lab/jongwane/internal/catalog"
	"github.com/cliniquerisimed-lab/jongwane/internal/persist"
	"github.com/cliniquerisimed-lab/jongwane/internal/playback"
	"github.com/cliniquerisimed-lab/jongwane/internal/store"
)

const storageKey = "dr_jongwane_audit_data_v3"

func newTestWorkspace(kv store.KV, analyzer *fakeAnalyzer, device *countingDevice) *Workspace {
	return NewWorkspace(WorkspaceOptions{
		Catalog:  catalog.NewStore(&catalog.CounterAllocator{}),
		Analyzer: analyzer,
		Speech:   &fakeSpeech{},
		Player:   playback.NewController(device.factory(), nil),
		Bridge:   persist.NewBridge(kv, storageKey, nil),
	})
}

func TestWorkspaceRequiresOpenDocument(t *testing.T) {
	w := newTestWorkspace(store.NewMemoryKV(), &fakeAnalyzer{}, &countingDevice{})

	_, err := w.RequestAnalysis(context.Background(), catalog.Forces, "")
	assert.ErrorIs(t, err, ErrNoOpenDocument)
	_, err = w.Open("missing")
	assert.ErrorIs(t, err, ErrUnknownDocument)

	_, err = w.Open(catalog.SphinxID)
	require.NoError(t, err)
	_, err = w.OpenSession(catalog.Forces)
	assert.ErrorIs(t, err, ErrNoAnalysis)
}

func TestWorkspacePersistsAcrossReload(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemoryKV()
	analyzer := (&fakeAnalyzer{}).push("Analyse du dossier", nil)
	w := newTestWorkspace(kv, analyzer, &countingDevice{})

	doc, err := w.AddDocument("Plan Santé", "", "Texte intégral")
	require.NoError(t, err)
	assert.Equal(t, "custom-1", doc.ID)
	assert.Equal(t, doc.ID, w.Current())

	task, err := w.RequestAnalysis(ctx, catalog.Faiblesses, "")
	require.NoError(t, err)
	_, err = waitTask(t, task)
	require.NoError(t, err)
	assert.Equal(t, "Texte intégral", analyzer.request(0).BaseText)
	require.NoError(t, w.SetNote(catalog.SphinxID, catalog.Forces, "à vérifier"))
	w.Close()

	reloaded := newTestWorkspace(kv, &fakeAnalyzer{}, &countingDevice{})
	reloaded.Load(ctx)

	var ids []string
	for _, d := range reloaded.Documents() {
		ids = append(ids, d.ID)
	}
	assert.Equal(t, []string{catalog.SphinxID, catalog.EchoPediatrieID, "custom-1"}, ids)
	assert.Equal(t, "à vérifier", reloaded.Note(catalog.SphinxID, catalog.Forces))

	text, ok := reloaded.State().Response(Key{DocumentID: "custom-1", Topic: catalog.Faiblesses})
	require.True(t, ok)
	assert.Equal(t, "Analyse du dossier", text)
	_, ok = reloaded.State().Audio(Key{DocumentID: "custom-1", Topic: catalog.Faiblesses})
	assert.False(t, ok, "narration is never persisted")

	_, err = reloaded.Open("custom-1")
	require.NoError(t, err)
	s, err := reloaded.OpenSession(catalog.Faiblesses)
	require.NoError(t, err)
	assert.Equal(t, []TranscriptEntry{{Kind: EntryExpert, Text: "Analyse du dossier"}}, s.Transcript())
}

func TestWorkspaceRequestMountsPanelAndAutoPlays(t *testing.T) {
	device := &countingDevice{}
	analyzer := (&fakeAnalyzer{}).push("Analyse", nil)
	w := newTestWorkspace(store.NewMemoryKV(), analyzer, device)
	_, err := w.Open(catalog.SphinxID)
	require.NoError(t, err)

	task, err := w.RequestAnalysis(context.Background(), catalog.Forces, "")
	require.NoError(t, err)
	out, err := waitTask(t, task)
	require.NoError(t, err)

	s, ok := w.Session(catalog.Forces)
	require.True(t, ok)
	assert.Len(t, s.Transcript(), 1)
	assert.Same(t, out.Audio, w.Player().Current())
}

func TestWorkspaceCloseAnalysisStopsAndUnmounts(t *testing.T) {
	analyzer := (&fakeAnalyzer{}).push("Analyse", nil)
	w := newTestWorkspace(store.NewMemoryKV(), analyzer, &countingDevice{})
	_, err := w.Open(catalog.SphinxID)
	require.NoError(t, err)
	task, err := w.RequestAnalysis(context.Background(), catalog.Forces, "")
	require.NoError(t, err)
	_, err = waitTask(t, task)
	require.NoError(t, err)

	require.NoError(t, w.CloseAnalysis(catalog.Forces))
	assert.Nil(t, w.Player().Current())
	_, ok := w.Session(catalog.Forces)
	assert.False(t, ok)
	_, ok = w.State().Response(Key{DocumentID: catalog.SphinxID, Topic: catalog.Forces})
	assert.False(t, ok)

	require.NoError(t, w.CloseAnalysis(catalog.Forces))
}

func TestOpeningAnotherDocumentUnmountsPanels(t *testing.T) {
	analyzer := (&fakeAnalyzer{}).push("Analyse", nil)
	w := newTestWorkspace(store.NewMemoryKV(), analyzer, &countingDevice{})
	_, err := w.Open(catalog.SphinxID)
	require.NoError(t, err)
	task, err := w.RequestAnalysis(context.Background(), catalog.Forces, "")
	require.NoError(t, err)
	_, err = waitTask(t, task)
	require.NoError(t, err)
	s, ok := w.Session(catalog.Forces)
	require.True(t, ok)

	_, err = w.Open(catalog.EchoPediatrieID)
	require.NoError(t, err)
	assert.Equal(t, StatusClosed, s.Status())
	assert.Nil(t, w.Player().Current())

	_, ok = w.State().Response(Key{DocumentID: catalog.SphinxID, Topic: catalog.Forces})
	assert.True(t, ok, "unmounting keeps the stored analysis")
}

func TestSetNoteValidates(t *testing.T) {
	w := newTestWorkspace(store.NewMemoryKV(), &fakeAnalyzer{}, &countingDevice{})
	assert.ErrorIs(t, w.SetNote("nope", catalog.Forces, "x"), ErrUnknownDocument)
	assert.ErrorIs(t, w.SetNote(catalog.SphinxID, catalog.Topic("x"), "x"), catalog.ErrUnknownTopic)
	require.NoError(t, w.SetNote(catalog.SphinxID, catalog.Forces, "note"))
	assert.Equal(t, "note", w.Note(catalog.SphinxID, catalog.Forces))
}
