package persist

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cliniquerisimed-lab/jongwane/internal/catalog"
	"github.com/cliniquerisimed-lab/jongwane/internal/store"
)

const key = "dr_jongwane_audit_data_v3"

type failingKV struct {
	store.KV
	err error
}

func (f failingKV) Get(context.Context, string) (string, bool, error) { return "", false, f.err }
func (f failingKV) Set(context.Context, string, string) error         { return f.err }

func TestRoundTripExcludesBuiltins(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemoryKV()
	bridge := NewBridge(kv, key, nil)

	docs := catalog.NewStore(&fixedIDs{id: "custom-123"})
	custom, err := docs.Add("Mon dossier", "", "Texte")
	require.NoError(t, err)

	require.NoError(t, bridge.Save(ctx, State{
		Responses: []Entry{{DocumentID: "sphinx", Topic: catalog.Forces, Text: "<strong>ok</strong>"}},
		Notes:     []Entry{{DocumentID: "echo-pediatrie", Topic: catalog.Propositions, Text: "note"}},
		Documents: docs.List(),
	}))

	raw, found, err := kv.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, found)

	var stored map[string]map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(raw), &stored))
	assert.NotContains(t, stored["customDocs"], "sphinx")
	assert.NotContains(t, stored["customDocs"], "echo-pediatrie")
	assert.Contains(t, stored["customDocs"], "custom-123")
	assert.Contains(t, stored["notes"], "echo-pediatrie-propositions")

	loaded := bridge.Load(ctx)
	require.Len(t, loaded.Documents, 1)
	assert.Equal(t, custom, loaded.Documents[0])
	assert.Equal(t, []Entry{{DocumentID: "sphinx", Topic: catalog.Forces, Text: "<strong>ok</strong>"}}, loaded.Responses)
	assert.Equal(t, []Entry{{DocumentID: "echo-pediatrie", Topic: catalog.Propositions, Text: "note"}}, loaded.Notes)

	fresh := catalog.NewStore(nil)
	fresh.Restore(loaded.Documents)
	ids := []string{}
	for _, doc := range fresh.List() {
		ids = append(ids, doc.ID)
	}
	assert.Equal(t, []string{"sphinx", "echo-pediatrie", "custom-123"}, ids)
}

func TestLoadTreatsMismatchAsEmpty(t *testing.T) {
	ctx := context.Background()
	cases := map[string]string{
		"not json":        "{oops",
		"wrong map shape": `{"aiResponses": ["a", "b"]}`,
		"wrong notes":     `{"notes": {"sphinx-forces": 3}}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			kv := store.NewMemoryKV()
			require.NoError(t, kv.Set(ctx, key, raw))
			assert.True(t, NewBridge(kv, key, nil).Load(ctx).Empty())
		})
	}
}

func TestLoadAbsentOrUnreadable(t *testing.T) {
	ctx := context.Background()
	assert.True(t, NewBridge(store.NewMemoryKV(), key, nil).Load(ctx).Empty())
	assert.True(t, NewBridge(failingKV{err: errors.New("down")}, key, nil).Load(ctx).Empty())
}

func TestSavePropagatesWriteErrors(t *testing.T) {
	err := NewBridge(failingKV{err: errors.New("down")}, key, nil).Save(context.Background(), State{})
	assert.Error(t, err)
}

func TestDecodeSkipsInvalidEntries(t *testing.T) {
	raw := `{
		"aiResponses": {"sphinx": {"forces": "a", "menaces": "b"}},
		"notes": {"custom-1-faiblesses": "n1", "broken": "n2", "x-unknown": "n3"},
		"customDocs": {
			"sphinx": {"id": "sphinx", "title": "tampered", "sections": {}},
			"custom-2": {"id": "custom-2", "title": "partial", "sections": {"forces": {"title": "t"}}},
			"custom-3": {"id": "other", "title": "mismatched id", "sections": {}}
		}
	}`
	st, err := Decode([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, []Entry{{DocumentID: "sphinx", Topic: catalog.Forces, Text: "a"}}, st.Responses)
	assert.Equal(t, []Entry{{DocumentID: "custom-1", Topic: catalog.Faiblesses, Text: "n1"}}, st.Notes)
	assert.Empty(t, st.Documents)
}

func TestEncodeEmptyStateUsesObjects(t *testing.T) {
	raw, err := Encode(State{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"aiResponses":{},"notes":{},"customDocs":{}}`, string(raw))
}

func TestSplitNoteKey(t *testing.T) {
	docID, topic, ok := SplitNoteKey("echo-pediatrie-forces")
	require.True(t, ok)
	assert.Equal(t, "echo-pediatrie", docID)
	assert.Equal(t, catalog.Forces, topic)

	_, _, ok = SplitNoteKey("-forces")
	assert.False(t, ok)
	_, _, ok = SplitNoteKey("sphinx-")
	assert.False(t, ok)
}

type fixedIDs struct{ id string }

func (f *fixedIDs) NewID() string { return f.id }
