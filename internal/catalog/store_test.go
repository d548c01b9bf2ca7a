package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedIDs struct {
	ids []string
}

func (s *scriptedIDs) NewID() string {
	if len(s.ids) == 0 {
		return ""
	}
	id := s.ids[0]
	s.ids = s.ids[1:]
	return id
}

func TestNewStoreSeedsBuiltins(t *testing.T) {
	s := NewStore(&CounterAllocator{})

	docs := s.List()
	require.Len(t, docs, 2)
	assert.Equal(t, SphinxID, docs[0].ID)
	assert.Equal(t, EchoPediatrieID, docs[1].ID)
	for _, doc := range docs {
		assert.True(t, doc.Complete(), doc.ID)
	}
	assert.Empty(t, s.Custom())
}

func TestAddBuildsThreeSectionsSharingRawText(t *testing.T) {
	s := NewStore(&CounterAllocator{})

	doc, err := s.Add("  Plan 2026 ", "", "Texte soumis")
	require.NoError(t, err)
	assert.Equal(t, "custom-1", doc.ID)
	assert.Equal(t, "Plan 2026", doc.Title)
	assert.Equal(t, "Dossier Utilisateur", doc.Subtitle)
	require.True(t, doc.Complete())
	for _, topic := range Topics {
		section := doc.Sections[topic]
		assert.Equal(t, "Texte soumis", section.RawText)
		assert.Contains(t, section.Content, "Analyse IA requise...")
	}
	assert.Equal(t, "Points Forts", doc.Sections[Forces].Title)
	assert.Equal(t, "Risques & Lacunes", doc.Sections[Faiblesses].Title)
	assert.Equal(t, "Solutions Stratégiques", doc.Sections[Propositions].Title)
	assert.Contains(t, doc.Reference, "Texte soumis")

	got, ok := s.Get("custom-1")
	require.True(t, ok)
	assert.Equal(t, doc, got)
}

func TestAddEscapesReferenceMarkup(t *testing.T) {
	s := NewStore(&CounterAllocator{})
	doc, err := s.Add("<b>x</b>", "", "a < b")
	require.NoError(t, err)
	assert.Equal(t, "<h2>&lt;b&gt;x&lt;/b&gt;</h2>\na &lt; b", doc.Reference)
}

func TestAddRequiresTitleAndText(t *testing.T) {
	s := NewStore(&CounterAllocator{})

	_, err := s.Add(" ", "", "text")
	assert.ErrorIs(t, err, ErrTitleRequired)
	_, err = s.Add("title", "", "  \n")
	assert.ErrorIs(t, err, ErrTextRequired)
	assert.Empty(t, s.Custom())
}

func TestAddSkipsCollidingIDs(t *testing.T) {
	s := NewStore(&scriptedIDs{ids: []string{"sphinx", "custom-a", "custom-a", "", "custom-b"}})

	first, err := s.Add("A", "", "a")
	require.NoError(t, err)
	assert.Equal(t, "custom-a", first.ID)

	second, err := s.Add("B", "", "b")
	require.NoError(t, err)
	assert.Equal(t, "custom-b", second.ID)

	_, err = s.Add("C", "", "c")
	assert.ErrorIs(t, err, ErrIDSpaceExceeded)
}

func TestRestoreSkipsBuiltinsAndIncompleteRecords(t *testing.T) {
	s := NewStore(&CounterAllocator{})

	fake := Builtins()[0]
	fake.Title = "tampered"
	custom := newCustomDocument("custom-123", "Mine", "", "body")
	broken := Document{ID: "custom-broken", Sections: map[Topic]Section{Forces: {}}}

	kept := s.Restore([]Document{fake, custom, broken})
	assert.Equal(t, 1, kept)

	sphinx, ok := s.Get(SphinxID)
	require.True(t, ok)
	assert.Equal(t, "Audit Stratégique Sphinx", sphinx.Title)

	customs := s.Custom()
	require.Len(t, customs, 1)
	assert.Equal(t, "custom-123", customs[0].ID)

	_, ok = s.Get("custom-broken")
	assert.False(t, ok)
}

func TestGetReturnsIndependentCopies(t *testing.T) {
	s := NewStore(nil)
	doc, ok := s.Get(SphinxID)
	require.True(t, ok)
	doc.Sections[Forces] = Section{Title: "mutated"}

	again, _ := s.Get(SphinxID)
	assert.NotEqual(t, "mutated", again.Sections[Forces].Title)
}

func TestParseTopicAndDirectives(t *testing.T) {
	topic, err := ParseTopic(" Propositions ")
	require.NoError(t, err)
	assert.Equal(t, Propositions, topic)

	_, err = ParseTopic("menaces")
	assert.ErrorIs(t, err, ErrUnknownTopic)

	directives := Directives(SphinxID, Propositions)
	require.Len(t, directives, 1)
	assert.Equal(t, CSUDirective, directives[0].Text)
	assert.Empty(t, Directives(EchoPediatrieID, Propositions))
	assert.Empty(t, Directives(SphinxID, Forces))
}

func TestUUIDAllocatorPrefix(t *testing.T) {
	id := UUIDAllocator{}.NewID()
	assert.Regexp(t, `^custom-[0-9a-f-]{36}$`, id)
}
