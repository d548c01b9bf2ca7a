package persist

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/cliniquerisimed-lab/jongwane/internal/catalog"
)

// Entry is one per-(document, topic) text value.
type Entry struct {
	DocumentID string
	Topic      catalog.Topic
	Text       string
}

// State is the durable projection of the workspace.
type State struct {
	Responses []Entry
	Notes     []Entry
	// Documents may hold the full catalog; built-ins are dropped on encode.
	Documents []catalog.Document
}

func (s State) Empty() bool {
	return len(s.Responses) == 0 && len(s.Notes) == 0 && len(s.Documents) == 0
}

type snapshot struct {
	AIResponses map[string]map[string]string `json:"aiResponses"`
	Notes       map[string]string            `json:"notes"`
	CustomDocs  map[string]documentRecord    `json:"customDocs"`
}

type documentRecord struct {
	ID          string                   `json:"id"`
	Title       string                   `json:"title"`
	Subtitle    string                   `json:"subtitle"`
	Sections    map[string]sectionRecord `json:"sections"`
	OriginalRef string                   `json:"originalRef"`
}

type sectionRecord struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	RawText string `json:"rawText"`
}

// NoteKey joins document id and topic the way stored notes are keyed.
func NoteKey(documentID string, topic catalog.Topic) string {
	return documentID + "-" + string(topic)
}

// SplitNoteKey splits at the last hyphen; document ids may contain hyphens,
// topics never do.
func SplitNoteKey(key string) (string, catalog.Topic, bool) {
	i := strings.LastIndex(key, "-")
	if i <= 0 || i == len(key)-1 {
		return "", "", false
	}
	topic, err := catalog.ParseTopic(key[i+1:])
	if err != nil {
		return "", "", false
	}
	return key[:i], topic, true
}

func Encode(st State) ([]byte, error) {
	snap := snapshot{
		AIResponses: map[string]map[string]string{},
		Notes:       map[string]string{},
		CustomDocs:  map[string]documentRecord{},
	}
	for _, e := range st.Responses {
		byTopic, ok := snap.AIResponses[e.DocumentID]
		if !ok {
			byTopic = map[string]string{}
			snap.AIResponses[e.DocumentID] = byTopic
		}
		byTopic[string(e.Topic)] = e.Text
	}
	for _, e := range st.Notes {
		snap.Notes[NoteKey(e.DocumentID, e.Topic)] = e.Text
	}
	for _, doc := range st.Documents {
		if catalog.IsBuiltin(doc.ID) {
			continue
		}
		snap.CustomDocs[doc.ID] = toRecord(doc)
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return raw, nil
}

// Decode rejects payloads whose shape does not match. Individual entries
// with unknown topics or incomplete documents are skipped.
func Decode(raw []byte) (State, error) {
	var snap snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return State{}, fmt.Errorf("decode snapshot: %w", err)
	}

	var st State
	for _, docID := range sortedKeys(snap.AIResponses) {
		byTopic := snap.AIResponses[docID]
		for _, rawTopic := range sortedKeys(byTopic) {
			topic, err := catalog.ParseTopic(rawTopic)
			if err != nil {
				continue
			}
			st.Responses = append(st.Responses, Entry{DocumentID: docID, Topic: topic, Text: byTopic[rawTopic]})
		}
	}
	for _, key := range sortedKeys(snap.Notes) {
		docID, topic, ok := SplitNoteKey(key)
		if !ok {
			continue
		}
		st.Notes = append(st.Notes, Entry{DocumentID: docID, Topic: topic, Text: snap.Notes[key]})
	}
	for _, id := range sortedKeys(snap.CustomDocs) {
		if catalog.IsBuiltin(id) {
			continue
		}
		doc, ok := snap.CustomDocs[id].toDocument(id)
		if !ok {
			continue
		}
		st.Documents = append(st.Documents, doc)
	}
	return st, nil
}

func toRecord(doc catalog.Document) documentRecord {
	sections := make(map[string]sectionRecord, len(doc.Sections))
	for topic, section := range doc.Sections {
		sections[string(topic)] = sectionRecord(section)
	}
	return documentRecord{
		ID:          doc.ID,
		Title:       doc.Title,
		Subtitle:    doc.Subtitle,
		Sections:    sections,
		OriginalRef: doc.Reference,
	}
}

func (r documentRecord) toDocument(key string) (catalog.Document, bool) {
	if r.ID == "" {
		r.ID = key
	}
	if r.ID != key {
		return catalog.Document{}, false
	}
	sections := make(map[catalog.Topic]catalog.Section, len(r.Sections))
	for rawTopic, section := range r.Sections {
		topic, err := catalog.ParseTopic(rawTopic)
		if err != nil {
			return catalog.Document{}, false
		}
		sections[topic] = catalog.Section(section)
	}
	doc := catalog.Document{
		ID:        r.ID,
		Title:     r.Title,
		Subtitle:  r.Subtitle,
		Sections:  sections,
		Reference: r.OriginalRef,
	}
	return doc, doc.Complete()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
