package search

import (
	"sort"
	"strings"

	"github.com/cliniquerisimed-lab/jongwane/internal/catalog"
	"github.com/cliniquerisimed-lab/jongwane/internal/richtext"
)

const snippetRadius = 80

// Corpus is the in-memory data the fallback scan walks.
type Corpus interface {
	Documents() []catalog.Document
	Analyses(documentID string) map[catalog.Topic]string
}

// Scanner is the fallback Searcher used when Meilisearch is not configured
// or unhealthy. It matches every query term, case-insensitively.
type Scanner struct {
	corpus Corpus
}

func NewScanner(corpus Corpus) *Scanner {
	return &Scanner{corpus: corpus}
}

func (s *Scanner) Healthy() bool {
	return s.corpus != nil
}

func (s *Scanner) Search(q Query) ([]Result, int, error) {
	terms := strings.Fields(strings.ToLower(q.Text))
	if len(terms) == 0 || s.corpus == nil {
		return nil, 0, nil
	}

	var results []Result
	for _, doc := range s.corpus.Documents() {
		if q.DocumentID != "" && doc.ID != q.DocumentID {
			continue
		}
		if q.FilterType == "" || q.FilterType == ResultDocument {
			record := NewDocumentRecord(doc)
			if matchesAll(terms, record.Title, record.Subtitle, record.Text) {
				results = append(results, Result{
					Type:       ResultDocument,
					ID:         doc.ID,
					Title:      doc.Title,
					Snippet:    firstNonBlank(snippet(record.Text, terms[0]), doc.Subtitle),
					DocumentID: doc.ID,
				})
			}
		}
		if q.FilterType == "" || q.FilterType == ResultAnalysis {
			results = append(results, s.scanAnalyses(doc, terms)...)
		}
	}

	total := len(results)
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= total {
		return nil, total, nil
	}
	results = results[offset:]
	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	if len(results) > limit {
		results = results[:limit]
	}
	return results, total, nil
}

func (s *Scanner) scanAnalyses(doc catalog.Document, terms []string) []Result {
	analyses := s.corpus.Analyses(doc.ID)
	topics := make([]catalog.Topic, 0, len(analyses))
	for topic := range analyses {
		topics = append(topics, topic)
	}
	sort.Slice(topics, func(i, j int) bool { return topics[i] < topics[j] })

	var out []Result
	for _, topic := range topics {
		plain := richtext.Plain(analyses[topic])
		if !matchesAll(terms, plain) {
			continue
		}
		title := string(topic)
		if section, ok := doc.Section(topic); ok {
			title = section.Title
		}
		out = append(out, Result{
			Type:       ResultAnalysis,
			ID:         AnalysisID(doc.ID, topic),
			Title:      title,
			Snippet:    snippet(plain, terms[0]),
			DocumentID: doc.ID,
			Topic:      topic,
		})
	}
	return out
}

func matchesAll(terms []string, fields ...string) bool {
	haystack := strings.ToLower(strings.Join(fields, "\n"))
	for _, term := range terms {
		if !strings.Contains(haystack, term) {
			return false
		}
	}
	return true
}

// snippet cuts a window of text around the first occurrence of term.
func snippet(text, term string) string {
	runes := []rune(text)
	lower := []rune(strings.ToLower(text))
	needle := []rune(term)
	at := -1
	for i := 0; i+len(needle) <= len(lower); i++ {
		if string(lower[i:i+len(needle)]) == term {
			at = i
			break
		}
	}
	if at < 0 {
		return ""
	}
	start := max(0, at-snippetRadius)
	end := min(len(runes), at+len(needle)+snippetRadius)
	out := strings.TrimSpace(string(runes[start:end]))
	if start > 0 {
		out = "…" + out
	}
	if end < len(runes) {
		out += "…"
	}
	return strings.Join(strings.Fields(out), " ")
}
