package search

import "github.com/cliniquerisimed-lab/jongwane/internal/catalog"

// ResultType identifies the kind of entity in a search result.
type ResultType string

const (
	ResultDocument ResultType = "document"
	ResultAnalysis ResultType = "analysis"
)

// Result is a single search hit returned to the caller.
type Result struct {
	Type       ResultType    `json:"type"`
	ID         string        `json:"id"`
	Title      string        `json:"title"`
	Snippet    string        `json:"snippet"`
	DocumentID string        `json:"documentId"`
	Topic      catalog.Topic `json:"topic,omitempty"`
}

// Query describes a search request.
type Query struct {
	Text       string
	FilterType ResultType // empty = all types
	DocumentID string
	Limit      int
	Offset     int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// DocumentRecord is the data we index for a document.
type DocumentRecord struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	Text     string `json:"text"`
}

// AnalysisRecord is the data we index for a stored analysis.
type AnalysisRecord struct {
	ID         string `json:"id"`
	DocumentID string `json:"documentId"`
	Topic      string `json:"topic"`
	Title      string `json:"title"`
	Text       string `json:"text"`
}

// AnalysisID is the index key of the analysis of one section. Meilisearch
// ids only allow alphanumerics, hyphens and underscores.
func AnalysisID(documentID string, topic catalog.Topic) string {
	return documentID + "--" + string(topic)
}

func NewDocumentRecord(doc catalog.Document) DocumentRecord {
	text := ""
	for _, topic := range catalog.Topics {
		if section, ok := doc.Section(topic); ok {
			if text != "" {
				text += "\n\n"
			}
			text += section.RawText
		}
	}
	return DocumentRecord{ID: doc.ID, Title: doc.Title, Subtitle: doc.Subtitle, Text: text}
}
