package search

import (
	"github.com/cliniquerisimed-lab/jongwane/internal/catalog"
	"github.com/cliniquerisimed-lab/jongwane/internal/logger"
	"github.com/cliniquerisimed-lab/jongwane/internal/richtext"
)

// Service is the facade that tries Meilisearch first and falls back to a
// scan of the in-memory catalog and analyses.
type Service struct {
	meili *Meili
	scan  *Scanner
	log   logger.Logger
}

// NewService creates a search service. meili may be nil if Meilisearch is not configured.
func NewService(meili *Meili, scan *Scanner, log logger.Logger) *Service {
	if log == nil {
		log = logger.NewNop()
	}
	return &Service{meili: meili, scan: scan, log: log}
}

// Search tries Meilisearch if healthy, otherwise falls back to the scan.
func (s *Service) Search(q Query) Response {
	if s.meili != nil && s.meili.Healthy() {
		results, total, err := s.meili.Search(q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		s.log.Warn("search", "meilisearch error, falling back to scan", map[string]any{"error": err.Error()})
	}

	if s.scan == nil {
		return Response{Results: []Result{}, Query: q.Text}
	}
	results, total, err := s.scan.Search(q)
	if err != nil {
		s.log.Error("search", "scan failed", map[string]any{"error": err.Error()})
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text}
}

func (s *Service) indexing() bool {
	return s.meili != nil && s.meili.Healthy()
}

// IndexDocument indexes a document (fire-and-forget to Meilisearch).
func (s *Service) IndexDocument(doc catalog.Document) {
	if !s.indexing() {
		return
	}
	record := NewDocumentRecord(doc)
	go func() {
		if err := s.meili.IndexDocuments([]DocumentRecord{record}); err != nil {
			s.log.Warn("search", "index document failed", map[string]any{"document": record.ID, "error": err.Error()})
		}
	}()
}

// IndexAnalysis indexes a stored analysis (fire-and-forget to Meilisearch).
func (s *Service) IndexAnalysis(doc catalog.Document, topic catalog.Topic, text string) {
	if !s.indexing() {
		return
	}
	record := analysisRecord(doc, topic, text)
	go func() {
		if err := s.meili.IndexAnalyses([]AnalysisRecord{record}); err != nil {
			s.log.Warn("search", "index analysis failed", map[string]any{"id": record.ID, "error": err.Error()})
		}
	}()
}

// DeleteAnalysis removes a closed analysis from the index (fire-and-forget).
func (s *Service) DeleteAnalysis(documentID string, topic catalog.Topic) {
	if !s.indexing() {
		return
	}
	id := AnalysisID(documentID, topic)
	go func() {
		if err := s.meili.DeleteAnalysis(id); err != nil {
			s.log.Warn("search", "delete analysis failed", map[string]any{"id": id, "error": err.Error()})
		}
	}()
}

// ReindexAll pushes every document and stored analysis of corpus to
// Meilisearch. Called once at startup after the workspace is loaded.
func (s *Service) ReindexAll(corpus Corpus) {
	if !s.indexing() || corpus == nil {
		return
	}
	var (
		documents []DocumentRecord
		analyses  []AnalysisRecord
	)
	for _, doc := range corpus.Documents() {
		documents = append(documents, NewDocumentRecord(doc))
		for topic, text := range corpus.Analyses(doc.ID) {
			analyses = append(analyses, analysisRecord(doc, topic, text))
		}
	}
	if err := s.meili.IndexDocuments(documents); err != nil {
		s.log.Warn("search", "reindex documents failed", map[string]any{"error": err.Error()})
	}
	if err := s.meili.IndexAnalyses(analyses); err != nil {
		s.log.Warn("search", "reindex analyses failed", map[string]any{"error": err.Error()})
	}
	s.log.Info("search", "reindexed", map[string]any{"documents": len(documents), "analyses": len(analyses)})
}

func (s *Service) Close() {
	if s.meili != nil {
		s.meili.Close()
	}
}

func analysisRecord(doc catalog.Document, topic catalog.Topic, text string) AnalysisRecord {
	title := string(topic)
	if section, ok := doc.Section(topic); ok {
		title = doc.Title + " · " + section.Title
	}
	return AnalysisRecord{
		ID:         AnalysisID(doc.ID, topic),
		DocumentID: doc.ID,
		Topic:      string(topic),
		Title:      title,
		Text:       richtext.Plain(text),
	}
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
