package export

import (
	"context"
	"fmt"
	"time"

	"github.com/cliniquerisimed-lab/jongwane/internal/catalog"
	"github.com/cliniquerisimed-lab/jongwane/internal/logger"
)

// Source gives read access to documents, stored analyses and notes.
type Source interface {
	Document(id string) (catalog.Document, error)
	Analyses(documentID string) map[catalog.Topic]string
	Note(documentID string, topic catalog.Topic) string
}

// Service provides audit report export
type Service struct {
	source Source
	log    logger.Logger
	now    func() time.Time
}

func NewService(source Source, log logger.Logger) *Service {
	if log == nil {
		log = logger.NewNop()
	}
	return &Service{source: source, log: log, now: time.Now}
}

// Export generates a report in the requested format
func (s *Service) Export(ctx context.Context, req Request) (*Result, error) {
	doc, err := s.source.Document(req.DocumentID)
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}

	report := Report{
		Document:    doc,
		Analyses:    s.source.Analyses(doc.ID),
		Notes:       map[catalog.Topic]string{},
		GeneratedAt: s.now(),
	}
	for _, topic := range catalog.Topics {
		if note := s.source.Note(doc.ID, topic); note != "" {
			report.Notes[topic] = note
		}
	}

	html, err := RenderReportHTML(report)
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}

	details := map[string]any{"document": doc.ID, "format": req.Format}
	var result *Result
	switch req.Format {
	case FormatPDF:
		result, err = exportPDF(ctx, html, doc.Title)
	case FormatDOCX:
		result, err = exportDOCX(ctx, html, doc.Title)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, req.Format)
	}
	if err != nil {
		details["error"] = err.Error()
		s.log.Error("export", "export failed", details)
		return nil, err
	}
	details["bytes"] = len(result.Data)
	s.log.Info("export", "report exported", details)
	return result, nil
}
