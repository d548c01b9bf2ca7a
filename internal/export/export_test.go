package export

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/cliniquerisimed-lab/jongwane/internal/catalog"
)

type fakeSource struct {
	docs     map[string]catalog.Document
	analyses map[string]map[catalog.Topic]string
	notes    map[string]string
}

func (f fakeSource) Document(id string) (catalog.Document, error) {
	doc, ok := f.docs[id]
	if !ok {
		return catalog.Document{}, errors.New("unknown document")
	}
	return doc, nil
}

func (f fakeSource) Analyses(id string) map[catalog.Topic]string {
	return f.analyses[id]
}

func (f fakeSource) Note(id string, topic catalog.Topic) string {
	return f.notes[id+"-"+string(topic)]
}

func sphinx(t *testing.T) catalog.Document {
	t.Helper()
	for _, doc := range catalog.Builtins() {
		if doc.ID == catalog.SphinxID {
			return doc
		}
	}
	t.Fatalf("sphinx built-in missing")
	return catalog.Document{}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Hello World", "Hello-World"},
		{"Audit Stratégique Sphinx", "Audit-Strategique-Sphinx"},
		{"Special!@#$%Chars", "SpecialChars"},
		{"", "rapport-audit"},
		{"Very Long Title That Exceeds Fifty Characters Limit", "Very-Long-Title-That-Exceeds-Fifty-Characters-Limi"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := sanitizeFilename(tt.input)
			if result != tt.expected {
				t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestPercentEncodeForDataURL(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"hello world", "hello%20world"},
		{"test+sign", "test%2Bsign"},
		{"special<>", "special%3C%3E"},
		{"é", "%C3%A9"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := percentEncodeForDataURL(tt.input)
			if result != tt.expected {
				t.Errorf("percentEncodeForDataURL(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestRenderReportHTML(t *testing.T) {
	doc := sphinx(t)
	html, err := RenderReportHTML(Report{
		Document: doc,
		Analyses: map[catalog.Topic]string{
			catalog.Forces: "Un <strong>atout</strong> majeur.\n\nSecond paragraphe.",
		},
		Notes:       map[catalog.Topic]string{catalog.Faiblesses: "à revoir <vite>"},
		GeneratedAt: time.Date(2026, 3, 4, 10, 30, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("RenderReportHTML() error = %v", err)
	}

	for _, want := range []string{
		doc.Title,
		"04/03/2026 10:30",
		"<strong>atout</strong>",
		"<p>Second paragraphe.</p>",
		"à revoir &lt;vite&gt;",
		"Aucune analyse disponible.",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("report HTML missing %q", want)
		}
	}
	if strings.Contains(html, "&lt;strong&gt;") {
		t.Error("analysis markup was escaped")
	}
}

func TestExportRejectsUnknownFormatAndDocument(t *testing.T) {
	doc := sphinx(t)
	svc := NewService(fakeSource{docs: map[string]catalog.Document{doc.ID: doc}}, nil)

	if _, err := svc.Export(context.Background(), Request{DocumentID: doc.ID, Format: "odt"}); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
	if _, err := svc.Export(context.Background(), Request{DocumentID: "missing", Format: FormatPDF}); err == nil {
		t.Fatal("expected error for unknown document")
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat(""); err != nil || f != FormatPDF {
		t.Fatalf("ParseFormat(\"\") = %q, %v", f, err)
	}
	if f, err := ParseFormat("docx"); err != nil || f != FormatDOCX {
		t.Fatalf("ParseFormat(docx) = %q, %v", f, err)
	}
	if _, err := ParseFormat("odt"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}
