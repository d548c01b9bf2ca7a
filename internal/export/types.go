// Package export renders audit reports as PDF and DOCX.
package export

import (
	"errors"
	"time"

	"github.com/cliniquerisimed-lab/jongwane/internal/catalog"
)

// Format represents the export output format
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
)

func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatPDF, "":
		return FormatPDF, nil
	case FormatDOCX:
		return FormatDOCX, nil
	}
	return "", ErrUnsupportedFormat
}

// Request contains parameters for an export operation
type Request struct {
	DocumentID string
	Format     Format
}

// Report is the audit of one document as it stands at export time.
type Report struct {
	Document    catalog.Document
	Analyses    map[catalog.Topic]string
	Notes       map[catalog.Topic]string
	GeneratedAt time.Time
}

// Result contains the export output
type Result struct {
	Data     []byte
	Filename string
	MimeType string
}

var (
	ErrUnsupportedFormat = errors.New("export format unsupported")
	// ErrPDFDependencyMissing indicates PDF export runtime dependencies are unavailable.
	ErrPDFDependencyMissing = errors.New("export pdf dependency missing")
	// ErrDOCXDependencyMissing indicates DOCX export runtime dependencies are unavailable.
	ErrDOCXDependencyMissing = errors.New("export docx dependency missing")
)
