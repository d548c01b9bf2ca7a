// Package extract turns uploaded files into the raw text of a custom
// document.
package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cliniquerisimed-lab/jongwane/internal/audit"
	"github.com/cliniquerisimed-lab/jongwane/internal/logger"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported document format")
	ErrToolMissing       = errors.New("extraction tool not installed")
)

const defaultTimeout = 60 * time.Second

var (
	emphasisMarkers = regexp.MustCompile(`(\*\*|__|\*|` + "`" + `)`)
	headingMarkers  = regexp.MustCompile(`(?m)^[ \t]*#{1,6}[ \t]+`)
	trailingSpace   = regexp.MustCompile(`(?m)[ \t]+$`)
	blankRuns       = regexp.MustCompile(`\n{3,}`)
)

type Extractor struct {
	pdfToText string
	pandoc    string
	timeout   time.Duration
	log       logger.Logger
}

func New(log logger.Logger) *Extractor {
	if log == nil {
		log = logger.NewNop()
	}
	return &Extractor{pdfToText: "pdftotext", pandoc: "pandoc", timeout: defaultTimeout, log: log}
}

// Extract reads the text of data, choosing the converter from the
// extension of filename. Every failure wraps audit.ErrExtractionFailed.
func (e *Extractor) Extract(ctx context.Context, filename string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	details := map[string]any{"file": filename, "format": ext}

	var (
		text string
		err  error
	)
	switch ext {
	case ".txt", ".md":
		if !utf8.Valid(data) {
			err = errors.New("text file is not valid UTF-8")
		}
		text = string(data)
	case ".pdf":
		text, err = e.run(ctx, data, ext, e.pdfToText, "-layout", "{file}", "-")
	case ".docx":
		text, err = e.run(ctx, data, ext, e.pandoc, "-f", "docx", "-t", "plain", "{file}")
	default:
		err = fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err == nil {
		text = Normalize(text)
		if text == "" {
			err = errors.New("no text found")
		}
	}
	if err != nil {
		details["error"] = err.Error()
		e.log.Warn("extract", "extraction failed", details)
		return "", fmt.Errorf("%w: %v", audit.ErrExtractionFailed, err)
	}
	details["chars"] = utf8.RuneCountInString(text)
	e.log.Info("extract", "document text extracted", details)
	return text, nil
}

// run writes data to a temporary file and runs tool on it. The "{file}"
// argument is replaced by the temporary path.
func (e *Extractor) run(ctx context.Context, data []byte, ext, tool string, args ...string) (string, error) {
	if _, err := exec.LookPath(tool); err != nil {
		return "", fmt.Errorf("%w: %s", ErrToolMissing, tool)
	}

	tmp, err := os.CreateTemp("", "audit-upload-*"+ext)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}

	for i, arg := range args {
		if arg == "{file}" {
			args[i] = tmp.Name()
		}
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, tool, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("%s failed: %w: %s", tool, err, strings.TrimSpace(stderr.String()))
	}
	return string(output), nil
}

// Normalize strips markdown emphasis and heading markers, trims trailing
// blanks and collapses runs of blank lines.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\f", "\n")
	text = headingMarkers.ReplaceAllString(text, "")
	text = emphasisMarkers.ReplaceAllString(text, "")
	text = trailingSpace.ReplaceAllString(text, "")
	text = blankRuns.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
