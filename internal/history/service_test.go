package history

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/cliniquerisimed-lab/jongwane/internal/catalog"
)

func TestRecordAndReadBack(t *testing.T) {
	tempDir := t.TempDir()
	svc := New(tempDir)

	first, err := svc.Record("sphinx", catalog.Forces, "Première <strong>analyse</strong>")
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if len(first.Hash) != 7 {
		t.Fatalf("expected short hash, got %q", first.Hash)
	}
	if _, err := os.Stat(filepath.Join(tempDir, "sphinx", "forces.txt")); err != nil {
		t.Fatalf("topic file missing: %v", err)
	}

	second, err := svc.Record("sphinx", catalog.Forces, "Analyse régénérée")
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if _, err := svc.Record("sphinx", catalog.Faiblesses, "Risques"); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	history, err := svc.History("sphinx", catalog.Forces, 10)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 forces revisions, got %d", len(history))
	}
	if history[0].Hash != second.Hash || history[1].Hash != first.Hash {
		t.Fatalf("unexpected order: %+v", history)
	}

	old, err := svc.Revision("sphinx", first.Hash, catalog.Forces)
	if err != nil {
		t.Fatalf("Revision() error = %v", err)
	}
	if old != "Première <strong>analyse</strong>" {
		t.Fatalf("unexpected old text %q", old)
	}

	if _, err := svc.Revision("sphinx", first.Hash, catalog.Faiblesses); !errors.Is(err, ErrNoHistory) {
		t.Fatalf("expected ErrNoHistory for topic absent at revision, got %v", err)
	}
}

func TestRecordSameTextIsNoop(t *testing.T) {
	svc := New(t.TempDir())

	a, err := svc.Record("doc", catalog.Propositions, "même texte")
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	b, err := svc.Record("doc", catalog.Propositions, "même texte")
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if a.Hash != b.Hash {
		t.Fatalf("expected no new commit, got %s then %s", a.Hash, b.Hash)
	}
	history, err := svc.History("doc", catalog.Propositions, 0)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected one revision, got %d", len(history))
	}
}

func TestHistoryOfUnknownDocumentIsEmpty(t *testing.T) {
	svc := New(t.TempDir())

	history, err := svc.History("never-analysed", catalog.Forces, 5)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("expected empty history, got %+v", history)
	}
	if _, err := svc.Revision("never-analysed", "abc1234", catalog.Forces); !errors.Is(err, ErrNoHistory) {
		t.Fatalf("expected ErrNoHistory, got %v", err)
	}
	if _, err := svc.Record("../escape", catalog.Forces, "x"); !errors.Is(err, ErrInvalidDocument) {
		t.Fatalf("expected ErrInvalidDocument, got %v", err)
	}
}

func TestConcurrentRecordSameDocument(t *testing.T) {
	svc := New(t.TempDir())

	const writers = 8
	var wg sync.WaitGroup
	errCh := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			topic := catalog.Topics[idx%len(catalog.Topics)]
			if _, err := svc.Record("doc-1", topic, fmt.Sprintf("analyse-%02d", idx)); err != nil {
				errCh <- err
			}
		}(i)
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Fatalf("Record() concurrent error = %v", err)
	}

	total := 0
	for _, topic := range catalog.Topics {
		history, err := svc.History("doc-1", topic, 100)
		if err != nil {
			t.Fatalf("History() error = %v", err)
		}
		total += len(history)
	}
	if total != writers {
		t.Fatalf("expected %d revisions in total, got %d", writers, total)
	}
}
