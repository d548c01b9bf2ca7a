// Package history keeps every stored analysis in a per-document git
// repository, one file per topic.
package history

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/cliniquerisimed-lab/jongwane/internal/catalog"
)

var (
	ErrNoHistory       = errors.New("no analysis history")
	ErrInvalidDocument = errors.New("invalid document id for history")
)

const (
	authorName  = "Auditeur Expert"
	authorEmail = "auditeur@local.jongwane"
)

// Revision describes one recorded analysis.
type Revision struct {
	Hash      string        `json:"hash"`
	Topic     catalog.Topic `json:"topic"`
	Message   string        `json:"message"`
	CreatedAt time.Time     `json:"createdAt"`
}

type Service struct {
	baseDir string
	lockMu  sync.Mutex
	locks   map[string]*sync.Mutex
	now     func() time.Time
}

func New(baseDir string) *Service {
	return &Service{
		baseDir: baseDir,
		locks:   make(map[string]*sync.Mutex),
		now:     time.Now,
	}
}

// Record commits text as the current analysis of topic. Recording the text
// already at HEAD is a no-op and returns the HEAD revision.
func (s *Service) Record(documentID string, topic catalog.Topic, text string) (Revision, error) {
	path, err := s.repoPath(documentID)
	if err != nil {
		return Revision{}, err
	}
	lock := s.documentLock(documentID)
	lock.Lock()
	defer lock.Unlock()

	repo, err := openOrInit(path)
	if err != nil {
		return Revision{}, err
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return Revision{}, fmt.Errorf("open worktree: %w", err)
	}

	name := topicFile(topic)
	if err := os.WriteFile(filepath.Join(path, name), []byte(text+"\n"), 0o644); err != nil {
		return Revision{}, fmt.Errorf("write %s: %w", name, err)
	}
	if _, err := worktree.Add(name); err != nil {
		return Revision{}, fmt.Errorf("git add %s: %w", name, err)
	}

	status, err := worktree.Status()
	if err != nil {
		return Revision{}, fmt.Errorf("worktree status: %w", err)
	}
	if status.IsClean() {
		head, err := repo.Head()
		if err != nil {
			return Revision{}, fmt.Errorf("resolve head: %w", err)
		}
		commitObj, err := repo.CommitObject(head.Hash())
		if err != nil {
			return Revision{}, fmt.Errorf("read head commit: %w", err)
		}
		return toRevision(commitObj, topic), nil
	}

	hash, err := worktree.Commit(fmt.Sprintf("Analyse %s", topic), &git.CommitOptions{
		Author: &object.Signature{Name: authorName, Email: authorEmail, When: s.now()},
	})
	if err != nil {
		return Revision{}, fmt.Errorf("commit analysis: %w", err)
	}
	commitObj, err := repo.CommitObject(hash)
	if err != nil {
		return Revision{}, fmt.Errorf("read commit object: %w", err)
	}
	return toRevision(commitObj, topic), nil
}

// History lists the recorded analyses of topic, newest first. A document
// without a repository has an empty history.
func (s *Service) History(documentID string, topic catalog.Topic, limit int) ([]Revision, error) {
	path, err := s.repoPath(documentID)
	if err != nil {
		return nil, err
	}
	lock := s.documentLock(documentID)
	lock.Lock()
	defer lock.Unlock()

	repo, err := git.PlainOpen(path)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return []Revision{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open repo: %w", err)
	}
	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("resolve head: %w", err)
	}

	name := topicFile(topic)
	iter, err := repo.Log(&git.LogOptions{From: head.Hash(), FileName: &name})
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	defer iter.Close()

	items := make([]Revision, 0)
	err = iter.ForEach(func(commitObj *object.Commit) error {
		items = append(items, toRevision(commitObj, topic))
		if limit > 0 && len(items) >= limit {
			return io.EOF
		}
		return nil
	})
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("iterate log: %w", err)
	}
	return items, nil
}

// Revision returns the analysis text of topic as of hash (full or abbreviated).
func (s *Service) Revision(documentID, hash string, topic catalog.Topic) (string, error) {
	path, err := s.repoPath(documentID)
	if err != nil {
		return "", err
	}
	lock := s.documentLock(documentID)
	lock.Lock()
	defer lock.Unlock()

	repo, err := git.PlainOpen(path)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return "", ErrNoHistory
	}
	if err != nil {
		return "", fmt.Errorf("open repo: %w", err)
	}
	resolved, err := resolveHash(repo, hash)
	if err != nil {
		return "", err
	}
	commitObj, err := repo.CommitObject(resolved)
	if err != nil {
		return "", fmt.Errorf("%w: read commit %s: %v", ErrNoHistory, hash, err)
	}
	file, err := commitObj.File(topicFile(topic))
	if err != nil {
		return "", fmt.Errorf("%w: %s at %s", ErrNoHistory, topic, hash)
	}
	contents, err := file.Contents()
	if err != nil {
		return "", fmt.Errorf("read %s: %w", file.Name, err)
	}
	return strings.TrimSuffix(contents, "\n"), nil
}

func openOrInit(path string) (*git.Repository, error) {
	repo, err := git.PlainOpen(path)
	if err == nil {
		return repo, nil
	}
	if !errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, fmt.Errorf("open repo: %w", err)
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("create repo dir: %w", err)
	}
	repo, err = git.PlainInitWithOptions(path, &git.PlainInitOptions{
		InitOptions: git.InitOptions{DefaultBranch: plumbing.Main},
	})
	if err != nil {
		return nil, fmt.Errorf("init repo: %w", err)
	}
	return repo, nil
}

func (s *Service) repoPath(documentID string) (string, error) {
	if documentID == "" || documentID == "." || documentID == ".." || strings.ContainsAny(documentID, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidDocument, documentID)
	}
	return filepath.Join(s.baseDir, documentID), nil
}

func (s *Service) documentLock(documentID string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	lock, ok := s.locks[documentID]
	if ok {
		return lock
	}
	lock = &sync.Mutex{}
	s.locks[documentID] = lock
	return lock
}

func topicFile(topic catalog.Topic) string {
	return string(topic) + ".txt"
}

func toRevision(commitObj *object.Commit, topic catalog.Topic) Revision {
	return Revision{
		Hash:      commitObj.Hash.String()[:7],
		Topic:     topic,
		Message:   strings.TrimSpace(commitObj.Message),
		CreatedAt: commitObj.Author.When,
	}
}

func resolveHash(repo *git.Repository, hash string) (plumbing.Hash, error) {
	if len(hash) == 40 {
		return plumbing.NewHash(hash), nil
	}
	resolved, err := repo.ResolveRevision(plumbing.Revision(hash))
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("%w: resolve hash %s: %v", ErrNoHistory, hash, err)
	}
	return *resolved, nil
}
