// Package git keeps the history of backing documents in a git repository,
// using go-git so no git binary is needed.
package git

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// ErrRevisionNotFound is wrapped when a commit, or a file in it, does not
// exist.
var ErrRevisionNotFound = errors.New("revision not found")

// Commit is one entry of a document's history.
type Commit struct {
	Hash    string    `json:"hash"`
	Message string    `json:"message"`
	Author  string    `json:"author"`
	Date    time.Time `json:"date"`
}

// Repo is a git repository rooted at the data directory.
type Repo struct {
	dir   string
	name  string
	email string
	repo  *gogit.Repository
	mu    sync.Mutex
}

// Open opens the repository at dir, initializing it when needed. name and
// email sign every commit.
func Open(dir, name, email string) (*Repo, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:gosec // G301: 0o755 is intentional for data directories
		return nil, fmt.Errorf("failed to create repo directory: %w", err)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	repo, err := gogit.PlainOpen(abs)
	if err != nil {
		repo, err = gogit.PlainInit(abs, false)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize git repo: %w", err)
		}
		cfg, err := repo.Config()
		if err != nil {
			return nil, fmt.Errorf("failed to read git config: %w", err)
		}
		cfg.User.Name = name
		cfg.User.Email = email
		if err := repo.SetConfig(cfg); err != nil {
			return nil, fmt.Errorf("failed to write git config: %w", err)
		}
	}
	return &Repo{dir: abs, name: name, email: email, repo: repo}, nil
}

// Commit stages paths and commits them. Nothing is committed when none of
// the paths changed.
func (r *Repo) Commit(_ context.Context, message string, paths ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	w, err := r.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}
	rels := make([]string, 0, len(paths))
	for _, p := range paths {
		rel, err := r.rel(p)
		if err != nil {
			return err
		}
		if _, err := w.Add(rel); err != nil {
			return fmt.Errorf("failed to stage %s: %w", rel, err)
		}
		rels = append(rels, rel)
	}
	status, err := w.Status()
	if err != nil {
		return fmt.Errorf("failed to get worktree status: %w", err)
	}
	staged := false
	for _, rel := range rels {
		if fs, ok := status[rel]; ok && fs.Staging != gogit.Unmodified && fs.Staging != gogit.Untracked {
			staged = true
		}
	}
	if !staged {
		return nil
	}

	now := time.Now()
	sig := &object.Signature{Name: r.name, Email: r.email, When: now}
	if _, err := w.Commit(message, &gogit.CommitOptions{Author: sig, Committer: sig}); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// History returns the commits touching path, newest first, at most n.
func (r *Repo) History(_ context.Context, path string, n int) ([]Commit, error) {
	if n <= 0 || n > 1000 {
		n = 1000
	}
	rel, err := r.rel(path)
	if err != nil {
		return nil, err
	}
	iter, err := r.repo.Log(&gogit.LogOptions{FileName: &rel})
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			// No commit yet.
			return []Commit{}, nil
		}
		return nil, fmt.Errorf("failed to read log: %w", err)
	}
	defer iter.Close()

	commits := []Commit{}
	for range n {
		c, err := iter.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("failed to read log: %w", err)
		}
		subject, _, _ := strings.Cut(c.Message, "\n")
		commits = append(commits, Commit{
			Hash:    c.Hash.String(),
			Message: subject,
			Author:  c.Author.Name,
			Date:    c.Author.When,
		})
	}
	return commits, nil
}

// FileAt returns the content of path as of the commit hash.
func (r *Repo) FileAt(_ context.Context, hash, path string) ([]byte, error) {
	rel, err := r.rel(path)
	if err != nil {
		return nil, err
	}
	if b, err := hex.DecodeString(hash); err != nil || len(b) != len(plumbing.ZeroHash) {
		return nil, fmt.Errorf("%w: invalid hash %q", ErrRevisionNotFound, hash)
	}
	c, err := r.repo.CommitObject(plumbing.NewHash(hash))
	if err != nil {
		if errors.Is(err, plumbing.ErrObjectNotFound) {
			return nil, fmt.Errorf("%w: commit %s", ErrRevisionNotFound, hash)
		}
		return nil, fmt.Errorf("failed to get commit %s: %w", hash, err)
	}
	f, err := c.File(rel)
	if err != nil {
		if errors.Is(err, object.ErrFileNotFound) {
			return nil, fmt.Errorf("%w: %s at %s", ErrRevisionNotFound, rel, hash)
		}
		return nil, fmt.Errorf("failed to get %s at %s: %w", rel, hash, err)
	}
	reader, err := f.Reader()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", rel, err)
	}
	defer func() { _ = reader.Close() }()
	return io.ReadAll(reader)
}

// rel returns path relative to the repository root, slash separated.
func (r *Repo) rel(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(r.dir, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside of the repository %s", path, r.dir)
	}
	return filepath.ToSlash(rel), nil
}
