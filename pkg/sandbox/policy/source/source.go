package source

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"mercator-hq/bastion/pkg/config"
	"mercator-hq/bastion/pkg/sandbox/policy"
)

// Source loads a policy document.
type Source interface {
	// Load returns the current document and a revision string that changes
	// whenever the document content changes.
	Load(ctx context.Context) (*policy.Document, string, error)

	// Describe returns a human-readable location for logs.
	Describe() string
}

// New builds the source selected by cfg.Mode.
func New(cfg config.PolicySourceConfig) (Source, error) {
	switch cfg.Mode {
	case "", "file":
		if cfg.FilePath == "" {
			return nil, fmt.Errorf("file path cannot be empty")
		}
		return NewFileSource(cfg.FilePath), nil
	case "git":
		return NewGitSource(cfg.Git)
	default:
		return nil, fmt.Errorf("unknown policy source mode %q", cfg.Mode)
	}
}

// FileSource reads a document from the local filesystem.
type FileSource struct {
	path string
}

// NewFileSource returns a source for the document at path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Path returns the document path.
func (s *FileSource) Path() string { return s.path }

// Describe implements Source.
func (s *FileSource) Describe() string { return "file:" + s.path }

// Load implements Source. The revision is the SHA-256 of the file content.
func (s *FileSource) Load(ctx context.Context) (*policy.Document, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read policy file %q: %w", s.path, err)
	}
	doc, err := policy.ParseDocument(data)
	if err != nil {
		return nil, "", err
	}
	sum := sha256.Sum256(data)
	return doc, hex.EncodeToString(sum[:]), nil
}

// GitSource reads a document from the head of a branch in a Git repository.
// The repository is cloned into LocalPath on first load when Repository is set,
// and pulled on every later load.
type GitSource struct {
	cfg  config.GitConfig
	mu   sync.Mutex
	repo *gogit.Repository
}

// NewGitSource validates cfg and returns a Git source.
func NewGitSource(cfg config.GitConfig) (*GitSource, error) {
	if cfg.Repository == "" && cfg.LocalPath == "" {
		return nil, fmt.Errorf("repository URL or local path is required")
	}
	if cfg.Path == "" {
		return nil, fmt.Errorf("policy path cannot be empty")
	}
	return &GitSource{cfg: cfg}, nil
}

// Describe implements Source.
func (s *GitSource) Describe() string {
	location := s.cfg.Repository
	if location == "" {
		location = s.cfg.LocalPath
	}
	return fmt.Sprintf("git:%s@%s:%s", location, s.branchName(), s.cfg.Path)
}

func (s *GitSource) branchName() string {
	if s.cfg.Branch == "" {
		return "HEAD"
	}
	return s.cfg.Branch
}

// Load implements Source. The revision is the commit hash the document was
// read from.
func (s *GitSource) Load(ctx context.Context) (*policy.Document, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sync(ctx); err != nil {
		return nil, "", err
	}

	ref, err := s.reference()
	if err != nil {
		return nil, "", err
	}
	commit, err := s.repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, "", fmt.Errorf("failed to get commit: %w", err)
	}
	file, err := commit.File(filepath.ToSlash(s.cfg.Path))
	if err != nil {
		return nil, "", fmt.Errorf("failed to find %q at %s: %w", s.cfg.Path, ref.Hash(), err)
	}
	contents, err := file.Contents()
	if err != nil {
		return nil, "", fmt.Errorf("failed to read %q: %w", s.cfg.Path, err)
	}

	doc, err := policy.ParseDocument([]byte(contents))
	if err != nil {
		return nil, "", err
	}
	return doc, commit.Hash.String(), nil
}

func (s *GitSource) reference() (*plumbing.Reference, error) {
	if s.cfg.Branch == "" {
		ref, err := s.repo.Head()
		if err != nil {
			return nil, fmt.Errorf("failed to get HEAD: %w", err)
		}
		return ref, nil
	}
	ref, err := s.repo.Reference(plumbing.NewBranchReferenceName(s.cfg.Branch), true)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve branch %q: %w", s.cfg.Branch, err)
	}
	return ref, nil
}

// sync opens or clones the repository, pulling when it was already present.
func (s *GitSource) sync(ctx context.Context) error {
	if s.repo == nil {
		repo, err := s.open(ctx)
		if err != nil {
			return err
		}
		s.repo = repo
		return nil
	}
	if s.cfg.Repository == "" {
		return nil
	}

	worktree, err := s.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}
	pullCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	err = worktree.PullContext(pullCtx, &gogit.PullOptions{RemoteName: "origin"})
	if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return fmt.Errorf("failed to pull: %w", err)
	}
	return nil
}

func (s *GitSource) open(ctx context.Context) (*gogit.Repository, error) {
	if s.cfg.LocalPath != "" {
		if _, err := os.Stat(filepath.Join(s.cfg.LocalPath, ".git")); err == nil {
			repo, err := gogit.PlainOpen(s.cfg.LocalPath)
			if err != nil {
				return nil, fmt.Errorf("failed to open existing repo: %w", err)
			}
			return repo, nil
		}
	}
	if s.cfg.Repository == "" {
		return nil, fmt.Errorf("no repository at %q and no remote configured", s.cfg.LocalPath)
	}

	if err := os.MkdirAll(s.cfg.LocalPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create repository directory: %w", err)
	}

	opts := &gogit.CloneOptions{
		URL:          s.cfg.Repository,
		SingleBranch: s.cfg.Depth > 0,
		Depth:        s.cfg.Depth,
	}
	if s.cfg.Branch != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(s.cfg.Branch)
	}

	cloneCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	repo, err := gogit.PlainCloneContext(cloneCtx, s.cfg.LocalPath, false, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to clone repository: %w", err)
	}
	return repo, nil
}

func (s *GitSource) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.cfg.Timeout)
}

// Build loads the current document from src into a fresh store.
func Build(ctx context.Context, src Source) (*policy.Store, string, error) {
	doc, revision, err := src.Load(ctx)
	if err != nil {
		return nil, "", err
	}
	store := policy.NewStore()
	if err := doc.Apply(store); err != nil {
		return nil, "", fmt.Errorf("invalid policy from %s: %w", src.Describe(), err)
	}
	return store, revision, nil
}
