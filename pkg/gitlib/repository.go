package gitlib

import (
	"context"
	"errors"
	"fmt"
	"strings"

	git2go "github.com/libgit2/git2go/v34"
)

// ErrRefNotFound is returned when a ref or revision does not resolve to a commit.
var ErrRefNotFound = errors.New("reference not found")

// Repository wraps a libgit2 repository. A Repository and the objects it
// returns must stay on one goroutine.
type Repository struct {
	repo *git2go.Repository
	path string
}

// OpenRepository opens a git repository at the given path.
func OpenRepository(path string) (*Repository, error) {
	repo, err := git2go.OpenRepository(path)
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}

	return &Repository{repo: repo, path: path}, nil
}

// Path returns the path the repository was opened with.
func (r *Repository) Path() string {
	return r.path
}

// GitDir returns the repository's .git directory (or the bare repository root).
func (r *Repository) GitDir() string {
	return strings.TrimSuffix(r.repo.Path(), "/")
}

// WorkDir returns the work tree root, or "" for bare repositories.
func (r *Repository) WorkDir() string {
	return strings.TrimSuffix(r.repo.Workdir(), "/")
}

// Free releases the repository resources.
func (r *Repository) Free() {
	if r.repo != nil {
		r.repo.Free()
		r.repo = nil
	}
}

// Head returns the HEAD reference target.
func (r *Repository) Head() (Hash, error) {
	ref, err := r.repo.Head()
	if err != nil {
		return Hash{}, fmt.Errorf("get HEAD: %w", err)
	}
	defer ref.Free()

	return HashFromOid(ref.Target()), nil
}

// ResolveRevision resolves a ref name, short id or revision expression to a commit.
func (r *Repository) ResolveRevision(spec string) (Hash, error) {
	obj, err := r.repo.RevparseSingle(spec)
	if err != nil {
		return Hash{}, fmt.Errorf("%w: %s: %w", ErrRefNotFound, spec, err)
	}
	defer obj.Free()

	commit, err := obj.Peel(git2go.ObjectCommit)
	if err != nil {
		return Hash{}, fmt.Errorf("%w: %s is not a commit: %w", ErrRefNotFound, spec, err)
	}
	defer commit.Free()

	return HashFromOid(commit.Id()), nil
}

// RemoteURL returns the fetch URL of a named remote.
func (r *Repository) RemoteURL(name string) (string, error) {
	remote, err := r.repo.Remotes.Lookup(name)
	if err != nil {
		return "", fmt.Errorf("lookup remote %s: %w", name, err)
	}
	defer remote.Free()

	return remote.Url(), nil
}

// LookupCommit returns the commit with the given hash.
func (r *Repository) LookupCommit(_ context.Context, hash Hash) (*Commit, error) {
	commit, err := r.repo.LookupCommit(hash.ToOid())
	if err != nil {
		return nil, fmt.Errorf("lookup commit %s: %w", hash, err)
	}

	return &Commit{commit: commit, repo: r}, nil
}

// Walk creates a new revision walker.
func (r *Repository) Walk() (*RevWalk, error) {
	walk, err := r.repo.Walk()
	if err != nil {
		return nil, fmt.Errorf("create revwalk: %w", err)
	}

	return &RevWalk{walk: walk, repo: r}, nil
}

// DiffOptions tunes tree diffs.
type DiffOptions struct {
	IgnoreWhitespace bool
}

// DiffTreeToTree computes the diff between two trees. A nil tree stands for
// the empty tree.
func (r *Repository) DiffTreeToTree(oldTree, newTree *Tree, o DiffOptions) (*Diff, error) {
	opts, err := git2go.DefaultDiffOptions()
	if err != nil {
		return nil, fmt.Errorf("get diff options: %w", err)
	}

	if o.IgnoreWhitespace {
		opts.Flags |= git2go.DiffIgnoreWhitespace
	}

	var oldT, newT *git2go.Tree
	if oldTree != nil {
		oldT = oldTree.tree
	}

	if newTree != nil {
		newT = newTree.tree
	}

	diff, err := r.repo.DiffTreeToTree(oldT, newT, &opts)
	if err != nil {
		return nil, fmt.Errorf("diff trees: %w", err)
	}

	return &Diff{diff: diff}, nil
}
