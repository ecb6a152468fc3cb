package gitlib

import (
	"fmt"

	git2go "github.com/libgit2/git2go/v34"
)

// BlameHunk attributes a run of lines to the commit that last changed them.
type BlameHunk struct {
	Commit    Hash
	StartLine int
	Lines     int
	Boundary  bool
}

// Blame wraps a libgit2 blame of one file.
type Blame struct {
	blame *git2go.Blame
}

// BlameFile blames path as of the newest commit.
func (r *Repository) BlameFile(path string, newest Hash) (*Blame, error) {
	opts, err := git2go.DefaultBlameOptions()
	if err != nil {
		return nil, fmt.Errorf("blame options: %w", err)
	}

	opts.NewestCommit = newest.ToOid()

	blame, err := r.repo.BlameFile(path, &opts)
	if err != nil {
		return nil, fmt.Errorf("blame %s@%s: %w", path, newest.Short(), err)
	}

	return &Blame{blame: blame}, nil
}

// HunkByLine returns the hunk covering the 1-based line number.
func (b *Blame) HunkByLine(line int) (BlameHunk, bool) {
	hunk, err := b.blame.HunkByLine(line)
	if err != nil {
		return BlameHunk{}, false
	}

	return BlameHunk{
		Commit:    HashFromOid(hunk.FinalCommitId),
		StartLine: int(hunk.FinalStartLineNumber),
		Lines:     int(hunk.LinesInHunk),
		Boundary:  hunk.Boundary,
	}, true
}

// Free releases the blame resources.
func (b *Blame) Free() {
	if b.blame == nil {
		return
	}

	_ = b.blame.Free()
	b.blame = nil
}
