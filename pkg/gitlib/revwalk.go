package gitlib

import (
	"fmt"
	"io"

	git2go "github.com/libgit2/git2go/v34"
)

// SortMode orders a revision walk.
type SortMode uint

// Sort modes, combinable with |.
const (
	SortNone        SortMode = 0
	SortTopological SortMode = 1 << iota
	SortTime
	SortReverse
)

// RevWalk wraps a libgit2 revision walker.
type RevWalk struct {
	walk *git2go.RevWalk
	repo *Repository
}

// Push adds a commit to start walking from.
func (w *RevWalk) Push(hash Hash) error {
	err := w.walk.Push(hash.ToOid())
	if err != nil {
		return fmt.Errorf("push to revwalk: %w", err)
	}

	return nil
}

// PushHead adds HEAD to start walking from.
func (w *RevWalk) PushHead() error {
	err := w.walk.PushHead()
	if err != nil {
		return fmt.Errorf("push HEAD to revwalk: %w", err)
	}

	return nil
}

// Sorting sets the sorting mode for the walker.
func (w *RevWalk) Sorting(mode SortMode) {
	var native git2go.SortType

	if mode&SortTopological != 0 {
		native |= git2go.SortTopological
	}

	if mode&SortTime != 0 {
		native |= git2go.SortTime
	}

	if mode&SortReverse != 0 {
		native |= git2go.SortReverse
	}

	w.walk.Sorting(native)
}

// Next returns the next commit hash in the walk, or io.EOF when done.
func (w *RevWalk) Next() (Hash, error) {
	oid := new(git2go.Oid)

	err := w.walk.Next(oid)
	if git2go.IsErrorCode(err, git2go.ErrorCodeIterOver) {
		return Hash{}, io.EOF
	}

	if err != nil {
		return Hash{}, fmt.Errorf("revwalk next: %w", err)
	}

	return HashFromOid(oid), nil
}

// Free releases the walker resources.
func (w *RevWalk) Free() {
	if w.walk != nil {
		w.walk.Free()
		w.walk = nil
	}
}
