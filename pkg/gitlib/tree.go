package gitlib

import (
	"fmt"

	git2go "github.com/libgit2/git2go/v34"
)

// Tree wraps a libgit2 tree.
type Tree struct {
	tree *git2go.Tree
	repo *Repository
}

// Hash returns the tree hash.
func (t *Tree) Hash() Hash {
	return HashFromOid(t.tree.Id())
}

// EntryCount returns the number of entries in the tree.
func (t *Tree) EntryCount() uint64 {
	return t.tree.EntryCount()
}

// HasPath reports whether path names an entry in the tree.
func (t *Tree) HasPath(path string) bool {
	entry, err := t.tree.EntryByPath(path)

	return err == nil && entry != nil
}

// EntryHash returns the object id stored at path.
func (t *Tree) EntryHash(path string) (Hash, error) {
	entry, err := t.tree.EntryByPath(path)
	if err != nil {
		return Hash{}, fmt.Errorf("entry by path: %w", err)
	}

	return HashFromOid(entry.Id), nil
}

// Free releases the tree resources.
func (t *Tree) Free() {
	if t != nil && t.tree != nil {
		t.tree.Free()
		t.tree = nil
	}
}
