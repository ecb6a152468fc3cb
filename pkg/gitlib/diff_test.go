package gitlib_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/codealong/pkg/gitlib"
	"github.com/Sumatoshi-tech/codealong/pkg/gitlib/gittest"
)

type recordedFile struct {
	delta gitlib.DiffDelta
	hunks []gitlib.DiffHunk
	lines []gitlib.DiffLine
}

func collectDiff(t *testing.T, diff *gitlib.Diff) []*recordedFile {
	t.Helper()

	var files []*recordedFile

	err := diff.ForEach(func(delta gitlib.DiffDelta) (gitlib.HunkCallback, error) {
		rec := &recordedFile{delta: delta}
		files = append(files, rec)

		return func(hunk gitlib.DiffHunk) (gitlib.LineCallback, error) {
			rec.hunks = append(rec.hunks, hunk)

			return func(line gitlib.DiffLine) error {
				rec.lines = append(rec.lines, line)

				return nil
			}, nil
		}, nil
	})
	require.NoError(t, err)

	return files
}

func treesOf(t *testing.T, repo *gitlib.Repository, old, cur gitlib.Hash) (*gitlib.Tree, *gitlib.Tree) {
	t.Helper()

	ctx := context.Background()

	var oldTree *gitlib.Tree

	if !old.IsZero() {
		c, err := repo.LookupCommit(ctx, old)
		require.NoError(t, err)

		defer c.Free()

		oldTree, err = c.Tree()
		require.NoError(t, err)
	}

	c, err := repo.LookupCommit(ctx, cur)
	require.NoError(t, err)

	defer c.Free()

	newTree, err := c.Tree()
	require.NoError(t, err)

	return oldTree, newTree
}

func TestDiffTreeToTreeStreamsLines(t *testing.T) {
	t.Parallel()

	tr, hashes := threeCommits(t)
	repo := tr.Open()

	oldTree, newTree := treesOf(t, repo, hashes[0], hashes[1])
	defer oldTree.Free()
	defer newTree.Free()

	diff, err := repo.DiffTreeToTree(oldTree, newTree, gitlib.DiffOptions{IgnoreWhitespace: true})
	require.NoError(t, err)

	defer diff.Free()

	n, err := diff.NumDeltas()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	files := collectDiff(t, diff)
	require.Len(t, files, 2)

	a := files[0]
	assert.Equal(t, gitlib.DeltaModified, a.delta.Status)
	assert.Equal(t, "a.txt", a.delta.Path())
	require.Len(t, a.hunks, 1)

	var added, deleted, context int

	for _, line := range a.lines {
		switch line.Origin {
		case gitlib.LineAddition:
			added++

			assert.Equal(t, -1, line.OldLineno)
			assert.Equal(t, 2, line.NewLineno)
		case gitlib.LineDeletion:
			deleted++

			assert.Equal(t, 2, line.OldLineno)
		case gitlib.LineContext:
			context++
		}
	}

	assert.Equal(t, 1, added)
	assert.Equal(t, 1, deleted)
	assert.Equal(t, 2, context)

	b := files[1]
	assert.Equal(t, gitlib.DeltaAdded, b.delta.Status)
	assert.Equal(t, "b.txt", b.delta.NewPath)
}

func TestDiffAgainstEmptyTree(t *testing.T) {
	t.Parallel()

	tr, hashes := threeCommits(t)
	repo := tr.Open()

	_, newTree := treesOf(t, repo, gitlib.Hash{}, hashes[0])
	defer newTree.Free()

	diff, err := repo.DiffTreeToTree(nil, newTree, gitlib.DiffOptions{})
	require.NoError(t, err)

	defer diff.Free()

	files := collectDiff(t, diff)
	require.Len(t, files, 1)
	assert.Equal(t, gitlib.DeltaAdded, files[0].delta.Status)
	assert.Len(t, files[0].lines, 3)

	for _, line := range files[0].lines {
		assert.Equal(t, gitlib.LineAddition, line.Origin)
	}
}

func TestDiffDeletion(t *testing.T) {
	t.Parallel()

	tr, hashes := threeCommits(t)
	repo := tr.Open()

	oldTree, newTree := treesOf(t, repo, hashes[1], hashes[2])
	defer oldTree.Free()
	defer newTree.Free()

	diff, err := repo.DiffTreeToTree(oldTree, newTree, gitlib.DiffOptions{})
	require.NoError(t, err)

	defer diff.Free()

	files := collectDiff(t, diff)
	require.Len(t, files, 1)
	assert.Equal(t, gitlib.DeltaDeleted, files[0].delta.Status)
	assert.Equal(t, "b.txt", files[0].delta.OldPath)
}

func TestDiffIgnoreWhitespace(t *testing.T) {
	t.Parallel()

	tr := gittest.New(t)
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	first := tr.Commit(gittest.CommitSpec{
		Author: alice(at),
		Files:  map[string]string{"f.go": "func a() {\n\treturn\n}\n"},
	})
	second := tr.Commit(gittest.CommitSpec{
		Author:  alice(at.Add(time.Hour)),
		Files:   map[string]string{"f.go": "func a() {\n    return\n}\n"},
		Parents: []gitlib.Hash{first},
	})

	repo := tr.Open()

	oldTree, newTree := treesOf(t, repo, first, second)
	defer oldTree.Free()
	defer newTree.Free()

	diff, err := repo.DiffTreeToTree(oldTree, newTree, gitlib.DiffOptions{IgnoreWhitespace: true})
	require.NoError(t, err)

	defer diff.Free()

	for _, f := range collectDiff(t, diff) {
		assert.Empty(t, f.hunks, f.delta.Path())
	}
}

func TestDiffForEachPropagatesCallbackError(t *testing.T) {
	t.Parallel()

	tr, hashes := threeCommits(t)
	repo := tr.Open()

	oldTree, newTree := treesOf(t, repo, hashes[0], hashes[1])
	defer oldTree.Free()
	defer newTree.Free()

	diff, err := repo.DiffTreeToTree(oldTree, newTree, gitlib.DiffOptions{})
	require.NoError(t, err)

	defer diff.Free()

	boom := errors.New("boom")

	err = diff.ForEach(func(gitlib.DiffDelta) (gitlib.HunkCallback, error) {
		return func(gitlib.DiffHunk) (gitlib.LineCallback, error) {
			return func(gitlib.DiffLine) error { return boom }, nil
		}, nil
	})
	require.ErrorIs(t, err, boom)
}

func TestDeltaStatusString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "modified", gitlib.DeltaModified.String())
}
