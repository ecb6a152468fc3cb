package gitlib_test

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/codealong/pkg/gitlib"
	"github.com/Sumatoshi-tech/codealong/pkg/gitlib/gittest"
)

var base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func alice(at time.Time) gitlib.Signature {
	return gittest.Sig("Alice", "alice@example.com", at)
}

// threeCommits builds root -> second -> third on main.
func threeCommits(t *testing.T) (*gittest.Repo, []gitlib.Hash) {
	t.Helper()

	repo := gittest.New(t)

	root := repo.Commit(gittest.CommitSpec{
		Message: "root\n\nbody",
		Author:  alice(base),
		Files:   map[string]string{"a.txt": "one\ntwo\nthree\n"},
	})
	second := repo.Commit(gittest.CommitSpec{
		Message: "second",
		Author:  alice(base.Add(time.Hour)),
		Files:   map[string]string{"a.txt": "one\n2\nthree\n", "b.txt": "bee\n"},
		Parents: []gitlib.Hash{root},
	})
	third := repo.Commit(gittest.CommitSpec{
		Message: "third",
		Author:  alice(base.Add(2 * time.Hour)),
		Files:   map[string]string{"a.txt": "one\n2\nthree\n"},
		Parents: []gitlib.Hash{second},
	})

	return repo, []gitlib.Hash{root, second, third}
}

func TestOpenRepository(t *testing.T) {
	t.Parallel()

	tr, hashes := threeCommits(t)
	repo := tr.Open()

	assert.Equal(t, tr.Dir, repo.Path())
	assert.Equal(t, tr.Dir, repo.WorkDir())
	assert.NotEmpty(t, repo.GitDir())

	head, err := repo.Head()
	require.NoError(t, err)
	assert.Equal(t, hashes[2], head)
}

func TestOpenRepositoryNotFound(t *testing.T) {
	t.Parallel()

	_, err := gitlib.OpenRepository("/nonexistent/path/to/repo")
	require.Error(t, err)
}

func TestLoadRepositoryRejectsRemotes(t *testing.T) {
	t.Parallel()

	for _, uri := range []string{"https://github.com/a/b", "git@github.com:a/b.git"} {
		_, err := gitlib.LoadRepository(uri)
		require.ErrorIs(t, err, gitlib.ErrRemoteNotSupported, uri)
	}

	tr, _ := threeCommits(t)

	repo, err := gitlib.LoadRepository(tr.Dir + "/")
	require.NoError(t, err)
	repo.Free()
}

func TestCommitAccessors(t *testing.T) {
	t.Parallel()

	tr, hashes := threeCommits(t)
	repo := tr.Open()
	ctx := context.Background()

	root, err := repo.LookupCommit(ctx, hashes[0])
	require.NoError(t, err)

	defer root.Free()

	assert.Equal(t, hashes[0], root.Hash())
	assert.Equal(t, "root", root.Summary())
	assert.Equal(t, "Alice", root.Author().Name)
	assert.Equal(t, "alice@example.com", root.Committer().Email)
	assert.True(t, base.Equal(root.Author().When))
	assert.Zero(t, root.NumParents())
	assert.Empty(t, root.ParentHashes())

	_, err = root.Parent(0)
	require.ErrorIs(t, err, gitlib.ErrParentNotFound)

	third, err := repo.LookupCommit(ctx, hashes[2])
	require.NoError(t, err)

	defer third.Free()

	assert.Equal(t, []gitlib.Hash{hashes[1]}, third.ParentHashes())

	parent, err := third.Parent(0)
	require.NoError(t, err)

	defer parent.Free()

	assert.Equal(t, hashes[1], parent.Hash())
}

func TestLookupCommitNotFound(t *testing.T) {
	t.Parallel()

	tr, _ := threeCommits(t)
	repo := tr.Open()

	_, err := repo.LookupCommit(context.Background(), gitlib.MustParseHash("86d242301830075e93ff039a4d1e88673a4a3020"))
	require.Error(t, err)
}

func TestTreeLookups(t *testing.T) {
	t.Parallel()

	tr, hashes := threeCommits(t)
	repo := tr.Open()

	commit, err := repo.LookupCommit(context.Background(), hashes[1])
	require.NoError(t, err)

	defer commit.Free()

	tree, err := commit.Tree()
	require.NoError(t, err)

	defer tree.Free()

	assert.Equal(t, uint64(2), tree.EntryCount())
	assert.True(t, tree.HasPath("b.txt"))
	assert.False(t, tree.HasPath("missing.txt"))

	_, err = tree.EntryHash("b.txt")
	require.NoError(t, err)

	_, err = tree.EntryHash("missing.txt")
	require.Error(t, err)
}

func TestResolveRevision(t *testing.T) {
	t.Parallel()

	tr, hashes := threeCommits(t)
	tr.Commit(gittest.CommitSpec{
		Author:  alice(base.Add(3 * time.Hour)),
		Files:   map[string]string{"c.txt": "c\n"},
		Parents: []gitlib.Hash{hashes[0]},
		Branch:  "refs/heads/feature",
	})

	repo := tr.Open()

	got, err := repo.ResolveRevision("main~1")
	require.NoError(t, err)
	assert.Equal(t, hashes[1], got)

	got, err = repo.ResolveRevision(hashes[0].String())
	require.NoError(t, err)
	assert.Equal(t, hashes[0], got)

	_, err = repo.ResolveRevision("feature")
	require.NoError(t, err)

	_, err = repo.ResolveRevision("nope")
	require.ErrorIs(t, err, gitlib.ErrRefNotFound)
}

func TestRemoteURL(t *testing.T) {
	t.Parallel()

	tr, _ := threeCommits(t)
	tr.Remote("origin", "git@github.com:acme/widgets.git")

	repo := tr.Open()

	url, err := repo.RemoteURL("origin")
	require.NoError(t, err)
	assert.Equal(t, "git@github.com:acme/widgets.git", url)

	_, err = repo.RemoteURL("upstream")
	require.Error(t, err)
}

func TestRevWalk(t *testing.T) {
	t.Parallel()

	tr, hashes := threeCommits(t)
	repo := tr.Open()

	walk, err := repo.Walk()
	require.NoError(t, err)

	defer walk.Free()

	require.NoError(t, walk.PushHead())
	walk.Sorting(gitlib.SortTopological | gitlib.SortTime)

	var got []gitlib.Hash

	for {
		h, nextErr := walk.Next()
		if errors.Is(nextErr, io.EOF) {
			break
		}

		require.NoError(t, nextErr)

		got = append(got, h)
	}

	assert.Equal(t, []gitlib.Hash{hashes[2], hashes[1], hashes[0]}, got)
}
