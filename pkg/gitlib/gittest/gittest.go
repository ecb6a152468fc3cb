// Package gittest builds throwaway repositories with fully specified commits.
package gittest

import (
	"slices"
	"testing"
	"time"

	git2go "github.com/libgit2/git2go/v34"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/codealong/pkg/gitlib"
)

// DefaultBranch is the branch Commit advances.
const DefaultBranch = "refs/heads/main"

// Repo is a temporary repository whose commits are built from in-memory
// snapshots, so tests control every signature time.
type Repo struct {
	tb     testing.TB
	Dir    string
	native *git2go.Repository
}

// CommitSpec describes one commit. Files is the complete tree snapshot.
type CommitSpec struct {
	Message   string
	Author    gitlib.Signature
	Committer gitlib.Signature
	Files     map[string]string
	Parents   []gitlib.Hash
	// Branch is updated to the new commit; DefaultBranch when empty.
	Branch string
}

// New initialises an empty non-bare repository in a temp dir.
func New(tb testing.TB) *Repo {
	tb.Helper()

	dir := tb.TempDir()

	repo, err := git2go.InitRepository(dir, false)
	require.NoError(tb, err)

	tb.Cleanup(repo.Free)

	err = repo.SetHead(DefaultBranch)
	require.NoError(tb, err)

	return &Repo{tb: tb, Dir: dir, native: repo}
}

// Sig builds a signature at a fixed time.
func Sig(name, email string, when time.Time) gitlib.Signature {
	return gitlib.Signature{Name: name, Email: email, When: when}
}

// Commit writes the snapshot and creates a commit on top of spec.Parents.
func (r *Repo) Commit(spec CommitSpec) gitlib.Hash {
	r.tb.Helper()

	index, err := git2go.NewIndex()
	require.NoError(r.tb, err)

	defer index.Free()

	paths := make([]string, 0, len(spec.Files))
	for path := range spec.Files {
		paths = append(paths, path)
	}

	slices.Sort(paths)

	for _, path := range paths {
		blob, blobErr := r.native.CreateBlobFromBuffer([]byte(spec.Files[path]))
		require.NoError(r.tb, blobErr)

		require.NoError(r.tb, index.Add(&git2go.IndexEntry{
			Path: path,
			Mode: git2go.FilemodeBlob,
			Id:   blob,
		}))
	}

	treeID, err := index.WriteTreeTo(r.native)
	require.NoError(r.tb, err)

	tree, err := r.native.LookupTree(treeID)
	require.NoError(r.tb, err)

	defer tree.Free()

	parents := make([]*git2go.Commit, 0, len(spec.Parents))

	for _, h := range spec.Parents {
		parent, lookupErr := r.native.LookupCommit(h.ToOid())
		require.NoError(r.tb, lookupErr)

		parents = append(parents, parent)
	}

	defer func() {
		for _, p := range parents {
			p.Free()
		}
	}()

	committer := spec.Committer
	if committer.Name == "" {
		committer = spec.Author
	}

	message := spec.Message
	if message == "" {
		message = "commit"
	}

	oid, err := r.native.CreateCommit("", nativeSig(spec.Author), nativeSig(committer), message, tree, parents...)
	require.NoError(r.tb, err)

	branch := spec.Branch
	if branch == "" {
		branch = DefaultBranch
	}

	ref, err := r.native.References.Create(branch, oid, true, "gittest")
	require.NoError(r.tb, err)
	ref.Free()

	return gitlib.HashFromOid(oid)
}

// Remote adds a named remote.
func (r *Repo) Remote(name, url string) {
	r.tb.Helper()

	remote, err := r.native.Remotes.Create(name, url)
	require.NoError(r.tb, err)
	remote.Free()
}

// Open opens the repository through gitlib and frees it on cleanup.
func (r *Repo) Open() *gitlib.Repository {
	r.tb.Helper()

	repo, err := gitlib.OpenRepository(r.Dir)
	require.NoError(r.tb, err)

	r.tb.Cleanup(repo.Free)

	return repo
}

func nativeSig(s gitlib.Signature) *git2go.Signature {
	return &git2go.Signature{Name: s.Name, Email: s.Email, When: s.When}
}
