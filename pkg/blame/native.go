package blame

import (
	"context"
	"time"

	"github.com/Sumatoshi-tech/codealong/pkg/gitlib"
)

// NativeOpener blames through libgit2. It needs no git binary but computes
// the whole file's blame when the session opens.
type NativeOpener struct {
	repo *gitlib.Repository
}

// NewNativeOpener blames files of repo.
func NewNativeOpener(repo *gitlib.Repository) *NativeOpener {
	return &NativeOpener{repo: repo}
}

// Backend implements Opener.
func (o *NativeOpener) Backend() string { return BackendNative }

// Open implements Opener.
func (o *NativeOpener) Open(ctx context.Context, req Request) (Session, error) {
	b, err := o.repo.BlameFile(req.Path, req.Revision)
	if err != nil {
		return nil, &Error{Path: req.Path, Revision: req.Revision, Err: err}
	}

	return &nativeSession{
		ctx:    ctx,
		repo:   o.repo,
		blame:  b,
		req:    req,
		cutoff: req.Cutoff(),
		times:  make(map[gitlib.Hash]time.Time),
	}, nil
}

type nativeSession struct {
	ctx    context.Context
	repo   *gitlib.Repository
	blame  *gitlib.Blame
	req    Request
	cutoff time.Time
	times  map[gitlib.Hash]time.Time
}

// Line implements Session. Commits committed before the cutoff are treated
// like git's --since boundary and yield no attribution.
func (s *nativeSession) Line(n int) (gitlib.Hash, bool, error) {
	if s.blame == nil {
		return gitlib.Hash{}, false, nil
	}

	hunk, ok := s.blame.HunkByLine(n)
	if !ok || hunk.Commit.IsZero() {
		return gitlib.Hash{}, false, nil
	}

	when, err := s.commitTime(hunk.Commit)
	if err != nil {
		return gitlib.Hash{}, false, &Error{Path: s.req.Path, Revision: s.req.Revision, Err: err}
	}

	if when.Before(s.cutoff) {
		return gitlib.Hash{}, false, nil
	}

	return hunk.Commit, true, nil
}

func (s *nativeSession) commitTime(h gitlib.Hash) (time.Time, error) {
	if t, ok := s.times[h]; ok {
		return t, nil
	}

	commit, err := s.repo.LookupCommit(s.ctx, h)
	if err != nil {
		return time.Time{}, err
	}
	defer commit.Free()

	t := commit.Committer().When
	s.times[h] = t

	return t, nil
}

// Close implements Session.
func (s *nativeSession) Close() error {
	if s.blame != nil {
		s.blame.Free()
		s.blame = nil
	}

	return nil
}
