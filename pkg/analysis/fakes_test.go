package analysis_test

import (
	"context"
	"errors"

	"github.com/Sumatoshi-tech/codealong/pkg/analysis"
	"github.com/Sumatoshi-tech/codealong/pkg/blame"
	"github.com/Sumatoshi-tech/codealong/pkg/gitlib"
)

var errNoCommit = errors.New("no such commit")

type fakeSession struct {
	lines   map[int]gitlib.Hash
	err     error
	queried []int
	closes  int
}

func (s *fakeSession) Line(n int) (gitlib.Hash, bool, error) {
	s.queried = append(s.queried, n)

	if s.err != nil {
		return gitlib.Hash{}, false, s.err
	}

	h, ok := s.lines[n]

	return h, ok, nil
}

func (s *fakeSession) Close() error {
	s.closes++

	return nil
}

type fakeLookup map[gitlib.Hash]analysis.CommitInfo

func (f fakeLookup) CommitInfo(_ context.Context, h gitlib.Hash) (analysis.CommitInfo, error) {
	info, ok := f[h]
	if !ok {
		return analysis.CommitInfo{}, errNoCommit
	}

	return info, nil
}

// countingOpener hands out fakeSessions and remembers every one of them.
type countingOpener struct {
	lines    map[int]gitlib.Hash
	lineErr  error
	requests []blame.Request
	sessions []*fakeSession
}

func (o *countingOpener) Open(_ context.Context, req blame.Request) (blame.Session, error) {
	o.requests = append(o.requests, req)

	s := &fakeSession{lines: o.lines, err: o.lineErr}
	o.sessions = append(o.sessions, s)

	return s, nil
}

func (o *countingOpener) Backend() string { return "counting" }

// live is the number of sessions opened but not yet closed.
func (o *countingOpener) live() int {
	n := 0

	for _, s := range o.sessions {
		if s.closes == 0 {
			n++
		}
	}

	return n
}
