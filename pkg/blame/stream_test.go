package blame

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/codealong/pkg/gitlib"
)

const (
	shaNew  = "1111111111111111111111111111111111111111"
	shaMid  = "2222222222222222222222222222222222222222"
	shaOld  = "3333333333333333333333333333333333333333"
	details = "author A\nauthor-mail <a@example.com>\nauthor-time 1700000000\nauthor-tz +0000\n" +
		"committer A\ncommitter-mail <a@example.com>\ncommitter-time 1700000000\ncommitter-tz +0000\n"
)

// incremental mirrors `git blame --incremental`: records in arbitrary order,
// commit details and the boundary flag only on a commit's first record.
var incremental = strings.Join([]string{
	shaMid + " 3 5 1",
	details + "summary middle",
	"previous " + shaOld + " a.txt",
	"filename a.txt",
	shaOld + " 1 1 2",
	details + "summary old",
	"boundary",
	"filename a.txt",
	shaNew + " 2 3 2",
	details + "summary new",
	"filename a.txt",
	shaOld + " 4 6 1",
	"filename a.txt",
}, "\n") + "\n"

func testRequest() Request {
	return Request{Revision: gitlib.MustParseHash(shaNew), Path: "a.txt", ChurnCutoffDays: 14}
}

func TestStreamAttributesFinalLines(t *testing.T) {
	t.Parallel()

	s := newStream(strings.NewReader(incremental), testRequest(), nil)

	h, ok, err := s.Line(3)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, gitlib.MustParseHash(shaNew), h)

	h, ok, err = s.Line(4)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, gitlib.MustParseHash(shaNew), h)

	h, ok, err = s.Line(5)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, gitlib.MustParseHash(shaMid), h, "earlier records stay cached")
}

func TestStreamSkipsBoundaryCommits(t *testing.T) {
	t.Parallel()

	s := newStream(strings.NewReader(incremental), testRequest(), nil)

	for _, n := range []int{1, 2, 6} {
		_, ok, err := s.Line(n)
		require.NoError(t, err)
		assert.False(t, ok, "line %d belongs to a boundary commit", n)
	}
}

func TestStreamMissAfterEnd(t *testing.T) {
	t.Parallel()

	s := newStream(strings.NewReader(incremental), testRequest(), nil)

	_, ok, err := s.Line(100)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, s.done)

	h, ok, err := s.Line(3)
	require.NoError(t, err)
	assert.True(t, ok, "cache survives end of stream")
	assert.Equal(t, gitlib.MustParseHash(shaNew), h)
}

func TestStreamReadsLazily(t *testing.T) {
	t.Parallel()

	r := &countingReader{r: strings.NewReader(incremental)}
	s := newStream(r, testRequest(), nil)

	_, ok, err := s.Line(5)
	require.NoError(t, err)
	require.True(t, ok)
	assert.False(t, s.done, "first record satisfies the lookup")
}

func TestStreamMalformedHeader(t *testing.T) {
	t.Parallel()

	tests := []string{
		"not a header\n",
		shaNew + " 1 x 1\nfilename a\n",
		"abc 1 1 1\nfilename a\n",
		shaNew + " 1 1 1\nauthor A\n",
	}

	for _, in := range tests {
		s := newStream(strings.NewReader(in), testRequest(), nil)

		_, _, err := s.Line(1)
		require.ErrorIs(t, err, ErrMalformed, in)

		var blameErr *Error
		require.ErrorAs(t, err, &blameErr)
		assert.Equal(t, "a.txt", blameErr.Path)

		_, _, again := s.Line(2)
		assert.Equal(t, err, again, "errors are sticky")
	}
}

func TestStreamWithoutTrailingNewline(t *testing.T) {
	t.Parallel()

	in := shaNew + " 1 1 1\nfilename a.txt"
	s := newStream(strings.NewReader(in), testRequest(), nil)

	h, ok, err := s.Line(1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, gitlib.MustParseHash(shaNew), h)
}

func TestStreamReportsExitFailure(t *testing.T) {
	t.Parallel()

	exit := errors.New("exit status 128")
	s := newStream(strings.NewReader(""), testRequest(), func() error { return exit })

	_, ok, err := s.Line(1)
	assert.False(t, ok)
	require.ErrorIs(t, err, ErrExit)
	require.ErrorIs(t, err, exit)
}

func TestStreamReadError(t *testing.T) {
	t.Parallel()

	s := newStream(io.MultiReader(strings.NewReader(shaNew+" 1 1 1\n"), errReader{}), testRequest(), nil)

	_, _, err := s.Line(1)
	require.ErrorIs(t, err, ErrRead)
}

func TestLimitedBuffer(t *testing.T) {
	t.Parallel()

	b := &limitedBuffer{limit: 4}

	n, err := b.Write([]byte("abcdef"))
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	_, _ = b.Write([]byte("gh"))
	assert.Equal(t, "abcd", b.String())
}

type countingReader struct {
	r     io.Reader
	calls int
}

func (c *countingReader) Read(p []byte) (int, error) {
	c.calls++

	// Small reads keep most of the stream unread.
	if len(p) > 16 {
		p = p[:16]
	}

	return c.r.Read(p)
}

type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, errors.New("pipe broken") }
