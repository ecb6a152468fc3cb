package blame

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/Sumatoshi-tech/codealong/pkg/gitlib"
)

const (
	sinceLayout  = "2006-01-02 15:04:05 -0700"
	maxStderr    = 4 << 10
	headerFields = 4
)

// ProcessOpener runs `git blame --incremental` per file. libgit2's blame
// computes the whole file up front, while the incremental stream lets a
// session stop reading once the lines it needs have arrived.
type ProcessOpener struct {
	GitDir string
	// Git is the git binary; "git" from PATH when empty.
	Git string
}

// NewProcessOpener blames files of the repository at gitDir.
func NewProcessOpener(gitDir string) *ProcessOpener {
	return &ProcessOpener{GitDir: gitDir}
}

// Backend implements Opener.
func (o *ProcessOpener) Backend() string { return BackendProcess }

// Args builds the git command line for req.
func (o *ProcessOpener) Args(req Request) []string {
	return []string{
		"--git-dir", o.GitDir,
		"blame", req.Revision.String(),
		"--incremental",
		"--root",
		"--since=" + req.Cutoff().UTC().Format(sinceLayout),
		"--", req.Path,
	}
}

// Open spawns the blame process. Output is consumed lazily by Line.
func (o *ProcessOpener) Open(ctx context.Context, req Request) (Session, error) {
	bin := o.Git
	if bin == "" {
		bin = "git"
	}

	cmd := exec.CommandContext(ctx, bin, o.Args(req)...)

	stderr := &limitedBuffer{limit: maxStderr}
	cmd.Stderr = stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &Error{Path: req.Path, Revision: req.Revision, Err: fmt.Errorf("%w: %w", ErrSpawn, err)}
	}

	err = cmd.Start()
	if err != nil {
		return nil, &Error{Path: req.Path, Revision: req.Revision, Err: fmt.Errorf("%w: %w", ErrSpawn, err)}
	}

	s := &processSession{
		cmd:    cmd,
		stderr: stderr,
	}
	s.stream = newStream(stdout, req, s.exitErr)

	return s, nil
}

type processSession struct {
	*stream

	cmd       *exec.Cmd
	stderr    *limitedBuffer
	waitOnce  sync.Once
	closeOnce sync.Once
	reaped    bool
	waitErr   error
}

func (s *processSession) wait() error {
	s.waitOnce.Do(func() {
		s.waitErr = s.cmd.Wait()
		s.reaped = true
	})

	return s.waitErr
}

// exitErr reaps the finished process and folds its stderr into the error.
func (s *processSession) exitErr() error {
	err := s.wait()
	if err != nil && s.stderr.String() != "" {
		return fmt.Errorf("%w: %s", err, s.stderr)
	}

	return err
}

// Close kills the process if it is still running and reaps it.
func (s *processSession) Close() error {
	s.closeOnce.Do(func() {
		s.stream.done = true

		if !s.reaped && s.cmd.Process != nil {
			_ = s.cmd.Process.Kill()
		}

		_ = s.wait()
	})

	return nil
}

// stream incrementally parses blame's incremental porcelain output into a
// final-line -> commit map. Records arrive in no particular order, so a
// lookup reads forward until the line shows up or the output ends; the
// stream is never restarted.
type stream struct {
	reader *bufio.Reader
	req    Request
	lines  map[int]gitlib.Hash
	// boundary commits are flagged only on their first record.
	boundary map[gitlib.Hash]bool
	finish   func() error
	done     bool
	err      error

	cur     record
	inEntry bool
}

type record struct {
	commit    gitlib.Hash
	finalLine int
	count     int
}

func newStream(r io.Reader, req Request, finish func() error) *stream {
	return &stream{
		reader:   bufio.NewReader(r),
		req:      req,
		lines:    make(map[int]gitlib.Hash),
		boundary: make(map[gitlib.Hash]bool),
		finish:   finish,
	}
}

// Line implements Session.
func (s *stream) Line(n int) (gitlib.Hash, bool, error) {
	if h, ok := s.lines[n]; ok {
		return h, true, nil
	}

	if s.err != nil {
		return gitlib.Hash{}, false, s.err
	}

	for !s.done {
		committed, err := s.next()
		if err != nil {
			s.err = &Error{Path: s.req.Path, Revision: s.req.Revision, Err: err}
			s.done = true

			return gitlib.Hash{}, false, s.err
		}

		if committed {
			if h, ok := s.lines[n]; ok {
				return h, true, nil
			}
		}
	}

	return gitlib.Hash{}, false, nil
}

// Close implements Session for streams without a process.
func (s *stream) Close() error {
	s.done = true

	return nil
}

// next consumes one line and reports whether it completed a record.
func (s *stream) next() (bool, error) {
	line, err := s.reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("%w: %w", ErrRead, err)
	}

	eof := err != nil

	committed, err := s.consume(strings.TrimRight(line, "\n"))
	if err != nil {
		return false, err
	}

	if eof {
		s.done = true

		return committed, s.end()
	}

	return committed, nil
}

func (s *stream) consume(line string) (bool, error) {
	if !s.inEntry {
		if line == "" {
			return false, nil
		}

		rec, err := parseHeader(line)
		if err != nil {
			return false, err
		}

		s.cur = rec
		s.inEntry = true

		return false, nil
	}

	key, _, _ := strings.Cut(line, " ")

	switch key {
	case "boundary":
		s.boundary[s.cur.commit] = true
	case "filename":
		s.inEntry = false
		s.commit(s.cur)

		return true, nil
	}

	return false, nil
}

func (s *stream) commit(rec record) {
	if s.boundary[rec.commit] {
		return
	}

	for i := range rec.count {
		s.lines[rec.finalLine+i] = rec.commit
	}
}

func (s *stream) end() error {
	if s.inEntry {
		return fmt.Errorf("%w: output ended inside a record", ErrMalformed)
	}

	if s.finish == nil {
		return nil
	}

	err := s.finish()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrExit, err)
	}

	return nil
}

// parseHeader reads "<sha1> <orig-line> <final-line> <count>".
func parseHeader(line string) (record, error) {
	fields := strings.Fields(line)
	if len(fields) != headerFields {
		return record{}, fmt.Errorf("%w: %q", ErrMalformed, line)
	}

	commit, err := gitlib.ParseHash(fields[0])
	if err != nil {
		return record{}, fmt.Errorf("%w: %q", ErrMalformed, line)
	}

	var nums [3]int

	for i, f := range fields[1:] {
		nums[i], err = strconv.Atoi(f)
		if err != nil || nums[i] < 0 {
			return record{}, fmt.Errorf("%w: %q", ErrMalformed, line)
		}
	}

	return record{commit: commit, finalLine: nums[1], count: nums[2]}, nil
}

// limitedBuffer keeps the first limit bytes written to it.
type limitedBuffer struct {
	buf   bytes.Buffer
	limit int
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	if room := b.limit - b.buf.Len(); room > 0 {
		if len(p) > room {
			b.buf.Write(p[:room])
		} else {
			b.buf.Write(p)
		}
	}

	return len(p), nil
}

func (b *limitedBuffer) String() string {
	return strings.TrimSpace(b.buf.String())
}
