package analysis

import (
	"context"
	"log/slog"

	"github.com/Sumatoshi-tech/codealong/pkg/blame"
	"github.com/Sumatoshi-tech/codealong/pkg/gitlib"
	"github.com/Sumatoshi-tech/codealong/pkg/observability"
	"github.com/Sumatoshi-tech/codealong/pkg/workstats"
)

// FileAnalyzer folds the hunks of one file delta into an AnalyzedDiff.
// It owns the file's blame session, which is opened on the first line that
// needs attribution and closed by Finish or Close.
type FileAnalyzer struct {
	delta   gitlib.DiffDelta
	conf    ConfigContext
	hunk    *HunkAnalyzer
	inHunk  bool
	result  workstats.AnalyzedDiff
	opener  blame.Opener
	request *blame.Request
	session blame.Session
	opened  bool
	metrics *observability.AnalysisMetrics
	logger  *slog.Logger
}

// FileOptions carries the collaborators of a FileAnalyzer.
type FileOptions struct {
	// Opener starts blame sessions. Nil disables attribution.
	Opener blame.Opener
	// Request is the blame request for the delta's old path at the parent
	// revision, or nil when the delta is not eligible for blame.
	Request *blame.Request
	Metrics *observability.AnalysisMetrics
	Logger  *slog.Logger
}

// NewFileAnalyzer analyzes delta under conf.
func NewFileAnalyzer(delta gitlib.DiffDelta, conf ConfigContext, lines *LineAnalyzer, opts FileOptions) *FileAnalyzer {
	return &FileAnalyzer{
		delta:   delta,
		conf:    conf,
		hunk:    NewHunkAnalyzer(lines),
		result:  workstats.NewAnalyzedDiff(),
		opener:  opts.Opener,
		request: opts.Request,
		metrics: opts.Metrics,
		logger:  observability.OrDiscard(opts.Logger),
	}
}

// BlameRequest returns the blame request for delta, or nil when the delta
// cannot be attributed: only modifications of a file that exists in a parent
// are blamed, at the parent revision and under the old path.
func BlameRequest(delta gitlib.DiffDelta, parent *gitlib.Commit, cutoffDays int, anchor CommitInfo) *blame.Request {
	if parent == nil || delta.Status != gitlib.DeltaModified || delta.OldPath == "" {
		return nil
	}

	return &blame.Request{
		Revision:        parent.Hash(),
		Path:            delta.OldPath,
		ChurnCutoffDays: cutoffDays,
		Anchor:          anchor.CommittedAt,
	}
}

// Context returns the configuration in force for the file.
func (f *FileAnalyzer) Context() ConfigContext {
	return f.conf
}

// StartHunk finishes the hunk in flight, if any, and starts a new one.
func (f *FileAnalyzer) StartHunk() {
	f.finishHunk()
	f.inHunk = true
}

// AnalyzeLine classifies one line of the current hunk. Lines of ignored
// files are walked but not counted.
func (f *FileAnalyzer) AnalyzeLine(ctx context.Context, line gitlib.DiffLine) error {
	if f.conf.Ignore {
		return nil
	}

	if !f.inHunk {
		f.StartHunk()
	}

	var session blame.Session

	if line.Origin == gitlib.LineContext {
		var err error

		session, err = f.blameSession(ctx)
		if err != nil {
			return err
		}
	}

	return f.hunk.Analyze(ctx, line, session)
}

// Finish folds the last hunk and releases the blame session.
func (f *FileAnalyzer) Finish(ctx context.Context) (workstats.AnalyzedDiff, error) {
	f.finishHunk()
	f.metrics.RecordFile(ctx, f.conf.Ignore)

	err := f.Close()
	if err != nil {
		return workstats.AnalyzedDiff{}, err
	}

	return f.result, nil
}

// Close releases the blame session without folding. Safe to call after Finish.
func (f *FileAnalyzer) Close() error {
	if f.session == nil {
		return nil
	}

	err := f.session.Close()
	f.session = nil

	if err != nil {
		f.logger.Debug("close blame session", slog.String("file.path", f.delta.OldPath), slog.Any("error", err))
	}

	return err
}

func (f *FileAnalyzer) finishHunk() {
	if !f.inHunk {
		return
	}

	f.inHunk = false

	if f.conf.Ignore {
		return
	}

	f.result.AddStats(f.hunk.Finish(f.conf.Weight), f.conf.Tags)
}

func (f *FileAnalyzer) blameSession(ctx context.Context) (blame.Session, error) {
	if f.opened {
		return f.session, nil
	}

	f.opened = true

	if f.request == nil || f.opener == nil {
		return nil, nil
	}

	session, err := f.opener.Open(ctx, *f.request)
	f.metrics.RecordBlameSession(ctx, f.opener.Backend(), err)

	if err != nil {
		return nil, err
	}

	f.session = session

	return session, nil
}
