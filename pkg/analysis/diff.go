package analysis

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/codealong/pkg/blame"
	"github.com/Sumatoshi-tech/codealong/pkg/config"
	"github.com/Sumatoshi-tech/codealong/pkg/gitlib"
	"github.com/Sumatoshi-tech/codealong/pkg/observability"
	"github.com/Sumatoshi-tech/codealong/pkg/workstats"
)

// CommitScope is the per-commit state shared by every file of the commit.
type CommitScope struct {
	Commit *gitlib.Commit
	Info   CommitInfo
	// Author is the configured contributor behind the commit author, if any.
	Author *config.ContributorConfig
	Lines  *LineAnalyzer
}

// DiffAnalyzer analyzes the tree diff between a commit and one parent.
type DiffAnalyzer struct {
	repo    *gitlib.Repository
	cfg     *config.WorkingConfig
	opener  blame.Opener
	tracer  trace.Tracer
	metrics *observability.AnalysisMetrics
	logger  *slog.Logger
}

// NewDiffAnalyzer builds a diff analyzer. A nil opener disables blame, so
// every changed context line counts as legacy work.
func NewDiffAnalyzer(
	repo *gitlib.Repository, cfg *config.WorkingConfig, opener blame.Opener,
	tracer trace.Tracer, metrics *observability.AnalysisMetrics, logger *slog.Logger,
) *DiffAnalyzer {
	return &DiffAnalyzer{
		repo:    repo,
		cfg:     cfg,
		opener:  opener,
		tracer:  tracer,
		metrics: metrics,
		logger:  observability.OrDiscard(logger),
	}
}

// Analyze diffs parent's tree against the commit's tree, ignoring whitespace,
// and sums the analysis of every file. A nil parent diffs against the empty tree.
func (d *DiffAnalyzer) Analyze(ctx context.Context, scope CommitScope, parent *gitlib.Commit) (workstats.AnalyzedDiff, error) {
	attrs := []attribute.KeyValue{attribute.String("commit.id", scope.Commit.Hash().String())}
	if parent != nil {
		attrs = append(attrs, attribute.String("commit.parent", parent.Hash().String()))
	}

	ctx, span := d.tracer.Start(ctx, observability.SpanDiff, trace.WithAttributes(attrs...))
	defer span.End()

	result, err := d.analyze(ctx, scope, parent)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "diff analysis failed")

		return workstats.AnalyzedDiff{}, err
	}

	return result, nil
}

func (d *DiffAnalyzer) analyze(ctx context.Context, scope CommitScope, parent *gitlib.Commit) (workstats.AnalyzedDiff, error) {
	tree, err := scope.Commit.Tree()
	if err != nil {
		return workstats.AnalyzedDiff{}, err
	}
	defer tree.Free()

	var parentTree *gitlib.Tree

	if parent != nil {
		parentTree, err = parent.Tree()
		if err != nil {
			return workstats.AnalyzedDiff{}, err
		}
		defer parentTree.Free()
	}

	diff, err := d.repo.DiffTreeToTree(parentTree, tree, gitlib.DiffOptions{IgnoreWhitespace: true})
	if err != nil {
		return workstats.AnalyzedDiff{}, err
	}
	defer diff.Free()

	files, err := diff.NumDeltas()
	if err != nil {
		return workstats.AnalyzedDiff{}, err
	}

	trace.SpanFromContext(ctx).SetAttributes(attribute.Int("diff.files", files))

	walk := &diffWalk{analyzer: d, scope: scope, parent: parent, total: workstats.NewAnalyzedDiff()}

	err = diff.ForEach(func(delta gitlib.DiffDelta) (gitlib.HunkCallback, error) {
		return walk.startFile(ctx, delta)
	})
	if err != nil {
		walk.abort()

		return workstats.AnalyzedDiff{}, err
	}

	err = walk.finishFile(ctx)
	if err != nil {
		return workstats.AnalyzedDiff{}, err
	}

	return walk.total, nil
}

// diffWalk holds the file in flight while libgit2 streams the diff.
type diffWalk struct {
	analyzer *DiffAnalyzer
	scope    CommitScope
	parent   *gitlib.Commit
	total    workstats.AnalyzedDiff

	file     *FileAnalyzer
	fileSpan trace.Span
	path     string
}

func (w *diffWalk) startFile(ctx context.Context, delta gitlib.DiffDelta) (gitlib.HunkCallback, error) {
	err := w.finishFile(ctx)
	if err != nil {
		return nil, err
	}

	d := w.analyzer
	path := delta.Path()
	fileConf, found := d.cfg.ConfigForFile(path)
	conf := NewConfigContext(fileConf, found, w.scope.Author)

	fileCtx, span := d.tracer.Start(ctx, observability.SpanFile, trace.WithAttributes(
		attribute.String("file.path", path),
		attribute.String("file.status", delta.Status.String()),
		attribute.Bool("file.ignored", conf.Ignore),
	))

	fa := NewFileAnalyzer(delta, conf, w.scope.Lines, FileOptions{
		Opener:  d.opener,
		Request: BlameRequest(delta, w.parent, d.cfg.ChurnCutoff(), w.scope.Info),
		Metrics: d.metrics,
		Logger:  d.logger,
	})

	w.file, w.fileSpan, w.path = fa, span, path

	d.logger.DebugContext(fileCtx, "analyze file",
		slog.String("file.path", path),
		slog.String("file.status", delta.Status.String()),
		slog.Bool("file.ignored", conf.Ignore),
	)

	return func(gitlib.DiffHunk) (gitlib.LineCallback, error) {
		fa.StartHunk()

		return func(line gitlib.DiffLine) error {
			lineErr := fa.AnalyzeLine(fileCtx, line)
			if lineErr != nil {
				return &FileError{Path: path, Err: lineErr}
			}

			return nil
		}, nil
	}, nil
}

func (w *diffWalk) finishFile(ctx context.Context) error {
	if w.file == nil {
		return nil
	}

	fa, span, path := w.file, w.fileSpan, w.path
	w.file, w.fileSpan = nil, nil

	defer span.End()

	result, err := fa.Finish(ctx)
	if err != nil {
		span.RecordError(err)

		return &FileError{Path: path, Err: err}
	}

	w.total.Merge(result)

	return nil
}

// abort releases the file in flight after a failed walk.
func (w *diffWalk) abort() {
	if w.file == nil {
		return
	}

	_ = w.file.Close()
	w.fileSpan.End()
	w.file, w.fileSpan = nil, nil
}
