package analysis

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/codealong/pkg/blame"
	"github.com/Sumatoshi-tech/codealong/pkg/cache"
	"github.com/Sumatoshi-tech/codealong/pkg/config"
	"github.com/Sumatoshi-tech/codealong/pkg/gitlib"
	"github.com/Sumatoshi-tech/codealong/pkg/identity"
	"github.com/Sumatoshi-tech/codealong/pkg/observability"
)

const contributorCacheSize = 1024

// Resolution is the contributor behind an identity. Config is nil for
// identities no configured contributor claims.
type Resolution struct {
	Contributor identity.Contributor
	Config      *config.ContributorConfig
}

// CommitAnalyzer analyzes commits of one repository. It is not safe for
// concurrent use; run one per worker, each with its own repository handle.
type CommitAnalyzer struct {
	repo    *gitlib.Repository
	cfg     *config.WorkingConfig
	info    config.RepoInfo
	opener  blame.Opener
	lookup  CommitLookup
	people  *cache.LRU[identity.Identity, Resolution]
	tracer  trace.Tracer
	metrics *observability.AnalysisMetrics
	logger  *slog.Logger
	diffs   *DiffAnalyzer
}

// Option configures a CommitAnalyzer.
type Option func(*CommitAnalyzer)

// WithLogger sets the logger. The default discards.
func WithLogger(logger *slog.Logger) Option {
	return func(a *CommitAnalyzer) { a.logger = logger }
}

// WithTracer sets the tracer. The default is the global provider's.
func WithTracer(tracer trace.Tracer) Option {
	return func(a *CommitAnalyzer) { a.tracer = tracer }
}

// WithMetrics records analysis metrics.
func WithMetrics(metrics *observability.AnalysisMetrics) Option {
	return func(a *CommitAnalyzer) { a.metrics = metrics }
}

// WithCommitLookup replaces the attributed-commit lookup.
func WithCommitLookup(lookup CommitLookup) Option {
	return func(a *CommitAnalyzer) { a.lookup = lookup }
}

// NewCommitAnalyzer builds an analyzer for repo. A nil opener disables blame.
func NewCommitAnalyzer(
	repo *gitlib.Repository, cfg *config.WorkingConfig, info config.RepoInfo, opener blame.Opener, opts ...Option,
) *CommitAnalyzer {
	a := &CommitAnalyzer{
		repo:   repo,
		cfg:    cfg,
		info:   info,
		opener: opener,
		people: cache.NewLRU[identity.Identity, Resolution](contributorCacheSize),
	}

	for _, opt := range opts {
		opt(a)
	}

	if a.lookup == nil {
		a.lookup = NewCommitCache(repo, DefaultCommitCacheSize)
	}

	if a.tracer == nil {
		a.tracer = otel.Tracer(observability.TracerName)
	}

	a.logger = observability.OrDiscard(a.logger)
	a.diffs = NewDiffAnalyzer(repo, cfg, opener, a.tracer, a.metrics, a.logger)

	return a
}

// AnalyzeHash looks up the commit h and analyzes it.
func (a *CommitAnalyzer) AnalyzeHash(ctx context.Context, h gitlib.Hash) (*AnalyzedCommit, error) {
	commit, err := a.repo.LookupCommit(ctx, h)
	if err != nil {
		return nil, &CommitError{ID: h, Err: err}
	}
	defer commit.Free()

	return a.Analyze(ctx, commit)
}

// Analyze classifies every changed line of commit. A commit with several
// parents is diffed against each of them and the results are summed; a root
// commit is diffed against the empty tree. Errors are *CommitError.
func (a *CommitAnalyzer) Analyze(ctx context.Context, commit *gitlib.Commit) (*AnalyzedCommit, error) {
	start := time.Now()
	id := commit.Hash()

	ctx, span := a.tracer.Start(ctx, observability.SpanCommit, trace.WithAttributes(
		attribute.String("commit.id", id.String()),
		attribute.Int("commit.parents", commit.NumParents()),
		attribute.String("repo.name", a.info.Name),
	))
	defer span.End()

	result, err := a.analyze(ctx, commit)

	lines := observability.LineCounts{}
	if result != nil {
		lines = observability.LineCounts{
			NewWork:        result.NewWork,
			LegacyRefactor: result.LegacyRefactor,
			Churn:          result.Churn,
			HelpOthers:     result.HelpOthers,
			Other:          result.Other,
		}
	}

	a.metrics.RecordCommit(ctx, time.Since(start), lines, err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "commit analysis failed")

		return nil, &CommitError{ID: id, Err: err}
	}

	a.logger.DebugContext(ctx, "commit analyzed",
		slog.String("commit.id", id.Short()),
		slog.Uint64("impact", result.Impact),
		slog.Duration("elapsed", time.Since(start)),
	)

	return result, nil
}

func (a *CommitAnalyzer) analyze(ctx context.Context, commit *gitlib.Commit) (*AnalyzedCommit, error) {
	result := newAnalyzedCommit(commit, a.info)
	info := InfoOf(commit)

	committerSig := commit.Committer()
	committerID := identity.New(committerSig.Name, committerSig.Email)

	author := a.Resolve(info.Author)
	committer := a.Resolve(committerID)

	result.Author = personFor(author.Contributor, info.Author)
	result.Committer = personFor(committer.Contributor, committerID)

	scope := CommitScope{
		Commit: commit,
		Info:   info,
		Author: author.Config,
		Lines:  NewLineAnalyzer(info, a.lookup),
	}

	n := commit.NumParents()
	if n == 0 {
		diff, err := a.diffs.Analyze(ctx, scope, nil)
		if err != nil {
			return nil, err
		}

		result.MergeDiff(diff)

		return result, nil
	}

	for i := range n {
		parent, err := commit.Parent(i)
		if err != nil {
			return nil, err
		}

		diff, err := a.diffs.Analyze(ctx, scope, parent)
		parent.Free()

		if err != nil {
			return nil, err
		}

		result.MergeDiff(diff)
	}

	return result, nil
}

// Resolve maps an identity to its configured contributor, or to a synthetic
// one when no configured identity matches. Results are memoized.
func (a *CommitAnalyzer) Resolve(id identity.Identity) Resolution {
	if r, ok := a.people.Get(id); ok {
		return r
	}

	r := Resolution{Contributor: identity.FromIdentity(id)}

	if cc, ok := a.cfg.ConfigForIdentity(id); ok {
		r = Resolution{Contributor: cc.Contributor, Config: cc}
	}

	a.people.Put(id, r)

	return r
}
