package revwalk

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/Sumatoshi-tech/codealong/pkg/analysis"
	"github.com/Sumatoshi-tech/codealong/pkg/blame"
	"github.com/Sumatoshi-tech/codealong/pkg/config"
	"github.com/Sumatoshi-tech/codealong/pkg/gitlib"
	"github.com/Sumatoshi-tech/codealong/pkg/observability"
)

const lookaheadPerWorker = 4

// Sink receives analyzed commits. Calls are serialized.
type Sink func(ctx context.Context, commit *analysis.AnalyzedCommit) error

// Pool analyzes commits concurrently. Every worker opens its own repository
// handle, since libgit2 objects must not cross goroutines.
type Pool struct {
	// Workers defaults to the number of CPUs.
	Workers int
	// Backend selects the blame backend; see blame.NewOpener.
	Backend string
	// FailFast aborts the run on the first failing commit instead of
	// logging and skipping it.
	FailFast bool
	Metrics  *observability.AnalysisMetrics
	Logger   *slog.Logger
}

// RunStats summarizes a pool run.
type RunStats struct {
	Analyzed int
	Failed   int
}

// Run analyzes hashes of the repository at path and hands every result to
// sink. Results arrive in completion order, not walk order.
func (p *Pool) Run(
	ctx context.Context, path string, cfg *config.WorkingConfig, info config.RepoInfo, hashes []gitlib.Hash, sink Sink,
) (RunStats, error) {
	workers := p.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	workers = min(workers, max(len(hashes), 1))
	logger := observability.OrDiscard(p.Logger).With(slog.String("repo.name", info.Name))

	var (
		analyzed, failed atomic.Int64
		sinkMu           sync.Mutex
	)

	g, gctx := errgroup.WithContext(ctx)
	jobs := Stream(gctx, hashes, workers*lookaheadPerWorker)

	for worker := range workers {
		g.Go(func() error {
			repo, err := gitlib.OpenRepository(path)
			if err != nil {
				return fmt.Errorf("worker %d: %w", worker, err)
			}
			defer repo.Free()

			opener, err := blame.NewOpener(p.Backend, repo)
			if err != nil {
				return err
			}

			commits := analysis.NewCommitCache(repo, analysis.DefaultCommitCacheSize)
			analyzer := analysis.NewCommitAnalyzer(repo, cfg, info, opener,
				analysis.WithLogger(logger),
				analysis.WithMetrics(p.Metrics),
				analysis.WithCommitLookup(commits),
			)

			defer func() {
				stats := commits.Stats()
				logger.DebugContext(ctx, "worker finished",
					slog.Int("worker.id", worker),
					slog.Int64("worker.commit_cache.hits", stats.Hits),
					slog.Int64("worker.commit_cache.misses", stats.Misses),
				)
			}()

			for job := range jobs {
				result, analyzeErr := analyzer.AnalyzeHash(gctx, job.Hash)
				if analyzeErr != nil {
					if p.FailFast || gctx.Err() != nil {
						return analyzeErr
					}

					failed.Add(1)
					logger.WarnContext(gctx, "skipping commit",
						slog.String("commit.id", job.Hash.String()),
						slog.Any("error", analyzeErr),
					)

					continue
				}

				sinkMu.Lock()
				err = sink(gctx, result)
				sinkMu.Unlock()

				if err != nil {
					return err
				}

				analyzed.Add(1)
			}

			return gctx.Err()
		})
	}

	err := g.Wait()
	stats := RunStats{Analyzed: int(analyzed.Load()), Failed: int(failed.Load())}

	if err != nil {
		return stats, err
	}

	logger.InfoContext(ctx, "repository analyzed",
		slog.Int("workers", workers),
		slog.Int("commits", stats.Analyzed),
		slog.Int("failed", stats.Failed),
	)

	return stats, nil
}
