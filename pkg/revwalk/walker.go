// Package revwalk enumerates the commits of a repository that should be
// analyzed and runs the commit analyzer over them with a worker pool.
package revwalk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/Sumatoshi-tech/codealong/pkg/config"
	"github.com/Sumatoshi-tech/codealong/pkg/gitlib"
	"github.com/Sumatoshi-tech/codealong/pkg/identity"
	"github.com/Sumatoshi-tech/codealong/pkg/observability"
)

// Options filters the commits a walk yields.
type Options struct {
	// Since drops commits authored before it. Zero keeps everything.
	Since time.Time
	// IgnoreUnknownAuthors drops commits whose author matches no configured
	// contributor.
	IgnoreUnknownAuthors bool
}

// RepoAnalyzer walks the configured refs of one repository.
type RepoAnalyzer struct {
	repo   *gitlib.Repository
	cfg    *config.WorkingConfig
	info   config.RepoInfo
	opts   Options
	logger *slog.Logger
}

// NewRepoAnalyzer walks repo's refs from info. A nil logger discards.
func NewRepoAnalyzer(
	repo *gitlib.Repository, cfg *config.WorkingConfig, info config.RepoInfo, opts Options, logger *slog.Logger,
) *RepoAnalyzer {
	logger = observability.OrDiscard(logger).With(slog.String("repo.name", info.Name))

	return &RepoAnalyzer{repo: repo, cfg: cfg, info: info, opts: opts, logger: logger}
}

// Walk calls fn with every matching commit, newest first. Returning an error
// from fn stops the walk and returns it.
func (r *RepoAnalyzer) Walk(ctx context.Context, fn func(gitlib.Hash) error) error {
	walk, err := r.repo.Walk()
	if err != nil {
		return err
	}
	defer walk.Free()

	err = r.pushRefs(ctx, walk)
	if err != nil {
		return err
	}

	walk.Sorting(gitlib.SortTopological | gitlib.SortTime)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		h, nextErr := walk.Next()
		if errors.Is(nextErr, io.EOF) {
			return nil
		}

		if nextErr != nil {
			return nextErr
		}

		keep, keepErr := r.keep(ctx, h)
		if keepErr != nil {
			return keepErr
		}

		if !keep {
			continue
		}

		err = fn(h)
		if err != nil {
			return err
		}
	}
}

// Hashes collects the matching commits.
func (r *RepoAnalyzer) Hashes(ctx context.Context) ([]gitlib.Hash, error) {
	var hashes []gitlib.Hash

	err := r.Walk(ctx, func(h gitlib.Hash) error {
		hashes = append(hashes, h)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return hashes, nil
}

// Count is the number of commits Walk would yield.
func (r *RepoAnalyzer) Count(ctx context.Context) (int, error) {
	n := 0

	err := r.Walk(ctx, func(gitlib.Hash) error {
		n++

		return nil
	})

	return n, err
}

// pushRefs starts the walk at every configured ref. A ref that does not
// resolve is replaced by HEAD. No refs at all walks HEAD.
func (r *RepoAnalyzer) pushRefs(ctx context.Context, walk *gitlib.RevWalk) error {
	if len(r.info.Refs) == 0 {
		return walk.PushHead()
	}

	for _, ref := range r.info.Refs {
		h, err := r.repo.ResolveRevision(ref)
		if err != nil {
			r.logger.WarnContext(ctx, "reference not found, using HEAD", slog.String("ref", ref))

			err = walk.PushHead()
			if err != nil {
				return err
			}

			continue
		}

		err = walk.Push(h)
		if err != nil {
			return err
		}
	}

	return nil
}

func (r *RepoAnalyzer) keep(ctx context.Context, h gitlib.Hash) (bool, error) {
	if r.opts.Since.IsZero() && !r.opts.IgnoreUnknownAuthors {
		return true, nil
	}

	commit, err := r.repo.LookupCommit(ctx, h)
	if err != nil {
		return false, fmt.Errorf("walk %s: %w", h.Short(), err)
	}
	defer commit.Free()

	author := commit.Author()

	if !r.opts.Since.IsZero() && author.When.Before(r.opts.Since) {
		return false, nil
	}

	if r.opts.IgnoreUnknownAuthors && !r.cfg.IsKnown(identity.New(author.Name, author.Email)) {
		return false, nil
	}

	return true, nil
}
