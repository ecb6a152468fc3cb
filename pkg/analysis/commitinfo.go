package analysis

import (
	"context"
	"time"

	"github.com/Sumatoshi-tech/codealong/pkg/cache"
	"github.com/Sumatoshi-tech/codealong/pkg/gitlib"
	"github.com/Sumatoshi-tech/codealong/pkg/identity"
)

// DefaultCommitCacheSize bounds the attributed-commit cache.
const DefaultCommitCacheSize = 8192

// CommitInfo is what line classification needs to know about a commit.
type CommitInfo struct {
	Author      identity.Identity
	CommittedAt time.Time
}

// InfoOf extracts the classification-relevant fields of c.
func InfoOf(c *gitlib.Commit) CommitInfo {
	author := c.Author()

	return CommitInfo{
		Author:      identity.New(author.Name, author.Email),
		CommittedAt: c.Committer().When,
	}
}

// CommitLookup resolves attributed commits.
type CommitLookup interface {
	CommitInfo(ctx context.Context, h gitlib.Hash) (CommitInfo, error)
}

// CommitCache is a CommitLookup backed by a repository and an LRU.
// The same blamed commit shows up for many lines, so lookups are mostly hits.
type CommitCache struct {
	repo *gitlib.Repository
	lru  *cache.LRU[gitlib.Hash, CommitInfo]
}

// NewCommitCache caches up to size commits of repo.
func NewCommitCache(repo *gitlib.Repository, size int) *CommitCache {
	if size <= 0 {
		size = DefaultCommitCacheSize
	}

	return &CommitCache{repo: repo, lru: cache.NewLRU[gitlib.Hash, CommitInfo](size)}
}

// CommitInfo returns the info of h, reading the commit on a miss.
func (c *CommitCache) CommitInfo(ctx context.Context, h gitlib.Hash) (CommitInfo, error) {
	return c.lru.GetOrLoad(h, func(h gitlib.Hash) (CommitInfo, error) {
		commit, err := c.repo.LookupCommit(ctx, h)
		if err != nil {
			return CommitInfo{}, err
		}
		defer commit.Free()

		return InfoOf(commit), nil
	})
}

// Stats exposes the cache counters.
func (c *CommitCache) Stats() cache.Stats {
	return c.lru.Stats()
}
