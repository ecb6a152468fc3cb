package analysis

import (
	"time"

	"github.com/Sumatoshi-tech/codealong/pkg/config"
	"github.com/Sumatoshi-tech/codealong/pkg/gitlib"
	"github.com/Sumatoshi-tech/codealong/pkg/identity"
	"github.com/Sumatoshi-tech/codealong/pkg/workstats"
)

// EventTypeCommit is the event type of an analyzed commit.
const EventTypeCommit = "commit"

// RepoRef is the part of the repository info carried by every commit.
type RepoRef struct {
	Name string `json:"name"`
	Fork bool   `json:"fork"`
}

// AnalyzedCommit is the result of analyzing one commit. The diff totals and
// tag_stats are flattened into the top-level object.
type AnalyzedCommit struct {
	ID string `json:"id"`

	workstats.AnalyzedDiff

	Summary        string          `json:"summary,omitempty"`
	AuthorName     string          `json:"author_name,omitempty"`
	AuthorEmail    string          `json:"author_email,omitempty"`
	AuthoredAt     time.Time       `json:"authored_at"`
	CommitterName  string          `json:"committer_name,omitempty"`
	CommitterEmail string          `json:"committer_email,omitempty"`
	CommittedAt    time.Time       `json:"committed_at"`
	Author         identity.Person `json:"author"`
	Committer      identity.Person `json:"committer"`
	Repo           RepoRef         `json:"repo"`
	GithubURL      string          `json:"github_url,omitempty"`
	ParentIDs      []string        `json:"parent_ids"`
	Merge          bool            `json:"merge"`
}

// newAnalyzedCommit copies the commit metadata; the diff starts empty.
func newAnalyzedCommit(c *gitlib.Commit, repo config.RepoInfo) *AnalyzedCommit {
	id := c.Hash().String()
	author, committer := c.Author(), c.Committer()

	parents := c.ParentHashes()
	parentIDs := make([]string, 0, len(parents))

	for _, p := range parents {
		parentIDs = append(parentIDs, p.String())
	}

	return &AnalyzedCommit{
		ID:             id,
		AnalyzedDiff:   workstats.NewAnalyzedDiff(),
		Summary:        c.Summary(),
		AuthorName:     author.Name,
		AuthorEmail:    author.Email,
		AuthoredAt:     author.When.UTC(),
		CommitterName:  committer.Name,
		CommitterEmail: committer.Email,
		CommittedAt:    committer.When.UTC(),
		Repo:           RepoRef{Name: repo.Name, Fork: repo.Fork},
		GithubURL:      repo.GithubCommitURL(id),
		ParentIDs:      parentIDs,
		Merge:          len(parents) > 1,
	}
}

// MergeDiff adds diff into the commit's totals.
func (c *AnalyzedCommit) MergeDiff(diff workstats.AnalyzedDiff) {
	c.AnalyzedDiff.Merge(diff)
}

// EventID is the document id used when indexing the commit.
func (c *AnalyzedCommit) EventID() string {
	return c.ID
}

// EventType is always "commit".
func (c *AnalyzedCommit) EventType() string {
	return EventTypeCommit
}

// Timestamp is the authored time, the moment the work happened.
func (c *AnalyzedCommit) Timestamp() time.Time {
	return c.AuthoredAt
}

// personFor flattens a resolved contributor, keeping the signature actually
// used on the commit.
func personFor(c identity.Contributor, used identity.Identity) identity.Person {
	p := c.Partial()
	p.Name = used.Name
	p.Email = used.Email

	return p
}
