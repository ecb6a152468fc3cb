// Package report summarizes analyzed commits for people: a terminal table
// and an HTML chart of work per tag.
package report

import (
	"cmp"
	"slices"
	"time"

	"github.com/Sumatoshi-tech/codealong/pkg/analysis"
	"github.com/Sumatoshi-tech/codealong/pkg/workstats"
)

// AuthorTotals is one contributor's share of a run.
type AuthorTotals struct {
	ID      string
	Name    string
	Commits int
	Stats   workstats.WorkStats
}

// Summary accumulates analyzed commits. The zero value is ready to use.
type Summary struct {
	Commits int
	Merges  int
	Totals  workstats.AnalyzedDiff
	First   time.Time
	Last    time.Time

	authors map[string]*AuthorTotals
}

// Add folds one commit into the summary.
func (s *Summary) Add(c *analysis.AnalyzedCommit) {
	if s.authors == nil {
		s.authors = make(map[string]*AuthorTotals)
		s.Totals = workstats.NewAnalyzedDiff()
	}

	s.Commits++

	if c.Merge {
		s.Merges++
	}

	s.Totals.Merge(c.AnalyzedDiff)

	if s.First.IsZero() || c.AuthoredAt.Before(s.First) {
		s.First = c.AuthoredAt
	}

	if c.AuthoredAt.After(s.Last) {
		s.Last = c.AuthoredAt
	}

	a, ok := s.authors[c.Author.ID]
	if !ok {
		a = &AuthorTotals{ID: c.Author.ID, Name: c.Author.Name}
		s.authors[c.Author.ID] = a
	}

	a.Commits++
	a.Stats = a.Stats.Add(c.WorkStats)
}

// Authors returns per-author totals by descending impact, then id.
func (s *Summary) Authors() []AuthorTotals {
	out := make([]AuthorTotals, 0, len(s.authors))
	for _, a := range s.authors {
		out = append(out, *a)
	}

	slices.SortFunc(out, func(a, b AuthorTotals) int {
		return cmp.Or(cmp.Compare(b.Stats.Impact, a.Stats.Impact), cmp.Compare(a.ID, b.ID))
	})

	return out
}

// Tags returns the tag names seen, sorted.
func (s *Summary) Tags() []string {
	tags := make([]string, 0, len(s.Totals.TagStats))
	for tag := range s.Totals.TagStats {
		tags = append(tags, tag)
	}

	slices.Sort(tags)

	return tags
}
