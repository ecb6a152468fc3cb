package workstats

import "maps"

// AnalyzedDiff aggregates line work for a diff, overall and per tag.
// The embedded WorkStats is flattened on the wire.
type AnalyzedDiff struct {
	WorkStats

	TagStats map[string]WorkStats `json:"tag_stats" yaml:"tag_stats"`
}

// NewAnalyzedDiff returns an empty diff with an allocated tag map.
func NewAnalyzedDiff() AnalyzedDiff {
	return AnalyzedDiff{TagStats: make(map[string]WorkStats)}
}

// AddStats folds stats into the totals and into every tag bucket.
func (d *AnalyzedDiff) AddStats(stats WorkStats, tags []string) {
	d.WorkStats = d.WorkStats.Add(stats)

	if len(tags) == 0 {
		return
	}

	if d.TagStats == nil {
		d.TagStats = make(map[string]WorkStats, len(tags))
	}

	for _, tag := range tags {
		d.TagStats[tag] = d.TagStats[tag].Add(stats)
	}
}

// Add returns the sum of d and other. Tags missing from one side count as zero.
// Neither operand is modified.
func (d AnalyzedDiff) Add(other AnalyzedDiff) AnalyzedDiff {
	res := AnalyzedDiff{
		WorkStats: d.WorkStats.Add(other.WorkStats),
		TagStats:  make(map[string]WorkStats, len(d.TagStats)+len(other.TagStats)),
	}

	maps.Copy(res.TagStats, d.TagStats)

	for tag, stats := range other.TagStats {
		res.TagStats[tag] = res.TagStats[tag].Add(stats)
	}

	return res
}

// Merge adds other into d in place.
func (d *AnalyzedDiff) Merge(other AnalyzedDiff) {
	*d = d.Add(other)
}

// Tag returns the stats for tag, or zero stats when the tag is absent.
func (d AnalyzedDiff) Tag(tag string) WorkStats {
	return d.TagStats[tag]
}
