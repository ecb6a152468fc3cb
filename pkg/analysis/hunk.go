package analysis

import (
	"context"
	"math"

	"github.com/Sumatoshi-tech/codealong/pkg/blame"
	"github.com/Sumatoshi-tech/codealong/pkg/gitlib"
	"github.com/Sumatoshi-tech/codealong/pkg/safeconv"
	"github.com/Sumatoshi-tech/codealong/pkg/workstats"
)

// HunkAnalyzer accumulates the line classifications of one hunk.
type HunkAnalyzer struct {
	lines *LineAnalyzer
	stats workstats.WorkStats
}

// NewHunkAnalyzer starts an empty hunk.
func NewHunkAnalyzer(lines *LineAnalyzer) *HunkAnalyzer {
	return &HunkAnalyzer{lines: lines}
}

// Analyze classifies line and adds it to the hunk.
func (h *HunkAnalyzer) Analyze(ctx context.Context, line gitlib.DiffLine, session blame.Session) error {
	stats, err := h.lines.Classify(ctx, line, session)
	if err != nil {
		return err
	}

	h.stats = h.stats.Add(stats)

	return nil
}

// Stats returns the counters accumulated so far, without impact.
func (h *HunkAnalyzer) Stats() workstats.WorkStats {
	return h.stats
}

// Finish returns the hunk's stats with impact set and resets the hunk.
func (h *HunkAnalyzer) Finish(weight float64) workstats.WorkStats {
	stats := h.stats
	stats.Impact = Impact(stats, weight)
	h.stats = workstats.WorkStats{}

	return stats
}

// Impact grows with the square root of the weighted line value, so large
// hunks count less per line. Churn and other lines carry no value.
func Impact(stats workstats.WorkStats, weight float64) uint64 {
	value := safeconv.Uint64ToFloat64(stats.LineValue())

	return safeconv.RoundToUint64(math.Sqrt(value) * weight)
}
