package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/Sumatoshi-tech/codealong/pkg/blame"
	"github.com/Sumatoshi-tech/codealong/pkg/gitlib"
	"github.com/Sumatoshi-tech/codealong/pkg/workstats"
)

// RecencyWindow separates recent work (churn or help) from legacy code. It is
// independent of the churn cutoff, which only bounds the blame search.
const RecencyWindow = 21 * 24 * time.Hour

// LineAnalyzer classifies the changed lines of one commit.
type LineAnalyzer struct {
	current CommitInfo
	lookup  CommitLookup
}

// NewLineAnalyzer classifies lines of the commit described by current.
func NewLineAnalyzer(current CommitInfo, lookup CommitLookup) *LineAnalyzer {
	return &LineAnalyzer{current: current, lookup: lookup}
}

// Kind returns the classification of line. Additions are new work, context
// lines are attributed through session (nil when no attribution is
// available) and every other origin, end-of-file markers included, is other.
func (la *LineAnalyzer) Kind(ctx context.Context, line gitlib.DiffLine, session blame.Session) (workstats.Kind, error) {
	switch line.Origin {
	case gitlib.LineAddition:
		return workstats.KindNewWork, nil
	case gitlib.LineContext:
		return la.attribute(ctx, line, session)
	default:
		return workstats.KindOther, nil
	}
}

// Classify returns single-unit stats for line.
func (la *LineAnalyzer) Classify(ctx context.Context, line gitlib.DiffLine, session blame.Session) (workstats.WorkStats, error) {
	kind, err := la.Kind(ctx, line, session)
	if err != nil {
		return workstats.WorkStats{}, err
	}

	return workstats.Unit(kind), nil
}

func (la *LineAnalyzer) attribute(ctx context.Context, line gitlib.DiffLine, session blame.Session) (workstats.Kind, error) {
	if session == nil {
		return workstats.KindLegacyRefactor, nil
	}

	if line.OldLineno <= 0 {
		return workstats.KindOther, ErrMissingLineNumber
	}

	prev, found, err := session.Line(line.OldLineno)
	if err != nil {
		return workstats.KindOther, err
	}

	if !found {
		return workstats.KindLegacyRefactor, nil
	}

	info, err := la.lookup.CommitInfo(ctx, prev)
	if err != nil {
		return workstats.KindOther, fmt.Errorf("attributed commit: %w", err)
	}

	if la.current.CommittedAt.Sub(info.CommittedAt) >= RecencyWindow {
		return workstats.KindLegacyRefactor, nil
	}

	if info.Author.SameEmail(la.current.Author) {
		return workstats.KindChurn, nil
	}

	return workstats.KindHelpOthers, nil
}
