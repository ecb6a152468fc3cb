package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/Sumatoshi-tech/codealong/pkg/safeconv"
)

const (
	metricCommitsTotal       = "codealong.analysis.commits.total"
	metricLinesTotal         = "codealong.analysis.lines.total"
	metricFilesTotal         = "codealong.analysis.files.total"
	metricBlameSessionsTotal = "codealong.analysis.blame.sessions.total"
	metricCommitDuration     = "codealong.analysis.commit.duration.seconds"

	attrKind    = "kind"
	attrStatus  = "status"
	attrBackend = "backend"
	attrIgnored = "ignored"

	statusOK    = "ok"
	statusError = "error"
)

// durationBucketBoundaries covers 1ms to 120s per commit; large merges with
// many blamed files sit at the top end.
var durationBucketBoundaries = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120}

// LineCounts is a per-commit breakdown of classified lines.
type LineCounts struct {
	NewWork        uint64
	LegacyRefactor uint64
	Churn          uint64
	HelpOthers     uint64
	Other          uint64
}

// AnalysisMetrics holds the OTel instruments recorded by the analyzers.
// A nil *AnalysisMetrics records nothing.
type AnalysisMetrics struct {
	commits        metric.Int64Counter
	lines          metric.Int64Counter
	files          metric.Int64Counter
	blameSessions  metric.Int64Counter
	commitDuration metric.Float64Histogram
}

// NewAnalysisMetrics creates the analysis instruments from mt.
func NewAnalysisMetrics(mt metric.Meter) (*AnalysisMetrics, error) {
	b := newMetricBuilder(mt)

	am := &AnalysisMetrics{
		commits:        b.counter(metricCommitsTotal, "Commits analyzed", "{commit}"),
		lines:          b.counter(metricLinesTotal, "Changed lines classified, by kind", "{line}"),
		files:          b.counter(metricFilesTotal, "File deltas analyzed", "{file}"),
		blameSessions:  b.counter(metricBlameSessionsTotal, "Blame sessions opened, by backend", "{session}"),
		commitDuration: b.histogram(metricCommitDuration, "Per-commit analysis duration", "s", durationBucketBoundaries...),
	}

	if b.err != nil {
		return nil, b.err
	}

	return am, nil
}

// RecordCommit records one commit's outcome, duration and line breakdown.
func (am *AnalysisMetrics) RecordCommit(ctx context.Context, elapsed time.Duration, lines LineCounts, err error) {
	if am == nil {
		return
	}

	status := metric.WithAttributes(attribute.String(attrStatus, statusOf(err)))
	am.commits.Add(ctx, 1, status)
	am.commitDuration.Record(ctx, elapsed.Seconds(), status)

	if err != nil {
		return
	}

	for kind, n := range map[string]uint64{
		"new_work":        lines.NewWork,
		"legacy_refactor": lines.LegacyRefactor,
		"churn":           lines.Churn,
		"help_others":     lines.HelpOthers,
		"other":           lines.Other,
	} {
		if n == 0 {
			continue
		}

		am.lines.Add(ctx, safeconv.Uint64ToInt64(n), metric.WithAttributes(attribute.String(attrKind, kind)))
	}
}

// RecordFile counts one file delta.
func (am *AnalysisMetrics) RecordFile(ctx context.Context, ignored bool) {
	if am == nil {
		return
	}

	am.files.Add(ctx, 1, metric.WithAttributes(attribute.Bool(attrIgnored, ignored)))
}

// RecordBlameSession counts one attempt to open a blame session.
func (am *AnalysisMetrics) RecordBlameSession(ctx context.Context, backend string, err error) {
	if am == nil {
		return
	}

	am.blameSessions.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrBackend, backend),
		attribute.String(attrStatus, statusOf(err)),
	))
}

func statusOf(err error) string {
	if err != nil {
		return statusError
	}

	return statusOK
}

// metricBuilder collects the first instrument creation error so a batch of
// instruments needs a single check.
type metricBuilder struct {
	meter metric.Meter
	err   error
}

func newMetricBuilder(mt metric.Meter) *metricBuilder {
	return &metricBuilder{meter: mt}
}

func (b *metricBuilder) counter(name, desc, unit string) metric.Int64Counter {
	c, err := b.meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit(unit))
	b.setErr(name, err)

	return c
}

func (b *metricBuilder) histogram(name, desc, unit string, bounds ...float64) metric.Float64Histogram {
	opts := []metric.Float64HistogramOption{
		metric.WithDescription(desc),
		metric.WithUnit(unit),
	}

	if len(bounds) > 0 {
		opts = append(opts, metric.WithExplicitBucketBoundaries(bounds...))
	}

	h, err := b.meter.Float64Histogram(name, opts...)
	b.setErr(name, err)

	return h
}

func (b *metricBuilder) setErr(name string, err error) {
	if err != nil && b.err == nil {
		b.err = fmt.Errorf("create %s: %w", name, err)
	}
}
