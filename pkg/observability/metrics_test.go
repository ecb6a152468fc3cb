package observability_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/Sumatoshi-tech/codealong/pkg/observability"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()

	var rm metricdata.ResourceMetrics

	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := map[string]metricdata.Aggregation{}

	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}

	return out
}

func sumOf(t *testing.T, agg metricdata.Aggregation) int64 {
	t.Helper()

	sum, ok := agg.(metricdata.Sum[int64])
	require.True(t, ok)

	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}

	return total
}

func TestAnalysisMetrics_RecordCommit(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	am, err := observability.NewAnalysisMetrics(mp.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	am.RecordCommit(ctx, 20*time.Millisecond, observability.LineCounts{NewWork: 3, Churn: 1}, nil)
	am.RecordCommit(ctx, time.Millisecond, observability.LineCounts{NewWork: 100}, errors.New("boom"))
	am.RecordFile(ctx, true)
	am.RecordBlameSession(ctx, "process", nil)

	data := collect(t, reader)
	assert.Equal(t, int64(2), sumOf(t, data["codealong.analysis.commits.total"]))
	assert.Equal(t, int64(4), sumOf(t, data["codealong.analysis.lines.total"]))
	assert.Equal(t, int64(1), sumOf(t, data["codealong.analysis.files.total"]))
	assert.Equal(t, int64(1), sumOf(t, data["codealong.analysis.blame.sessions.total"]))

	hist, ok := data["codealong.analysis.commit.duration.seconds"].(metricdata.Histogram[float64])
	require.True(t, ok)

	var count uint64
	for _, dp := range hist.DataPoints {
		count += dp.Count
	}

	assert.Equal(t, uint64(2), count)
}

func TestAnalysisMetrics_NilReceiver(t *testing.T) {
	t.Parallel()

	var am *observability.AnalysisMetrics

	assert.NotPanics(t, func() {
		am.RecordCommit(context.Background(), time.Second, observability.LineCounts{}, nil)
		am.RecordFile(context.Background(), false)
		am.RecordBlameSession(context.Background(), "native", errors.New("x"))
	})
}
