package report

import (
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/Sumatoshi-tech/codealong/pkg/workstats"
)

const (
	chartHeight = "600px"
	xAxisRotate = 30
)

type series struct {
	name  string
	color string
	value func(workstats.WorkStats) uint64
}

var kindSeries = []series{
	{"New work", "#5470c6", func(ws workstats.WorkStats) uint64 { return ws.NewWork }},
	{"Legacy refactor", "#91cc75", func(ws workstats.WorkStats) uint64 { return ws.LegacyRefactor }},
	{"Help others", "#fac858", func(ws workstats.WorkStats) uint64 { return ws.HelpOthers }},
	{"Churn", "#ee6666", func(ws workstats.WorkStats) uint64 { return ws.Churn }},
}

// ImpactChart builds a stacked bar chart of classified lines per tag, with
// the impact of each tag as a line on the same axis.
func ImpactChart(s *Summary) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: chartHeight, PageTitle: "codealong"}),
		charts.WithTitleOpts(opts.Title{Title: "Work by tag", Subtitle: "Lines by classification, stacked", Left: "center"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "8%", Left: "center"}),
		charts.WithGridOpts(opts.Grid{Top: "18%", ContainLabel: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{AxisLabel: &opts.AxisLabel{Rotate: xAxisRotate, Interval: "0"}}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Lines"}),
	)

	tags := s.Tags()
	bar.SetXAxis(tags)

	for _, sr := range kindSeries {
		data := make([]opts.BarData, len(tags))
		for i, tag := range tags {
			data[i] = opts.BarData{Value: sr.value(s.Totals.Tag(tag))}
		}

		bar.AddSeries(sr.name, data,
			charts.WithBarChartOpts(opts.BarChart{Stack: "lines"}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: sr.color}),
		)
	}

	impact := charts.NewLine()

	points := make([]opts.LineData, len(tags))
	for i, tag := range tags {
		points[i] = opts.LineData{Value: s.Totals.Tag(tag).Impact}
	}

	impact.SetXAxis(tags).AddSeries("Impact", points, charts.WithItemStyleOpts(opts.ItemStyle{Color: "#3ba272"}))
	bar.Overlap(impact)

	return bar
}

// RenderImpactChart writes ImpactChart(s) as a standalone HTML page.
func RenderImpactChart(w io.Writer, s *Summary) error {
	return ImpactChart(s).Render(w)
}
