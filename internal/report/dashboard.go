package report

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sort"

	"tickphysics-lab/internal/performance"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// ErrNothingToPlot is returned when the dashboard is asked to render no runs.
var ErrNothingToPlot = errors.New("no runs to plot")

const (
	chartWidth  = "1100px"
	chartHeight = "420px"
)

// WriteDashboard renders a self-contained HTML page with the equity curves,
// exit reason breakdown, headline metrics and any sweeps of the given runs.
func WriteDashboard(w io.Writer, runs []RunReport) error {
	if len(runs) == 0 {
		return ErrNothingToPlot
	}

	page := components.NewPage()
	page.PageTitle = "TickPhysics backtest dashboard"
	page.AddCharts(equityChart(runs), exitReasonChart(runs), headlineChart(runs))
	if c := skipReasonChart(runs); c != nil {
		page.AddCharts(c)
	}
	for _, run := range runs {
		for _, sweep := range run.Sweeps {
			page.AddCharts(sweepChart(run.Label, sweep))
		}
	}
	return page.Render(w)
}

func initOpts(title, subtitle string) []charts.GlobalOpts {
	return []charts.GlobalOpts{
		charts.WithInitializationOpts(opts.Initialization{Width: chartWidth, Height: chartHeight}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "axis"}),
	}
}

func equityChart(runs []RunReport) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(initOpts("Equity curve", "cumulative profit per closed trade")...)
	line.SetGlobalOptions(
		charts.WithXAxisOpts(opts.XAxis{Name: "trade"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "profit"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider"}),
	)

	longest := 0
	for _, run := range runs {
		if len(run.Equity) > longest {
			longest = len(run.Equity)
		}
	}
	axis := make([]int, longest)
	for i := range axis {
		axis[i] = i + 1
	}
	line.SetXAxis(axis)

	for _, run := range runs {
		data := make([]opts.LineData, len(run.Equity))
		for i, p := range run.Equity {
			data[i] = opts.LineData{Value: round2(p.Equity)}
		}
		line.AddSeries(run.Label, data)
	}
	return line
}

func exitReasonChart(runs []RunReport) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(initOpts("Profit by exit reason", "")...)

	reasons := bucketKeys(runs, func(r RunReport) []performance.Bucket { return r.Summary.ByExitReason })
	bar.SetXAxis(reasons)
	for _, run := range runs {
		byKey := make(map[string]float64, len(run.Summary.ByExitReason))
		for _, b := range run.Summary.ByExitReason {
			byKey[b.Key] = b.Profit
		}
		data := make([]opts.BarData, len(reasons))
		for i, k := range reasons {
			data[i] = opts.BarData{Value: round2(byKey[k])}
		}
		bar.AddSeries(run.Label, data)
	}
	return bar
}

var headlineMetrics = []string{
	performance.KeyWinRate,
	performance.KeyMaxDrawdownPct,
	performance.KeyProfitFactor,
	performance.KeyExpectancy,
}

func headlineChart(runs []RunReport) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(initOpts("Headline metrics", "win rate and drawdown in percent")...)
	bar.SetXAxis(headlineMetrics)
	for _, run := range runs {
		values := run.Summary.Values()
		data := make([]opts.BarData, len(headlineMetrics))
		for i, k := range headlineMetrics {
			data[i] = opts.BarData{Value: round2(values[k])}
		}
		bar.AddSeries(run.Label, data)
	}
	return bar
}

func skipReasonChart(runs []RunReport) *charts.Bar {
	reasons := bucketKeys(runs, func(r RunReport) []performance.Bucket {
		if r.Signals == nil {
			return nil
		}
		return r.Signals.BySkip
	})
	if len(reasons) == 0 {
		return nil
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(initOpts("Skipped signals", "count by skip reason")...)
	bar.SetXAxis(reasons)
	for _, run := range runs {
		if run.Signals == nil {
			continue
		}
		byKey := make(map[string]int, len(run.Signals.BySkip))
		for _, b := range run.Signals.BySkip {
			byKey[b.Key] = b.Count
		}
		data := make([]opts.BarData, len(reasons))
		for i, k := range reasons {
			data[i] = opts.BarData{Value: byKey[k]}
		}
		bar.AddSeries(run.Label, data)
	}
	return bar
}

func sweepChart(label string, sweep Sweep) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(initOpts(fmt.Sprintf("%s: minimum %s", label, sweep.Metric), "net profit and win rate of the trades kept")...)
	line.SetGlobalOptions(charts.WithXAxisOpts(opts.XAxis{Name: sweep.Metric}))

	axis := make([]string, len(sweep.Rows))
	net := make([]opts.LineData, len(sweep.Rows))
	winRate := make([]opts.LineData, len(sweep.Rows))
	kept := make([]opts.LineData, len(sweep.Rows))
	for i, row := range sweep.Rows {
		axis[i] = fmt.Sprintf("%.2f", row.Threshold)
		net[i] = opts.LineData{Value: round2(row.Summary.NetProfit)}
		winRate[i] = opts.LineData{Value: round2(row.Summary.WinRate)}
		kept[i] = opts.LineData{Value: row.Kept}
	}
	line.SetXAxis(axis).
		AddSeries("net profit", net).
		AddSeries("win rate %", winRate).
		AddSeries("trades", kept)
	return line
}

// bucketKeys returns the sorted union of bucket keys over all runs.
func bucketKeys(runs []RunReport, buckets func(RunReport) []performance.Bucket) []string {
	seen := make(map[string]bool)
	var keys []string
	for _, run := range runs {
		for _, b := range buckets(run) {
			if !seen[b.Key] {
				seen[b.Key] = true
				keys = append(keys, b.Key)
			}
		}
	}
	sort.Strings(keys)
	return keys
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
