// Package report renders metrics as console tables, markdown, JSON and an
// HTML dashboard. It holds no business logic.
package report

import (
	"fmt"
	"io"
	"text/tabwriter"

	"tickphysics-lab/internal/compare"
	"tickphysics-lab/internal/performance"
	"tickphysics-lab/internal/validate"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// WriteSummaryTable prints the headline metrics and the exit reason and
// direction breakdowns for one run.
func WriteSummaryTable(w io.Writer, label string, s performance.Summary) error {
	fmt.Fprintf(w, "== %s ==\n", label)
	if s.TotalTrades == 0 {
		_, err := fmt.Fprintln(w, "no trades")
		return err
	}

	tw := newTable(w)
	rows := [][2]string{
		{"Trades", fmt.Sprintf("%d (%d W / %d L / %d BE)", s.TotalTrades, s.Wins, s.Losses, s.Breakeven)},
		{"Period", fmt.Sprintf("%s → %s", s.FirstTrade.Format("2006-01-02"), s.LastTrade.Format("2006-01-02"))},
		{"Win rate", pct(s.WinRate)},
		{"Net profit", money(s.NetProfit)},
		{"Gross profit", money(s.GrossProfit)},
		{"Gross loss", money(s.GrossLoss)},
		{"Profit factor", ratio(s.ProfitFactor)},
		{"Avg win / loss", money(s.AvgWin) + " / " + money(s.AvgLoss)},
		{"Largest win / loss", money(s.LargestWin) + " / " + money(s.LargestLoss)},
		{"Expectancy", money(s.Expectancy)},
		{"Max drawdown", fmt.Sprintf("%s (%s)", money(s.MaxDrawdown), pct(s.MaxDrawdownPct))},
		{"Streaks W / L", fmt.Sprintf("%d / %d", s.MaxConsecutiveWins, s.MaxConsecutiveLosses)},
		{"Total pips", fmt.Sprintf("%.1f", s.TotalPips)},
		{"Avg duration", s.AvgDuration.String()},
	}
	if s.AvgMFE != 0 || s.AvgMAE != 0 {
		rows = append(rows, [2]string{"Avg MFE / MAE pips", fmt.Sprintf("%.1f / %.1f", s.AvgMFE, s.AvgMAE)})
	}
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\n", r[0], r[1])
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if err := writeBuckets(w, "Exit reason", s.ByExitReason); err != nil {
		return err
	}
	return writeBuckets(w, "Direction", s.ByDirection)
}

func writeBuckets(w io.Writer, title string, buckets []performance.Bucket) error {
	if len(buckets) == 0 {
		return nil
	}
	fmt.Fprintln(w)
	tw := newTable(w)
	fmt.Fprintf(tw, "%s\tCount\tWin%%\tProfit\tAvg\n", title)
	for _, b := range buckets {
		fmt.Fprintf(tw, "%s\t%d\t%.1f\t%.2f\t%.2f\n", b.Key, b.Count, b.WinRate, b.Profit, b.AvgProfit)
	}
	return tw.Flush()
}

// WriteSignalTable prints the signal log breakdown.
func WriteSignalTable(w io.Writer, s performance.SignalSummary) error {
	fmt.Fprintf(w, "\nSignals: %d evaluated, %d BUY, %d SELL, %d SKIP (%s skipped)\n",
		s.Total, s.Buys, s.Sells, s.Skips, pct(s.SkipRate))
	if len(s.BySkip) == 0 {
		return nil
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "Skip reason\tCount\tShare")
	for _, b := range s.BySkip {
		share := 0.0
		if s.Skips > 0 {
			share = float64(b.Count*100) / float64(s.Skips)
		}
		fmt.Fprintf(tw, "%s\t%d\t%.1f%%\n", b.Key, b.Count, share)
	}
	return tw.Flush()
}

// WriteSweepTable prints a threshold sweep for one physics metric.
func WriteSweepTable(w io.Writer, metric string, rows []performance.SweepRow) error {
	fmt.Fprintf(w, "\nEntry filter sweep: %s\n", metric)
	tw := newTable(w)
	fmt.Fprintln(tw, "Min\tTrades\tWin%\tPF\tNet\tMaxDD")
	for _, r := range rows {
		fmt.Fprintf(tw, "%.2f\t%d\t%.1f\t%.2f\t%.2f\t%.2f\n",
			r.Threshold, r.Kept, r.Summary.WinRate, r.Summary.ProfitFactor, r.Summary.NetProfit, r.Summary.MaxDrawdown)
	}
	return tw.Flush()
}

// WriteComparisonTable prints baseline vs candidate deltas.
func WriteComparisonTable(w io.Writer, c compare.Comparison) error {
	fmt.Fprintf(w, "\n== %s vs %s ==\n", c.Candidate, c.Baseline)
	tw := newTable(w)
	fmt.Fprintf(tw, "Metric\t%s\t%s\tDelta\tDelta%%\t\n", c.Baseline, c.Candidate)
	for _, d := range c.Deltas {
		fmt.Fprintf(tw, "%s\t%.2f\t%.2f\t%+.2f\t%+.1f%%\t%s\n",
			d.Metric, d.Baseline, d.Candidate, d.Delta, d.DeltaPct, statusMark(d.Status))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%d improved, %d regressed\n", c.Improved, c.Regressed)
	return err
}

// WriteValidation prints per-metric match results and the accuracy.
func WriteValidation(w io.Writer, r validate.Report) error {
	name := r.Reference
	if name == "" {
		name = "reference"
	}
	fmt.Fprintf(w, "== Validation against %s ==\n", name)
	tw := newTable(w)
	fmt.Fprintln(tw, "Metric\tExpected\tActual\tDiff\tTol\t")
	for _, res := range r.Results {
		mark := "OK"
		if !res.Match {
			mark = "MISMATCH"
		}
		fmt.Fprintf(tw, "%s\t%.2f\t%.2f\t%+.2f\t%.2f\t%s\n",
			res.Metric, res.Expected, res.Actual, res.Diff, res.Tolerance, mark)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Accuracy: %d/%d metrics (%s)\n", r.Matched, r.Checked, pct(r.Accuracy))
	return err
}

// WriteLogDiff prints the trade-by-trade cross-check of two logs.
func WriteLogDiff(w io.Writer, d validate.LogDiff) error {
	fmt.Fprintf(w, "\nTrade-level check: %d vs %d trades, %d compared\n", d.CountA, d.CountB, d.Compared)
	if d.CountA != d.CountB {
		fmt.Fprintf(w, "WARNING: trade counts differ by %d\n", d.CountB-d.CountA)
	}
	if len(d.Mismatches) > 0 {
		tw := newTable(w)
		fmt.Fprintln(tw, "#\tClose\tProfit A\tProfit B\tDiff\tReason")
		for _, m := range d.Mismatches {
			fmt.Fprintf(tw, "%d\t%s\t%.2f\t%.2f\t%+.2f\t%s\n", m.Index+1, m.Time, m.ProfitA, m.ProfitB, m.Diff, m.Reason)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "Trade accuracy: %s\n", pct(d.Accuracy))
	return err
}

func statusMark(s compare.Status) string {
	switch s {
	case compare.Improved:
		return "▲"
	case compare.Regressed:
		return "▼"
	}
	return ""
}

func money(v float64) string { return fmt.Sprintf("$%.2f", v) }
func pct(v float64) string   { return fmt.Sprintf("%.1f%%", v) }
func ratio(v float64) string { return fmt.Sprintf("%.2f", v) }
