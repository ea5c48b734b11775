// Package validate cross-checks CSV-derived metrics against an MT5 strategy
// tester report or a second trade log. Mismatches are informational.
package validate

import (
	"fmt"
	"math"
	"os"

	"tickphysics-lab/internal/performance"
	"tickphysics-lab/internal/tradelog"

	"gopkg.in/yaml.v3"
)

// Tolerance holds the absolute tolerances per metric kind.
type Tolerance struct {
	Money   float64 // currency amounts
	Percent float64 // percentage points
	Ratio   float64 // profit factor
}

// DefaultTolerance matches what the manual MT5 transcriptions can support.
var DefaultTolerance = Tolerance{Money: 0.50, Percent: 1.0, Ratio: 0.01}

// Reference holds the MT5 report totals. Nil fields are not checked.
type Reference struct {
	Name           string   `yaml:"name"`
	TotalTrades    *float64 `yaml:"total_trades"`
	Wins           *float64 `yaml:"wins"`
	Losses         *float64 `yaml:"losses"`
	WinRate        *float64 `yaml:"win_rate"`
	GrossProfit    *float64 `yaml:"gross_profit"`
	GrossLoss      *float64 `yaml:"gross_loss"`
	NetProfit      *float64 `yaml:"net_profit"`
	ProfitFactor   *float64 `yaml:"profit_factor"`
	MaxDrawdown    *float64 `yaml:"max_drawdown"`
	MaxDrawdownPct *float64 `yaml:"max_drawdown_pct"`
}

// LoadReference reads a hand-transcribed MT5 report from YAML.
func LoadReference(path string) (*Reference, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read reference: %w", err)
	}
	var ref Reference
	if err := yaml.Unmarshal(data, &ref); err != nil {
		return nil, fmt.Errorf("parse reference %s: %w", path, err)
	}
	return &ref, nil
}

// ReferenceFromSummary turns a second run's summary into a reference, for
// cross-checking two CSV exports of the same backtest.
func ReferenceFromSummary(name string, s performance.Summary) *Reference {
	f := func(v float64) *float64 { return &v }
	return &Reference{
		Name:           name,
		TotalTrades:    f(float64(s.TotalTrades)),
		Wins:           f(float64(s.Wins)),
		Losses:         f(float64(s.Losses)),
		WinRate:        f(s.WinRate),
		GrossProfit:    f(s.GrossProfit),
		GrossLoss:      f(s.GrossLoss),
		NetProfit:      f(s.NetProfit),
		ProfitFactor:   f(s.ProfitFactor),
		MaxDrawdown:    f(s.MaxDrawdown),
		MaxDrawdownPct: f(s.MaxDrawdownPct),
	}
}

// Result is the outcome for one metric.
type Result struct {
	Metric    string  `json:"metric"`
	Expected  float64 `json:"expected"`
	Actual    float64 `json:"actual"`
	Diff      float64 `json:"diff"` // actual - expected
	Tolerance float64 `json:"tolerance"`
	Match     bool    `json:"match"`
}

// Report is the outcome of a validation run.
type Report struct {
	Reference string   `json:"reference"`
	Results   []Result `json:"results"`
	Checked   int      `json:"checked"`
	Matched   int      `json:"matched"`
	Accuracy  float64  `json:"accuracy"` // percent of checked metrics that matched
}

// Mismatches returns the failing results.
func (r Report) Mismatches() []Result {
	var out []Result
	for _, res := range r.Results {
		if !res.Match {
			out = append(out, res)
		}
	}
	return out
}

// Check compares s against every metric set in ref. Counts must match
// exactly. MT5 prints gross loss either signed or unsigned; both are accepted.
func Check(s performance.Summary, ref *Reference, tol Tolerance) Report {
	report := Report{Reference: ref.Name}

	add := func(metric string, expected *float64, actual, tolerance float64) {
		if expected == nil {
			return
		}
		diff := actual - *expected
		match := math.Abs(diff) <= tolerance+1e-9
		report.Results = append(report.Results, Result{
			Metric:    metric,
			Expected:  *expected,
			Actual:    actual,
			Diff:      diff,
			Tolerance: tolerance,
			Match:     match,
		})
		report.Checked++
		if match {
			report.Matched++
		}
	}

	grossLoss := ref.GrossLoss
	if grossLoss != nil && *grossLoss > 0 {
		neg := -*grossLoss
		grossLoss = &neg
	}

	add(performance.KeyTotalTrades, ref.TotalTrades, float64(s.TotalTrades), 0)
	add(performance.KeyWins, ref.Wins, float64(s.Wins), 0)
	add(performance.KeyLosses, ref.Losses, float64(s.Losses), 0)
	add(performance.KeyWinRate, ref.WinRate, s.WinRate, tol.Percent)
	add(performance.KeyGrossProfit, ref.GrossProfit, s.GrossProfit, tol.Money)
	add(performance.KeyGrossLoss, grossLoss, s.GrossLoss, tol.Money)
	add(performance.KeyNetProfit, ref.NetProfit, s.NetProfit, tol.Money)
	add(performance.KeyProfitFactor, ref.ProfitFactor, s.ProfitFactor, tol.Ratio)
	add(performance.KeyMaxDrawdown, ref.MaxDrawdown, s.MaxDrawdown, tol.Money)
	add(performance.KeyMaxDrawdownPct, ref.MaxDrawdownPct, s.MaxDrawdownPct, tol.Percent)

	if report.Checked > 0 {
		report.Accuracy = float64(report.Matched*100) / float64(report.Checked)
	}
	return report
}

// TradeMismatch is a trade whose profit differs between two logs.
type TradeMismatch struct {
	Index   int     `json:"index"`
	Time    string  `json:"time"`
	ProfitA float64 `json:"profit_a"`
	ProfitB float64 `json:"profit_b"`
	Diff    float64 `json:"diff"`
	Reason  string  `json:"reason"`
}

// LogDiff is the row-level comparison of two trade logs of the same run.
type LogDiff struct {
	CountA     int             `json:"count_a"`
	CountB     int             `json:"count_b"`
	Compared   int             `json:"compared"`
	Mismatches []TradeMismatch `json:"mismatches"`
	Accuracy   float64         `json:"accuracy"`
}

// CompareTradeLogs pairs trades by position (both logs ordered by close time)
// and flags profit differences above the money tolerance.
func CompareTradeLogs(a, b []tradelog.Trade, tol Tolerance) LogDiff {
	diff := LogDiff{CountA: len(a), CountB: len(b)}
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	diff.Compared = n

	for i := 0; i < n; i++ {
		d := b[i].Profit - a[i].Profit
		var reason string
		switch {
		case math.Abs(d) > tol.Money+1e-9:
			reason = "profit"
		case a[i].ExitReason != b[i].ExitReason:
			reason = "exit reason"
		default:
			continue
		}
		diff.Mismatches = append(diff.Mismatches, TradeMismatch{
			Index:   i,
			Time:    a[i].Time().Format("2006.01.02 15:04"),
			ProfitA: a[i].Profit,
			ProfitB: b[i].Profit,
			Diff:    d,
			Reason:  reason,
		})
	}

	if n > 0 {
		diff.Accuracy = float64((n-len(diff.Mismatches))*100) / float64(n)
	}
	return diff
}
