package performance

import (
	"sort"
	"time"

	"tickphysics-lab/internal/tradelog"

	"github.com/shopspring/decimal"
)

// EquityPoint is one step of the cumulative profit curve.
type EquityPoint struct {
	Time     time.Time `json:"time"`
	Equity   float64   `json:"equity"`
	Drawdown float64   `json:"drawdown"` // distance below the running peak, >= 0
}

// EquityCurve returns the running cumulative profit after each trade.
func EquityCurve(trades []tradelog.Trade) []EquityPoint {
	points := make([]EquityPoint, 0, len(trades))
	equity := decimal.Zero
	peak := decimal.Zero
	for _, t := range trades {
		equity = equity.Add(decimal.NewFromFloat(finite(t.Profit)))
		if equity.GreaterThan(peak) {
			peak = equity
		}
		points = append(points, EquityPoint{
			Time:     t.Time(),
			Equity:   equity.InexactFloat64(),
			Drawdown: peak.Sub(equity).InexactFloat64(),
		})
	}
	return points
}

// SignalSummary aggregates an EA signal log.
type SignalSummary struct {
	Total    int      `json:"total"`
	Buys     int      `json:"buys"`
	Sells    int      `json:"sells"`
	Skips    int      `json:"skips"`
	SkipRate float64  `json:"skip_rate"` // percent
	BySkip   []Bucket `json:"by_skip_reason"`
}

// SummarizeSignals counts decisions and breaks skips down by reason.
// Bucket.Wins and profit fields are unused for signals.
func SummarizeSignals(signals []tradelog.Signal) SignalSummary {
	s := SignalSummary{Total: len(signals)}
	reasons := make(map[string]int)
	for _, sig := range signals {
		switch sig.Action {
		case tradelog.SignalBuy:
			s.Buys++
		case tradelog.SignalSell:
			s.Sells++
		case tradelog.SignalSkip:
			s.Skips++
			reason := sig.SkipReason
			if reason == "" {
				reason = tradelog.ExitUnknown
			}
			reasons[reason]++
		}
	}
	s.SkipRate = percent(s.Skips, s.Total)

	s.BySkip = make([]Bucket, 0, len(reasons))
	for reason, n := range reasons {
		s.BySkip = append(s.BySkip, Bucket{Key: reason, Count: n})
	}
	sort.Slice(s.BySkip, func(i, j int) bool {
		if s.BySkip[i].Count != s.BySkip[j].Count {
			return s.BySkip[i].Count > s.BySkip[j].Count
		}
		return s.BySkip[i].Key < s.BySkip[j].Key
	})
	return s
}

// SweepRow is the result of filtering trades at one threshold.
type SweepRow struct {
	Threshold float64 `json:"threshold"`
	Kept      int     `json:"kept"`
	Summary   Summary `json:"summary"`
}

// ThresholdSweep answers "what if the EA had required metric >= threshold at
// entry". Trades without a value for the metric are left out of every row.
// Thresholds are reported in ascending order.
func ThresholdSweep(trades []tradelog.Trade, metric string, thresholds []float64, opts Options) []SweepRow {
	sorted := append([]float64(nil), thresholds...)
	sort.Float64s(sorted)

	rows := make([]SweepRow, 0, len(sorted))
	for _, threshold := range sorted {
		kept := make([]tradelog.Trade, 0, len(trades))
		for _, t := range trades {
			if v, ok := t.Physics.Value(metric); ok && v >= threshold {
				kept = append(kept, t)
			}
		}
		rows = append(rows, SweepRow{
			Threshold: threshold,
			Kept:      len(kept),
			Summary:   Calculate(kept, opts),
		})
	}
	return rows
}

// DefaultThresholds spreads count thresholds evenly between the smallest and
// largest observed value of metric. Nil when no trade carries the metric.
func DefaultThresholds(trades []tradelog.Trade, metric string, count int) []float64 {
	if count < 2 {
		count = 2
	}
	var lo, hi float64
	seen := false
	for _, t := range trades {
		v, ok := t.Physics.Value(metric)
		if !ok {
			continue
		}
		if !seen || v < lo {
			lo = v
		}
		if !seen || v > hi {
			hi = v
		}
		seen = true
	}
	if !seen {
		return nil
	}
	if lo == hi {
		return []float64{lo}
	}

	step := (hi - lo) / float64(count-1)
	out := make([]float64, count)
	for i := range out {
		out[i] = lo + step*float64(i)
	}
	return out
}
