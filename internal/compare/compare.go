// Package compare reports point differences between backtest runs.
package compare

import (
	"sort"

	"tickphysics-lab/internal/performance"
)

// Status classifies a delta.
type Status string

const (
	Improved  Status = "improved"
	Regressed Status = "regressed"
	Unchanged Status = "unchanged"
)

// lowerIsBetter lists metrics where a decrease is an improvement.
// gross_loss and avg_loss are stored as negative numbers, so moving them
// toward zero is already a positive delta and they stay higher-is-better.
var lowerIsBetter = map[string]bool{
	performance.KeyLosses:               true,
	performance.KeyMaxDrawdown:          true,
	performance.KeyMaxDrawdownPct:       true,
	performance.KeyMaxConsecutiveLosses: true,
	performance.KeyAvgMAE:               true,
}

// neutral metrics are reported but never classified.
var neutral = map[string]bool{
	performance.KeyTotalTrades: true,
	performance.KeyBreakeven:   true,
}

// Delta is the difference for one metric.
type Delta struct {
	Metric    string  `json:"metric"`
	Baseline  float64 `json:"baseline"`
	Candidate float64 `json:"candidate"`
	Delta     float64 `json:"delta"`     // candidate - baseline
	DeltaPct  float64 `json:"delta_pct"` // relative to |baseline|, 0 when baseline is 0
	Status    Status  `json:"status"`
}

// Comparison is baseline vs one candidate.
type Comparison struct {
	Baseline  string  `json:"baseline"`
	Candidate string  `json:"candidate"`
	Deltas    []Delta `json:"deltas"`
	Improved  int     `json:"improved"`
	Regressed int     `json:"regressed"`
}

// Run is a labelled summary.
type Run struct {
	Label   string
	Summary performance.Summary
}

// Compare diffs two summaries.
func Compare(baseline, candidate Run) Comparison {
	c := CompareValues(baseline.Summary.Values(), candidate.Summary.Values())
	c.Baseline = baseline.Label
	c.Candidate = candidate.Label
	return c
}

// CompareValues diffs every key present in both maps, in key order.
// Keys present on only one side are ignored.
func CompareValues(baseline, candidate map[string]float64) Comparison {
	keys := make([]string, 0, len(baseline))
	for k := range baseline {
		if _, ok := candidate[k]; ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var c Comparison
	c.Deltas = make([]Delta, 0, len(keys))
	for _, k := range keys {
		d := newDelta(k, baseline[k], candidate[k])
		switch d.Status {
		case Improved:
			c.Improved++
		case Regressed:
			c.Regressed++
		}
		c.Deltas = append(c.Deltas, d)
	}
	return c
}

// CompareMany diffs every run after the first against the first.
func CompareMany(runs []Run) []Comparison {
	if len(runs) < 2 {
		return nil
	}
	out := make([]Comparison, 0, len(runs)-1)
	for _, candidate := range runs[1:] {
		out = append(out, Compare(runs[0], candidate))
	}
	return out
}

// Find returns the delta for metric, if present.
func (c Comparison) Find(metric string) (Delta, bool) {
	for _, d := range c.Deltas {
		if d.Metric == metric {
			return d, true
		}
	}
	return Delta{}, false
}

func newDelta(metric string, baseline, candidate float64) Delta {
	d := Delta{
		Metric:    metric,
		Baseline:  baseline,
		Candidate: candidate,
		Delta:     candidate - baseline,
		Status:    Unchanged,
	}
	if baseline != 0 {
		abs := baseline
		if abs < 0 {
			abs = -abs
		}
		d.DeltaPct = d.Delta / abs * 100
	}

	if d.Delta == 0 || neutral[metric] {
		return d
	}
	better := d.Delta > 0
	if lowerIsBetter[metric] {
		better = !better
	}
	if better {
		d.Status = Improved
	} else {
		d.Status = Regressed
	}
	return d
}
