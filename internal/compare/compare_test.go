package compare

import (
	"testing"

	"tickphysics-lab/internal/performance"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompareValues(t *testing.T) {
	baseline := map[string]float64{
		performance.KeyWinRate:     50,
		performance.KeyMaxDrawdown: 100,
		performance.KeyGrossLoss:   -40,
		performance.KeyTotalTrades: 10,
		performance.KeyNetProfit:   0,
		"only_baseline":            1,
	}
	candidate := map[string]float64{
		performance.KeyWinRate:     60,
		performance.KeyMaxDrawdown: 120,
		performance.KeyGrossLoss:   -30,
		performance.KeyTotalTrades: 12,
		performance.KeyNetProfit:   0,
		"only_candidate":           1,
	}

	c := CompareValues(baseline, candidate)
	require.Len(t, c.Deltas, 5)

	// sorted by metric name
	names := make([]string, len(c.Deltas))
	for i, d := range c.Deltas {
		names[i] = d.Metric
	}
	assert.Equal(t, []string{"gross_loss", "max_drawdown", "net_profit", "total_trades", "win_rate"}, names)

	testCases := []struct {
		metric   string
		delta    float64
		deltaPct float64
		status   Status
	}{
		{performance.KeyWinRate, 10, 20, Improved},
		{performance.KeyMaxDrawdown, 20, 20, Regressed},
		{performance.KeyGrossLoss, 10, 25, Improved},
		{performance.KeyTotalTrades, 2, 20, Unchanged},
		{performance.KeyNetProfit, 0, 0, Unchanged},
	}
	for _, tc := range testCases {
		t.Run(tc.metric, func(t *testing.T) {
			d, ok := c.Find(tc.metric)
			require.True(t, ok)
			assert.Equal(t, tc.delta, d.Delta)
			assert.InDelta(t, tc.deltaPct, d.DeltaPct, 1e-9)
			assert.Equal(t, tc.status, d.Status)
		})
	}

	assert.Equal(t, 2, c.Improved)
	assert.Equal(t, 1, c.Regressed)

	_, ok := c.Find("only_baseline")
	assert.False(t, ok)
}

func TestCompare_DeltaIsCandidateMinusBaseline(t *testing.T) {
	base := performance.Summary{TotalTrades: 5, Wins: 3, Losses: 2, WinRate: 60, GrossProfit: 35, GrossLoss: -25, ProfitFactor: 1.4, MaxDrawdown: 20}
	cand := performance.Summary{TotalTrades: 4, Wins: 3, Losses: 1, WinRate: 75, GrossProfit: 40, GrossLoss: -10, ProfitFactor: 4, MaxDrawdown: 10}

	c := Compare(Run{Label: "v1", Summary: base}, Run{Label: "v2", Summary: cand})
	assert.Equal(t, "v1", c.Baseline)
	assert.Equal(t, "v2", c.Candidate)

	bv, cv := base.Values(), cand.Values()
	require.Len(t, c.Deltas, len(bv))
	for _, d := range c.Deltas {
		assert.Equal(t, cv[d.Metric]-bv[d.Metric], d.Delta, d.Metric)
	}

	losses, _ := c.Find(performance.KeyLosses)
	assert.Equal(t, Improved, losses.Status)
	dd, _ := c.Find(performance.KeyMaxDrawdown)
	assert.Equal(t, Improved, dd.Status)
}

func TestCompareMany(t *testing.T) {
	assert.Nil(t, CompareMany([]Run{{Label: "only"}}))

	runs := []Run{
		{Label: "base", Summary: performance.Summary{WinRate: 50}},
		{Label: "a", Summary: performance.Summary{WinRate: 55}},
		{Label: "b", Summary: performance.Summary{WinRate: 45}},
	}
	out := CompareMany(runs)
	require.Len(t, out, 2)
	assert.Equal(t, "base", out[0].Baseline)
	assert.Equal(t, "a", out[0].Candidate)
	assert.Equal(t, "b", out[1].Candidate)

	d, _ := out[1].Find(performance.KeyWinRate)
	assert.Equal(t, -5.0, d.Delta)
	assert.Equal(t, Regressed, d.Status)
}
