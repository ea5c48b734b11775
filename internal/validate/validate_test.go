package validate

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"tickphysics-lab/internal/performance"
	"tickphysics-lab/internal/tradelog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var summary = performance.Summary{
	TotalTrades:  5,
	Wins:         3,
	Losses:       2,
	WinRate:      60,
	GrossProfit:  35,
	GrossLoss:    -25,
	NetProfit:    10,
	ProfitFactor: 1.4,
	MaxDrawdown:  20,
}

func TestCheck_AllMatch(t *testing.T) {
	ref := ReferenceFromSummary("csv", summary)
	report := Check(summary, ref, DefaultTolerance)

	assert.Equal(t, "csv", report.Reference)
	assert.Equal(t, 10, report.Checked)
	assert.Equal(t, 10, report.Matched)
	assert.Equal(t, 100.0, report.Accuracy)
	assert.Empty(t, report.Mismatches())
}

func TestCheck_Tolerances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mt5.yml")
	content := `
name: MT5 EURUSD M5 2025-03
total_trades: 6
wins: 3
losses: 2
win_rate: 60.9
gross_profit: 35.49
gross_loss: 25.60
net_profit: 9.40
profit_factor: 1.405
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	ref, err := LoadReference(path)
	require.NoError(t, err)
	assert.Equal(t, "MT5 EURUSD M5 2025-03", ref.Name)
	assert.Nil(t, ref.MaxDrawdown)

	report := Check(summary, ref, DefaultTolerance)
	assert.Equal(t, 8, report.Checked)

	results := make(map[string]Result)
	for _, r := range report.Results {
		results[r.Metric] = r
	}

	testCases := []struct {
		metric string
		match  bool
	}{
		{performance.KeyTotalTrades, false}, // counts are exact
		{performance.KeyWins, true},
		{performance.KeyWinRate, true},      // 0.9 pp
		{performance.KeyGrossProfit, true},  // $0.49
		{performance.KeyGrossLoss, false},   // unsigned in report, $0.60 off
		{performance.KeyNetProfit, false},   // $0.60
		{performance.KeyProfitFactor, true}, // 0.005
	}
	for _, tc := range testCases {
		t.Run(tc.metric, func(t *testing.T) {
			r, ok := results[tc.metric]
			require.True(t, ok)
			assert.Equal(t, tc.match, r.Match)
		})
	}

	assert.Equal(t, -25.60, results[performance.KeyGrossLoss].Expected)
	assert.Equal(t, -1.0, results[performance.KeyTotalTrades].Diff)
	assert.Len(t, report.Mismatches(), 3)
	assert.Equal(t, 62.5, report.Accuracy)
}

func TestCheck_EmptyReference(t *testing.T) {
	report := Check(summary, &Reference{}, DefaultTolerance)
	assert.Equal(t, 0, report.Checked)
	assert.Equal(t, 0.0, report.Accuracy)
}

func TestLoadReference_Errors(t *testing.T) {
	_, err := LoadReference(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yml")
	require.NoError(t, os.WriteFile(path, []byte("wins: [1, 2"), 0o644))
	_, err = LoadReference(path)
	assert.Error(t, err)
}

func TestCompareTradeLogs(t *testing.T) {
	base := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)
	mk := func(profits []float64, reasons []string) []tradelog.Trade {
		out := make([]tradelog.Trade, len(profits))
		for i := range profits {
			out[i] = tradelog.Trade{CloseTime: base.Add(time.Duration(i) * time.Hour), Profit: profits[i], ExitReason: reasons[i]}
		}
		return out
	}

	a := mk([]float64{10, -5, 20, -20}, []string{"TP", "SL", "TP", "SL"})
	b := mk([]float64{10.3, -5, 21, -20, 5}, []string{"TP", "SL", "TP", "REVERSAL", "TP"})

	diff := CompareTradeLogs(a, b, DefaultTolerance)
	assert.Equal(t, 4, diff.CountA)
	assert.Equal(t, 5, diff.CountB)
	assert.Equal(t, 4, diff.Compared)
	require.Len(t, diff.Mismatches, 2)

	assert.Equal(t, 2, diff.Mismatches[0].Index)
	assert.Equal(t, "profit", diff.Mismatches[0].Reason)
	assert.InDelta(t, 1.0, diff.Mismatches[0].Diff, 1e-9)
	assert.Equal(t, "2025.03.03 11:00", diff.Mismatches[0].Time)

	assert.Equal(t, 3, diff.Mismatches[1].Index)
	assert.Equal(t, "exit reason", diff.Mismatches[1].Reason)
	assert.Equal(t, 50.0, diff.Accuracy)

	empty := CompareTradeLogs(nil, b, DefaultTolerance)
	assert.Equal(t, 0, empty.Compared)
	assert.Equal(t, 0.0, empty.Accuracy)
}
