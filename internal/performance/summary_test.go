package performance

import (
	"math"
	"testing"
	"time"

	"tickphysics-lab/internal/tradelog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)

func tradesFromProfits(profits ...float64) []tradelog.Trade {
	trades := make([]tradelog.Trade, len(profits))
	for i, p := range profits {
		trades[i] = tradelog.Trade{
			OpenTime:   t0.Add(time.Duration(i) * time.Hour),
			CloseTime:  t0.Add(time.Duration(i)*time.Hour + 30*time.Minute),
			Direction:  tradelog.Buy,
			Profit:     p,
			ExitReason: tradelog.ExitTakeProfit,
		}
		if p < 0 {
			trades[i].Direction = tradelog.Sell
			trades[i].ExitReason = tradelog.ExitStopLoss
		}
	}
	return trades
}

func ptr(v float64) *float64 { return &v }

func TestCalculate_MixedOutcomes(t *testing.T) {
	s := Calculate(tradesFromProfits(10, -5, 20, -20, 5), Options{})

	assert.Equal(t, 5, s.TotalTrades)
	assert.Equal(t, 3, s.Wins)
	assert.Equal(t, 2, s.Losses)
	assert.Equal(t, 60.0, s.WinRate)
	assert.Equal(t, 35.0, s.GrossProfit)
	assert.Equal(t, -25.0, s.GrossLoss)
	assert.Equal(t, 10.0, s.NetProfit)
	assert.Equal(t, 1.4, s.ProfitFactor)
	assert.InDelta(t, 35.0/3, s.AvgWin, 1e-9)
	assert.Equal(t, -12.5, s.AvgLoss)
	assert.Equal(t, 20.0, s.LargestWin)
	assert.Equal(t, -20.0, s.LargestLoss)
	assert.Equal(t, 2.0, s.Expectancy)
	// equity 10, 5, 25, 5, 10 -> peak 25, trough 5
	assert.Equal(t, 20.0, s.MaxDrawdown)
	assert.Equal(t, 30*time.Minute, s.AvgDuration)
}

func TestCalculate_Edges(t *testing.T) {
	testCases := []struct {
		name    string
		profits []float64
		check   func(t *testing.T, s Summary)
	}{
		{
			name:    "no trades",
			profits: nil,
			check: func(t *testing.T, s Summary) {
				assert.Equal(t, Summary{}, s)
			},
		},
		{
			name:    "no losses gives zero profit factor",
			profits: []float64{5, 10},
			check: func(t *testing.T, s Summary) {
				assert.Equal(t, 0.0, s.ProfitFactor)
				assert.Equal(t, 100.0, s.WinRate)
				assert.Equal(t, 0.0, s.MaxDrawdown)
			},
		},
		{
			name:    "only losses",
			profits: []float64{-5, -10},
			check: func(t *testing.T, s Summary) {
				assert.Equal(t, 0.0, s.ProfitFactor)
				assert.Equal(t, 0.0, s.WinRate)
				assert.Equal(t, 15.0, s.MaxDrawdown, "drawdown counts from the zero starting peak")
				assert.Equal(t, 2, s.MaxConsecutiveLosses)
			},
		},
		{
			name:    "breakeven trades are neither wins nor losses",
			profits: []float64{0, 3, 0, -1},
			check: func(t *testing.T, s Summary) {
				assert.Equal(t, 2, s.Breakeven)
				assert.Equal(t, 25.0, s.WinRate)
			},
		},
		{
			name:    "streaks",
			profits: []float64{1, 2, 3, -1, -1, 4, -2, -2, -2, -2},
			check: func(t *testing.T, s Summary) {
				assert.Equal(t, 3, s.MaxConsecutiveWins)
				assert.Equal(t, 4, s.MaxConsecutiveLosses)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := Calculate(tradesFromProfits(tc.profits...), Options{})
			tc.check(t, s)
		})
	}
}

func TestCalculate_Invariants(t *testing.T) {
	inputs := [][]float64{
		{10, -5, 20, -20, 5},
		{0, 0, 0},
		{-1, -2, 3, 0, 7.25, -0.75},
		{100},
	}
	for _, profits := range inputs {
		s := Calculate(tradesFromProfits(profits...), Options{InitialBalance: 1000})
		assert.Equal(t, len(profits), s.Wins+s.Losses+s.Breakeven)
		assert.GreaterOrEqual(t, s.MaxDrawdown, 0.0)
		assert.GreaterOrEqual(t, s.MaxDrawdownPct, 0.0)
		assert.LessOrEqual(t, s.GrossLoss, 0.0)
		if s.GrossLoss == 0 {
			assert.Equal(t, 0.0, s.ProfitFactor)
		} else {
			assert.InDelta(t, s.GrossProfit/-s.GrossLoss, s.ProfitFactor, 1e-9)
		}
	}
}

func TestCalculate_DrawdownPct(t *testing.T) {
	s := Calculate(tradesFromProfits(100, -50), Options{InitialBalance: 900})
	assert.Equal(t, 50.0, s.MaxDrawdown)
	// peak equity was 900 + 100
	assert.InDelta(t, 5.0, s.MaxDrawdownPct, 1e-9)
}

func TestCalculate_BreakdownsAndExcursions(t *testing.T) {
	trades := tradesFromProfits(10, -5, 20, -20, 5)
	trades[0].Excursion = tradelog.Excursion{MFEPips: ptr(12), MAEPips: ptr(2)}
	trades[1].Excursion = tradelog.Excursion{MFEPips: ptr(4), MAEPips: ptr(8)}
	trades[2].ExitReason = tradelog.ExitReversal
	trades[0].Pips = 10
	trades[1].Pips = -5

	s := Calculate(trades, Options{})
	assert.Equal(t, 8.0, s.AvgMFE)
	assert.Equal(t, 5.0, s.AvgMAE)
	assert.Equal(t, 5.0, s.TotalPips)

	require.Len(t, s.ByExitReason, 3)
	assert.Equal(t, Bucket{Key: "REVERSAL", Count: 1, Wins: 1, WinRate: 100, Profit: 20, AvgProfit: 20}, s.ByExitReason[0])
	assert.Equal(t, "SL", s.ByExitReason[1].Key)
	assert.Equal(t, 2, s.ByExitReason[1].Count)
	assert.Equal(t, -25.0, s.ByExitReason[1].Profit)
	assert.Equal(t, "TP", s.ByExitReason[2].Key)
	assert.Equal(t, 15.0, s.ByExitReason[2].Profit)

	require.Len(t, s.ByDirection, 2)
	assert.Equal(t, "BUY", s.ByDirection[0].Key)
	assert.Equal(t, 3, s.ByDirection[0].Count)
}

func TestSummaryValues(t *testing.T) {
	s := Calculate(tradesFromProfits(10, -5, 20, -20, 5), Options{})
	v := s.Values()
	assert.Equal(t, 5.0, v[KeyTotalTrades])
	assert.Equal(t, 60.0, v[KeyWinRate])
	assert.Equal(t, 1.4, v[KeyProfitFactor])
	assert.Equal(t, 20.0, v[KeyMaxDrawdown])
	assert.Len(t, v, 21)
}

func TestCalculate_NonFiniteAmountsCountAsZero(t *testing.T) {
	trades := tradesFromProfits(10, math.NaN(), -5, math.Inf(1))
	trades[0].Pips = math.Inf(-1)

	var s Summary
	require.NotPanics(t, func() { s = Calculate(trades, Options{InitialBalance: math.NaN()}) })
	assert.Equal(t, 4, s.TotalTrades)
	assert.Equal(t, 1, s.Wins)
	assert.Equal(t, 1, s.Losses)
	assert.Equal(t, 2, s.Breakeven)
	assert.Equal(t, 5.0, s.NetProfit)
	assert.Equal(t, 10.0, s.LargestWin)
	assert.Equal(t, 0.0, s.TotalPips)

	require.NotPanics(t, func() { GroupBy(trades, func(tradelog.Trade) string { return "all" }) })
	curve := EquityCurve(trades)
	require.Len(t, curve, 4)
	assert.Equal(t, 5.0, curve[3].Equity)
}
