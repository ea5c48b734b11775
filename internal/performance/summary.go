// Package performance derives backtest statistics from EA trade logs.
package performance

import (
	"math"
	"sort"
	"time"

	"tickphysics-lab/internal/tradelog"

	"github.com/shopspring/decimal"
)

// Metric keys used by Summary.Values, the comparator and the validator.
const (
	KeyTotalTrades          = "total_trades"
	KeyWins                 = "wins"
	KeyLosses               = "losses"
	KeyBreakeven            = "breakeven"
	KeyWinRate              = "win_rate"
	KeyGrossProfit          = "gross_profit"
	KeyGrossLoss            = "gross_loss"
	KeyNetProfit            = "net_profit"
	KeyProfitFactor         = "profit_factor"
	KeyAvgWin               = "avg_win"
	KeyAvgLoss              = "avg_loss"
	KeyLargestWin           = "largest_win"
	KeyLargestLoss          = "largest_loss"
	KeyExpectancy           = "expectancy"
	KeyMaxDrawdown          = "max_drawdown"
	KeyMaxDrawdownPct       = "max_drawdown_pct"
	KeyMaxConsecutiveWins   = "max_consecutive_wins"
	KeyMaxConsecutiveLosses = "max_consecutive_losses"
	KeyTotalPips            = "total_pips"
	KeyAvgMFE               = "avg_mfe_pips"
	KeyAvgMAE               = "avg_mae_pips"
)

// Options tune the calculation.
type Options struct {
	// InitialBalance is the account size the drawdown percentage is taken
	// against. Zero reports drawdown percentage relative to the equity peak only.
	InitialBalance float64
}

// Summary is the aggregate of one trade log. It is derived on every run and
// only ever exported for review.
type Summary struct {
	TotalTrades int `json:"total_trades" yaml:"total_trades"`
	Wins        int `json:"wins" yaml:"wins"`
	Losses      int `json:"losses" yaml:"losses"`
	Breakeven   int `json:"breakeven" yaml:"breakeven"`

	WinRate      float64 `json:"win_rate" yaml:"win_rate"` // percent
	GrossProfit  float64 `json:"gross_profit" yaml:"gross_profit"`
	GrossLoss    float64 `json:"gross_loss" yaml:"gross_loss"` // <= 0
	NetProfit    float64 `json:"net_profit" yaml:"net_profit"`
	ProfitFactor float64 `json:"profit_factor" yaml:"profit_factor"`
	AvgWin       float64 `json:"avg_win" yaml:"avg_win"`
	AvgLoss      float64 `json:"avg_loss" yaml:"avg_loss"` // <= 0
	LargestWin   float64 `json:"largest_win" yaml:"largest_win"`
	LargestLoss  float64 `json:"largest_loss" yaml:"largest_loss"`
	Expectancy   float64 `json:"expectancy" yaml:"expectancy"`

	MaxDrawdown          float64 `json:"max_drawdown" yaml:"max_drawdown"`
	MaxDrawdownPct       float64 `json:"max_drawdown_pct" yaml:"max_drawdown_pct"`
	MaxConsecutiveWins   int     `json:"max_consecutive_wins" yaml:"max_consecutive_wins"`
	MaxConsecutiveLosses int     `json:"max_consecutive_losses" yaml:"max_consecutive_losses"`

	TotalPips float64 `json:"total_pips" yaml:"total_pips"`
	AvgMFE    float64 `json:"avg_mfe_pips" yaml:"avg_mfe_pips"`
	AvgMAE    float64 `json:"avg_mae_pips" yaml:"avg_mae_pips"`

	AvgDuration time.Duration `json:"avg_duration" yaml:"avg_duration"`
	FirstTrade  time.Time     `json:"first_trade" yaml:"first_trade"`
	LastTrade   time.Time     `json:"last_trade" yaml:"last_trade"`

	ByExitReason []Bucket `json:"by_exit_reason" yaml:"by_exit_reason"`
	ByDirection  []Bucket `json:"by_direction" yaml:"by_direction"`
}

// Bucket is the per-group breakdown used for exit reasons, directions and
// skip reasons.
type Bucket struct {
	Key       string  `json:"key" yaml:"key"`
	Count     int     `json:"count" yaml:"count"`
	Wins      int     `json:"wins" yaml:"wins"`
	WinRate   float64 `json:"win_rate" yaml:"win_rate"`
	Profit    float64 `json:"profit" yaml:"profit"`
	AvgProfit float64 `json:"avg_profit" yaml:"avg_profit"`
}

// Calculate computes the summary for trades, which must be in chronological
// order for the drawdown and streak figures to be meaningful.
// An empty input yields the zero Summary.
func Calculate(trades []tradelog.Trade, opts Options) Summary {
	var s Summary
	s.TotalTrades = len(trades)
	if s.TotalTrades == 0 {
		return s
	}

	grossProfit := decimal.Zero
	grossLoss := decimal.Zero
	totalPips := decimal.Zero
	equity := decimal.Zero
	peak := decimal.Zero
	maxDD := decimal.Zero
	maxDDPeak := decimal.Zero

	var winStreak, lossStreak int
	var mfeSum, maeSum float64
	var mfeCount, maeCount int
	var durationSum time.Duration
	var durationCount int

	for _, t := range trades {
		p := finite(t.Profit)
		profit := decimal.NewFromFloat(p)

		switch {
		case p > 0:
			s.Wins++
			grossProfit = grossProfit.Add(profit)
			winStreak++
			lossStreak = 0
			if p > s.LargestWin {
				s.LargestWin = p
			}
		case p < 0:
			s.Losses++
			grossLoss = grossLoss.Add(profit)
			lossStreak++
			winStreak = 0
			if p < s.LargestLoss {
				s.LargestLoss = p
			}
		default:
			s.Breakeven++
			winStreak = 0
			lossStreak = 0
		}
		if winStreak > s.MaxConsecutiveWins {
			s.MaxConsecutiveWins = winStreak
		}
		if lossStreak > s.MaxConsecutiveLosses {
			s.MaxConsecutiveLosses = lossStreak
		}

		// peak starts at zero so an opening losing run counts as drawdown
		equity = equity.Add(profit)
		if equity.GreaterThan(peak) {
			peak = equity
		}
		if dd := peak.Sub(equity); dd.GreaterThan(maxDD) {
			maxDD = dd
			maxDDPeak = peak
		}

		totalPips = totalPips.Add(decimal.NewFromFloat(finite(t.Pips)))

		if t.Excursion.MFEPips != nil {
			mfeSum += *t.Excursion.MFEPips
			mfeCount++
		}
		if t.Excursion.MAEPips != nil {
			maeSum += *t.Excursion.MAEPips
			maeCount++
		}
		if d := t.Duration(); d > 0 {
			durationSum += d
			durationCount++
		}
	}

	s.GrossProfit = grossProfit.InexactFloat64()
	s.GrossLoss = grossLoss.InexactFloat64()
	s.NetProfit = grossProfit.Add(grossLoss).InexactFloat64()
	s.TotalPips = totalPips.InexactFloat64()
	s.MaxDrawdown = maxDD.InexactFloat64()

	s.WinRate = percent(s.Wins, s.TotalTrades)
	if !grossLoss.IsZero() {
		s.ProfitFactor = grossProfit.Div(grossLoss.Abs()).InexactFloat64()
	}
	if s.Wins > 0 {
		s.AvgWin = grossProfit.Div(decimal.NewFromInt(int64(s.Wins))).InexactFloat64()
	}
	if s.Losses > 0 {
		s.AvgLoss = grossLoss.Div(decimal.NewFromInt(int64(s.Losses))).InexactFloat64()
	}
	s.Expectancy = grossProfit.Add(grossLoss).Div(decimal.NewFromInt(int64(s.TotalTrades))).InexactFloat64()

	base := decimal.NewFromFloat(finite(opts.InitialBalance)).Add(maxDDPeak)
	if base.IsPositive() && maxDD.IsPositive() {
		s.MaxDrawdownPct = maxDD.Div(base).Mul(decimal.NewFromInt(100)).InexactFloat64()
	}

	if mfeCount > 0 {
		s.AvgMFE = mfeSum / float64(mfeCount)
	}
	if maeCount > 0 {
		s.AvgMAE = maeSum / float64(maeCount)
	}
	if durationCount > 0 {
		s.AvgDuration = durationSum / time.Duration(durationCount)
	}

	s.FirstTrade = trades[0].Time()
	s.LastTrade = trades[len(trades)-1].Time()
	s.ByExitReason = GroupBy(trades, func(t tradelog.Trade) string { return t.ExitReason })
	s.ByDirection = GroupBy(trades, func(t tradelog.Trade) string { return string(t.Direction) })
	return s
}

// Values flattens the scalar metrics into a map keyed by the Key* constants.
func (s Summary) Values() map[string]float64 {
	return map[string]float64{
		KeyTotalTrades:          float64(s.TotalTrades),
		KeyWins:                 float64(s.Wins),
		KeyLosses:               float64(s.Losses),
		KeyBreakeven:            float64(s.Breakeven),
		KeyWinRate:              s.WinRate,
		KeyGrossProfit:          s.GrossProfit,
		KeyGrossLoss:            s.GrossLoss,
		KeyNetProfit:            s.NetProfit,
		KeyProfitFactor:         s.ProfitFactor,
		KeyAvgWin:               s.AvgWin,
		KeyAvgLoss:              s.AvgLoss,
		KeyLargestWin:           s.LargestWin,
		KeyLargestLoss:          s.LargestLoss,
		KeyExpectancy:           s.Expectancy,
		KeyMaxDrawdown:          s.MaxDrawdown,
		KeyMaxDrawdownPct:       s.MaxDrawdownPct,
		KeyMaxConsecutiveWins:   float64(s.MaxConsecutiveWins),
		KeyMaxConsecutiveLosses: float64(s.MaxConsecutiveLosses),
		KeyTotalPips:            s.TotalPips,
		KeyAvgMFE:               s.AvgMFE,
		KeyAvgMAE:               s.AvgMAE,
	}
}

// GroupBy buckets trades by key, sorted by key. Empty keys are grouped
// under "UNKNOWN".
func GroupBy(trades []tradelog.Trade, key func(tradelog.Trade) string) []Bucket {
	type acc struct {
		count, wins int
		profit      decimal.Decimal
	}
	groups := make(map[string]*acc)
	for _, t := range trades {
		k := key(t)
		if k == "" {
			k = tradelog.ExitUnknown
		}
		a, ok := groups[k]
		if !ok {
			a = &acc{profit: decimal.Zero}
			groups[k] = a
		}
		a.count++
		p := finite(t.Profit)
		if p > 0 {
			a.wins++
		}
		a.profit = a.profit.Add(decimal.NewFromFloat(p))
	}

	buckets := make([]Bucket, 0, len(groups))
	for k, a := range groups {
		buckets = append(buckets, Bucket{
			Key:       k,
			Count:     a.count,
			Wins:      a.wins,
			WinRate:   percent(a.wins, a.count),
			Profit:    a.profit.InexactFloat64(),
			AvgProfit: a.profit.Div(decimal.NewFromInt(int64(a.count))).InexactFloat64(),
		})
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Key < buckets[j].Key })
	return buckets
}

func percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part*100) / float64(total)
}

// finite maps NaN and infinities to zero; decimal cannot represent them.
func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
