package tradelog

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tradeCSV = `OpenTime,CloseTime,Type,OpenPrice,ClosePrice,Profit,Pips,ExitReason,EntryQuality,EntryConfluence,MFE_Pips,MAE_Pips
2025.03.03 10:00,2025.03.03 11:00,BUY,1.0800,1.0810,10.00,10,TP,82.5,3,12,2
2025.03.03 09:00,2025.03.03 09:30,SELL,1.0820,1.0825,-5.00,-5,Stop Loss,61,,1,6
2025.03.03 12:00,2025.03.03 13:15,BUY,1.0790,1.0810,20.00,20,reversal,90,4,25,1
`

func TestReadTrades(t *testing.T) {
	log, err := ReadTrades(strings.NewReader(tradeCSV))
	require.NoError(t, err)
	require.Len(t, log.Trades, 3)
	assert.Empty(t, log.Skipped)

	// ordered by close time, not file order
	first := log.Trades[0]
	assert.Equal(t, -5.0, first.Profit)
	assert.Equal(t, Sell, first.Direction)
	assert.Equal(t, ExitStopLoss, first.ExitReason)
	assert.Equal(t, time.Date(2025, 3, 3, 9, 30, 0, 0, time.UTC), first.CloseTime)
	assert.Equal(t, 30*time.Minute, first.Duration())
	require.NotNil(t, first.Physics.Quality)
	assert.Equal(t, 61.0, *first.Physics.Quality)
	assert.Nil(t, first.Physics.Confluence, "empty cell must stay absent")
	assert.Nil(t, first.Physics.Momentum, "missing column must stay absent")

	second := log.Trades[1]
	assert.Equal(t, ExitTakeProfit, second.ExitReason)
	require.NotNil(t, second.Excursion.MFEPips)
	assert.Equal(t, 12.0, *second.Excursion.MFEPips)
	assert.Nil(t, second.Excursion.RunUpPips)

	assert.Equal(t, ExitReversal, log.Trades[2].ExitReason)
}

func TestReadTrades_SkipsBadRows(t *testing.T) {
	input := `CloseTime,Profit
2025.01.02 10:00,5
2025.01.02 11:00,not-a-number
,3
2025.01.02 12:00,-2
`
	log, err := ReadTrades(strings.NewReader(input))
	require.NoError(t, err)
	assert.Len(t, log.Trades, 2)
	require.Len(t, log.Skipped, 2)
	assert.Equal(t, 3, log.Skipped[0].Line)
	assert.Equal(t, 4, log.Skipped[1].Line)
	assert.Contains(t, log.Skipped[0].Error(), "line 3")
}

func TestReadTrades_SkipsUnusableNumbers(t *testing.T) {
	testCases := []struct {
		name string
		row  string
	}{
		{name: "NaN profit", row: "2025.01.02 11:00,NaN,1"},
		{name: "infinite profit", row: "2025.01.02 11:00,+Inf,1"},
		{name: "infinite pips", row: "2025.01.02 11:00,4,inf"},
		{name: "empty profit", row: "2025.01.02 11:00,,3"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			input := "CloseTime,Profit,Pips\n2025.01.02 10:00,10,10\n" + tc.row + "\n2025.01.02 12:00,-5,-5\n"
			log, err := ReadTrades(strings.NewReader(input))
			require.NoError(t, err)
			assert.Len(t, log.Trades, 2)
			require.Len(t, log.Skipped, 1)
			assert.Equal(t, 3, log.Skipped[0].Line)
		})
	}
}

func TestReadTrades_DelimiterAndBOM(t *testing.T) {
	input := "\ufeffCloseTime;Profit;Type\n2025-01-02 10:00:00;1 234.50;buy\n"
	log, err := ReadTrades(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, log.Trades, 1)
	assert.Equal(t, 1234.50, log.Trades[0].Profit)
	assert.Equal(t, Buy, log.Trades[0].Direction)
}

func TestReadTrades_Errors(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		want  error
	}{
		{name: "empty", input: "", want: ErrNoRows},
		{name: "header only", input: "CloseTime,Profit\n", want: ErrNoRows},
		{name: "no profit column", input: "CloseTime,Pips\n2025.01.01 00:00,3\n", want: ErrMissingColumn},
		{name: "no time column", input: "Profit,Pips\n1,3\n", want: ErrMissingColumn},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ReadTrades(strings.NewReader(tc.input))
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestLoadTrades(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.csv")
	require.NoError(t, os.WriteFile(path, []byte(tradeCSV), 0o644))

	log, err := LoadTrades(path)
	require.NoError(t, err)
	assert.Equal(t, path, log.Source)
	assert.Len(t, log.Trades, 3)

	_, err = LoadTrades(filepath.Join(t.TempDir(), "missing.csv"))
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestReadSignals(t *testing.T) {
	input := `Timestamp,Signal,SkipReason,Quality,Momentum
2025.03.03 10:00,BUY,,80,1.2
2025.03.03 10:05,SKIP,LowQuality,40,0.1
2025.03.03 10:10,HOLD,,50,0
2025.03.03 10:15,sell,,77,-0.9
`
	log, err := ReadSignals(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, log.Signals, 3)
	require.Len(t, log.Skipped, 1)
	assert.Equal(t, 4, log.Skipped[0].Line)

	assert.Equal(t, SignalBuy, log.Signals[0].Action)
	assert.Equal(t, SignalSkip, log.Signals[1].Action)
	assert.Equal(t, "LowQuality", log.Signals[1].SkipReason)
	assert.Equal(t, SignalSell, log.Signals[2].Action)

	q, ok := log.Signals[0].Physics.Value(MetricQuality)
	assert.True(t, ok)
	assert.Equal(t, 80.0, q)
	_, ok = log.Signals[0].Physics.Value(MetricSpeed)
	assert.False(t, ok)
}

func TestReadSignals_MissingColumn(t *testing.T) {
	_, err := ReadSignals(strings.NewReader("Timestamp,Quality\n2025.01.01 00:00,3\n"))
	assert.ErrorIs(t, err, ErrMissingColumn)
	assert.Contains(t, err.Error(), "Signal")
}

func TestNormalizeExitReason(t *testing.T) {
	testCases := map[string]string{
		"":                ExitUnknown,
		"sl":              ExitStopLoss,
		"Stop Loss":       ExitStopLoss,
		"TAKE_PROFIT":     ExitTakeProfit,
		"Signal Reversal": ExitReversal,
		"manual":          ExitManual,
		"time exit":       "TIME EXIT",
	}
	for raw, want := range testCases {
		assert.Equal(t, want, NormalizeExitReason(raw), raw)
	}
}
