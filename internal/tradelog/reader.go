package tradelog

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrMissingColumn is returned when a required column is absent from the header.
	ErrMissingColumn = errors.New("missing required column")
	// ErrNoRows is returned for an empty file or a header with no data rows.
	ErrNoRows = errors.New("no data rows")

	errEmptyProfit = errors.New("empty Profit")
)

// timeLayouts are tried in order. MT5 writes dotted dates.
var timeLayouts = []string{
	"2006.01.02 15:04:05",
	"2006.01.02 15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	time.RFC3339,
	"2006.01.02",
	"2006-01-02",
}

// RowError describes a data row that could not be parsed and was skipped.
type RowError struct {
	Line int
	Err  error
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e RowError) Unwrap() error { return e.Err }

// TradeLog is the result of loading a trade CSV.
type TradeLog struct {
	Source  string
	Trades  []Trade
	Skipped []RowError
}

// SignalLog is the result of loading a signal CSV.
type SignalLog struct {
	Source  string
	Signals []Signal
	Skipped []RowError
}

// Column aliases, keyed by canonical name. Lookup is case-insensitive.
var tradeColumns = map[string][]string{
	"opentime":     {"OpenTime", "EntryTime", "Open Time"},
	"closetime":    {"CloseTime", "ExitTime", "Close Time"},
	"type":         {"Type", "Direction", "Side"},
	"openprice":    {"OpenPrice", "EntryPrice", "Open Price"},
	"closeprice":   {"ClosePrice", "ExitPrice", "Close Price"},
	"profit":       {"Profit", "PnL", "NetProfit"},
	"pips":         {"Pips", "ProfitPips"},
	"exitreason":   {"ExitReason", "CloseReason", "Reason"},
	"quality":      {"EntryQuality", "Quality"},
	"confluence":   {"EntryConfluence", "Confluence"},
	"momentum":     {"EntryMomentum", "Momentum"},
	"speed":        {"EntrySpeed", "Speed"},
	"acceleration": {"EntryAcceleration", "Acceleration"},
	"mfe":          {"MFE_Pips", "MFE"},
	"mae":          {"MAE_Pips", "MAE"},
	"runup":        {"RunUp_Pips", "RunUp"},
	"rundown":      {"RunDown_Pips", "RunDown"},
}

var signalColumns = map[string][]string{
	"timestamp":    {"Timestamp", "Time", "BarTime"},
	"signal":       {"Signal", "Action", "Decision"},
	"skipreason":   {"SkipReason", "Reason"},
	"quality":      {"Quality", "PhysicsQuality", "EntryQuality"},
	"confluence":   {"Confluence", "EntryConfluence"},
	"momentum":     {"Momentum", "EntryMomentum"},
	"speed":        {"Speed", "EntrySpeed"},
	"acceleration": {"Acceleration", "EntryAcceleration"},
}

// LoadTrades reads a trade log from disk.
func LoadTrades(path string) (*TradeLog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open trade log: %w", err)
	}
	defer f.Close()

	log, err := ReadTrades(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	log.Source = path
	return log, nil
}

// ReadTrades parses a trade log. Rows that fail to parse are collected in
// Skipped; the result is ordered by close time.
func ReadTrades(r io.Reader) (*TradeLog, error) {
	header, rows, err := readTable(r)
	if err != nil {
		return nil, err
	}

	cols := indexColumns(header, tradeColumns)
	if _, ok := cols["profit"]; !ok {
		return nil, fmt.Errorf("%w: Profit", ErrMissingColumn)
	}
	_, hasOpen := cols["opentime"]
	_, hasClose := cols["closetime"]
	if !hasOpen && !hasClose {
		return nil, fmt.Errorf("%w: CloseTime or OpenTime", ErrMissingColumn)
	}

	log := &TradeLog{Trades: make([]Trade, 0, len(rows))}
	for i, row := range rows {
		trade, err := parseTrade(cols, row)
		if err != nil {
			log.Skipped = append(log.Skipped, RowError{Line: i + 2, Err: err})
			continue
		}
		log.Trades = append(log.Trades, trade)
	}

	sort.SliceStable(log.Trades, func(i, j int) bool {
		return log.Trades[i].Time().Before(log.Trades[j].Time())
	})
	return log, nil
}

func parseTrade(cols columnIndex, row []string) (Trade, error) {
	var t Trade

	profit, err := cols.optFloat(row, "profit")
	if err != nil {
		return t, err
	}
	if profit == nil {
		return t, errEmptyProfit
	}
	t.Profit = *profit
	if t.OpenTime, err = cols.time(row, "opentime"); err != nil {
		return t, err
	}
	if t.CloseTime, err = cols.time(row, "closetime"); err != nil {
		return t, err
	}
	if t.Time().IsZero() {
		return t, errors.New("no timestamp")
	}
	if t.OpenPrice, err = cols.float(row, "openprice"); err != nil {
		return t, err
	}
	if t.ClosePrice, err = cols.float(row, "closeprice"); err != nil {
		return t, err
	}
	if t.Pips, err = cols.float(row, "pips"); err != nil {
		return t, err
	}

	t.Direction = parseDirection(cols.str(row, "type"))
	t.ExitReason = NormalizeExitReason(cols.str(row, "exitreason"))

	if t.Physics, err = parsePhysics(cols, row); err != nil {
		return t, err
	}

	for key, dst := range map[string]**float64{
		"mfe":     &t.Excursion.MFEPips,
		"mae":     &t.Excursion.MAEPips,
		"runup":   &t.Excursion.RunUpPips,
		"rundown": &t.Excursion.RunDownPips,
	} {
		if *dst, err = cols.optFloat(row, key); err != nil {
			return t, err
		}
	}
	return t, nil
}

func parsePhysics(cols columnIndex, row []string) (Physics, error) {
	var p Physics
	var err error
	for key, dst := range map[string]**float64{
		MetricQuality:      &p.Quality,
		MetricConfluence:   &p.Confluence,
		MetricMomentum:     &p.Momentum,
		MetricSpeed:        &p.Speed,
		MetricAcceleration: &p.Acceleration,
	} {
		if *dst, err = cols.optFloat(row, key); err != nil {
			return p, err
		}
	}
	return p, nil
}

// LoadSignals reads a signal log from disk.
func LoadSignals(path string) (*SignalLog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open signal log: %w", err)
	}
	defer f.Close()

	log, err := ReadSignals(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	log.Source = path
	return log, nil
}

// ReadSignals parses a signal log. Rows keep their file order.
func ReadSignals(r io.Reader) (*SignalLog, error) {
	header, rows, err := readTable(r)
	if err != nil {
		return nil, err
	}

	cols := indexColumns(header, signalColumns)
	for _, required := range []string{"timestamp", "signal"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, signalColumns[required][0])
		}
	}

	log := &SignalLog{Signals: make([]Signal, 0, len(rows))}
	for i, row := range rows {
		s, err := parseSignal(cols, row)
		if err != nil {
			log.Skipped = append(log.Skipped, RowError{Line: i + 2, Err: err})
			continue
		}
		log.Signals = append(log.Signals, s)
	}
	return log, nil
}

func parseSignal(cols columnIndex, row []string) (Signal, error) {
	var s Signal
	var err error

	if s.Timestamp, err = cols.time(row, "timestamp"); err != nil {
		return s, err
	}
	if s.Timestamp.IsZero() {
		return s, errors.New("empty Timestamp")
	}

	raw := cols.str(row, "signal")
	action, ok := parseSignalAction(raw)
	if !ok {
		return s, fmt.Errorf("unknown signal %q", raw)
	}
	s.Action = action
	s.SkipReason = cols.str(row, "skipreason")

	s.Physics, err = parsePhysics(cols, row)
	return s, err
}

// readTable returns the header and data rows. The delimiter is sniffed from
// the header line since MT5 exports use ';' or '\t' depending on locale.
func readTable(r io.Reader) ([]string, [][]string, error) {
	br := bufio.NewReader(r)
	first, err := br.Peek(4096)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, nil, err
	}
	if len(bytes.TrimSpace(first)) == 0 {
		return nil, nil, ErrNoRows
	}

	reader := csv.NewReader(br)
	reader.Comma = sniffDelimiter(first)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) < 2 {
		return nil, nil, ErrNoRows
	}

	header := records[0]
	header[0] = strings.TrimPrefix(header[0], "\ufeff")
	return header, records[1:], nil
}

func sniffDelimiter(sample []byte) rune {
	line := sample
	if i := bytes.IndexByte(sample, '\n'); i >= 0 {
		line = sample[:i]
	}
	best, bestCount := ',', bytes.Count(line, []byte{','})
	for _, d := range []rune{';', '\t'} {
		if n := bytes.Count(line, []byte(string(d))); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

// columnIndex maps canonical column names to their position in a row.
type columnIndex map[string]int

func indexColumns(header []string, aliases map[string][]string) columnIndex {
	positions := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		if _, seen := positions[key]; !seen {
			positions[key] = i
		}
	}

	cols := make(columnIndex, len(aliases))
	for canonical, names := range aliases {
		for _, name := range names {
			if i, ok := positions[strings.ToLower(name)]; ok {
				cols[canonical] = i
				break
			}
		}
	}
	return cols
}

func (c columnIndex) str(row []string, key string) string {
	i, ok := c[key]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func (c columnIndex) float(row []string, key string) (float64, error) {
	v, err := c.optFloat(row, key)
	if err != nil || v == nil {
		return 0, err
	}
	return *v, nil
}

func (c columnIndex) optFloat(row []string, key string) (*float64, error) {
	raw := c.str(row, key)
	if raw == "" {
		return nil, nil
	}
	v, err := parseNumber(raw)
	if err != nil {
		return nil, fmt.Errorf("column %s: %w", key, err)
	}
	return &v, nil
}

func (c columnIndex) time(row []string, key string) (time.Time, error) {
	raw := c.str(row, key)
	if raw == "" {
		return time.Time{}, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("column %s: unrecognized time %q", key, raw)
}

// parseNumber accepts MT5 report formatting such as "1 234.50".
func parseNumber(raw string) (float64, error) {
	cleaned := strings.NewReplacer(" ", "", "\u00a0", "").Replace(raw)
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite number %q", raw)
	}
	return v, nil
}
