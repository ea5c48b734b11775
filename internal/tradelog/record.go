package tradelog

import (
	"strings"
	"time"
)

// Direction is the side of a closed position.
type Direction string

const (
	Buy  Direction = "BUY"
	Sell Direction = "SELL"
)

// Exit reasons as the EA logs them, after normalization.
const (
	ExitStopLoss   = "SL"
	ExitTakeProfit = "TP"
	ExitReversal   = "REVERSAL"
	ExitManual     = "MANUAL"
	ExitUnknown    = "UNKNOWN"
)

// SignalAction is the decision the EA took for one evaluated bar.
type SignalAction string

const (
	SignalBuy  SignalAction = "BUY"
	SignalSell SignalAction = "SELL"
	SignalSkip SignalAction = "SKIP"
)

// Physics metric names, as accepted by Physics.Value.
const (
	MetricQuality      = "quality"
	MetricConfluence   = "confluence"
	MetricMomentum     = "momentum"
	MetricSpeed        = "speed"
	MetricAcceleration = "acceleration"
)

// PhysicsMetrics lists the metric names in display order.
var PhysicsMetrics = []string{MetricQuality, MetricConfluence, MetricMomentum, MetricSpeed, MetricAcceleration}

// Physics holds the EA's entry indicators. A nil field means the column was
// absent or empty for that row.
type Physics struct {
	Quality      *float64 `json:"quality,omitempty"`
	Confluence   *float64 `json:"confluence,omitempty"`
	Momentum     *float64 `json:"momentum,omitempty"`
	Speed        *float64 `json:"speed,omitempty"`
	Acceleration *float64 `json:"acceleration,omitempty"`
}

// Value returns the named metric and whether it was present.
func (p Physics) Value(name string) (float64, bool) {
	var v *float64
	switch strings.ToLower(name) {
	case MetricQuality:
		v = p.Quality
	case MetricConfluence:
		v = p.Confluence
	case MetricMomentum:
		v = p.Momentum
	case MetricSpeed:
		v = p.Speed
	case MetricAcceleration:
		v = p.Acceleration
	}
	if v == nil {
		return 0, false
	}
	return *v, true
}

// Excursion holds the price excursion fields, in pips.
type Excursion struct {
	MFEPips     *float64 `json:"mfe_pips,omitempty"`
	MAEPips     *float64 `json:"mae_pips,omitempty"`
	RunUpPips   *float64 `json:"run_up_pips,omitempty"`
	RunDownPips *float64 `json:"run_down_pips,omitempty"`
}

// Trade is one closed position from the EA trade log.
type Trade struct {
	OpenTime   time.Time `json:"open_time"`
	CloseTime  time.Time `json:"close_time"`
	Direction  Direction `json:"direction"`
	OpenPrice  float64   `json:"open_price"`
	ClosePrice float64   `json:"close_price"`
	Profit     float64   `json:"profit"`
	Pips       float64   `json:"pips"`
	ExitReason string    `json:"exit_reason"`
	Physics    Physics   `json:"physics"`
	Excursion  Excursion `json:"excursion"`
}

// Time is the trade's position on the timeline: close time, or open time
// when the log has no close column.
func (t Trade) Time() time.Time {
	if t.CloseTime.IsZero() {
		return t.OpenTime
	}
	return t.CloseTime
}

// Duration is zero when either timestamp is missing.
func (t Trade) Duration() time.Duration {
	if t.OpenTime.IsZero() || t.CloseTime.IsZero() {
		return 0
	}
	return t.CloseTime.Sub(t.OpenTime)
}

// Signal is one evaluated entry opportunity from the EA signal log.
type Signal struct {
	Timestamp  time.Time    `json:"timestamp"`
	Action     SignalAction `json:"signal"`
	SkipReason string       `json:"skip_reason,omitempty"`
	Physics    Physics      `json:"physics"`
}

// NormalizeExitReason maps the spellings seen across EA versions onto the
// canonical exit reasons. Unrecognized values are kept, upper-cased.
func NormalizeExitReason(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = strings.NewReplacer(" ", "", "_", "", "-", "").Replace(s)
	switch s {
	case "":
		return ExitUnknown
	case "SL", "STOPLOSS", "STOP":
		return ExitStopLoss
	case "TP", "TAKEPROFIT", "TARGET":
		return ExitTakeProfit
	case "REVERSAL", "REVERSE", "SIGNALREVERSAL", "REV":
		return ExitReversal
	case "MANUAL", "CLIENT", "USER":
		return ExitManual
	}
	return strings.ToUpper(strings.TrimSpace(raw))
}

func parseDirection(raw string) Direction {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "BUY", "LONG", "0":
		return Buy
	case "SELL", "SHORT", "1":
		return Sell
	}
	return Direction(strings.ToUpper(strings.TrimSpace(raw)))
}

func parseSignalAction(raw string) (SignalAction, bool) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "BUY", "LONG":
		return SignalBuy, true
	case "SELL", "SHORT":
		return SignalSell, true
	case "SKIP", "NONE":
		return SignalSkip, true
	}
	return "", false
}
