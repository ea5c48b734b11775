package report

import (
	"encoding/json"
	"io"
	"time"

	"tickphysics-lab/internal/compare"
	"tickphysics-lab/internal/performance"
	"tickphysics-lab/internal/tradelog"
	"tickphysics-lab/internal/validate"

	"github.com/google/uuid"
)

// Sweep is a threshold sweep over one physics metric.
type Sweep struct {
	Metric string                 `json:"metric"`
	Rows   []performance.SweepRow `json:"rows"`
}

// RunReport is everything derived from one trade log.
type RunReport struct {
	Label   string                     `json:"label"`
	Source  string                     `json:"source"`
	Skipped int                        `json:"skipped_rows"`
	Summary performance.Summary        `json:"summary"`
	Signals *performance.SignalSummary `json:"signals,omitempty"`
	Sweeps  []Sweep                    `json:"sweeps,omitempty"`
	Equity  []performance.EquityPoint  `json:"equity,omitempty"`
}

// NewRunReport derives the summary and equity curve of a loaded trade log.
func NewRunReport(label string, log *tradelog.TradeLog, opts performance.Options) RunReport {
	return RunReport{
		Label:   label,
		Source:  log.Source,
		Skipped: len(log.Skipped),
		Summary: performance.Calculate(log.Trades, opts),
		Equity:  performance.EquityCurve(log.Trades),
	}
}

// Export is the machine-readable result of one tool invocation.
type Export struct {
	RunID       uuid.UUID            `json:"run_id"`
	GeneratedAt time.Time            `json:"generated_at"`
	Runs        []RunReport          `json:"runs"`
	Comparisons []compare.Comparison `json:"comparisons,omitempty"`
	Validation  *validate.Report     `json:"validation,omitempty"`
	LogDiff     *validate.LogDiff    `json:"log_diff,omitempty"`
}

// NewExport stamps runs with a fresh run id and the current UTC time.
func NewExport(runs ...RunReport) Export {
	return Export{
		RunID:       uuid.New(),
		GeneratedAt: time.Now().UTC().Truncate(time.Second),
		Runs:        runs,
	}
}

// WriteJSON writes e as indented JSON.
func WriteJSON(w io.Writer, e Export) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(e)
}
