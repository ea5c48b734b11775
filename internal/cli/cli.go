// Package cli holds the plumbing shared by the batch tools under cmd/.
package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"tickphysics-lab/internal/config"
	"tickphysics-lab/internal/logger"
	"tickphysics-lab/internal/performance"
	"tickphysics-lab/internal/report"
	"tickphysics-lab/internal/tradelog"

	"go.uber.org/zap"
)

// ConfigDir is where the tools look for config.yml.
const ConfigDir = "./configs"

// Setup loads the configuration and builds the CLI logger. A broken config
// file is reported and the defaults are used instead.
func Setup(verbose bool) (config.Config, *zap.Logger) {
	log := logger.NewCLILogger(verbose)
	cfg, err := config.LoadConfig(ConfigDir)
	if err != nil {
		log.Warn("Failed to load configuration, using defaults", zap.Error(err))
		cfg = config.Default()
	}
	return cfg, log
}

// LoadTrades loads a trade log and warns about every skipped row.
func LoadTrades(log *zap.Logger, path string) (*tradelog.TradeLog, error) {
	tl, err := tradelog.LoadTrades(path)
	if err != nil {
		return nil, err
	}
	for _, skipped := range tl.Skipped {
		log.Warn("Skipped malformed row", zap.String("file", path), zap.Int("line", skipped.Line), zap.Error(skipped.Err))
	}
	if len(tl.Trades) == 0 {
		log.Warn("No trades loaded", zap.String("file", path))
	}
	log.Debug("Loaded trade log", zap.String("file", path), zap.Int("trades", len(tl.Trades)))
	return tl, nil
}

// LoadSignals loads a signal log and warns about every skipped row.
func LoadSignals(log *zap.Logger, path string) (*tradelog.SignalLog, error) {
	sl, err := tradelog.LoadSignals(path)
	if err != nil {
		return nil, err
	}
	for _, skipped := range sl.Skipped {
		log.Warn("Skipped malformed row", zap.String("file", path), zap.Int("line", skipped.Line), zap.Error(skipped.Err))
	}
	return sl, nil
}

// Label derives a run label from a file name: "logs/v2_trades.csv" → "v2_trades".
func Label(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Labels returns explicit labels when given, one per path, else file-derived ones.
func Labels(paths []string, explicit []string) ([]string, error) {
	if len(explicit) == 0 {
		out := make([]string, len(paths))
		for i, p := range paths {
			out[i] = Label(p)
		}
		return out, nil
	}
	if len(explicit) != len(paths) {
		return nil, fmt.Errorf("got %d labels for %d files", len(explicit), len(paths))
	}
	return explicit, nil
}

// WriteFile creates path and hands it to write. Parent directories are created.
func WriteFile(path string, write func(io.Writer) error) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// SweepSpec is a parsed --sweep argument.
type SweepSpec struct {
	Metric     string
	Thresholds []float64 // empty means spread over the observed range
}

// ParseSweep parses "quality" or "quality=60,70,80".
func ParseSweep(arg string) (SweepSpec, error) {
	metric, list, hasList := strings.Cut(arg, "=")
	metric = strings.ToLower(strings.TrimSpace(metric))
	if !slices.Contains(tradelog.PhysicsMetrics, metric) {
		return SweepSpec{}, fmt.Errorf("unknown physics metric %q (want one of %s)", metric, strings.Join(tradelog.PhysicsMetrics, ", "))
	}
	spec := SweepSpec{Metric: metric}
	if !hasList {
		return spec, nil
	}
	for _, field := range strings.Split(list, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return SweepSpec{}, fmt.Errorf("bad threshold %q for %s: %w", field, metric, err)
		}
		spec.Thresholds = append(spec.Thresholds, v)
	}
	if len(spec.Thresholds) == 0 {
		return SweepSpec{}, fmt.Errorf("no thresholds given for %s", metric)
	}
	return spec, nil
}

// Sweep filters trades at each threshold. Without explicit thresholds five are spread
// over the observed range of the metric.
func (spec SweepSpec) Sweep(trades []tradelog.Trade, opts performance.Options) report.Sweep {
	thresholds := spec.Thresholds
	if len(thresholds) == 0 {
		thresholds = performance.DefaultThresholds(trades, spec.Metric, 5)
	}
	return report.Sweep{
		Metric: spec.Metric,
		Rows:   performance.ThresholdSweep(trades, spec.Metric, thresholds, opts),
	}
}

// ParseSweeps parses repeated --sweep arguments.
func ParseSweeps(args []string) ([]SweepSpec, error) {
	specs := make([]SweepSpec, 0, len(args))
	for _, arg := range args {
		spec, err := ParseSweep(arg)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// LoadRuns loads every trade log into a run report carrying the requested
// sweeps. A signal log, when given, is summarized onto the first run.
func LoadRuns(log *zap.Logger, paths []string, sweeps []SweepSpec, signalsPath string, opts performance.Options) ([]report.RunReport, error) {
	runs := make([]report.RunReport, 0, len(paths))
	for _, path := range paths {
		tl, err := LoadTrades(log, path)
		if err != nil {
			return nil, fmt.Errorf("load trade log: %w", err)
		}
		run := report.NewRunReport(Label(path), tl, opts)
		for _, spec := range sweeps {
			run.Sweeps = append(run.Sweeps, spec.Sweep(tl.Trades, opts))
		}
		runs = append(runs, run)
	}

	if signalsPath != "" && len(runs) > 0 {
		sl, err := LoadSignals(log, signalsPath)
		if err != nil {
			return nil, fmt.Errorf("load signal log: %w", err)
		}
		summary := performance.SummarizeSignals(sl.Signals)
		runs[0].Signals = &summary
	}
	return runs, nil
}

// Fatal logs err and exits with status 1.
func Fatal(log *zap.Logger, msg string, err error) {
	log.Error(msg, zap.Error(err))
	_ = log.Sync()
	os.Exit(1)
}
