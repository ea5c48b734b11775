// Command validate cross-checks a trade log against an MT5 strategy tester
// report or a second export of the same backtest. Mismatches are reported,
// not fatal.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"tickphysics-lab/internal/cli"
	"tickphysics-lab/internal/performance"
	"tickphysics-lab/internal/report"
	"tickphysics-lab/internal/validate"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	var (
		referencePath = pflag.String("reference", "", "MT5 report totals as `YAML`")
		againstPath   = pflag.String("against", "", "second trade log `CSV` of the same backtest")
		moneyTol      = pflag.Float64("money-tol", 0, "tolerance for currency amounts (default from config)")
		percentTol    = pflag.Float64("percent-tol", 0, "tolerance for percentages, in points (default from config)")
		ratioTol      = pflag.Float64("ratio-tol", 0, "tolerance for the profit factor (default from config)")
		balance       = pflag.Float64("balance", 0, "initial balance for the drawdown percentage (default from config)")
		jsonOut       = pflag.String("json", "", "write a JSON export to `FILE`")
		markdownOut   = pflag.String("markdown", "", "write a markdown report to `FILE`")
		verbose       = pflag.BoolP("verbose", "v", false, "enable debug logging")
	)
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: validate [flags] TRADES.csv (--reference mt5.yml | --against OTHER.csv)\n\n")
		pflag.PrintDefaults()
	}
	pflag.Parse()
	if pflag.NArg() != 1 || (*referencePath == "") == (*againstPath == "") {
		pflag.Usage()
		os.Exit(2)
	}

	cfg, log := cli.Setup(*verbose)
	defer log.Sync()

	opts := performance.Options{InitialBalance: cfg.Analysis.InitialBalance}
	if pflag.CommandLine.Changed("balance") {
		opts.InitialBalance = *balance
	}
	tol := validate.Tolerance{
		Money:   cfg.Analysis.Validation.MoneyTolerance,
		Percent: cfg.Analysis.Validation.PercentTolerance,
		Ratio:   cfg.Analysis.Validation.RatioTolerance,
	}
	if pflag.CommandLine.Changed("money-tol") {
		tol.Money = *moneyTol
	}
	if pflag.CommandLine.Changed("percent-tol") {
		tol.Percent = *percentTol
	}
	if pflag.CommandLine.Changed("ratio-tol") {
		tol.Ratio = *ratioTol
	}

	path := pflag.Arg(0)
	tl, err := cli.LoadTrades(log, path)
	if err != nil {
		cli.Fatal(log, "Failed to load trade log", err)
	}
	run := report.NewRunReport(cli.Label(path), tl, opts)
	export := report.NewExport(run)

	var ref *validate.Reference
	if *referencePath != "" {
		ref, err = validate.LoadReference(*referencePath)
		if err != nil {
			cli.Fatal(log, "Failed to load reference", err)
		}
		if ref.Name == "" {
			ref.Name = cli.Label(*referencePath)
		}
	} else {
		other, err := cli.LoadTrades(log, *againstPath)
		if err != nil {
			cli.Fatal(log, "Failed to load trade log", err)
		}
		otherRun := report.NewRunReport(cli.Label(*againstPath), other, opts)
		export.Runs = append(export.Runs, otherRun)
		ref = validate.ReferenceFromSummary(otherRun.Label, otherRun.Summary)

		diff := validate.CompareTradeLogs(tl.Trades, other.Trades, tol)
		export.LogDiff = &diff
	}

	result := validate.Check(run.Summary, ref, tol)
	export.Validation = &result

	if err := printValidation(os.Stdout, export); err != nil {
		cli.Fatal(log, "Failed to print validation", err)
	}
	if n := len(result.Mismatches()); n > 0 {
		log.Warn("Metrics outside tolerance", zap.Int("mismatches", n), zap.Float64("accuracy", result.Accuracy))
	}

	if *jsonOut != "" {
		if err := cli.WriteFile(*jsonOut, func(w io.Writer) error { return report.WriteJSON(w, export) }); err != nil {
			cli.Fatal(log, "Failed to write JSON export", err)
		}
	}
	if *markdownOut != "" {
		if err := cli.WriteFile(*markdownOut, func(w io.Writer) error { return report.WriteMarkdown(w, export) }); err != nil {
			cli.Fatal(log, "Failed to write markdown report", err)
		}
	}
}

func printValidation(w io.Writer, e report.Export) error {
	if e.Validation == nil {
		return errors.New("nothing validated")
	}
	if err := report.WriteValidation(w, *e.Validation); err != nil {
		return err
	}
	if e.LogDiff != nil {
		return report.WriteLogDiff(w, *e.LogDiff)
	}
	return nil
}
