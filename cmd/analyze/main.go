// Command analyze prints backtest statistics for one or more EA trade logs.
package main

import (
	"fmt"
	"io"
	"os"

	"tickphysics-lab/internal/cli"
	"tickphysics-lab/internal/performance"
	"tickphysics-lab/internal/report"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	var (
		signalsPath = pflag.String("signals", "", "signal log CSV to break down alongside the first trade log")
		balance     = pflag.Float64("balance", 0, "initial balance for the drawdown percentage (default from config)")
		jsonOut     = pflag.String("json", "", "write a JSON export to `FILE`")
		markdownOut = pflag.String("markdown", "", "write a markdown report to `FILE`")
		sweeps      = pflag.StringArray("sweep", nil, "entry filter sweep, `METRIC[=T1,T2,...]` (repeatable)")
		verbose     = pflag.BoolP("verbose", "v", false, "enable debug logging")
	)
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: analyze [flags] TRADES.csv...\n\n")
		pflag.PrintDefaults()
	}
	pflag.Parse()
	if pflag.NArg() == 0 {
		pflag.Usage()
		os.Exit(2)
	}

	cfg, log := cli.Setup(*verbose)
	defer log.Sync()

	opts := performance.Options{InitialBalance: cfg.Analysis.InitialBalance}
	if pflag.CommandLine.Changed("balance") {
		opts.InitialBalance = *balance
	}

	specs, err := cli.ParseSweeps(*sweeps)
	if err != nil {
		cli.Fatal(log, "Invalid --sweep", err)
	}
	runs, err := cli.LoadRuns(log, pflag.Args(), specs, *signalsPath, opts)
	if err != nil {
		cli.Fatal(log, "Failed to load logs", err)
	}

	if err := printRuns(os.Stdout, runs); err != nil {
		cli.Fatal(log, "Failed to print report", err)
	}

	export := report.NewExport(runs...)
	if *jsonOut != "" {
		if err := cli.WriteFile(*jsonOut, func(w io.Writer) error { return report.WriteJSON(w, export) }); err != nil {
			cli.Fatal(log, "Failed to write JSON export", err)
		}
		log.Info("JSON export written", zap.String("file", *jsonOut))
	}
	if *markdownOut != "" {
		if err := cli.WriteFile(*markdownOut, func(w io.Writer) error { return report.WriteMarkdown(w, export) }); err != nil {
			cli.Fatal(log, "Failed to write markdown report", err)
		}
		log.Info("Markdown report written", zap.String("file", *markdownOut))
	}
}

func printRuns(w io.Writer, runs []report.RunReport) error {
	for i, run := range runs {
		if i > 0 {
			fmt.Fprintln(w)
		}
		if err := report.WriteSummaryTable(w, run.Label, run.Summary); err != nil {
			return err
		}
		if run.Signals != nil {
			if err := report.WriteSignalTable(w, *run.Signals); err != nil {
				return err
			}
		}
		for _, sweep := range run.Sweeps {
			if err := report.WriteSweepTable(w, sweep.Metric, sweep.Rows); err != nil {
				return err
			}
		}
	}
	return nil
}
