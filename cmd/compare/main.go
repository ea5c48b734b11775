// Command compare diffs the statistics of EA versions against a baseline run.
package main

import (
	"fmt"
	"io"
	"os"

	"tickphysics-lab/internal/cli"
	"tickphysics-lab/internal/compare"
	"tickphysics-lab/internal/performance"
	"tickphysics-lab/internal/report"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	var (
		labels      = pflag.StringSlice("labels", nil, "comma-separated run labels, one per file (default from file names)")
		balance     = pflag.Float64("balance", 0, "initial balance for the drawdown percentage (default from config)")
		jsonOut     = pflag.String("json", "", "write a JSON export to `FILE`")
		markdownOut = pflag.String("markdown", "", "write a markdown report to `FILE`")
		verbose     = pflag.BoolP("verbose", "v", false, "enable debug logging")
	)
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: compare [flags] BASELINE.csv CANDIDATE.csv [CANDIDATE.csv...]\n\n")
		pflag.PrintDefaults()
	}
	pflag.Parse()
	if pflag.NArg() < 2 {
		pflag.Usage()
		os.Exit(2)
	}

	cfg, log := cli.Setup(*verbose)
	defer log.Sync()

	opts := performance.Options{InitialBalance: cfg.Analysis.InitialBalance}
	if pflag.CommandLine.Changed("balance") {
		opts.InitialBalance = *balance
	}

	names, err := cli.Labels(pflag.Args(), *labels)
	if err != nil {
		cli.Fatal(log, "Invalid --labels", err)
	}

	runs := make([]report.RunReport, 0, pflag.NArg())
	inputs := make([]compare.Run, 0, pflag.NArg())
	for i, path := range pflag.Args() {
		tl, err := cli.LoadTrades(log, path)
		if err != nil {
			cli.Fatal(log, "Failed to load trade log", err)
		}
		run := report.NewRunReport(names[i], tl, opts)
		runs = append(runs, run)
		inputs = append(inputs, compare.Run{Label: run.Label, Summary: run.Summary})
	}

	export := report.NewExport(runs...)
	export.Comparisons = compare.CompareMany(inputs)

	for _, c := range export.Comparisons {
		if err := report.WriteComparisonTable(os.Stdout, c); err != nil {
			cli.Fatal(log, "Failed to print comparison", err)
		}
	}

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
