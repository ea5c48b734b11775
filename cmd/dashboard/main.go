// Command dashboard renders an HTML dashboard of one or more EA trade logs.
package main

import (
	"fmt"
	"io"
	"os"

	"tickphysics-lab/internal/cli"
	"tickphysics-lab/internal/performance"
	"tickphysics-lab/internal/report"

	"github.com/spf13/pflag"
)

func main() {
	var (
		out         = pflag.StringP("out", "o", "dashboard.html", "output `FILE`")
		signalsPath = pflag.String("signals", "", "signal log CSV of the first run")
		sweeps      = pflag.StringArray("sweep", nil, "entry filter sweep, `METRIC[=T1,T2,...]` (repeatable)")
		balance     = pflag.Float64("balance", 0, "initial balance for the drawdown percentage (default from config)")
		verbose     = pflag.BoolP("verbose", "v", false, "enable debug logging")
	)
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: dashboard [flags] TRADES.csv...\n\n")
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

	if err := cli.WriteFile(*out, func(w io.Writer) error { return report.WriteDashboard(w, runs) }); err != nil {
		cli.Fatal(log, "Failed to write dashboard", err)
	}
	fmt.Printf("Dashboard written to %s\n", *out)
}
