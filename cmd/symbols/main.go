// Command symbols manages the symbol registry through its REST API.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"tickphysics-lab/internal/apiclient"
	"tickphysics-lab/internal/cli"
	"tickphysics-lab/internal/models"

	"github.com/spf13/pflag"
)

const usage = `Usage: symbols [flags] COMMAND

Commands:
  list                  list registered symbols
  get ID                show one symbol
  create NAME [DESC]    register a symbol
  rename ID NAME        rename a symbol
  describe ID DESC      change a symbol's description ("" clears it)
  delete ID             remove a symbol
  ready                 check that the server can reach its database

Flags:
`

func main() {
	var (
		baseURL = pflag.String("url", "", "server base URL (default from config)")
		skip    = pflag.Int("skip", 0, "list: symbols to skip")
		limit   = pflag.Int("limit", 100, "list: maximum symbols to return")
		timeout = pflag.Duration("timeout", 30*time.Second, "overall deadline for the command")
		verbose = pflag.BoolP("verbose", "v", false, "enable debug logging")
	)
	pflag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		pflag.PrintDefaults()
	}
	pflag.Parse()
	if pflag.NArg() == 0 {
		pflag.Usage()
		os.Exit(2)
	}

	cfg, log := cli.Setup(*verbose)
	defer log.Sync()
	if *baseURL != "" {
		cfg.Client.BaseURL = *baseURL
	}
	client := apiclient.NewClient(&cfg.Client, log)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	err := run(ctx, client, os.Stdout, pflag.Args(), *skip, *limit)
	if errors.Is(err, errUsage) {
		pflag.Usage()
		os.Exit(2)
	}
	if err != nil {
		cli.Fatal(log, "Command failed", err)
	}
}

var errUsage = errors.New("usage")

func run(ctx context.Context, client apiclient.SymbolClient, w io.Writer, args []string, skip, limit int) error {
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "list":
		list, err := client.ListSymbols(ctx, skip, limit)
		if err != nil {
			return err
		}
		return printSymbols(w, list...)

	case "get":
		id, err := argID(rest, 1)
		if err != nil {
			return err
		}
		sym, err := client.GetSymbol(ctx, id)
		if err != nil {
			return err
		}
		return printSymbols(w, *sym)

	case "create":
		if len(rest) < 1 || len(rest) > 2 {
			return errUsage
		}
		var desc *string
		if len(rest) == 2 {
			desc = &rest[1]
		}
		sym, err := client.CreateSymbol(ctx, rest[0], desc)
		if err != nil {
			return err
		}
		return printSymbols(w, *sym)

	case "rename":
		id, err := argID(rest, 2)
		if err != nil {
			return err
		}
		sym, err := client.UpdateSymbol(ctx, id, &rest[1], nil)
		if err != nil {
			return err
		}
		return printSymbols(w, *sym)

	case "describe":
		id, err := argID(rest, 2)
		if err != nil {
			return err
		}
		sym, err := client.UpdateSymbol(ctx, id, nil, &rest[1])
		if err != nil {
			return err
		}
		return printSymbols(w, *sym)

	case "delete":
		id, err := argID(rest, 1)
		if err != nil {
			return err
		}
		if err := client.DeleteSymbol(ctx, id); err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "deleted %d\n", id)
		return err

	case "ready":
		if err := client.Ready(ctx); err != nil {
			return err
		}
		_, err := fmt.Fprintln(w, "ready")
		return err
	}
	return errUsage
}

func argID(args []string, want int) (uint, error) {
	if len(args) != want {
		return 0, errUsage
	}
	id, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id %q", args[0])
	}
	return uint(id), nil
}

func printSymbols(w io.Writer, list ...models.Symbol) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tDESCRIPTION\tUPDATED")
	for _, s := range list {
		desc := ""
		if s.Description != nil {
			desc = strings.ReplaceAll(*s.Description, "\t", " ")
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", s.ID, s.Name, desc, s.UpdatedAt.Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}
