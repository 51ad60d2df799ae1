package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/dvloznov/dre-engine/internal/config"
	"github.com/dvloznov/dre-engine/internal/logger"
)

type command struct {
	name  string
	usage string
	run   func(ctx context.Context, args []string, out io.Writer) error
}

var commands = []command{
	{"summary", "Print the single-period DRE", runSummary},
	{"pivot", "Print the twelve-month DRE statement", runPivot},
	{"categories", "Print the twelve-month pivot by category", runCategories},
	{"breakdown", "Print totals per category group", runBreakdown},
	{"evolution", "Print monthly revenue and profit", runEvolution},
	{"reconcile", "Audit the statement against signed totals", runReconcile},
	{"import", "Ingest a spreadsheet and replace the owner's stored records", runImport},
	{"load", "Print the owner's stored records as JSON", runLoad},
	{"export", "Write every DRE view to an XLSX workbook", runExport},
	{"publish-notion", "Publish the monthly DRE to a Notion database", runPublishNotion},
	{"upload", "Archive a local spreadsheet in Cloud Storage", runUpload},
	{"migrate", "Create the record store schema", runMigrate},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return 1
	}

	switch args[0] {
	case "help", "-h", "--help":
		printUsage(stdout)
		return 0
	}

	for _, c := range commands {
		if c.name != args[0] {
			continue
		}
		if err := c.run(ctx, args[1:], stdout); err != nil {
			if errors.Is(err, flag.ErrHelp) {
				return 0
			}
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	fmt.Fprintf(stderr, "Unknown command: %s\n\n", args[0])
	printUsage(stderr)
	return 1
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "DRE engine CLI")
	fmt.Fprintln(w, "\nUsage:")
	fmt.Fprintln(w, "  cli <command> [options]")
	fmt.Fprintln(w, "\nCommands:")
	for _, c := range commands {
		fmt.Fprintf(w, "  %-15s %s\n", c.name, c.usage)
	}
	fmt.Fprintln(w, "  help            Show this help message")
	fmt.Fprintln(w, "\nRun 'cli <command> -h' for more information on a command.")
}

// setup loads configuration and puts the configured logger in ctx.
func setup(ctx context.Context, configPath string) (context.Context, *config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return ctx, nil, err
	}
	log, err := logger.NewFromConfig(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return ctx, nil, err
	}
	return logger.WithContext(ctx, log), cfg, nil
}

func newFlagSet(name string) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to config.yaml (default: ./config.yaml when present)")
	return fs, configPath
}
