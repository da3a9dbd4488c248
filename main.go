package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"fmpfetcher/internal/config"
	"fmpfetcher/internal/fetcher"
	"fmpfetcher/internal/fmp"
	"fmpfetcher/internal/table"
)

func main() {
	// Create context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signals for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nReceived interrupt signal, shutting down...")
		cancel()
	}()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// app carries what every subcommand needs once configuration is loaded.
type app struct {
	cfg       *config.Config
	transport *fetcher.HTTPTransport
	client    *fmp.Client
	format    table.Format
}

type rootFlags struct {
	envFile  string
	baseURL  string
	logLevel string
	format   string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	a := &app{}

	root := &cobra.Command{
		Use:   "fmpfetcher",
		Short: "Fetch financial statements from Financial Modeling Prep",
		Long: `fmpfetcher downloads income, balance sheet and cash flow statements for a
list of symbols in batches, and renders the periods as one table keyed by
symbol and date. Requests that fail are reported in a separate table.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd, flags)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.transport != nil {
				return a.transport.Close()
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&flags.envFile, "env-file", "", "Load environment variables from this file (default .env when present)")
	root.PersistentFlags().StringVar(&flags.baseURL, "base-url", "", "API root URL (overrides FMP_BASE_URL)")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn or error (overrides LOG_LEVEL)")
	root.PersistentFlags().StringVar(&flags.format, "format", string(table.FormatText), "Output format: text or csv")

	root.AddCommand(newStatementsCmd(a), newEndpointCmd(a), newSymbolsCmd(a))
	return root
}

func (a *app) setup(cmd *cobra.Command, flags *rootFlags) error {
	var envFiles []string
	if flags.envFile != "" {
		envFiles = append(envFiles, flags.envFile)
	}

	cfg, err := config.Load(envFiles...)
	if err != nil {
		return err
	}
	if flags.baseURL != "" {
		cfg.BaseURL = flags.baseURL
	}
	if flags.logLevel != "" {
		cfg.LogLevel = flags.logLevel
	}

	level, err := cfg.SlogLevel()
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	a.format, err = table.ParseFormat(flags.format)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.transport = fetcher.NewHTTPTransport(cfg.HTTPOptions())
	a.client = fmp.NewClient(a.transport,
		fmp.WithBaseURL(cfg.BaseURL),
		fmp.WithLogger(logger.With("component", "fmp")),
	)
	return nil
}

// writeErrors renders failed requests to w. Nothing is written when there are none.
func (a *app) writeErrors(w io.Writer, errs *table.ErrorTable) error {
	if errs.Len() == 0 {
		return nil
	}
	if a.format == table.FormatText {
		fmt.Fprintf(w, "%d request(s) failed:\n", errs.Len())
	}
	return table.Write(w, a.format, errs.Header(), errs.Records())
}
