package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"fmpfetcher/internal/fmp"
	"fmpfetcher/internal/table"
)

type statementsFlags struct {
	statement string
	period    string
	version   string
	chunkSize int
}

func newStatementsCmd(a *app) *cobra.Command {
	flags := &statementsFlags{}

	cmd := &cobra.Command{
		Use:   "statements [SYMBOL...]",
		Short: "Fetch financial statements for symbols",
		Long: `Fetch one statement type for every symbol, in chunks, and print a table
keyed by symbol and date. Symbols default to SYMBOLS from the environment.
API version 3.1 accepts one symbol per request.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.options(cmd, a)
			if err != nil {
				return err
			}

			symbols := args
			if len(symbols) == 0 {
				symbols = a.cfg.Symbols
			}

			errs, data, err := a.client.FinancialStatements(cmd.Context(), symbols, opts)
			if err != nil {
				return err
			}

			if err := a.writeErrors(cmd.ErrOrStderr(), errs); err != nil {
				return err
			}
			if data.IsEmpty() {
				if errs.Len() > 0 {
					return errors.New("no statements fetched")
				}
				fmt.Fprintln(cmd.ErrOrStderr(), "no statements returned")
				return nil
			}
			return table.Write(cmd.OutOrStdout(), a.format, data.Header(), data.Records())
		},
	}

	cmd.Flags().StringVar(&flags.statement, "statement", "", "Statement: income (is), balance (bs) or cashflow (cf)")
	cmd.Flags().StringVar(&flags.period, "period", "", "Reporting period: annual or quarter")
	cmd.Flags().StringVar(&flags.version, "version", "", "API version: 3 or 3.1")
	cmd.Flags().IntVar(&flags.chunkSize, "chunk-size", 0, "Symbols per request (default 3, or 1 for API version 3.1)")
	return cmd
}

// options layers the command's flags over the loaded configuration.
func (f *statementsFlags) options(cmd *cobra.Command, a *app) (fmp.StatementOptions, error) {
	opts := a.cfg.StatementOptions()

	if f.statement != "" {
		s, err := fmp.ParseStatement(f.statement)
		if err != nil {
			return opts, err
		}
		opts.Statement = s
	}
	if f.period != "" {
		p, err := fmp.ParsePeriod(f.period)
		if err != nil {
			return opts, err
		}
		opts.Period = p
	}
	if f.version != "" {
		v, err := fmp.ParseVersion(f.version)
		if err != nil {
			return opts, err
		}
		opts.Version = v
		// Picking the native API without a chunk size implies one symbol per request.
		if limit := v.BatchLimit(); limit > 0 && !cmd.Flags().Changed("chunk-size") {
			opts.ChunkSize = limit
		}
	}
	if cmd.Flags().Changed("chunk-size") {
		opts.ChunkSize = f.chunkSize
	}
	return opts, nil
}

func newEndpointCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "endpoint NAME [SYMBOL...]",
		Short: "Fetch a per-symbol endpoint",
		Long: fmt.Sprintf(`Fetch one endpoint for each symbol and print the decoded payloads as JSON.

Endpoints: %s`, strings.Join(fmp.EndpointNames(), ", ")),
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ep, err := fmp.LookupEndpoint(args[0])
			if err != nil {
				return err
			}

			symbols := args[1:]
			if len(symbols) == 0 {
				symbols = a.cfg.Symbols
			}

			result, err := a.client.Endpoint(cmd.Context(), ep, symbols, a.cfg.QueryParams())
			if err != nil {
				return err
			}

			if err := a.writeErrors(cmd.ErrOrStderr(), table.AssembleErrors(result.Errors)); err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			for _, symbol := range fmp.NormalizeSymbols(symbols) {
				v, ok := result.Data[symbol]
				if !ok {
					continue
				}
				if err := enc.Encode(map[string]any{symbol: v}); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newSymbolsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "symbols",
		Short: "List every symbol the service knows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := a.client.SymbolsList(cmd.Context(), a.cfg.QueryParams())
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(v)
		},
	}
}
