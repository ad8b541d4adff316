package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/aimhigh31/work-ten-sub018/internal/codegen"
	"github.com/aimhigh31/work-ten-sub018/internal/counter"
	"github.com/aimhigh31/work-ten-sub018/internal/server"
)

func newCountersCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "counters",
		Short: "Inspect counter state (read-only)",
	}
	cmd.AddCommand(newCountersListCmd(opts), newCountersGetCmd(opts))
	return cmd
}

func newCountersListCmd(opts *rootOptions) *cobra.Command {
	var (
		year   int
		output string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List counters, optionally for one year",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withInspector(cmd, opts, func(in counter.Inspector) error {
				recs, err := in.List(cmd.Context(), year)
				if err != nil {
					return err
				}
				return printRecords(cmd.OutOrStdout(), output, recs)
			})
		},
	}
	cmd.Flags().IntVar(&year, "year", 0, "Only list counters for this year")
	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format: table|yaml|json")
	return cmd
}

func newCountersGetCmd(opts *rootOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "get MODULE YEAR",
		Short: "Show one counter",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			year, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("%w: year %q is not a number", codegen.ErrInvalidInput, args[1])
			}
			return withInspector(cmd, opts, func(in counter.Inspector) error {
				rec, err := in.Get(cmd.Context(), counter.Key{ModuleType: args[0], Year: year})
				if errors.Is(err, counter.ErrNotFound) {
					return fmt.Errorf("no counter for %s/%d: %w", args[0], year, err)
				}
				if err != nil {
					return err
				}
				return printRecords(cmd.OutOrStdout(), output, []counter.Record{rec})
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format: table|yaml|json")
	return cmd
}

func withInspector(cmd *cobra.Command, opts *rootOptions, fn func(counter.Inspector) error) error {
	cfg, err := opts.load()
	if err != nil {
		return err
	}
	cleanup, err := setupLogging(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	backend, err := server.OpenBackend(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer backend.Close()
	return fn(backend)
}
