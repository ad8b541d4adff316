package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aimhigh31/work-ten-sub018/internal/codegen"
	"github.com/aimhigh31/work-ten-sub018/internal/server"
)

func newAllocateCmd(opts *rootOptions) *cobra.Command {
	var (
		year  int
		count int
	)
	cmd := &cobra.Command{
		Use:   "allocate MODULE",
		Short: "Allocate the next code for a module type",
		Long: `Allocate reserves the next sequence number for MODULE in the given year
(default: the current UTC year) and prints the resulting code.`,
		Example: `  codeseq allocate COST
  codeseq allocate MAIN-EDU --year 2025 --count 3`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if count < 1 {
				return fmt.Errorf("%w: --count must be at least 1", codegen.ErrInvalidInput)
			}
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

			alloc := codegen.NewAllocator(backend, codegen.ConfigFrom(cfg.Allocator))
			for i := 0; i < count; i++ {
				code, err := alloc.Allocate(cmd.Context(), args[0], year)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), code)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&year, "year", 0, "Four-digit year (default current UTC year)")
	cmd.Flags().IntVar(&count, "count", 1, "Number of codes to allocate")
	return cmd
}
