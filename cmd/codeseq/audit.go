package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aimhigh31/work-ten-sub018/internal/audit"
	"github.com/aimhigh31/work-ten-sub018/internal/server"
)

func newAuditCmd(opts *rootOptions) *cobra.Command {
	var (
		column string
		sheet  string
		output string
	)
	cmd := &cobra.Command{
		Use:   "audit FILE",
		Short: "Check imported codes against the live counters",
		Long: `Audit reads codes that were created outside the allocator (manual entry,
spreadsheet imports) from a CSV or XLSX file and reports, per module type and
year, whether the stored counter is behind the highest imported sequence. Such
keys would hand out codes that already exist. Duplicate and malformed codes are
listed as well. Counter state is never modified.`,
		Example: `  codeseq audit legacy_costs.xlsx --column "business code"
  codeseq audit tasks.csv -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := audit.ReadFile(args[0], column, sheet)
			if err != nil {
				return err
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

			rep, err := audit.Run(cmd.Context(), backend, entries)
			if err != nil {
				return err
			}
			if err := printAudit(cmd.OutOrStdout(), output, rep); err != nil {
				return err
			}
			if !rep.OK() {
				return fmt.Errorf("%w: %d keys behind, %d duplicates, %d invalid",
					errAuditFindings, len(rep.Collisions()), len(rep.Duplicates), len(rep.Invalid))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&column, "column", audit.DefaultColumn, "Header of the column holding the codes")
	cmd.Flags().StringVar(&sheet, "sheet", "", "Worksheet name for XLSX files (default first sheet)")
	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format: table|yaml|json")
	return cmd
}
