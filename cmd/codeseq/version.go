package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aimhigh31/work-ten-sub018/internal/version"
)

func newVersionCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if done, err := printStructured(cmd.OutOrStdout(), output, version.GetInfo()); done {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "codeseq %s\n", version.Full())
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output format: json|yaml (default plain text)")
	return cmd
}
