package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aimhigh31/work-ten-sub018/internal/counter"
	"github.com/aimhigh31/work-ten-sub018/internal/server"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	var printOnly bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the counter table on the configured SQL store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			cleanup, err := setupLogging(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			cfg.Database.Migrations.AutoMigrate = false
			backend, err := server.OpenBackend(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer backend.Close()

			store, ok := backend.(*counter.SQLStore)
			if !ok {
				return fmt.Errorf("store backend %q has no schema to migrate", cfg.Store.Backend)
			}
			if printOnly {
				q, err := counter.SchemaSQL(store.Driver())
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), q+";")
				return nil
			}
			if err := store.EnsureSchema(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "counter table %s ready (%s)\n", counter.TableName, store.Driver())
			return nil
		},
	}
	cmd.Flags().BoolVar(&printOnly, "print", false, "Print the DDL instead of executing it")
	return cmd
}
