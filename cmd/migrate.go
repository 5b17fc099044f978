package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/amshithnair/gearguard-odoo/internal/cbm"
	"github.com/spf13/cobra"
)

func newMigrateCommand(a *app) *cobra.Command {
	var seed bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or migrate the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigrate(cmd.Context(), a, seed, cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVar(&seed, "seed", false, "also create the demo equipment and triggers")
	return cmd
}

func runMigrate(ctx context.Context, a *app, seed bool, out io.Writer) error {
	st, err := a.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	if seed {
		if err := cbm.SeedDefaults(ctx, st.repos, a.log); err != nil {
			return fmt.Errorf("failed to seed defaults: %w", err)
		}
	}
	fmt.Fprintf(out, "%s schema is up to date\n", st.manager.Dialect())
	return nil
}
