package cmd

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/amshithnair/gearguard-odoo/internal/cbm"
	"github.com/amshithnair/gearguard-odoo/internal/datastore/v2/repository"
	"github.com/spf13/cobra"
)

func newLogCommand(a *app) *cobra.Command {
	var filter repository.TelemetryLogFilter

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show the telemetry log, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLog(cmd.Context(), a, filter, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&filter.EquipmentID, "equipment", "e", "", "only this equipment")
	cmd.Flags().StringVarP(&filter.Parameter, "parameter", "p", "", "only this parameter")
	cmd.Flags().BoolVar(&filter.AnomalyOnly, "anomalies", false, "only readings that violated a trigger")
	cmd.Flags().IntVarP(&filter.Limit, "limit", "n", cbm.DefaultLogLimit, "maximum entries")
	cmd.Flags().IntVar(&filter.Offset, "offset", 0, "entries to skip")
	return cmd
}

func runLog(ctx context.Context, a *app, filter repository.TelemetryLogFilter, out io.Writer) error {
	st, err := a.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	engine := cbm.NewEngine(st.repos, a.log)
	entries, total, err := engine.ListLog(ctx, filter)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "OBSERVED\tEQUIPMENT\tPARAMETER\tVALUE\tANOMALY")
	for i := range entries {
		e := &entries[i]
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\n",
			e.ObservedAt.Format(time.RFC3339), e.EquipmentID, e.Parameter, cbm.FormatValue(e.Value), e.IsAnomaly)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "%d of %d entries\n", len(entries), total)
	return nil
}
