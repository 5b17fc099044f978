package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/amshithnair/gearguard-odoo/internal/cbm"
	"github.com/spf13/cobra"
)

func newIngestCommand(a *app) *cobra.Command {
	var (
		at      string
		asJSON  bool
		reading cbm.Reading
	)

	cmd := &cobra.Command{
		Use:   "ingest EQUIPMENT PARAMETER VALUE",
		Short: "Submit a single reading",
		Example: `  gearguard ingest eq1 Temperature 85
  gearguard ingest eq3 Running_Hours 501 --at 2025-06-01T08:00:00Z --json`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := strconv.ParseFloat(args[2], 64)
			if err != nil {
				return fmt.Errorf("invalid value %q: %w", args[2], err)
			}
			reading = cbm.Reading{EquipmentID: args[0], Parameter: args[1], Value: value}
			if at != "" {
				observed, err := time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("invalid --at %q: %w", at, err)
				}
				reading.ObservedAt = observed
			}
			return runIngest(cmd.Context(), a, reading, asJSON, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "observation time (RFC3339), defaults to now")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full result as JSON")
	return cmd
}

func runIngest(ctx context.Context, a *app, reading cbm.Reading, asJSON bool, out io.Writer) error {
	st, engine, err := a.openEngine(ctx)
	if err != nil {
		return err
	}
	defer st.Close()
	defer engine.Stop()

	result, err := engine.Ingest(ctx, reading)
	if err != nil {
		return fmt.Errorf("%s: %w", cbm.MessageFailed, err)
	}

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	fmt.Fprintln(out, result.Message)
	for i := range result.TicketsCreated {
		ticket := &result.TicketsCreated[i]
		fmt.Fprintf(out, "  ticket %s  %s  [%s]\n", ticket.ID, ticket.Title, ticket.Priority)
	}
	if len(result.SuppressedRules) > 0 {
		fmt.Fprintf(out, "  suppressed by cooldown: %v\n", result.SuppressedRules)
	}
	return nil
}
