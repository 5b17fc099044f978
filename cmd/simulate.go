package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/amshithnair/gearguard-odoo/internal/cbm"
	"github.com/amshithnair/gearguard-odoo/internal/logger"
	"github.com/amshithnair/gearguard-odoo/internal/simulator"
	"github.com/spf13/cobra"
)

type simulateOptions struct {
	ticks    int
	interval time.Duration
	step     float64
	anomaly  bool
}

func newSimulateCommand(a *app) *cobra.Command {
	var opts simulateOptions

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Drive random-walk telemetry through the engine",
		Long: `Walk every sensor that has an active trigger and ingest one reading per sensor
per tick. Outcomes are printed as they are recorded. Runs until interrupted
unless --ticks is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("interval") {
				opts.interval = a.settings.Simulator.Interval.Std()
			}
			if !cmd.Flags().Changed("step") {
				opts.step = a.settings.Simulator.Step
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runSimulate(ctx, a, opts, cmd.OutOrStdout())
		},
	}
	cmd.Flags().IntVarP(&opts.ticks, "ticks", "n", 0, "stop after this many ticks (0 runs until interrupted)")
	cmd.Flags().DurationVar(&opts.interval, "interval", 2*time.Second, "time between ticks")
	cmd.Flags().Float64Var(&opts.step, "step", 5, "maximum walk step per tick")
	cmd.Flags().BoolVar(&opts.anomaly, "anomalies-only", false, "print only readings that violated a trigger")
	return cmd
}

func runSimulate(ctx context.Context, a *app, opts simulateOptions, out io.Writer) error {
	bus := cbm.NewOutcomeBus()
	// Stopping the bus drains queued outcomes to the printer below.
	defer bus.Stop()

	st, engine, err := a.openEngine(ctx, cbm.WithBus(bus))
	if err != nil {
		return err
	}
	defer st.Close()
	defer engine.Stop()

	bus.Subscribe(func(o *cbm.Outcome) {
		if opts.anomaly && !o.IsAnomaly() {
			return
		}
		fmt.Fprintln(out, formatOutcome(o))
	})

	sim := simulator.New(engine, engine, simulator.Config{
		Interval:    opts.interval,
		Step:        opts.step,
		Concurrency: a.settings.Simulator.Concurrency,
	}, a.log)

	ticker := time.NewTicker(opts.interval)
	defer ticker.Stop()

	for n := 0; opts.ticks == 0 || n < opts.ticks; n++ {
		if n > 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
		}
		if err := sim.Tick(ctx); err != nil && ctx.Err() == nil {
			a.log.Warn("simulator tick failed", logger.Error(err))
		}
	}

	status := sim.Status()
	a.log.Info("simulation finished", logger.Uint64("ticks", status.Ticks), logger.Uint64("errors", status.Errors))
	return nil
}

// formatOutcome renders one outcome as a single console line.
func formatOutcome(o *cbm.Outcome) string {
	line := fmt.Sprintf("%s  %-6s %-16s %10s",
		o.LogEntry.ObservedAt.Format(time.RFC3339), o.Reading.EquipmentID, o.Reading.Parameter,
		cbm.FormatValue(o.Reading.Value))
	if !o.IsAnomaly() {
		return line + "  normal"
	}
	return fmt.Sprintf("%s  ANOMALY rules=%v tickets=%d", line, o.ViolatedRuleIDs, len(o.Tickets))
}
