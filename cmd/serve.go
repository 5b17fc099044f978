package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/amshithnair/gearguard-odoo/internal/api"
	apiv2 "github.com/amshithnair/gearguard-odoo/internal/api/v2"
	"github.com/amshithnair/gearguard-odoo/internal/broker"
	"github.com/amshithnair/gearguard-odoo/internal/cbm"
	"github.com/amshithnair/gearguard-odoo/internal/errors"
	"github.com/amshithnair/gearguard-odoo/internal/influx"
	"github.com/amshithnair/gearguard-odoo/internal/logger"
	"github.com/amshithnair/gearguard-odoo/internal/mqtt"
	"github.com/amshithnair/gearguard-odoo/internal/notification"
	"github.com/amshithnair/gearguard-odoo/internal/observability"
	"github.com/amshithnair/gearguard-odoo/internal/simulator"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const sentryFlushTimeout = 2 * time.Second

func newServeCommand(a *app) *cobra.Command {
	var simulate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, sensor bridge and simulator",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("simulate") {
				a.settings.Simulator.Enabled = simulate
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, a)
		},
	}
	cmd.Flags().BoolVar(&simulate, "simulate", false, "start the telemetry simulator (overrides simulator.enabled)")
	return cmd
}

// runServe wires every component and blocks until ctx is cancelled or a component fails.
func runServe(ctx context.Context, a *app) error {
	s := a.settings
	log := a.log

	reporter, err := observability.InitSentry(&s.Sentry, Version)
	if err != nil {
		return err
	}
	if reporter != nil {
		errors.SetReporter(reporter)
		defer reporter.Flush(sentryFlushTimeout)
	}

	metrics, err := observability.NewMetrics()
	if err != nil {
		return err
	}

	bus := cbm.NewOutcomeBus()
	defer bus.Stop()
	if err := metrics.RegisterBus(bus); err != nil {
		return err
	}

	st, engine, err := a.openEngine(ctx, cbm.WithBus(bus), cbm.WithMetrics(metrics))
	if err != nil {
		return err
	}
	defer st.Close()
	defer engine.Stop()

	if s.NATS.Enabled {
		publisher, err := broker.Connect(&s.NATS, metrics, log)
		if err != nil {
			return err
		}
		defer func() { _ = publisher.Close() }()
		defer bus.Subscribe(publisher.Handle)()
	}

	if s.Influx.Enabled {
		writer := influx.NewWriter(&s.Influx, metrics, log)
		defer writer.Close()
		if err := writer.Health(ctx); err != nil {
			// Readings are still mirrored once InfluxDB comes up.
			log.Warn("influxdb not reachable", logger.String("url", s.Influx.URL), logger.Error(err))
		}
		defer bus.Subscribe(writer.Handle)()
	}

	var notifier *notification.Service
	if s.Notify.Enabled {
		notifier, err = notification.FromSettings(&s.Notify, metrics, log)
		if err != nil {
			return err
		}
		defer bus.Subscribe(notifier.Handle)()
	}

	sim := simulator.New(engine, engine, simulator.Config{
		Interval:    s.Simulator.Interval.Std(),
		Step:        s.Simulator.Step,
		Concurrency: s.Simulator.Concurrency,
	}, log)
	defer sim.Stop()

	g, gctx := errgroup.WithContext(ctx)

	if s.Simulator.Enabled {
		if err := sim.Start(gctx); err != nil {
			return err
		}
	}

	if s.MQTT.Enabled {
		bridge := mqtt.NewBridge(&s.MQTT, engine, metrics, log)
		if err := bridge.Start(gctx); err != nil {
			return err
		}
		defer bridge.Stop()
	}

	if s.WebServer.Enabled {
		var opts []api.Option
		if s.Metrics.Enabled {
			opts = append(opts, api.WithMetricsHandler(s.Metrics.Path, metrics.Handler()))
		}
		srv := api.New(gctx, &s.WebServer, apiv2.Deps{
			Engine:          engine,
			Repos:           st.repos,
			DB:              st.manager,
			Simulator:       sim,
			Metrics:         metrics,
			Bus:             bus,
			Notifier:        notifierOrNil(notifier),
			IngestRateLimit: s.WebServer.IngestRateLimit,
			IngestBurst:     s.WebServer.IngestBurst,
			Version:         Version,
		}, log, opts...)

		g.Go(srv.Start)
		g.Go(func() error {
			<-gctx.Done()
			return srv.Shutdown(context.Background())
		})
	} else {
		g.Go(func() error {
			<-gctx.Done()
			return nil
		})
	}

	log.Info("gearguard running",
		logger.String("version", Version),
		logger.String("database", st.manager.Dialect()),
		logger.Bool("http", s.WebServer.Enabled),
		logger.Bool("mqtt", s.MQTT.Enabled),
		logger.Bool("simulator", s.Simulator.Enabled),
		logger.Bool("nats", s.NATS.Enabled),
		logger.Bool("influx", s.Influx.Enabled),
		logger.Bool("notify", s.Notify.Enabled))

	err = g.Wait()
	log.Info("gearguard shutting down")
	return err
}

// notifierOrNil keeps a nil *Service from becoming a non-nil interface.
func notifierOrNil(n *notification.Service) apiv2.Notifier {
	if n == nil {
		return nil
	}
	return n
}
