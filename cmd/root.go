// Package cmd implements the gearguard command line.
package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/amshithnair/gearguard-odoo/internal/cbm"
	"github.com/amshithnair/gearguard-odoo/internal/conf"
	datastore "github.com/amshithnair/gearguard-odoo/internal/datastore/v2"
	"github.com/amshithnair/gearguard-odoo/internal/logger"
	"github.com/spf13/cobra"
)

// Version is stamped at build time with -ldflags "-X .../cmd.Version=...".
var Version = "dev"

// skipConfigAnnotation marks commands that run without loading settings.
const skipConfigAnnotation = "gearguard/skip-config"

// app carries state shared by subcommands once the root pre-run has loaded settings.
type app struct {
	configPath string
	logLevel   string

	settings *conf.Settings
	log      logger.Logger
	logClose io.Closer
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "gearguard",
		Short: "Condition-based maintenance trigger engine",
		Long: `GearGuard evaluates machine telemetry against threshold triggers and opens
condition-based maintenance requests when a reading violates one.

Commands:
  serve     - Run the HTTP API with the optional MQTT bridge, simulator and sinks
  simulate  - Drive random-walk telemetry through the engine
  ingest    - Submit a single reading
  rules     - List, import and export triggers
  log       - Show the telemetry log
  migrate   - Create or migrate the database schema
  config    - Write or show configuration`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(*cobra.Command, []string) { a.teardown() },
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "",
		"config file (default ./config.yaml, then ~/.gearguard/config.yaml)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override main.log.level")

	root.AddCommand(
		newServeCommand(a),
		newSimulateCommand(a),
		newIngestCommand(a),
		newRulesCommand(a),
		newLogCommand(a),
		newMigrateCommand(a),
		newNotifyCommand(a),
		newConfigCommand(a),
		newVersionCommand(),
	)
	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCommand().Execute()
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if cmd.Annotations[skipConfigAnnotation] == "true" {
		return nil
	}

	settings, err := conf.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		settings.Main.Log.Level = a.logLevel
	}
	a.settings = settings

	l, closer := logger.New(logger.Options{
		Level:  logger.LogLevel(settings.Main.Log.Level),
		Format: settings.Main.Log.Format,
		File: logger.FileConfig{
			Path:       settings.Main.Log.File,
			MaxSizeMB:  settings.Main.Log.MaxSizeMB,
			MaxBackups: settings.Main.Log.MaxBackups,
			MaxAgeDays: settings.Main.Log.MaxAgeDays,
			Compress:   settings.Main.Log.Compress,
		},
	})
	a.log = l.With(logger.String("service", settings.Main.Name))
	a.logClose = closer
	logger.SetGlobal(a.log)
	return nil
}

func (a *app) teardown() {
	if a.logClose != nil {
		_ = a.logClose.Close()
	}
}

// store is an opened, migrated datastore.
type store struct {
	manager datastore.Manager
	repos   cbm.Repositories
}

func (s *store) Close() {
	_ = s.manager.Close()
}

// openStore connects to the configured database and migrates the schema.
func (a *app) openStore() (*store, error) {
	mgr, err := datastore.Open(&a.settings.Database, a.log)
	if err != nil {
		return nil, err
	}
	if err := mgr.Initialize(); err != nil {
		_ = mgr.Close()
		return nil, err
	}
	return &store{manager: mgr, repos: cbm.NewRepositories(mgr.DB())}, nil
}

// openEngine opens the store and initializes the engine over it.
func (a *app) openEngine(ctx context.Context, opts ...cbm.Option) (*store, *cbm.Engine, error) {
	st, err := a.openStore()
	if err != nil {
		return nil, nil, err
	}
	engine, err := cbm.Initialize(ctx, st.repos, &a.settings.CBM, a.log, opts...)
	if err != nil {
		st.Close()
		return nil, nil, err
	}
	return st, engine, nil
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print the version",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipConfigAnnotation: "true"},
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "gearguard %s\n", Version)
		},
	}
}
