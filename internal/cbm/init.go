package cbm

import (
	"context"

	"github.com/amshithnair/gearguard-odoo/internal/conf"
	"github.com/amshithnair/gearguard-odoo/internal/logger"
)

// Initialize seeds the default plant when configured, builds the engine with the
// incident policy chosen by settings and starts log retention cleanup.
func Initialize(
	ctx context.Context,
	repos Repositories,
	settings *conf.CBMSettings,
	log logger.Logger,
	opts ...Option,
) (*Engine, error) {
	if log == nil {
		log = logger.Global()
	}
	log = log.Module(componentName)

	if settings.SeedDefaults {
		if err := SeedDefaults(ctx, repos, log); err != nil {
			return nil, persistenceError("seed defaults", err)
		}
	}

	base := []Option{
		WithPolicy(PolicyFor(settings.Cooldown.Std())),
		WithWriteTimeout(settings.IngestWriteTimeout()),
	}
	engine := NewEngine(repos, log, append(base, opts...)...)

	engine.StartLogCleanup(settings.LogRetention.Std())

	rules, err := engine.ListRules(ctx, "")
	if err != nil {
		engine.Stop()
		return nil, err
	}

	log.Info("cbm engine initialized",
		logger.Int("rules_loaded", len(rules)),
		logger.Duration("cooldown", settings.Cooldown.Std()),
		logger.Duration("log_retention", settings.LogRetention.Std()))

	return engine, nil
}
