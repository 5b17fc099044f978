package cmd

import (
	"fmt"
	"os"

	"github.com/amshithnair/gearguard-odoo/internal/conf"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const redacted = "********"

func newConfigCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Write or show configuration",
	}
	cmd.AddCommand(newConfigInitCommand(), newConfigShowCommand(a))
	return cmd
}

func newConfigInitCommand() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:         "init [PATH]",
		Short:       "Write a config file with default values",
		Args:        cobra.MaximumNArgs(1),
		Annotations: map[string]string{skipConfigAnnotation: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "config.yaml"
			if len(args) == 1 {
				path = args[0]
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists, use --force to overwrite", path)
			}
			if err := conf.WriteDefaultConfig(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")
	return cmd
}

func newConfigShowCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with secrets redacted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := yaml.Marshal(redact(*a.settings))
			if err != nil {
				return fmt.Errorf("failed to encode config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

// redact returns a copy of s with credentials masked.
func redact(s conf.Settings) conf.Settings {
	mask := func(v *string) {
		if *v != "" {
			*v = redacted
		}
	}
	mask(&s.Database.DSN)
	mask(&s.MQTT.Password)
	mask(&s.Influx.Token)
	mask(&s.Sentry.DSN)
	// shoutrrr URLs embed tokens.
	urls := make([]string, len(s.Notify.URLs))
	for i := range s.Notify.URLs {
		urls[i] = redacted
	}
	s.Notify.URLs = urls
	return s
}
