package cmd

import (
	"fmt"

	"github.com/amshithnair/gearguard-odoo/internal/notification"
	"github.com/spf13/cobra"
)

func newNotifyCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Manage ticket push notifications",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "test",
		Short: "Send a test notification to every configured URL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(a.settings.Notify.URLs) == 0 {
				return fmt.Errorf("no notification urls configured (notify.urls)")
			}
			svc, err := notification.FromSettings(&a.settings.Notify, nil, a.log)
			if err != nil {
				return err
			}
			if err := svc.SendTest(cmd.Context()); err != nil {
				return fmt.Errorf("test notification failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "sent test notification to %d url(s)\n", len(a.settings.Notify.URLs))
			return nil
		},
	})
	return cmd
}
