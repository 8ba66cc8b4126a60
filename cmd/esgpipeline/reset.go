package main

import (
	"fmt"

	"github.com/spf13/cobra"

	apperrors "github.com/alejandroruanova/esg-pipeline/internal/pkg/errors"
)

func newResetCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Clear all pipeline data, move processed files back to the inbox and delete reports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return apperrors.BadRequest("reset deletes every company and booking, pass --yes to confirm")
			}
			return withApp(func(a *app) error {
				ctx := cmd.Context()
				if err := a.audit.Reset(ctx); err != nil {
					return err
				}
				restored, err := a.storage.RestoreProcessed(ctx)
				if err != nil {
					return err
				}
				removed, err := a.storage.ClearReports(ctx)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintln(out, "Database cleared.")
				fmt.Fprintf(out, "%d file(s) moved back to the inbox, %d report(s) deleted.\n", restored, removed)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the reset")
	return cmd
}
