package main

import (
	"context"
	"fmt"

	"github.com/Domenick1991/cohortseat/internal/bootstrap"
	"github.com/spf13/cobra"
)

func sweepCmd(open opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run one expiry sweep",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "holds",
		Short: "Cancel seat holds past their expiry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, open, func(ctx context.Context, app *bootstrap.App) error {
				n, err := app.Sweeper.SweepHolds(ctx)
				fmt.Fprintf(cmd.OutOrStdout(), "expired %d holds\n", n)
				return err
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "waitlist",
		Short: "Expire waitlist offers past their acceptance window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, open, func(ctx context.Context, app *bootstrap.App) error {
				n, err := app.Sweeper.SweepWaitlist(ctx)
				fmt.Fprintf(cmd.OutOrStdout(), "expired %d waitlist offers\n", n)
				return err
			})
		},
	})

	return cmd
}
