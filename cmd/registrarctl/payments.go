package main

import (
	"context"
	"fmt"

	"github.com/Domenick1991/cohortseat/internal/bootstrap"
	"github.com/spf13/cobra"
)

func replayCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "replay <payment-id>",
		Short: "Re-fetch a payment from its provider and reconcile it",
		Long: `Re-fetch a payment from its provider and reconcile it.

Replaying is idempotent: a payment that is already completed is left alone.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, open, func(ctx context.Context, app *bootstrap.App) error {
				p, err := app.Payments.Poll(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "payment %s: %s", p.ID, p.Status)
				if p.AttentionReason != "" {
					fmt.Fprintf(cmd.OutOrStdout(), " (attention: %s)", p.AttentionReason)
				}
				fmt.Fprintln(cmd.OutOrStdout())
				return nil
			})
		},
	}
}

func refundCmd(open opener) *cobra.Command {
	var (
		amount int64
		reason string
	)

	cmd := &cobra.Command{
		Use:   "refund <payment-id>",
		Short: "Refund a payment, in full unless --amount is given",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var amountCents *int64
			if cmd.Flags().Changed("amount") {
				amountCents = &amount
			}
			return withApp(cmd, open, func(ctx context.Context, app *bootstrap.App) error {
				refund, err := app.Payments.Refund(ctx, args[0], amountCents, reason)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "refund %s: %d %s\n", refund.ID, refund.AmountCents, refund.Status)
				return nil
			})
		},
	}

	cmd.Flags().Int64Var(&amount, "amount", 0, "amount in minor units")
	cmd.Flags().StringVar(&reason, "reason", "", "reason recorded with the refund")
	_ = cmd.MarkFlagRequired("reason")

	return cmd
}
