package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Domenick1991/cohortseat/internal/bootstrap"
	"github.com/Domenick1991/cohortseat/internal/domain"
	"github.com/Domenick1991/cohortseat/internal/repository"
	"github.com/Domenick1991/cohortseat/internal/service/cohorts"
	"github.com/Domenick1991/cohortseat/internal/service/promo"
	"github.com/spf13/cobra"
)

func promoteCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "promote <cohort-id>",
		Short: "Offer the next free seat to the first waiting learner",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, open, func(ctx context.Context, app *bootstrap.App) error {
				entry, err := app.Waitlist.PromoteNext(ctx, args[0])
				if err != nil {
					return err
				}
				if entry == nil {
					fmt.Fprintln(cmd.OutOrStdout(), "nobody is waiting")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "notified user %s, offer expires %s\n", entry.UserID, entry.ExpiresAt.Format(time.RFC3339))
				return nil
			})
		},
	}
}

func migrateCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, open, func(ctx context.Context, app *bootstrap.App) error {
				if app.Pool == nil {
					return errors.New("migrate needs a postgres database, not the in-memory store")
				}
				if err := repository.Migrate(ctx, app.Pool); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "schema applied")
				return nil
			})
		},
	}
}

func cohortCmd(open opener) *cobra.Command {
	var input cohorts.CreateInput
	var status string

	cmd := &cobra.Command{
		Use:   "cohort",
		Short: "Manage cohorts",
	}

	create := &cobra.Command{
		Use:   "create",
		Short: "Create a cohort",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			input.Status = domain.CohortStatus(strings.ToUpper(status))
			return withApp(cmd, open, func(ctx context.Context, app *bootstrap.App) error {
				cohort, err := app.Cohorts.Create(ctx, input)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "cohort %s created (%d seats, %s)\n", cohort.ID, cohort.Capacity, cohort.Status)
				return nil
			})
		},
	}
	create.Flags().StringVar(&input.ProgramID, "program", "", "program id")
	create.Flags().StringVar(&input.Title, "title", "", "display title")
	create.Flags().IntVar(&input.Capacity, "capacity", 0, "number of seats")
	create.Flags().Int64Var(&input.PriceCents, "price", 0, "price in minor units")
	create.Flags().StringVar(&input.Currency, "currency", "USD", "ISO currency code")
	create.Flags().StringVar(&status, "status", "OPEN", "OPEN or UPCOMING")
	_ = create.MarkFlagRequired("program")
	_ = create.MarkFlagRequired("capacity")

	cmd.AddCommand(create)
	return cmd
}

func promoCmd(open opener) *cobra.Command {
	var (
		percent int64
		fixed   int64
		program string
		maxUses int
		until   string
	)

	cmd := &cobra.Command{
		Use:   "promo",
		Short: "Manage promo codes",
	}

	create := &cobra.Command{
		Use:   "create <code>",
		Short: "Create a promo code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code := &domain.PromoCode{
				Code:      promo.Normalize(args[0]),
				ProgramID: program,
				MaxUses:   maxUses,
				ValidFrom: time.Now(),
				Active:    true,
			}
			switch {
			case cmd.Flags().Changed("percent") && cmd.Flags().Changed("fixed"):
				return errors.New("use either --percent or --fixed")
			case cmd.Flags().Changed("percent"):
				if percent <= 0 || percent > 100 {
					return errors.New("--percent must be between 1 and 100")
				}
				code.DiscountType, code.DiscountValue = domain.DiscountPercent, percent
			case cmd.Flags().Changed("fixed"):
				if fixed <= 0 {
					return errors.New("--fixed must be positive")
				}
				code.DiscountType, code.DiscountValue = domain.DiscountFixed, fixed
			default:
				return errors.New("one of --percent or --fixed is required")
			}
			if until != "" {
				t, err := time.Parse(time.RFC3339, until)
				if err != nil {
					return fmt.Errorf("--until: %w", err)
				}
				code.ValidUntil = &t
			}

			return withApp(cmd, open, func(ctx context.Context, app *bootstrap.App) error {
				if err := app.Store.Promos().Create(ctx, code); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "promo %s created\n", code.Code)
				return nil
			})
		},
	}
	create.Flags().Int64Var(&percent, "percent", 0, "percent off")
	create.Flags().Int64Var(&fixed, "fixed", 0, "amount off in minor units")
	create.Flags().StringVar(&program, "program", "", "restrict to one program")
	create.Flags().IntVar(&maxUses, "max-uses", 0, "usage limit, 0 for unlimited")
	create.Flags().StringVar(&until, "until", "", "expiry as RFC 3339")

	cmd.AddCommand(create)
	return cmd
}
