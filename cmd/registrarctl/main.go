// Command registrarctl runs operator tasks against the registration store:
// sweeps, manual reconciliation, refunds, promotions and schema migration.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/Domenick1991/cohortseat/config"
	"github.com/Domenick1991/cohortseat/internal/bootstrap"
	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgPath string

	rootCmd := &cobra.Command{
		Use:           "registrarctl",
		Short:         "Operator tool for cohort registrations and payments",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	defaultPath := os.Getenv("CONFIG_PATH")
	if defaultPath == "" {
		defaultPath = "config.yaml"
	}
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", defaultPath, "path to the YAML config")

	open := func(ctx context.Context) (*bootstrap.App, error) {
		cfg, err := config.LoadConfig(cfgPath)
		if err != nil {
			return nil, err
		}
		return bootstrap.New(ctx, cfg)
	}

	rootCmd.AddCommand(sweepCmd(open))
	rootCmd.AddCommand(replayCmd(open))
	rootCmd.AddCommand(refundCmd(open))
	rootCmd.AddCommand(promoteCmd(open))
	rootCmd.AddCommand(migrateCmd(open))
	rootCmd.AddCommand(cohortCmd(open))
	rootCmd.AddCommand(promoCmd(open))

	return rootCmd
}

type opener func(ctx context.Context) (*bootstrap.App, error)

// withApp opens the app for the duration of one command.
func withApp(cmd *cobra.Command, open opener, fn func(ctx context.Context, app *bootstrap.App) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	app, err := open(ctx)
	if err != nil {
		return err
	}
	defer app.Close()
	return fn(ctx, app)
}
