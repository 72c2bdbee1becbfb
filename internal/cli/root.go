// Package cli holds the quizform command line: serve, migrate and a
// development token helper.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/SAP-F-2025/quizform-service/internal/config"
	"github.com/spf13/cobra"
)

// Execute runs the CLI until it finishes or the process is interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return newRootCmd().ExecuteContext(ctx)
}

type rootOptions struct {
	port        string
	storeDriver string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "quizform",
		Short:         "Forms and quiz service with server-side scoring",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.port, "port", "", "port to listen on (overrides PORT)")
	cmd.PersistentFlags().StringVar(&opts.storeDriver, "store", "", "storage backend: postgres, mongo or memory (overrides STORE_DRIVER)")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newMigrateCmd(opts))
	cmd.AddCommand(newTokenCmd())
	return cmd
}

// loadConfig reads the environment and applies the command line overrides.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	if o.port != "" {
		cfg.Port = o.port
	}
	if o.storeDriver != "" {
		cfg.StoreDriver = o.storeDriver
	}
	return cfg, nil
}
