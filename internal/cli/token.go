package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/SAP-F-2025/quizform-service/internal/auth"
	"github.com/SAP-F-2025/quizform-service/internal/config"
	"github.com/spf13/cobra"
)

// newTokenCmd signs a bearer token with JWT_SECRET for local testing.
func newTokenCmd() *cobra.Command {
	var (
		email string
		ttl   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token <user-id>",
		Short: "Issue a development bearer token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			if cfg.IsProduction() {
				return errors.New("token issuing is disabled in production")
			}

			token, err := auth.NewJWTProvider(cfg.JWTSecret).Issue(args[0], email, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "email claim")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
