package main

import (
	"fmt"
	"os"

	"github.com/atelier-dz/cnc-marketplace-api/internal/auth"
	"github.com/atelier-dz/cnc-marketplace-api/internal/config"
	"github.com/atelier-dz/cnc-marketplace-api/internal/domain"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "marketplace-admin",
		Short:         "Operator tooling for the CNC marketplace API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(tokenCmd(), versionCmd())
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "marketplace-admin %s\n", version)
		},
	}
}

// tokenCmd signs an access token with the configured secret. Used for local
// development and for service accounts that cannot go through the login flow.
func tokenCmd() *cobra.Command {
	var (
		userID string
		email  string
		name   string
		role   string
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a signed access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if cfg.Auth.JWTSecret == "" {
				return fmt.Errorf("JWT_SECRET is not set")
			}

			id := uuid.New()
			if userID != "" {
				if id, err = uuid.Parse(userID); err != nil {
					return fmt.Errorf("invalid --user: %w", err)
				}
			}

			token, err := auth.NewTokenIssuer(&cfg.Auth).Issue(id, email, name, domain.UserRole(role))
			if err != nil {
				return fmt.Errorf("failed to issue token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "Profile ID (a random one is generated when empty)")
	cmd.Flags().StringVar(&email, "email", "", "Email claim")
	cmd.Flags().StringVar(&name, "name", "", "Display name claim")
	cmd.Flags().StringVar(&role, "role", string(domain.RoleClient), "Role: client, partner or admin")
	return cmd
}
