package commands

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/MATHILDEdemariable/jourj/internal/config"
	"github.com/MATHILDEdemariable/jourj/internal/services/sharetoken"
)

// NewTokenCmd creates the token command with mint and verify subcommands.
func NewTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage share tokens",
		Long:  "Mint or verify signed share tokens granting timeline access (view or edit scope)",
	}
	cmd.AddCommand(newTokenMintCmd())
	cmd.AddCommand(newTokenVerifyCmd())
	return cmd
}

func newTokenMintCmd() *cobra.Command {
	var planning string
	var scope string
	var ttlHours int

	cmd := &cobra.Command{
		Use:   "mint",
		Short: "Mint a share token for a planning",
		RunE: func(cmd *cobra.Command, args []string) error {
			if planning == "" {
				return fmt.Errorf("--planning is required")
			}
			planningID, err := uuid.Parse(planning)
			if err != nil {
				return fmt.Errorf("invalid --planning (expected a UUID): %w", err)
			}
			tokenScope := sharetoken.Scope(scope)
			if !tokenScope.Valid() {
				return fmt.Errorf("invalid --scope %q (expected view or edit)", scope)
			}

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			manager, err := sharetoken.NewManager(cfg.ShareTokenSecret)
			if err != nil {
				return fmt.Errorf("failed to initialize token manager: %w", err)
			}

			ttl := time.Duration(ttlHours) * time.Hour
			token, err := manager.Mint(planningID, tokenScope, ttl)
			if err != nil {
				return fmt.Errorf("failed to mint token: %w", err)
			}

			fmt.Printf("Share token for planning %s (%s scope):\n%s\n", planningID, tokenScope, token)
			if ttlHours > 0 {
				fmt.Printf("Expires in %dh\n", ttlHours)
			} else {
				fmt.Printf("Expires in %s (default)\n", sharetoken.DefaultTTL)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&planning, "planning", "", "Planning UUID (required)")
	cmd.Flags().StringVar(&scope, "scope", string(sharetoken.ScopeView), "Token scope: view or edit")
	cmd.Flags().IntVar(&ttlHours, "ttl", 0, "Token lifetime in hours (0 = default)")

	return cmd
}

func newTokenVerifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify <token>",
		Short: "Verify a share token and print its planning id and scope",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			manager, err := sharetoken.NewManager(cfg.ShareTokenSecret)
			if err != nil {
				return fmt.Errorf("failed to initialize token manager: %w", err)
			}

			planningID, scope, err := manager.Verify(args[0])
			if err != nil {
				return fmt.Errorf("token is invalid: %w", err)
			}

			fmt.Printf("Token is valid\nPlanning: %s\nScope: %s\n", planningID, scope)
			return nil
		},
	}

	return cmd
}
