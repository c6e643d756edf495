package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fjod/go_foodcart/internal/auth"
	"github.com/fjod/go_foodcart/internal/config"
)

func newTokenCmd() *cobra.Command {
	var (
		userID string
		role   string
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for local testing",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			raw, err := auth.NewTokens(cfg.JWTSecret, cfg.JWTTTL).Generate(userID, auth.Role(role))
			if err != nil {
				return fmt.Errorf("generate token: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), raw)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user id (for a Shop this is also the store id)")
	cmd.Flags().StringVar(&role, "role", string(auth.RoleUser), "User, Shop or Admin")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
