package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"parkspot-backend/internal/config"
	"parkspot-backend/internal/security"
)

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for the rule API",
		Long: `Token signs a JWT with the server's secret. The secret comes from --config,
then --secret, then the JWT_SECRET environment variable.`,
		Example: `  JWT_SECRET=... pricingctl token --subject ops@example.com --role admin`,
		Args:    cobra.NoArgs,
		RunE:    runToken,
	}
	cmd.Flags().String("config", "", "Server config file to take JWT settings from")
	cmd.Flags().String("secret", "", "Signing secret (at least 32 characters)")
	cmd.Flags().String("issuer", "parkspot-pricing", "Token issuer")
	cmd.Flags().String("subject", "", "Who the token is for")
	cmd.Flags().StringSlice("role", []string{security.RoleOperator}, "Roles to grant (admin, operator)")
	cmd.Flags().Duration("ttl", time.Hour, "Token lifetime")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}

func runToken(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	secret, _ := cmd.Flags().GetString("secret")
	issuer, _ := cmd.Flags().GetString("issuer")
	subject, _ := cmd.Flags().GetString("subject")
	roles, _ := cmd.Flags().GetStringSlice("role")
	ttl, _ := cmd.Flags().GetDuration("ttl")

	if configPath != "" {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		secret, issuer = cfg.JWT.Secret, cfg.JWT.Issuer
		if !cmd.Flags().Changed("ttl") {
			ttl = cfg.TokenExpiry()
		}
	}
	if secret == "" {
		secret = os.Getenv("JWT_SECRET")
	}
	if len(secret) < 32 {
		return fmt.Errorf("signing secret must be at least 32 characters")
	}
	for _, role := range roles {
		if role != security.RoleAdmin && role != security.RoleOperator {
			return fmt.Errorf("unknown role %q", role)
		}
	}

	token, err := security.NewTokenManager(secret, issuer, ttl).GenerateToken(subject, roles)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
