package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/OldStager01/cku-autoscaler/internal/auth"
)

var (
	tokenOperator string
	hashKey       string
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint an operator JWT for the status API",
	Long: `token signs a JWT with api.jwt_secret for the given operator.

With --hash-key it instead prints the bcrypt hash of an operator key, suitable
for api.operator_key_hash.`,
	RunE: runToken,
}

func init() {
	tokenCmd.Flags().StringVar(&tokenOperator, "operator", "admin", "operator name embedded in the token")
	tokenCmd.Flags().StringVar(&hashKey, "hash-key", "", "print the bcrypt hash of this key and exit")
}

func runToken(cmd *cobra.Command, args []string) error {
	if hashKey != "" {
		hash, err := auth.HashKey(hashKey)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	svc := auth.NewService(cfg.API.JWTSecret, cfg.API.JWTDuration, cfg.API.JWTIssuer, cfg.API.OperatorKeyHash)
	token, err := svc.GenerateToken(tokenOperator)
	if err != nil {
		return fmt.Errorf("failed to sign token: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
