// Command devtoken mints an access token for the ledger API, signed with the
// same JWT_SECRET the server uses.
package main

import (
	"codonledger/internal/config"
	"codonledger/pkg/auth"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

type tokenOptions struct {
	UserID string
	Email  string
	Role   string
	Expiry time.Duration
	Secret string
}

func newRootCommand() *cobra.Command {
	opts := &tokenOptions{}

	cmd := &cobra.Command{
		Use:           "devtoken",
		Short:         "Mint a codon ledger access token",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := mintToken(opts)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.UserID, "user", "dev-user", "subject (user id) of the token")
	cmd.Flags().StringVar(&opts.Email, "email", "", "email claim")
	cmd.Flags().StringVar(&opts.Role, "role", "developer", "role claim")
	cmd.Flags().DurationVar(&opts.Expiry, "expiry", 0, "token lifetime (default JWT_ACCESS_TOKEN_EXPIRY_MINUTES)")
	cmd.Flags().StringVar(&opts.Secret, "secret", "", "signing secret (default JWT_SECRET)")

	return cmd
}

func mintToken(opts *tokenOptions) (string, error) {
	cfg := config.Load()

	secret := opts.Secret
	if secret == "" {
		secret = cfg.JWTSecret
	}
	if secret == "" {
		return "", errors.New("no signing secret: set JWT_SECRET or pass --secret")
	}

	expiry := opts.Expiry
	if expiry <= 0 {
		expiry = cfg.JWTAccessExpiry
	}

	jwtAuth, err := auth.NewLocalJWTAuth(secret, expiry)
	if err != nil {
		return "", err
	}
	return jwtAuth.GenerateAccessToken(opts.UserID, opts.Email, opts.Role)
}

func main() {
	_ = godotenv.Load()

	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}
