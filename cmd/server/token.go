package main

import (
	"fmt"
	"time"

	"github.com/andygonzalez6/Bandaid/internal/config"
	"github.com/spf13/cobra"
)

func tokenCmd() *cobra.Command {
	var (
		email string
		ttl   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a session token with the configured secret",
		Long: `Mint a session token for an email address using AUTH_SECRET_KEY.
The account is not looked up; a token for an unknown email will not
authenticate against the server.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			codec, err := newCodec(config.New())
			if err != nil {
				return err
			}
			raw, claims, err := codec.Create(email, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), raw)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", claims.ExpiresAt.Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "subject email address")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default AUTH_DEFAULT_TOKEN_TTL)")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}
