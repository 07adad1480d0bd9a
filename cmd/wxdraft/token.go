package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ShinyNito/wxdraft/core"
)

func newTokenCmd(flags *rootFlags) *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Fetch an access_token and print it redacted",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd, flags)
			if err != nil {
				return err
			}

			provider := a.client.AccessTokenProvider()
			get := provider.GetToken
			if refresh {
				get = provider.RefreshToken
			}
			token, err := get(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "access_token: %s\n", core.RedactToken(token))
			if tm, ok := provider.(*core.TokenManager); ok {
				if expiresAt, ok := tm.ExpiresAt(); ok {
					fmt.Fprintf(out, "refresh after: %s\n", expiresAt.Format(time.RFC3339))
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&refresh, "refresh", false, "force a new token (force_refresh=true)")
	return cmd
}
