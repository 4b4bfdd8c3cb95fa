package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ciwomuli/eve-wormhole/internal/auth"
	"github.com/ciwomuli/eve-wormhole/pkg/logger"
)

func tokenCmd(o *rootOptions) *cobra.Command {
	var (
		uid      string
		username string
		ttl      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token signed with jwt_secret",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if uid == "" {
				return fmt.Errorf("%w: --uid is required", ErrUsage)
			}
			if err := o.cfg.ValidateServer(); err != nil {
				return err
			}
			if ttl <= 0 {
				ttl = o.cfg.TokenTTL
			}
			issuer, err := auth.NewIssuer(o.cfg.JWTSecret, ttl)
			if err != nil {
				return err
			}
			tok, expires, err := issuer.Issue(uid, username)
			if err != nil {
				return err
			}
			logger.Get().Debug(cmd.Context(), "token issued",
				logger.String("uid", uid),
				logger.String("expires", expires.Format(time.RFC3339)))
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&uid, "uid", "", "pilot ID placed in the uid claim")
	f.StringVar(&username, "username", "", "pilot name")
	f.DurationVar(&ttl, "ttl", 0, "token lifetime (default token_ttl)")
	return cmd
}
