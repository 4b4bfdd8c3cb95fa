// Package cli implements wormholectl, the command-line client of the
// wormhole API.
package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ciwomuli/eve-wormhole/internal/config"
	"github.com/ciwomuli/eve-wormhole/pkg/client"
	"github.com/ciwomuli/eve-wormhole/pkg/logger"
)

// Execute runs wormholectl and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type rootOptions struct {
	configPath string
	baseURL    string
	token      string
	locale     string
	timeout    time.Duration
	logLevel   string

	cfg *config.Config
}

// NewRootCmd builds the wormholectl command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:          "wormholectl",
		Short:        "Report and list EVE wormholes through the wormhole API",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.load(cmd)
		},
	}

	f := cmd.PersistentFlags()
	f.StringVar(&opts.configPath, "config", "", "YAML config file (default $"+config.EnvConfigFile+")")
	f.StringVar(&opts.baseURL, "url", "", "API base URL")
	f.StringVar(&opts.token, "token", "", "bearer token sent to the API")
	f.StringVar(&opts.locale, "locale", "", "locale sent as Accept-Language")
	f.DurationVar(&opts.timeout, "timeout", 0, "per-request timeout")
	f.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")

	cmd.AddCommand(
		addCmd(opts),
		listCmd(opts),
		routesCmd(opts),
		tokenCmd(opts),
		seedCmd(opts),
	)
	return cmd
}

// load resolves config from file and env, then applies explicit flags.
func (o *rootOptions) load(cmd *cobra.Command) error {
	path := o.configPath
	if path == "" {
		path = os.Getenv(config.EnvConfigFile)
	}
	cfg, err := config.LoadWith(cmd.Context(), path)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("url") {
		cfg.BaseURL = o.baseURL
	}
	if flags.Changed("token") {
		cfg.Token = o.token
	}
	if flags.Changed("locale") {
		cfg.Locale = o.locale
	}
	if flags.Changed("timeout") {
		cfg.RequestTimeout = o.timeout
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = o.logLevel
	}

	if err := logger.InitWith(cmd.ErrOrStderr(), cfg.LogFormat); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		return fmt.Errorf("%w: %w", ErrUsage, err)
	}
	o.cfg = cfg
	return nil
}

func (o *rootOptions) api() (*client.WormholeAPI, error) {
	rc, err := client.NewRequestClient(o.cfg.BaseURL,
		client.WithTimeout(o.cfg.RequestTimeout),
		client.WithLocale(o.cfg.Locale),
		client.WithToken(o.cfg.Token),
	)
	if err != nil {
		return nil, err
	}
	return client.NewWormholeAPI(rc), nil
}
