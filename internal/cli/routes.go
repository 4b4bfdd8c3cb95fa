package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"

	"github.com/ciwomuli/eve-wormhole/internal/domain/routes"
	"github.com/ciwomuli/eve-wormhole/internal/i18n"
)

func routesCmd(o *rootOptions) *cobra.Command {
	var remote bool

	cmd := &cobra.Command{
		Use:   "routes",
		Short: "Print the localized route table",
		Long:  "Print the route table with titles in the configured locale. With --remote the table is fetched from /menu/all.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if remote {
				api, err := o.api()
				if err != nil {
					return err
				}
				data, err := api.ListMenus(cmd.Context())
				if err != nil {
					return err
				}
				return writeIndented(cmd.OutOrStdout(), data)
			}

			tag, err := language.Parse(o.cfg.Locale)
			if err != nil {
				return fmt.Errorf("%w: locale %q: %w", ErrUsage, o.cfg.Locale, err)
			}
			data, err := json.Marshal(routes.Localize(i18n.Translator(tag)))
			if err != nil {
				return fmt.Errorf("encode routes: %w", err)
			}
			return writeIndented(cmd.OutOrStdout(), data)
		},
	}

	cmd.Flags().BoolVar(&remote, "remote", false, "fetch the table from the API")
	return cmd
}
