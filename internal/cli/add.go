package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ciwomuli/eve-wormhole/internal/domain/types"
)

func addCmd(o *rootOptions) *cobra.Command {
	var (
		req types.AddWormholeRequest
		raw string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Report a wormhole",
		Example: `  wormholectl add --sig ABC-123 --from J123456 --to Jita --type K162 --life eol
  wormholectl add --json '{"signature":"ABC-123","source_system":"J123456","target_system":"Jita","type":"K162"}'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var params any = req
			if raw != "" {
				if !json.Valid([]byte(raw)) {
					return fmt.Errorf("%w: --json is not valid JSON", ErrUsage)
				}
				params = json.RawMessage(raw)
			} else if req.Signature == "" || req.SourceSystem == "" || req.TargetSystem == "" || req.Type == "" {
				return fmt.Errorf("%w: --sig, --from, --to and --type are required", ErrUsage)
			}

			api, err := o.api()
			if err != nil {
				return err
			}
			data, err := api.AddWormhole(cmd.Context(), params)
			if err != nil {
				return err
			}

			var res types.AddWormholeResult
			if err := json.Unmarshal(data, &res); err != nil {
				return fmt.Errorf("decode add result: %w", err)
			}
			if res.Duplicate {
				fmt.Fprintln(cmd.OutOrStdout(), "duplicate: already reported")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", res.Status, res.ID)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&req.Signature, "sig", "", "cosmic signature, e.g. ABC-123")
	f.StringVar(&req.SourceSystem, "from", "", "system the wormhole is in")
	f.StringVar(&req.TargetSystem, "to", "", "system the wormhole leads to")
	f.StringVar(&req.Type, "type", "", "wormhole type code, e.g. K162")
	f.StringVar(&req.Life, "life", "", "stable or eol")
	f.StringVar(&req.Mass, "mass", "", "stable, destab or critical")
	f.StringVar(&req.Note, "note", "", "free-form note")
	f.StringVar(&raw, "json", "", "raw request body, sent as-is")
	cmd.MarkFlagsMutuallyExclusive("json", "sig")
	return cmd
}
