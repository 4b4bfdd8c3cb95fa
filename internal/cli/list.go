package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ciwomuli/eve-wormhole/internal/domain/types"
)

func listCmd(o *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the wormholes you reported, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			api, err := o.api()
			if err != nil {
				return err
			}
			data, err := api.ListWormholeUser(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return writeIndented(cmd.OutOrStdout(), data)
			}

			var rows []types.Wormhole
			if err := json.Unmarshal(data, &rows); err != nil {
				return fmt.Errorf("decode wormholes: %w", err)
			}
			return writeWormholes(cmd.OutOrStdout(), rows)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw JSON data")
	return cmd
}

func writeWormholes(w io.Writer, rows []types.Wormhole) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "(no wormholes reported)")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SIGNATURE\tFROM\tTO\tTYPE\tLIFE\tMASS\tEXPIRES\tSTATE")
	for _, r := range rows {
		state := "open"
		if r.Expired {
			state = "expired"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Signature, r.SourceSystem, r.TargetSystem, r.Type, r.Life, r.Mass,
			r.ExpiresAt.UTC().Format(time.DateTime), state)
	}
	return tw.Flush()
}

func writeIndented(w io.Writer, data json.RawMessage) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return fmt.Errorf("format json: %w", err)
	}
	buf.WriteByte('\n')
	_, err := buf.WriteTo(w)
	return err
}
