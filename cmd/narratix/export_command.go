package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"narratix/internal/export"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "export <text-id>",
		Short: "Align, resolve, and mix a text into its final track",
		Long: "Runs the export pipeline for a text. Unchanged inputs return the " +
			"cached artifact; changed inputs restart from the earliest stale stage.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTextID(args[0])
			if err != nil {
				return err
			}
			cfg, st, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			pipeline := export.NewPipeline(cfg, st, export.WithLogger(ctx.logger()))
			text, err := pipeline.Export(cmd.Context(), id, force)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Export complete: %s\n", text.OutputPath)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Re-run every stage regardless of cached fingerprints")
	return cmd
}
