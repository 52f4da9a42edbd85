package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"narratix/internal/export"
)

func parseTextID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid text id %q", arg)
	}
	return id, nil
}

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <text-id>",
		Short: "Run sound design analysis for a text",
		Args:  cobra.ExactArgs(1),
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

			gen := export.NewGenerator(cfg, st, export.WithGeneratorLogger(ctx.logger()))
			count, err := gen.Analyze(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Recorded %d sound effects and the music prompt for text #%d\n", count, id)
			return nil
		},
	}
}

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	generateCmd := &cobra.Command{
		Use:   "generate",
		Short: "Run the external audio generation passes",
	}
	generateCmd.AddCommand(newGenerateSpeechCommand(ctx))
	generateCmd.AddCommand(newGenerateMusicCommand(ctx))
	generateCmd.AddCommand(newGenerateEffectsCommand(ctx))
	generateCmd.AddCommand(newGenerateAllCommand(ctx))
	return generateCmd
}

func newGenerateSpeechCommand(ctx *commandContext) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "speech <text-id>",
		Short: "Synthesize speech audio for segments without it",
		Args:  cobra.ExactArgs(1),
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

			gen := export.NewGenerator(cfg, st, export.WithGeneratorLogger(ctx.logger()))
			rendered, err := gen.GenerateSpeech(cmd.Context(), id, force)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Rendered %d segments for text #%d\n", rendered, id)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Re-render segments that already have audio")
	return cmd
}

func newGenerateMusicCommand(ctx *commandContext) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "music <text-id>",
		Short: "Generate the music bed from the stored soundscape prompt",
		Args:  cobra.ExactArgs(1),
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

			gen := export.NewGenerator(cfg, st, export.WithGeneratorLogger(ctx.logger()))
			if err := gen.GenerateMusic(cmd.Context(), id, force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Music bed ready for text #%d\n", id)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Regenerate even when music audio exists")
	return cmd
}

func newGenerateEffectsCommand(ctx *commandContext) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "effects <text-id>",
		Short: "Generate audio for recorded sound effects",
		Args:  cobra.ExactArgs(1),
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

			gen := export.NewGenerator(cfg, st, export.WithGeneratorLogger(ctx.logger()))
			rendered, err := gen.GenerateEffects(cmd.Context(), id, force)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Rendered %d effects for text #%d\n", rendered, id)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Regenerate effects that already have audio")
	return cmd
}

func newGenerateAllCommand(ctx *commandContext) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "all <text-id>",
		Short: "Run analysis and every generation pass in order",
		Args:  cobra.ExactArgs(1),
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

			out := cmd.OutOrStdout()
			gen := export.NewGenerator(cfg, st, export.WithGeneratorLogger(ctx.logger()))

			effects, err := gen.Analyze(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Analysis recorded %d effects\n", effects)

			segments, err := gen.GenerateSpeech(cmd.Context(), id, force)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Rendered %d segments\n", segments)

			if err := gen.GenerateMusic(cmd.Context(), id, force); err != nil {
				return err
			}
			fmt.Fprintln(out, "Music bed ready")

			rendered, err := gen.GenerateEffects(cmd.Context(), id, force)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Rendered %d effects\n", rendered)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Regenerate audio that already exists")
	return cmd
}
