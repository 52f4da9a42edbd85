package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"narratix/internal/store"
)

const (
	ansiBlue  = "\x1b[34m"
	ansiReset = "\x1b[0m"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status <text-id>",
		Short: "Show a text's pipeline state and artifacts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTextID(args[0])
			if err != nil {
				return err
			}
			_, st, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			text, err := st.GetText(cmd.Context(), id)
			if err != nil {
				return err
			}
			if text == nil {
				return fmt.Errorf("text %d does not exist", id)
			}

			segments, err := st.SegmentsByText(cmd.Context(), id)
			if err != nil {
				return err
			}
			effects, err := st.EffectsByText(cmd.Context(), id)
			if err != nil {
				return err
			}
			music, err := st.MusicBedByText(cmd.Context(), id)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			header := fmt.Sprintf("Text #%d - %s", text.ID, text.Title)
			rule := strings.Repeat("-", len(header))
			if shouldColorize(out) {
				header = ansiBlue + header + ansiReset
				rule = ansiBlue + rule + ansiReset
			}
			fmt.Fprintln(out, header)
			fmt.Fprintln(out, rule)

			fmt.Fprintf(out, "State:       %s\n", text.State)
			if text.ErrorMessage != "" {
				fmt.Fprintf(out, "Error:       %s\n", text.ErrorMessage)
			}
			fmt.Fprintf(out, "Language:    %s\n", text.Language)
			fmt.Fprintf(out, "Segments:    %d (%d with audio)\n", len(segments), countSegmentAudio(segments))
			fmt.Fprintf(out, "Effects:     %d (%d with audio, %d placed)\n",
				len(effects), countEffectAudio(effects), countEffectPlaced(effects))
			fmt.Fprintf(out, "Music bed:   %s\n", musicStatus(music))
			fmt.Fprintf(out, "Alignment:   %s\n", alignmentStatus(text))
			if text.OutputPath != "" {
				fmt.Fprintf(out, "Output:      %s\n", text.OutputPath)
			}
			fmt.Fprintf(out, "Updated:     %s\n", text.UpdatedAt.Format("2006-01-02 15:04:05"))
			return nil
		},
	}
}

func countSegmentAudio(segments []*store.Segment) int {
	n := 0
	for _, seg := range segments {
		if seg.HasAudio() {
			n++
		}
	}
	return n
}

func countEffectAudio(effects []*store.Effect) int {
	n := 0
	for _, effect := range effects {
		if effect.HasAudio() {
			n++
		}
	}
	return n
}

func countEffectPlaced(effects []*store.Effect) int {
	n := 0
	for _, effect := range effects {
		if effect.IsResolved() {
			n++
		}
	}
	return n
}

func musicStatus(music *store.MusicBed) string {
	switch {
	case music == nil:
		return "none (run analyze)"
	case music.AudioPath == "":
		return "prompt recorded, audio pending"
	default:
		return fmt.Sprintf("rendered (%.1fs)", music.Duration)
	}
}

func alignmentStatus(text *store.Text) string {
	if !text.HasAlignment() {
		return "not cached"
	}
	return fmt.Sprintf("cached at %s", text.AlignedAt.Format("2006-01-02 15:04:05"))
}
