package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"narratix/internal/export"
	"narratix/internal/logging"
	"narratix/internal/notifications"
)

func newIngestCommand(ctx *commandContext) *cobra.Command {
	var (
		title      string
		language   string
		externalID string
		manifest   string
	)

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Record a text and its ordered segments",
		Long: "Reads a JSON segment manifest (an array of {character, voice, text} " +
			"entries in narration order) and records the text with its segments.",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readManifest(manifest)
			if err != nil {
				return err
			}
			entries, err := export.ParseSegments(data)
			if err != nil {
				return err
			}

			cfg, st, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			text, err := export.Ingest(cmd.Context(), st, export.IngestRequest{
				Title:      title,
				Language:   language,
				ExternalID: externalID,
				Entries:    entries,
			})
			if err != nil {
				return err
			}

			notifier := notifications.NewService(cfg)
			if err := notifier.Publish(cmd.Context(), notifications.EventIngestCompleted, notifications.Payload{
				"title":    text.Title,
				"segments": fmt.Sprintf("%d", len(entries)),
			}); err != nil {
				ctx.logger().Debug("ingest notification failed", logging.Error(err))
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Ingested text #%d (%s) with %d segments\n",
				text.ID, text.Title, len(entries))
			return nil
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "Title of the text (required)")
	cmd.Flags().StringVarP(&language, "language", "l", "en", "Narration language")
	cmd.Flags().StringVar(&externalID, "external-id", "", "Caller-side identifier, rejected on duplicates")
	cmd.Flags().StringVarP(&manifest, "segments", "s", "", "Path to the segment manifest, or - for stdin (required)")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("segments")
	return cmd
}

func readManifest(path string) ([]byte, error) {
	path = strings.TrimSpace(path)
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("read manifest from stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return data, nil
}
