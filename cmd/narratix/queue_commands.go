package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"narratix/internal/store"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the text queue",
	}
	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueRetryCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))
	queueCmd.AddCommand(newQueueRemoveCommand(ctx))
	queueCmd.AddCommand(newQueueHealthCommand(ctx))
	return queueCmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var stateFlag string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List texts and their pipeline states",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, st, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			var states []store.State
			if stateFlag != "" {
				state, ok := store.ParseState(stateFlag)
				if !ok {
					return fmt.Errorf("unknown state %q", stateFlag)
				}
				states = append(states, state)
			}

			texts, err := st.List(cmd.Context(), states...)
			if err != nil {
				return err
			}
			if len(texts) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No texts found")
				return nil
			}

			rows := make([][]string, 0, len(texts))
			for _, text := range texts {
				segments, err := st.SegmentsByText(cmd.Context(), text.ID)
				if err != nil {
					return err
				}
				rows = append(rows, []string{
					fmt.Sprintf("%d", text.ID),
					text.Title,
					string(text.State),
					fmt.Sprintf("%d/%d", countSegmentAudio(segments), len(segments)),
					text.UpdatedAt.Format("2006-01-02 15:04"),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Title", "State", "Audio", "Updated"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().StringVar(&stateFlag, "state", "", "Only show texts in this state")
	return cmd
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [text-id...]",
		Short: "Reset failed texts so the next export reprocesses them",
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := parseTextID(arg)
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}

			_, st, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			updated, err := st.RetryFailed(cmd.Context(), ids...)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Reset %d failed texts\n", updated)
			return nil
		},
	}
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	var failedOnly bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove completed texts (or failed ones with --failed)",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, st, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			var (
				removed int64
				label   string
			)
			if failedOnly {
				removed, err = st.ClearFailed(cmd.Context())
				label = "failed"
			} else {
				removed, err = st.ClearComplete(cmd.Context())
				label = "completed"
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d %s texts\n", removed, label)
			return nil
		},
	}

	cmd.Flags().BoolVar(&failedOnly, "failed", false, "Remove failed texts instead of completed ones")
	return cmd
}

func newQueueRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <text-id>",
		Short: "Remove one text and all of its records",
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

			removed, err := st.RemoveText(cmd.Context(), id)
			if err != nil {
				return err
			}
			if !removed {
				return fmt.Errorf("text %d does not exist", id)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed text #%d\n", id)
			return nil
		},
	}
}

func newQueueHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Summarize queue state counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, st, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			health, err := st.Health(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Total:      %d\n", health.Total)
			fmt.Fprintf(out, "Pending:    %d\n", health.Pending)
			fmt.Fprintf(out, "Processing: %d\n", health.Processing)
			fmt.Fprintf(out, "Complete:   %d\n", health.Complete)
			fmt.Fprintf(out, "Failed:     %d\n", health.Failed)
			return nil
		},
	}
}
