package export

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"narratix/internal/logging"
	"narratix/internal/notifications"
	"narratix/internal/services"
	"narratix/internal/store"
)

// handler is the stage contract used by the execution helper. Prepare
// validates preconditions and may enrich the text record; Execute performs
// the stage work. Both operate on the in-memory text, which the helper
// persists around each call.
type handler interface {
	Prepare(context.Context, *store.Text) error
	Execute(context.Context, *store.Text) error
}

// runOptions controls stage execution and store persistence behavior.
type runOptions struct {
	Logger     *slog.Logger
	Store      *store.Store
	Notifier   notifications.Service
	Handler    handler
	StageName  string
	Processing store.State
	Done       store.State
	Text       *store.Text
}

// runStage executes a stage and applies the state transition semantics used
// by one-shot exports: persist the processing state, prepare, execute, then
// persist the done state. Failures mark the text failed with a user-facing
// message and are pushed through the notifier.
func runStage(ctx context.Context, opts runOptions) error {
	if opts.Handler == nil {
		return fmt.Errorf("stage handler unavailable: %s", opts.StageName)
	}
	if opts.Store == nil {
		return fmt.Errorf("store is required")
	}
	if opts.Text == nil {
		return fmt.Errorf("text is required")
	}

	stageCtx := services.WithStage(ctx, opts.StageName)
	stageLogger := logging.WithContext(stageCtx, opts.Logger)

	stageLogger.Info(
		"stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("processing_state", string(opts.Processing)),
		logging.String("title", strings.TrimSpace(opts.Text.Title)),
	)

	opts.Text.State = opts.Processing
	opts.Text.ErrorMessage = ""
	if err := opts.Store.UpdateText(stageCtx, opts.Text); err != nil {
		return fmt.Errorf("persist processing transition: %w", err)
	}

	if err := opts.Handler.Prepare(stageCtx, opts.Text); err != nil {
		return handleFailure(stageCtx, stageLogger, opts, err)
	}
	if err := opts.Store.UpdateText(stageCtx, opts.Text); err != nil {
		return fmt.Errorf("persist stage preparation: %w", err)
	}

	if err := opts.Handler.Execute(stageCtx, opts.Text); err != nil {
		return handleFailure(stageCtx, stageLogger, opts, err)
	}

	if opts.Text.State == opts.Processing || opts.Text.State == "" {
		opts.Text.State = opts.Done
	}
	if err := opts.Store.UpdateText(stageCtx, opts.Text); err != nil {
		return fmt.Errorf("persist stage result: %w", err)
	}

	stageLogger.Info(
		"stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String("next_state", string(opts.Text.State)),
	)

	return nil
}

func handleFailure(ctx context.Context, logger *slog.Logger, opts runOptions, stageErr error) error {
	message := "stage failed"
	if stageErr != nil {
		message = strings.TrimSpace(stageErr.Error())
	}
	opts.Text.SetFailed(message)

	logger.Error(
		"stage failed",
		logging.String(logging.FieldEventType, "stage_failure"),
		logging.String("resolved_state", string(store.StateFailed)),
		logging.String("error_message", message),
		logging.Error(stageErr),
	)
	if err := opts.Store.UpdateText(ctx, opts.Text); err != nil {
		logger.Error("failed to persist stage failure", logging.Error(err))
	}

	if opts.Notifier != nil && stageErr != nil {
		contextLabel := fmt.Sprintf("%s (text #%d)", opts.StageName, opts.Text.ID)
		if err := opts.Notifier.Publish(ctx, notifications.EventError, notifications.Payload{
			"error":   message,
			"context": contextLabel,
		}); err != nil {
			logger.Debug("stage error notification failed", logging.Error(err))
		}
	}

	return stageErr
}
