package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks the configuration for values the pipeline cannot run with.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Paths.DataDir) == "" {
		problems = append(problems, "paths.data_dir must not be empty")
	}
	if strings.TrimSpace(c.Paths.StagingDir) == "" {
		problems = append(problems, "paths.staging_dir must not be empty")
	}
	if c.Workflow.GenerationConcurrency < 1 {
		problems = append(problems, "workflow.generation_concurrency must be at least 1")
	}
	if c.Workflow.ExternalTimeout < 1 {
		problems = append(problems, "workflow.external_timeout must be at least 1 second")
	}
	if c.Workflow.RetryAttempts < 1 {
		problems = append(problems, "workflow.retry_attempts must be at least 1")
	}
	if c.Mix.MusicGain < 0 || c.Mix.MusicGain > 1 {
		problems = append(problems, "mix.music_gain must be within [0, 1]")
	}
	if c.Mix.EffectGain < 0 || c.Mix.EffectGain > 1 {
		problems = append(problems, "mix.effect_gain must be within [0, 1]")
	}
	if c.Mix.TargetLUFS >= 0 {
		problems = append(problems, "mix.target_lufs must be negative")
	}
	if c.Mix.SegmentPadding < 0 {
		problems = append(problems, "mix.segment_padding must not be negative")
	}
	if c.Mix.MusicLeadIn < 0 {
		problems = append(problems, "mix.music_lead_in must not be negative")
	}
	switch c.Mix.OutputFormat {
	case "wav", "ogg":
	default:
		problems = append(problems, fmt.Sprintf("mix.output_format %q is not supported (wav, ogg)", c.Mix.OutputFormat))
	}

	if len(problems) == 0 {
		return nil
	}
	return errors.New("invalid configuration: " + strings.Join(problems, "; "))
}
