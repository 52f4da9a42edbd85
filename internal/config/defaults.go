package config

const (
	defaultDataDir    = "~/.local/share/narratix/data"
	defaultStagingDir = "~/.local/share/narratix/staging"
	defaultOutputDir  = "~/.local/share/narratix/output"
	defaultLogDir     = "~/.local/share/narratix/logs"

	defaultLogFormat = "console"
	defaultLogLevel  = "info"

	defaultGenerationConcurrency = 4
	defaultExternalTimeout       = 300
	defaultRetryAttempts         = 3
	defaultRetryBaseDelay        = 15
	defaultRetryMaxDelay         = 90

	defaultCompletionTimeout = 600

	defaultWhisperBinary   = "whisperx"
	defaultWhisperModel    = "base"
	defaultWhisperLanguage = "en"
	defaultWhisperDevice   = "cpu"

	defaultAnalysisModel = "claude-3-5-haiku-20241022"

	defaultTargetLUFS     = -16.0
	defaultMusicGain      = 0.15
	defaultEffectGain     = 0.9
	defaultSegmentPadding = 0.0
	defaultMusicLeadIn    = 3.0
	defaultMusicFadeIn    = 2.0
	defaultMusicFadeOut   = 3.0
	defaultOutputFormat   = "wav"

	defaultNtfyRequestTimeout = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:    defaultDataDir,
			StagingDir: defaultStagingDir,
			OutputDir:  defaultOutputDir,
			LogDir:     defaultLogDir,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Workflow: Workflow{
			GenerationConcurrency: defaultGenerationConcurrency,
			ExternalTimeout:       defaultExternalTimeout,
			RetryAttempts:         defaultRetryAttempts,
			RetryBaseDelay:        defaultRetryBaseDelay,
			RetryMaxDelay:         defaultRetryMaxDelay,
		},
		AudioGen: AudioGen{
			CompletionTimeout: defaultCompletionTimeout,
		},
		Analysis: Analysis{
			Model: defaultAnalysisModel,
		},
		Whisper: Whisper{
			Binary:   defaultWhisperBinary,
			Model:    defaultWhisperModel,
			Language: defaultWhisperLanguage,
			Device:   defaultWhisperDevice,
		},
		Mix: Mix{
			TargetLUFS:     defaultTargetLUFS,
			MusicGain:      defaultMusicGain,
			EffectGain:     defaultEffectGain,
			SegmentPadding: defaultSegmentPadding,
			MusicLeadIn:    defaultMusicLeadIn,
			MusicFadeIn:    defaultMusicFadeIn,
			MusicFadeOut:   defaultMusicFadeOut,
			OutputFormat:   defaultOutputFormat,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyRequestTimeout,
		},
	}
}
