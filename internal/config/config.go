package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir    string `toml:"data_dir"`
	StagingDir string `toml:"staging_dir"`
	OutputDir  string `toml:"output_dir"`
	LogDir     string `toml:"log_dir"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Workflow contains timing and concurrency settings for the pipeline.
type Workflow struct {
	GenerationConcurrency int `toml:"generation_concurrency"`
	ExternalTimeout       int `toml:"external_timeout"`
	RetryAttempts         int `toml:"retry_attempts"`
	RetryBaseDelay        int `toml:"retry_base_delay"`
	RetryMaxDelay         int `toml:"retry_max_delay"`
}

// TTS contains configuration for the speech synthesis service.
type TTS struct {
	BaseURL string `toml:"base_url"`
	APIKey  string `toml:"api_key"`
	Voice   string `toml:"default_voice"`
}

// AudioGen contains configuration for music and sound-effect generation.
type AudioGen struct {
	BaseURL           string `toml:"base_url"`
	APIKey            string `toml:"api_key"`
	CompletionTimeout int    `toml:"completion_timeout"`
}

// Analysis contains configuration for the LLM audio-analysis service.
type Analysis struct {
	BaseURL string `toml:"base_url"`
	APIKey  string `toml:"api_key"`
	Model   string `toml:"model"`
}

// Whisper contains configuration for the forced alignment engine.
type Whisper struct {
	Binary   string `toml:"binary"`
	Model    string `toml:"model"`
	Language string `toml:"language"`
	Device   string `toml:"device"`
}

// Mix carries the default mix parameters applied when an export call does not
// override them. These are product defaults, not invariants.
type Mix struct {
	TargetLUFS     float64 `toml:"target_lufs"`
	MusicGain      float64 `toml:"music_gain"`
	EffectGain     float64 `toml:"effect_gain"`
	SegmentPadding float64 `toml:"segment_padding"`
	MusicLeadIn    float64 `toml:"music_lead_in"`
	MusicFadeIn    float64 `toml:"music_fade_in"`
	MusicFadeOut   float64 `toml:"music_fade_out"`
	MaxEffects     int     `toml:"max_effects"`
	OutputFormat   string  `toml:"output_format"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Config is the root configuration document.
type Config struct {
	Paths         Paths         `toml:"paths"`
	Logging       Logging       `toml:"logging"`
	Workflow      Workflow      `toml:"workflow"`
	TTS           TTS           `toml:"tts"`
	AudioGen      AudioGen      `toml:"audiogen"`
	Analysis      Analysis      `toml:"analysis"`
	Whisper       Whisper       `toml:"whisper"`
	Mix           Mix           `toml:"mix"`
	Notifications Notifications `toml:"notifications"`
}

// LogDirectory implements logging.LogConfig.
func (c *Config) LogDirectory() string { return c.Paths.LogDir }

// LogLevel implements logging.LogConfig.
func (c *Config) LogLevel() string { return c.Logging.Level }

// LogFormat implements logging.LogConfig.
func (c *Config) LogFormat() string { return c.Logging.Format }

// DefaultPath returns the location probed when no explicit path is given.
func DefaultPath() string {
	return expandHome("~/.config/narratix/config.toml")
}

// Load reads configuration from path (or the default location when empty),
// applies defaults for missing keys, and validates the result. The returned
// bool reports whether a config file was found.
func Load(path string) (*Config, bool, error) {
	cfg := Default()

	resolved := strings.TrimSpace(path)
	if resolved == "" {
		resolved = DefaultPath()
	} else {
		resolved = expandHome(resolved)
	}

	found := true
	data, err := os.ReadFile(resolved)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && strings.TrimSpace(path) == "" {
			found = false
		} else {
			return nil, false, fmt.Errorf("read config %s: %w", resolved, err)
		}
	} else {
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, false, fmt.Errorf("parse config %s: %w", resolved, err)
		}
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, found, err
	}
	return &cfg, found, nil
}

// WriteSample writes the embedded sample configuration to path.
func WriteSample(path string) error {
	path = expandHome(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure config dir: %w", err)
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}
	return os.WriteFile(path, []byte(sampleConfig), 0o644)
}

// EnsureDirectories creates the runtime directory layout.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.StagingDir, c.Paths.OutputDir, c.Paths.LogDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

func (c *Config) normalize() {
	c.Paths.DataDir = expandHome(c.Paths.DataDir)
	c.Paths.StagingDir = expandHome(c.Paths.StagingDir)
	c.Paths.OutputDir = expandHome(c.Paths.OutputDir)
	c.Paths.LogDir = expandHome(c.Paths.LogDir)
	c.Mix.OutputFormat = strings.ToLower(strings.TrimSpace(c.Mix.OutputFormat))
}

func expandHome(path string) string {
	path = strings.TrimSpace(path)
	if path == "" || !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}
