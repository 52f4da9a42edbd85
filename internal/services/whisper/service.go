package whisper

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	langpkg "narratix/internal/language"
)

// Whisper configuration constants.
const (
	DefaultBinary      = "whisperx"
	DefaultModel       = "large-v3"
	CPUDevice          = "cpu"
	CUDADevice         = "cuda"
	CPUComputeType     = "float32"
	OutputFormat       = "json"
	segmentResolution  = "sentence"
	defaultBatchSize   = "4"
	defaultTemperature = "0.0"
)

// Config captures runtime settings for alignment runs.
type Config struct {
	// Binary is the whisperx executable to invoke.
	Binary string
	// Model is the whisper model to load (e.g. "large-v3").
	Model string
	// Language is the expected narration language; any ISO code or full name.
	Language string
	// Device selects "cpu" or "cuda".
	Device string
}

// Service provides word-level forced alignment via whisperx.
type Service struct {
	cfg           Config
	commandRunner func(ctx context.Context, name string, args ...string) error
}

// NewService creates an alignment service with the given configuration.
func NewService(cfg Config) *Service {
	return &Service{cfg: cfg}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	s.commandRunner = runner
}

// Model returns the configured model name for logging.
func (s *Service) Model() string {
	if s.cfg.Model != "" {
		return s.cfg.Model
	}
	return DefaultModel
}

func (s *Service) binary() string {
	if s.cfg.Binary != "" {
		return s.cfg.Binary
	}
	return DefaultBinary
}

func (s *Service) run(ctx context.Context, name string, args ...string) error {
	if s.commandRunner != nil {
		return s.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}

// AlignFile runs the aligner against a WAV file and returns the flattened
// word list in spoken order. Words without usable timestamps are returned
// with Start and End unset; callers decide how to fill the gaps.
func (s *Service) AlignFile(ctx context.Context, source, outputDir string) ([]Word, error) {
	if source == "" {
		return nil, fmt.Errorf("align: source path required")
	}
	if outputDir == "" {
		outputDir = filepath.Dir(source)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("align: ensure output dir: %w", err)
	}

	if err := s.run(ctx, s.binary(), s.buildArgs(source, outputDir)...); err != nil {
		return nil, fmt.Errorf("whisperx: %w", err)
	}

	baseName := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	jsonPath := filepath.Join(outputDir, baseName+".json")
	return LoadWords(jsonPath)
}

func (s *Service) buildArgs(source, outputDir string) []string {
	args := []string{
		source,
		"--model", s.Model(),
		"--batch_size", defaultBatchSize,
		"--temperature", defaultTemperature,
		"--output_dir", outputDir,
		"--output_format", OutputFormat,
		"--segment_resolution", segmentResolution,
	}

	if lang := langpkg.ToISO2(s.cfg.Language); lang != "" {
		args = append(args, "--language", lang)
	}

	device := s.cfg.Device
	if device == "" {
		device = CPUDevice
	}
	args = append(args, "--device", device)
	if device == CPUDevice {
		args = append(args, "--compute_type", CPUComputeType)
	}
	return args
}

// Word represents a single word with timing from whisperx output. Start and
// End are seconds from the beginning of the aligned file; both are nil when
// the aligner could not time the word.
type Word struct {
	Word  string   `json:"word"`
	Start *float64 `json:"start"`
	End   *float64 `json:"end"`
}

// Timed reports whether the aligner produced usable timestamps for the word.
func (w Word) Timed() bool {
	return w.Start != nil && w.End != nil
}

// Segment represents one transcribed segment from whisperx JSON output.
type Segment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Words []Word  `json:"words"`
}

type whisperPayload struct {
	Segments []Segment `json:"segments"`
}

// LoadWords loads a whisperx JSON file and flattens its segments into a
// single word list in spoken order.
func LoadWords(jsonPath string) ([]Word, error) {
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, err
	}
	return ParseWords(data)
}

// ParseWords flattens raw whisperx JSON into a word list.
func ParseWords(data []byte) ([]Word, error) {
	var payload whisperPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("parse whisperx json: %w", err)
	}
	var words []Word
	for _, seg := range payload.Segments {
		for _, word := range seg.Words {
			word.Word = strings.TrimSpace(word.Word)
			if word.Word == "" {
				continue
			}
			words = append(words, word)
		}
	}
	return words, nil
}
