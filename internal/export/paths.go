package export

import (
	"fmt"
	"path/filepath"
	"strings"

	"narratix/internal/config"
)

// textStagingDir returns the staging directory holding intermediate
// artifacts for one text.
func textStagingDir(cfg *config.Config, textID int64) string {
	return filepath.Join(cfg.Paths.StagingDir, "texts", fmt.Sprintf("%d", textID))
}

func segmentAudioPath(cfg *config.Config, textID int64, position int) string {
	return filepath.Join(textStagingDir(cfg, textID), "segments", fmt.Sprintf("segment-%03d.wav", position))
}

func musicAudioPath(cfg *config.Config, textID int64) string {
	return filepath.Join(textStagingDir(cfg, textID), "music.wav")
}

func effectAudioPath(cfg *config.Config, textID, effectID int64) string {
	return filepath.Join(textStagingDir(cfg, textID), "effects", fmt.Sprintf("effect-%d.wav", effectID))
}

func speechTrackPath(cfg *config.Config, textID int64) string {
	return filepath.Join(textStagingDir(cfg, textID), "speech.wav")
}

func alignmentDir(cfg *config.Config, textID int64) string {
	return filepath.Join(textStagingDir(cfg, textID), "alignment")
}

// outputFileName derives the published file name from the text title and id.
func outputFileName(title string, textID int64, ext string) string {
	slug := slugify(title)
	if slug == "" {
		slug = "narration"
	}
	return fmt.Sprintf("%s-%d%s", slug, textID, ext)
}

func slugify(value string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(strings.TrimSpace(value)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}
