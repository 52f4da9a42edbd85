package testsupport

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"narratix/internal/audio"
)

// WriteTone writes a mono WAV file containing a sine tone of the given
// duration and returns its path. Tests use it wherever real synthesized or
// generated audio would normally arrive from an external service.
func WriteTone(t testing.TB, path string, freq float64, d time.Duration) string {
	t.Helper()

	buf := audio.NewBuffer(audio.WorkRate, int(d.Seconds()*float64(audio.WorkRate)))
	for i := range buf.Samples {
		buf.Samples[i] = float32(0.4 * math.Sin(2*math.Pi*freq*float64(i)/float64(audio.WorkRate)))
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, audio.EncodeWAV(buf), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
