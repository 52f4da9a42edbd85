package audio

import (
	"math"
	"testing"
	"time"
)

func sine(rate int, freq float64, d time.Duration, amp float64) *Buffer {
	n := int(d.Seconds() * float64(rate))
	b := NewBuffer(rate, n)
	for i := range b.Samples {
		b.Samples[i] = float32(amp * math.Sin(2*math.Pi*freq*float64(i)/float64(rate)))
	}
	return b
}

func TestSilenceDuration(t *testing.T) {
	b := Silence(WorkRate, 2*time.Second)
	if b.Len() != 2*WorkRate {
		t.Fatalf("silence length = %d", b.Len())
	}
	if got := b.Duration(); math.Abs(got-2) > 1e-9 {
		t.Fatalf("duration = %v", got)
	}
}

func TestMixAtSumsAndGrows(t *testing.T) {
	base := NewBuffer(WorkRate, 10)
	src := NewBuffer(WorkRate, 5)
	for i := range src.Samples {
		src.Samples[i] = 0.5
	}

	base.MixAt(src, 8, 1.0)

	if base.Len() != 13 {
		t.Fatalf("buffer did not grow: len=%d", base.Len())
	}
	if base.Samples[8] != 0.5 || base.Samples[12] != 0.5 {
		t.Fatalf("samples not placed at offset: %v", base.Samples[8:])
	}
	if base.Samples[7] != 0 {
		t.Fatal("sample before offset disturbed")
	}
}

func TestMixAtAppliesGain(t *testing.T) {
	base := NewBuffer(WorkRate, 4)
	src := NewBuffer(WorkRate, 4)
	for i := range src.Samples {
		src.Samples[i] = 1.0
	}
	base.MixAt(src, 0, 0.25)
	if base.Samples[0] != 0.25 {
		t.Fatalf("gain not applied: %v", base.Samples[0])
	}
}

func TestFadeEnvelopes(t *testing.T) {
	b := NewBuffer(1000, 1000)
	for i := range b.Samples {
		b.Samples[i] = 1.0
	}
	b.FadeIn(100 * time.Millisecond)
	b.FadeOut(100 * time.Millisecond)

	if b.Samples[0] != 0 {
		t.Fatalf("fade-in start = %v", b.Samples[0])
	}
	if b.Samples[500] != 1 {
		t.Fatalf("midpoint disturbed = %v", b.Samples[500])
	}
	if last := b.Samples[len(b.Samples)-1]; last > 0.02 {
		t.Fatalf("fade-out end = %v", last)
	}
}

func TestLoudnessNormalization(t *testing.T) {
	b := sine(WorkRate, 440, time.Second, 0.1)
	b.NormalizeTo(-16)
	if got := b.Loudness(); math.Abs(got-(-16)) > 0.1 {
		t.Fatalf("normalized loudness = %v", got)
	}
}

func TestLoudnessOfSilenceIsNegativeInfinity(t *testing.T) {
	b := NewBuffer(WorkRate, 100)
	if !math.IsInf(b.Loudness(), -1) {
		t.Fatalf("silence loudness = %v", b.Loudness())
	}
	// Normalizing silence must be a no-op, not a NaN explosion.
	b.NormalizeTo(-16)
	if b.Samples[0] != 0 {
		t.Fatal("silence disturbed by normalization")
	}
}

func TestLimitPreservesUnderCeiling(t *testing.T) {
	b := sine(WorkRate, 440, 100*time.Millisecond, 0.5)
	before := b.Peak()
	b.Limit(1.0)
	if b.Peak() != before {
		t.Fatal("limit altered signal under ceiling")
	}
}

func TestLimitRescalesOverCeiling(t *testing.T) {
	b := sine(WorkRate, 440, 100*time.Millisecond, 1.6)
	b.Limit(1.0)
	if peak := b.Peak(); peak > 1.0+1e-6 {
		t.Fatalf("peak after limit = %v", peak)
	}
}

func TestResampleHalvesLength(t *testing.T) {
	b := sine(WorkRate, 440, time.Second, 0.5)
	out := b.Resample(24000)
	if out.Rate != 24000 {
		t.Fatalf("rate = %d", out.Rate)
	}
	if diff := math.Abs(float64(out.Len()) - float64(b.Len())/2); diff > 2 {
		t.Fatalf("resampled length = %d, want ~%d", out.Len(), b.Len()/2)
	}
}

func TestResampleSameRateIsIdentity(t *testing.T) {
	b := sine(WorkRate, 440, 50*time.Millisecond, 0.5)
	if out := b.Resample(WorkRate); out != b {
		t.Fatal("same-rate resample should return receiver")
	}
}
