package audio

import (
	"math"
	"time"
)

// WorkRate is the sample rate every track is converted to before assembly.
const WorkRate = 48000

// Buffer is a mono PCM stream in float32 full-scale [-1, 1].
type Buffer struct {
	Rate    int
	Samples []float32
}

// NewBuffer allocates a zeroed buffer holding the given number of samples.
func NewBuffer(rate, samples int) *Buffer {
	if rate <= 0 {
		rate = WorkRate
	}
	if samples < 0 {
		samples = 0
	}
	return &Buffer{Rate: rate, Samples: make([]float32, samples)}
}

// Silence allocates a zeroed buffer covering the given duration.
func Silence(rate int, d time.Duration) *Buffer {
	if rate <= 0 {
		rate = WorkRate
	}
	samples := int(math.Round(d.Seconds() * float64(rate)))
	return NewBuffer(rate, samples)
}

// Duration reports the buffer length in seconds.
func (b *Buffer) Duration() float64 {
	if b == nil || b.Rate <= 0 {
		return 0
	}
	return float64(len(b.Samples)) / float64(b.Rate)
}

// Len reports the number of samples.
func (b *Buffer) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Samples)
}

// Clone returns a deep copy of the buffer.
func (b *Buffer) Clone() *Buffer {
	if b == nil {
		return nil
	}
	samples := make([]float32, len(b.Samples))
	copy(samples, b.Samples)
	return &Buffer{Rate: b.Rate, Samples: samples}
}

// Append concatenates other onto b. Rates must match; the caller converts
// beforehand.
func (b *Buffer) Append(other *Buffer) {
	if other == nil {
		return
	}
	b.Samples = append(b.Samples, other.Samples...)
}

// EnsureLength grows the buffer with trailing silence up to n samples.
func (b *Buffer) EnsureLength(n int) {
	if n <= len(b.Samples) {
		return
	}
	grown := make([]float32, n)
	copy(grown, b.Samples)
	b.Samples = grown
}

// MixAt sums src into b starting at the given sample offset, scaled by gain.
// The buffer grows as needed; offsets before zero clip the leading samples.
func (b *Buffer) MixAt(src *Buffer, offset int, gain float64) {
	if src == nil || len(src.Samples) == 0 {
		return
	}
	start := 0
	if offset < 0 {
		start = -offset
		offset = 0
	}
	if start >= len(src.Samples) {
		return
	}
	b.EnsureLength(offset + len(src.Samples) - start)
	g := float32(gain)
	for i := start; i < len(src.Samples); i++ {
		b.Samples[offset+i-start] += src.Samples[i] * g
	}
}

// ApplyGain scales every sample by the multiplier.
func (b *Buffer) ApplyGain(gain float64) {
	g := float32(gain)
	for i := range b.Samples {
		b.Samples[i] *= g
	}
}

// FadeIn applies a linear ramp from zero over the leading duration.
func (b *Buffer) FadeIn(d time.Duration) {
	n := int(d.Seconds() * float64(b.Rate))
	if n > len(b.Samples) {
		n = len(b.Samples)
	}
	if n <= 0 {
		return
	}
	for i := 0; i < n; i++ {
		b.Samples[i] *= float32(i) / float32(n)
	}
}

// FadeOut applies a linear ramp to zero over the trailing duration.
func (b *Buffer) FadeOut(d time.Duration) {
	n := int(d.Seconds() * float64(b.Rate))
	if n > len(b.Samples) {
		n = len(b.Samples)
	}
	if n <= 0 {
		return
	}
	base := len(b.Samples) - n
	for i := 0; i < n; i++ {
		b.Samples[base+i] *= float32(n-i) / float32(n)
	}
}

// Peak returns the largest absolute sample value.
func (b *Buffer) Peak() float64 {
	var peak float64
	for _, s := range b.Samples {
		if v := math.Abs(float64(s)); v > peak {
			peak = v
		}
	}
	return peak
}

// Loudness estimates program loudness in LUFS. The measurement is the
// BS.770 mean-square formula without K-weighting, which tracks the real
// measure closely enough for spoken-word normalization targets.
func (b *Buffer) Loudness() float64 {
	if b == nil || len(b.Samples) == 0 {
		return math.Inf(-1)
	}
	var sum float64
	for _, s := range b.Samples {
		v := float64(s)
		sum += v * v
	}
	mean := sum / float64(len(b.Samples))
	if mean <= 0 {
		return math.Inf(-1)
	}
	return -0.691 + 10*math.Log10(mean)
}

// NormalizeTo scales the buffer so its loudness hits the target LUFS value.
// Silent buffers are left untouched.
func (b *Buffer) NormalizeTo(targetLUFS float64) {
	current := b.Loudness()
	if math.IsInf(current, -1) {
		return
	}
	b.ApplyGain(math.Pow(10, (targetLUFS-current)/20))
}

// Limit rescales the whole buffer when its peak exceeds ceiling, preventing
// hard clipping after bus summing without altering the balance between tracks.
func (b *Buffer) Limit(ceiling float64) {
	if ceiling <= 0 {
		ceiling = 1.0
	}
	peak := b.Peak()
	if peak <= ceiling {
		return
	}
	b.ApplyGain(ceiling / peak)
}

// Resample converts the buffer to the target rate with linear interpolation.
// Returns the receiver unchanged when rates already match.
func (b *Buffer) Resample(rate int) *Buffer {
	if b == nil || rate == b.Rate || rate <= 0 || len(b.Samples) == 0 {
		if b != nil {
			b.Rate = max(b.Rate, 1)
		}
		return b
	}
	ratio := float64(b.Rate) / float64(rate)
	outLen := int(math.Round(float64(len(b.Samples)) / ratio))
	out := make([]float32, outLen)
	for i := range out {
		pos := float64(i) * ratio
		idx := int(pos)
		if idx >= len(b.Samples)-1 {
			out[i] = b.Samples[len(b.Samples)-1]
			continue
		}
		frac := float32(pos - float64(idx))
		out[i] = b.Samples[idx]*(1-frac) + b.Samples[idx+1]*frac
	}
	return &Buffer{Rate: rate, Samples: out}
}

// SampleIndex converts a time in seconds to a sample offset in this buffer.
func (b *Buffer) SampleIndex(seconds float64) int {
	return int(math.Round(seconds * float64(b.Rate)))
}
