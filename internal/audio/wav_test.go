package audio

import (
	"math"
	"testing"
	"time"
)

func TestWAVRoundTrip(t *testing.T) {
	in := sine(WorkRate, 440, 100*time.Millisecond, 0.5)
	data := EncodeWAV(in)

	out, err := DecodeWAV(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Rate != WorkRate {
		t.Fatalf("rate = %d", out.Rate)
	}
	if out.Len() != in.Len() {
		t.Fatalf("length = %d, want %d", out.Len(), in.Len())
	}
	for i := 0; i < out.Len(); i += 480 {
		if diff := math.Abs(float64(out.Samples[i] - in.Samples[i])); diff > 1.0/32000 {
			t.Fatalf("sample %d drifted by %v", i, diff)
		}
	}
}

func TestDecodeWAVDownmixesStereo(t *testing.T) {
	// Left=0.5, right=-0.5 on every frame: the mono mix is 0.
	stereo := buildStereoPCM16(WorkRate, []int16{16384, -16384, 16384, -16384})

	out, err := DecodeWAV(stereo)
	if err != nil {
		t.Fatalf("decode stereo: %v", err)
	}
	if out.Len() != 2 {
		t.Fatalf("frames = %d, want 2", out.Len())
	}
	if math.Abs(float64(out.Samples[0])) > 1e-4 {
		t.Fatalf("downmix of opposing channels = %v, want ~0", out.Samples[0])
	}
}

func TestDecodeWAVRejectsGarbage(t *testing.T) {
	if _, err := DecodeWAV([]byte("definitely not audio")); err == nil {
		t.Fatal("expected decode failure")
	}
}

func TestDecodeWAVRejectsUnsupportedDepth(t *testing.T) {
	data := EncodeWAV(NewBuffer(WorkRate, 4))
	// fmt chunk bits-per-sample lives at offset 34 for the canonical layout.
	data[34] = 8
	if _, err := DecodeWAV(data); err == nil {
		t.Fatal("expected unsupported depth failure")
	}
}

// buildStereoPCM16 assembles a minimal canonical stereo WAV with interleaved
// L/R frames taken pairwise from raw.
func buildStereoPCM16(rate int, raw []int16) []byte {
	frames := len(raw) / 2
	dataLen := frames * 4
	out := make([]byte, 0, 44+dataLen)
	put16 := func(v uint16) { out = append(out, byte(v), byte(v>>8)) }
	put32 := func(v uint32) { out = append(out, byte(v), byte(v>>8), byte(v>>16), byte(v>>24)) }

	out = append(out, "RIFF"...)
	put32(uint32(36 + dataLen))
	out = append(out, "WAVE"...)
	out = append(out, "fmt "...)
	put32(16)
	put16(1)
	put16(2)
	put32(uint32(rate))
	put32(uint32(rate * 4))
	put16(4)
	put16(16)
	out = append(out, "data"...)
	put32(uint32(dataLen))
	for _, v := range raw {
		put16(uint16(v))
	}
	return out
}
