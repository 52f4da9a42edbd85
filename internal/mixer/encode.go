package mixer

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/thesyncim/gopus"
	"github.com/thesyncim/gopus/container/ogg"

	"narratix/internal/audio"
)

// Output formats supported by Encode.
const (
	FormatWAV = "wav"
	FormatOgg = "ogg"
)

const (
	opusFrameSamples = 960 // 20ms at 48kHz
	opusBitrate      = 96000
)

// Extension returns the file extension for a supported format.
func Extension(format string) (string, error) {
	switch format {
	case FormatWAV:
		return ".wav", nil
	case FormatOgg:
		return ".ogg", nil
	default:
		return "", fmt.Errorf("unsupported output format %q", format)
	}
}

// Encode serializes the mixed track in the requested container format.
func Encode(buf *audio.Buffer, format string) ([]byte, error) {
	if buf == nil || buf.Len() == 0 {
		return nil, errors.New("encode: empty buffer")
	}
	switch format {
	case FormatWAV:
		return audio.EncodeWAV(buf), nil
	case FormatOgg:
		return encodeOgg(buf)
	default:
		return nil, fmt.Errorf("unsupported output format %q", format)
	}
}

// encodeOgg packs the track into an Ogg Opus stream. Opus requires fixed
// frame sizes, so the final frame is zero-padded.
func encodeOgg(buf *audio.Buffer) ([]byte, error) {
	working := buf.Resample(audio.WorkRate)

	var out bytes.Buffer
	writer, err := ogg.NewWriter(&out, uint32(audio.WorkRate), 1)
	if err != nil {
		return nil, fmt.Errorf("ogg writer: %w", err)
	}

	encoder, err := gopus.NewEncoder(gopus.EncoderConfig{
		SampleRate:  audio.WorkRate,
		Channels:    1,
		Application: gopus.ApplicationAudio,
	})
	if err != nil {
		return nil, fmt.Errorf("opus encoder: %w", err)
	}
	if err := encoder.SetBitrate(opusBitrate); err != nil {
		return nil, fmt.Errorf("opus bitrate: %w", err)
	}

	frame := make([]float32, opusFrameSamples)
	for offset := 0; offset < working.Len(); offset += opusFrameSamples {
		for i := range frame {
			frame[i] = 0
		}
		copy(frame, working.Samples[offset:])

		packet, err := encoder.EncodeFloat32(frame)
		if err != nil {
			return nil, fmt.Errorf("opus encode: %w", err)
		}
		if err := writer.WritePacket(packet, opusFrameSamples); err != nil {
			return nil, fmt.Errorf("ogg write packet: %w", err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("ogg close: %w", err)
	}
	return out.Bytes(), nil
}
