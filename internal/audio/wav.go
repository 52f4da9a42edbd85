package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

const (
	wavFormatPCM   = 1
	wavFormatFloat = 3
)

var errNotWAV = errors.New("not a RIFF/WAVE stream")

// DecodeWAV parses a WAV byte stream into a mono buffer. 16-bit PCM and
// 32-bit float payloads are accepted; multi-channel audio is downmixed by
// averaging.
func DecodeWAV(data []byte) (*Buffer, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, errNotWAV
	}

	var (
		format     uint16
		channels   uint16
		sampleRate uint32
		bitDepth   uint16
		payload    []byte
		haveFmt    bool
	)

	offset := 12
	for offset+8 <= len(data) {
		chunkID := string(data[offset : offset+4])
		chunkLen := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		body := offset + 8
		if body+chunkLen > len(data) {
			chunkLen = len(data) - body
		}
		switch chunkID {
		case "fmt ":
			if chunkLen < 16 {
				return nil, errors.New("wav: truncated fmt chunk")
			}
			format = binary.LittleEndian.Uint16(data[body : body+2])
			channels = binary.LittleEndian.Uint16(data[body+2 : body+4])
			sampleRate = binary.LittleEndian.Uint32(data[body+4 : body+8])
			bitDepth = binary.LittleEndian.Uint16(data[body+14 : body+16])
			haveFmt = true
		case "data":
			payload = data[body : body+chunkLen]
		}
		// Chunks are word aligned.
		offset = body + chunkLen
		if chunkLen%2 == 1 {
			offset++
		}
	}

	if !haveFmt {
		return nil, errors.New("wav: missing fmt chunk")
	}
	if payload == nil {
		return nil, errors.New("wav: missing data chunk")
	}
	if channels == 0 {
		return nil, errors.New("wav: zero channels")
	}

	var samples []float32
	switch {
	case format == wavFormatPCM && bitDepth == 16:
		samples = decodePCM16(payload, int(channels))
	case format == wavFormatFloat && bitDepth == 32:
		samples = decodeFloat32(payload, int(channels))
	default:
		return nil, fmt.Errorf("wav: unsupported format %d/%d-bit", format, bitDepth)
	}

	return &Buffer{Rate: int(sampleRate), Samples: samples}, nil
}

// EncodeWAV renders the buffer as 16-bit PCM mono WAV bytes.
func EncodeWAV(b *Buffer) []byte {
	dataLen := len(b.Samples) * 2
	var out bytes.Buffer
	out.Grow(44 + dataLen)

	out.WriteString("RIFF")
	writeUint32(&out, uint32(36+dataLen))
	out.WriteString("WAVE")

	out.WriteString("fmt ")
	writeUint32(&out, 16)
	writeUint16(&out, wavFormatPCM)
	writeUint16(&out, 1) // mono
	writeUint32(&out, uint32(b.Rate))
	writeUint32(&out, uint32(b.Rate*2)) // byte rate
	writeUint16(&out, 2)                // block align
	writeUint16(&out, 16)               // bits per sample

	out.WriteString("data")
	writeUint32(&out, uint32(dataLen))
	for _, s := range b.Samples {
		v := float64(s)
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		writeUint16(&out, uint16(int16(math.Round(v*32767))))
	}
	return out.Bytes()
}

func decodePCM16(payload []byte, channels int) []float32 {
	frames := len(payload) / (2 * channels)
	samples := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < channels; c++ {
			raw := int16(binary.LittleEndian.Uint16(payload[(i*channels+c)*2:]))
			sum += float64(raw) / 32768
		}
		samples[i] = float32(sum / float64(channels))
	}
	return samples
}

func decodeFloat32(payload []byte, channels int) []float32 {
	frames := len(payload) / (4 * channels)
	samples := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < channels; c++ {
			bits := binary.LittleEndian.Uint32(payload[(i*channels+c)*4:])
			sum += float64(math.Float32frombits(bits))
		}
		samples[i] = float32(sum / float64(channels))
	}
	return samples
}

func writeUint16(buf *bytes.Buffer, v uint16) {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], v)
	buf.Write(tmp[:])
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	buf.Write(tmp[:])
}
