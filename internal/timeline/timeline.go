package timeline

import (
	"fmt"
	"os"
	"sort"
	"time"

	"narratix/internal/audio"
	"narratix/internal/services"
)

// Segment is one speech unit queued for concatenation. Position is the
// zero-based timeline order; Path points at the synthesized WAV file and is
// empty when no audio exists yet.
type Segment struct {
	ID       int64
	Position int
	Path     string
}

// Entry records where a segment landed in the assembled timeline.
type Entry struct {
	SegmentID int64
	Position  int
	Offset    float64
	Duration  float64
}

// Timeline is the assembled narration track.
type Timeline struct {
	Buffer  *audio.Buffer
	Entries []Entry
	Padding float64
}

// Duration returns the total length of the assembled track in seconds.
func (t *Timeline) Duration() float64 {
	if t == nil || t.Buffer == nil {
		return 0
	}
	return t.Buffer.Duration()
}

// OffsetOf returns the start offset of a segment, or false when the segment
// is not part of the timeline.
func (t *Timeline) OffsetOf(segmentID int64) (float64, bool) {
	for _, entry := range t.Entries {
		if entry.SegmentID == segmentID {
			return entry.Offset, true
		}
	}
	return 0, false
}

// Loader reads a segment audio file into a working buffer. The default
// loader decodes WAV from disk and resamples to the working rate.
type Loader func(path string) (*audio.Buffer, error)

// LoadWAVFile is the default Loader.
func LoadWAVFile(path string) (*audio.Buffer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	buf, err := audio.DecodeWAV(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return buf.Resample(audio.WorkRate), nil
}

// Build concatenates the segments of a text in position order. Segments
// without audio make the whole build fail with an IncompleteSpeechError
// naming every missing position; a partial timeline would silently shift
// all later offsets and corrupt the alignment.
func Build(textID int64, segments []Segment, padding float64, load Loader) (*Timeline, error) {
	if len(segments) == 0 {
		return nil, services.Wrap(services.ErrValidation, "timeline", "build",
			fmt.Sprintf("text %d has no segments", textID), nil)
	}
	if padding < 0 {
		padding = 0
	}
	if load == nil {
		load = LoadWAVFile
	}

	ordered := make([]Segment, len(segments))
	copy(ordered, segments)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Position < ordered[j].Position })

	base := ordered[0].Position
	if base != 0 && base != 1 {
		return nil, services.Wrap(services.ErrValidation, "timeline", "build",
			fmt.Sprintf("text %d segment positions start at %d", textID, base), nil)
	}
	for i := 1; i < len(ordered); i++ {
		if ordered[i].Position != base+i {
			return nil, services.Wrap(services.ErrValidation, "timeline", "build",
				fmt.Sprintf("text %d segment positions have a gap or duplicate at %d", textID, ordered[i].Position), nil)
		}
	}

	var missing []int
	for _, segment := range ordered {
		if segment.Path == "" {
			missing = append(missing, segment.Position)
		}
	}
	if len(missing) > 0 {
		return nil, services.NewIncompleteSpeechError(textID, missing)
	}

	out := audio.NewBuffer(audio.WorkRate, 0)
	gap := audio.Silence(audio.WorkRate, time.Duration(padding*float64(time.Second)))
	entries := make([]Entry, 0, len(ordered))

	for i, segment := range ordered {
		buf, err := load(segment.Path)
		if err != nil {
			return nil, services.Wrap(services.ErrValidation, "timeline", "build",
				fmt.Sprintf("load segment %d audio", segment.Position), err)
		}
		if i > 0 && gap.Len() > 0 {
			out.Append(gap)
		}
		offset := out.Duration()
		out.Append(buf)
		entries = append(entries, Entry{
			SegmentID: segment.ID,
			Position:  segment.Position,
			Offset:    offset,
			Duration:  buf.Duration(),
		})
	}

	return &Timeline{Buffer: out, Entries: entries, Padding: padding}, nil
}
