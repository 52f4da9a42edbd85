package mixer

import (
	"errors"
	"sort"
	"time"

	"narratix/internal/audio"
)

// peakCeiling leaves headroom below full scale after normalization.
const peakCeiling = 0.98

// effectTailCap bounds how far an effect may ring past its anchor window.
const effectTailCap = 2.0

// Params carries the mix parameters. Zero values fall back to the package
// defaults via Normalize.
type Params struct {
	TargetLUFS   float64
	MusicGain    float64
	EffectGain   float64
	MusicLeadIn  float64
	MusicFadeIn  float64
	MusicFadeOut float64
}

// DefaultParams returns the product default mix parameters.
func DefaultParams() Params {
	return Params{
		TargetLUFS:   -16.0,
		MusicGain:    0.15,
		EffectGain:   0.9,
		MusicLeadIn:  3.0,
		MusicFadeIn:  2.0,
		MusicFadeOut: 3.0,
	}
}

// Normalize fills unset fields from the defaults and clamps nonsense values.
func (p Params) Normalize() Params {
	def := DefaultParams()
	if p.TargetLUFS >= 0 {
		p.TargetLUFS = def.TargetLUFS
	}
	if p.MusicGain <= 0 || p.MusicGain > 1 {
		p.MusicGain = def.MusicGain
	}
	if p.EffectGain <= 0 || p.EffectGain > 1 {
		p.EffectGain = def.EffectGain
	}
	if p.MusicLeadIn < 0 {
		p.MusicLeadIn = def.MusicLeadIn
	}
	if p.MusicFadeIn < 0 {
		p.MusicFadeIn = def.MusicFadeIn
	}
	if p.MusicFadeOut < 0 {
		p.MusicFadeOut = def.MusicFadeOut
	}
	return p
}

// EffectInput is one effect ready for layering: its audio and the resolved
// anchor window on the timeline.
type EffectInput struct {
	EffectID int64
	Audio    *audio.Buffer
	Start    float64
	End      float64
}

// Input collects the buses of one mix. Music and Effects are optional; a
// speech-only mix is valid.
type Input struct {
	Speech  *audio.Buffer
	Music   *audio.Buffer
	Effects []EffectInput
}

// Mix renders the buses into a single normalized track. When a music bed is
// present the track opens with the lead-in before narration begins, and
// speech plus effect offsets shift by the same amount. Effects never extend
// the track past the narration.
func Mix(in Input, params Params) (*audio.Buffer, error) {
	if in.Speech == nil || in.Speech.Len() == 0 {
		return nil, errors.New("mix: speech track required")
	}
	params = params.Normalize()

	speech := in.Speech.Resample(audio.WorkRate)
	hasMusic := in.Music != nil && in.Music.Len() > 0

	lead := 0
	if hasMusic {
		lead = speech.SampleIndex(params.MusicLeadIn)
	}
	total := lead + speech.Len()

	out := audio.NewBuffer(audio.WorkRate, total)
	out.MixAt(speech, lead, 1.0)

	if hasMusic {
		music := musicBus(in.Music, out.Duration(), params)
		out.MixAt(music, 0, params.MusicGain)
	}

	effects := make([]EffectInput, 0, len(in.Effects))
	for _, effect := range in.Effects {
		if effect.Audio == nil || effect.Audio.Len() == 0 || effect.End <= effect.Start {
			continue
		}
		effects = append(effects, effect)
	}
	sort.Slice(effects, func(i, j int) bool {
		if effects[i].Start != effects[j].Start {
			return effects[i].Start < effects[j].Start
		}
		return effects[i].EffectID < effects[j].EffectID
	})
	for _, effect := range effects {
		bus := effectBus(effect.Audio, effect.End-effect.Start)
		out.MixAt(bus, lead+out.SampleIndex(effect.Start), params.EffectGain)
	}
	if out.Len() > total {
		out.Samples = out.Samples[:total]
	}

	out.Limit(peakCeiling)
	out.NormalizeTo(params.TargetLUFS)
	out.Limit(peakCeiling)
	return out, nil
}

// musicBus loops the source to cover the requested span and applies fades.
func musicBus(src *audio.Buffer, span float64, params Params) *audio.Buffer {
	working := src.Resample(audio.WorkRate)
	bus := loopToFill(working, working.SampleIndex(span))
	bus.FadeIn(seconds(params.MusicFadeIn))
	bus.FadeOut(seconds(params.MusicFadeOut))
	return bus
}

// effectBus trims the effect to its anchor window plus a bounded tail and
// fades the tail so a long sample never rings over unrelated narration.
func effectBus(src *audio.Buffer, window float64) *audio.Buffer {
	working := src.Resample(audio.WorkRate)
	maxLen := working.SampleIndex(window + effectTailCap)
	if working.Len() <= working.SampleIndex(window) {
		return working.Clone()
	}
	bus := working.Clone()
	if bus.Len() > maxLen {
		bus.Samples = bus.Samples[:maxLen]
	}
	tail := bus.Duration() - window
	if tail > 0 {
		bus.FadeOut(seconds(tail))
	}
	return bus
}

// loopToFill repeats src until the bus reaches n samples, trimming the last
// repetition.
func loopToFill(src *audio.Buffer, n int) *audio.Buffer {
	bus := audio.NewBuffer(audio.WorkRate, n)
	if src.Len() == 0 || n == 0 {
		return bus
	}
	for offset := 0; offset < n; offset += src.Len() {
		count := src.Len()
		if offset+count > n {
			count = n - offset
		}
		copy(bus.Samples[offset:offset+count], src.Samples[:count])
	}
	return bus
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}
