package export

import (
	"encoding/hex"
	"fmt"
	"sort"

	"lukechampine.com/blake3"

	"narratix/internal/config"
	"narratix/internal/store"
)

// digestBytes fingerprints a generated audio blob for change detection.
func digestBytes(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// speechFingerprint summarizes everything that shapes the assembled speech
// track: segment order, each segment's audio content, and the inter-segment
// padding. A changed fingerprint invalidates the alignment cache and forces
// the pipeline to restart from the aligning stage.
func speechFingerprint(segments []*store.Segment, padding float64) string {
	ordered := make([]*store.Segment, len(segments))
	copy(ordered, segments)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Position < ordered[j].Position })

	h := blake3.New(32, nil)
	fmt.Fprintf(h, "padding=%.3f\n", padding)
	for _, seg := range ordered {
		fmt.Fprintf(h, "%d:%s\n", seg.Position, seg.AudioDigest)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// mixFingerprint summarizes every input of the final mix beyond the speech
// track: effect anchors and audio, the music bed, and the mix parameters.
// A changed fingerprint with an unchanged speech fingerprint restarts the
// pipeline from the mixing stage instead of re-running alignment.
func mixFingerprint(mix config.Mix, speechDigest string, effects []*store.Effect, music *store.MusicBed) string {
	h := blake3.New(32, nil)
	fmt.Fprintf(h, "speech=%s\n", speechDigest)
	fmt.Fprintf(h, "params=%.2f|%.3f|%.3f|%.2f|%.2f|%.2f|%d|%s\n",
		mix.TargetLUFS, mix.MusicGain, mix.EffectGain,
		mix.MusicLeadIn, mix.MusicFadeIn, mix.MusicFadeOut,
		mix.MaxEffects, mix.OutputFormat)

	ordered := make([]*store.Effect, len(effects))
	copy(ordered, effects)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })
	for _, effect := range ordered {
		fmt.Fprintf(h, "effect=%d:%d-%d:%d:%s\n",
			effect.ID, effect.StartWord, effect.EndWord, effect.Rank, effect.AudioDigest)
	}

	if music != nil {
		fmt.Fprintf(h, "music=%s\n", music.AudioDigest)
	}
	return hex.EncodeToString(h.Sum(nil))
}
