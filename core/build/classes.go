package build

import (
	"fmt"

	"github.com/meigma/cachefile/core/engine"
	"github.com/meigma/cachefile/core/internal/errdefs"
	"github.com/meigma/cachefile/core/tag"
)

// Sound sample rates and channel encodings the engine can play.
const (
	sampleRate22050 = 0
	sampleRate44100 = 1

	encodingMono   = 0
	encodingStereo = 1

	maxSoundFormat = 3
)

// checkTag runs the light per-class checks done before encoding.
func (w *Workload) checkTag(t *tag.Tag) error {
	switch t.Class() {
	case tag.ClassScenario:
		return checkScenario(t.Root)
	case tag.ClassBitmap:
		return checkBitmap(t.Root)
	case tag.ClassSound:
		return checkSound(t.Root)
	default:
		return nil
	}
}

func checkScenario(root *tag.Element) error {
	if st := engine.ScenarioType(root.Uint(tag.ScenarioType)); !st.Valid() {
		return fmt.Errorf("%w: scenario type %s", errdefs.ErrInvalidTag, st)
	}
	return nil
}

// checkBitmap requires every bitmap to lie inside the pixel data.
func checkBitmap(root *tag.Element) error {
	pixels := uint64(len(root.Data(tag.BitmapPixelData)))
	for i, b := range root.Block(tag.BitmapData) {
		off, size := b.Uint(tag.BitmapPixelOffset), b.Uint(tag.BitmapPixelSize)
		if off > pixels || size > pixels-off {
			return fmt.Errorf("%w: bitmap %d pixels 0x%X+0x%X exceed 0x%X bytes", errdefs.ErrInvalidTag, i, off, size, pixels)
		}
	}
	return nil
}

func checkSound(root *tag.Element) error {
	switch root.Uint(tag.SoundSampleRate) {
	case sampleRate22050, sampleRate44100:
	default:
		return fmt.Errorf("%w: sample rate %d", errdefs.ErrInvalidTag, root.Uint(tag.SoundSampleRate))
	}
	switch root.Uint(tag.SoundEncoding) {
	case encodingMono, encodingStereo:
	default:
		return fmt.Errorf("%w: channel encoding %d", errdefs.ErrInvalidTag, root.Uint(tag.SoundEncoding))
	}
	for _, pr := range root.Block(tag.SoundPitchRanges) {
		for _, p := range pr.Block(tag.SoundPermutations) {
			if p.Uint(tag.SoundPermutationFormat) > maxSoundFormat {
				return fmt.Errorf("%w: permutation format %d", errdefs.ErrInvalidTag, p.Uint(tag.SoundPermutationFormat))
			}
		}
	}
	return nil
}
