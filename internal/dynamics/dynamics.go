// Package dynamics computes a crest-factor dynamic range score over 3 second blocks.
package dynamics

import (
	"cmp"
	"math"
	"slices"

	"github.com/farcloser/lufs/internal/types"
)

const (
	blockSeconds = 3
	floorDb      = -120
	maxScore     = 20
)

type block struct {
	peak float64
	rms  float64
}

// Tracker accumulates per-block peak and RMS from interleaved samples.
type Tracker struct {
	channels   int
	sampleRate int
	blockSize  int

	blocks []block

	sum     float64
	peak    float64
	samples int
}

func New(sampleRate, channels int) *Tracker {
	return &Tracker{
		channels:   channels,
		sampleRate: sampleRate,
		blockSize:  sampleRate * blockSeconds,
	}
}

// Add feeds interleaved samples. The length must be a multiple of the channel count.
func (t *Tracker) Add(samples []float64) {
	for i := 0; i+t.channels <= len(samples); i += t.channels {
		var power float64

		for _, v := range samples[i : i+t.channels] {
			t.peak = max(t.peak, math.Abs(v))
			power += v * v
		}

		t.sum += power / float64(t.channels)
		t.samples++

		if t.samples >= t.blockSize {
			t.flush()
		}
	}
}

func (t *Tracker) flush() {
	t.blocks = append(t.blocks, block{peak: t.peak, rms: math.Sqrt(t.sum / float64(t.samples))})
	t.sum, t.peak, t.samples = 0, 0, 0
}

// Result scores the blocks seen so far. A trailing partial block counts once it exceeds one second.
func (t *Tracker) Result() types.DynamicRange {
	blocks := t.blocks
	if t.samples > t.sampleRate {
		blocks = append(slices.Clip(blocks), block{peak: t.peak, rms: math.Sqrt(t.sum / float64(t.samples))})
	}

	return score(blocks)
}

func score(blocks []block) types.DynamicRange {
	silent := types.DynamicRange{PeakDb: floorDb, RmsDb: floorDb}

	if len(blocks) == 0 {
		return silent
	}

	peaks := make([]float64, len(blocks))
	rmss := make([]float64, len(blocks))

	for i, b := range blocks {
		peaks[i] = b.peak
		rmss[i] = b.rms
	}

	descending := func(a, b float64) int { return cmp.Compare(b, a) }
	slices.SortFunc(peaks, descending)
	slices.SortFunc(rmss, descending)

	// second highest peak, ignoring a single outlier
	peak := peaks[min(1, len(peaks)-1)]

	// loudest 20%
	top := max(len(rmss)/5, 1)

	var sum float64
	for _, v := range rmss[:top] {
		sum += v
	}

	rms := sum / float64(top)
	if rms == 0 {
		return silent
	}

	value := 20 * math.Log10(peak/rms)

	return types.DynamicRange{
		Score:  min(max(int(math.Round(value)), 1), maxScore),
		Value:  value,
		PeakDb: 20 * math.Log10(peak),
		RmsDb:  20 * math.Log10(rms),
	}
}
