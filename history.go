package lufs

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/farcloser/lufs/internal/energy"
	"github.com/farcloser/lufs/internal/histogram"
	"github.com/farcloser/lufs/internal/queue"
	"github.com/farcloser/lufs/internal/tables"
)

// ErrVariantMismatch is returned when histories backed by different storage strategies are combined.
var ErrVariantMismatch = errors.New("histories do not share a storage strategy")

// Strategy selects how a History stores block energies.
type Strategy int

const (
	// StrategyQueue keeps every energy of a bounded recent window. Percentiles are exact.
	StrategyQueue Strategy = iota
	// StrategyHistogram counts energies in 1000 logarithmic buckets. Memory is constant, resolution is 0.1 dB.
	StrategyHistogram
)

func (s Strategy) String() string {
	switch s {
	case StrategyQueue:
		return "queue"
	case StrategyHistogram:
		return "histogram"
	}

	return "unknown"
}

// store is what both storage strategies provide to the gating algorithms.
type store interface {
	Add(e float64)
	RelativeThreshold() (uint64, float64)
	Accumulate(threshold float64, count uint64, sum float64) (uint64, float64)
	Reset()
}

// History accumulates block energies and derives gated loudness, the relative gate, and loudness range.
// The storage strategy is chosen at construction and never changes.
// A History is not safe for concurrent use.
type History struct {
	store store
}

// NewHistory creates a History backed by a histogram when useHistogram is set, or else by a queue
// holding at most maxSize energies.
func NewHistory(useHistogram bool, maxSize int) *History {
	tables.Init()

	if useHistogram {
		return &History{store: histogram.New()}
	}

	return &History{store: queue.New(maxSize)}
}

// Strategy reports the storage strategy.
func (h *History) Strategy() Strategy {
	if _, ok := h.store.(*histogram.Histogram); ok {
		return StrategyHistogram
	}

	return StrategyQueue
}

// Len returns the number of energies held.
func (h *History) Len() int {
	switch s := h.store.(type) {
	case *histogram.Histogram:
		return int(s.Len()) //nolint:gosec // bounded by the number of blocks ever added
	case *queue.Queue:
		return s.Len()
	}

	return 0
}

// Add records a block energy. Energies below the -70 LUFS absolute gate are dropped.
func (h *History) Add(e float64) {
	// negated so that NaN is dropped too
	if !(e >= tables.Floor()) {
		return
	}

	h.store.Add(e)
}

// SetMaxSize changes the bound of a queue-backed History. Histograms are unbounded and ignore it.
func (h *History) SetMaxSize(maxSize int) {
	if q, ok := h.store.(*queue.Queue); ok {
		q.SetMaxSize(maxSize)
	}
}

// Reset drops every recorded energy, keeping strategy and bound.
func (h *History) Reset() {
	h.store.Reset()
}

// GatedLoudness returns the integrated loudness in LUFS, or -Inf when nothing passes the gates.
func (h *History) GatedLoudness() float64 {
	return GatedLoudnessMultiple(h)
}

// GatedLoudnessMultiple returns the integrated loudness of several histories measured together, for example one
// per channel. Histories may use different strategies.
func GatedLoudnessMultiple(histories ...*History) float64 {
	var (
		count uint64
		sum   float64
	)

	for _, h := range histories {
		c, s := h.store.RelativeThreshold()
		count += c
		sum += s
	}

	if count == 0 {
		return math.Inf(-1)
	}

	threshold := sum / float64(count) * energy.Factor(energy.RelativeGate)

	count, sum = 0, 0
	for _, h := range histories {
		count, sum = h.store.Accumulate(threshold, count, sum)
	}

	if count == 0 {
		return math.Inf(-1)
	}

	return energy.ToLoudness(sum / float64(count))
}

// RelativeThreshold returns the relative gate in LUFS, or the absolute gate (-70) when empty.
func (h *History) RelativeThreshold() float64 {
	count, sum := h.store.RelativeThreshold()
	if count == 0 {
		return energy.AbsoluteGate
	}

	return energy.ToLoudness(sum / float64(count) * energy.Factor(energy.RelativeGate))
}

// LoudnessRange returns the loudness range in LU.
func (h *History) LoudnessRange() float64 {
	// a single history cannot mismatch
	lra, _ := LoudnessRangeMultiple(h)

	return lra
}

// LoudnessRangeMultiple returns the loudness range of several histories pooled together.
// All histories must share a strategy, otherwise ErrVariantMismatch is returned.
func LoudnessRangeMultiple(histories ...*History) (float64, error) {
	if len(histories) == 0 {
		return 0, nil
	}

	want := histories[0].Strategy()
	for i, h := range histories[1:] {
		if got := h.Strategy(); got != want {
			return 0, fmt.Errorf("%w: history %d is a %s, history 0 is a %s", ErrVariantMismatch, i+1, got, want)
		}
	}

	if want == StrategyHistogram {
		first, _ := histories[0].store.(*histogram.Histogram)
		if len(histories) == 1 {
			return histogram.LoudnessRange(first.Counts()), nil
		}

		var combined histogram.Counts
		for _, h := range histories {
			hist, _ := h.store.(*histogram.Histogram)
			combined.Merge(hist.Counts())
		}

		return histogram.LoudnessRange(&combined), nil
	}

	size := 0
	for _, h := range histories {
		size += h.Len()
	}

	combined := make([]float64, 0, size)
	for _, h := range histories {
		q, _ := h.store.(*queue.Queue)
		combined = q.AppendTo(combined)
	}

	slices.Sort(combined)

	return queue.LoudnessRange(combined), nil
}
