// Package tables holds the process-wide logarithmic lookup tables backing the loudness histogram.
//
// The 1000 buckets cover -70 LUFS to +30 LUFS in 0.1 dB steps. Each bucket has a lower boundary and a
// representative energy sitting half a step above it. Both arrays are computed once, on first use, and are
// read-only afterward, so they may be shared by any number of goroutines.
package tables

import (
	"math"
	"sync"
)

// Buckets is the number of histogram buckets.
const Buckets = 1000

type lookup struct {
	boundaries [Buckets + 1]float64
	energies   [Buckets]float64
}

//nolint:gochecknoglobals // immutable once built
var load = sync.OnceValue(func() *lookup {
	tbl := &lookup{}

	for i := range tbl.energies {
		tbl.energies[i] = math.Pow(10, (float64(i)/10-69.95+0.691)/10)
	}

	for i := range tbl.boundaries {
		tbl.boundaries[i] = math.Pow(10, (float64(i)/10-70+0.691)/10)
	}

	return tbl
})

// Init builds the tables if no caller has done so yet. Concurrent callers block until the first one is done.
func Init() {
	load()
}

// Boundaries returns the bucket edges. boundaries[i] is the inclusive lower edge of bucket i.
func Boundaries() *[Buckets + 1]float64 {
	return &load().boundaries
}

// Energies returns the representative energy of every bucket.
func Energies() *[Buckets]float64 {
	return &load().energies
}

// Floor is the lowest energy the histogram can represent (-70 LUFS). Anything below is silence.
func Floor() float64 {
	return load().boundaries[0]
}

// FindIndex returns the bucket containing energy, which must not be below Floor.
// Energies beyond the last boundary land in the last bucket.
func FindIndex(energy float64) int {
	boundaries := Boundaries()

	lo, hi := 0, Buckets

	for hi-lo > 1 {
		mid := (lo + hi) / 2
		if energy >= boundaries[mid] {
			lo = mid
		} else {
			hi = mid
		}
	}

	return lo
}

// GateIndex returns the first bucket whose representative energy is at or above threshold.
// It returns Buckets when no bucket qualifies.
func GateIndex(threshold float64) int {
	tbl := load()

	if threshold < tbl.boundaries[0] {
		return 0
	}

	idx := FindIndex(threshold)
	if threshold > tbl.energies[idx] {
		idx++
	}

	return idx
}
