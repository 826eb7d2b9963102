// Package energy converts between mean-square block energy and loudness, and holds the gating constants of
// EBU R128 and EBU Tech 3342.
package energy

import "math"

const (
	// Offset is the BS.1770 calibration offset compensating the K-weighting gain at 997 Hz.
	Offset = -0.691

	AbsoluteGate = -70.0 // LUFS, absolute silence floor
	RelativeGate = -10.0 // LU below the ungated mean, integrated loudness
	RangeGate    = -20.0 // LU below the ungated mean, loudness range

	RangeLow  = 0.10 // lower loudness range percentile
	RangeHigh = 0.95 // upper loudness range percentile
)

// ToLoudness converts a mean-square energy to LUFS.
func ToLoudness(e float64) float64 {
	return 10*math.Log10(e) + Offset
}

// FromLoudness converts LUFS back to mean-square energy.
func FromLoudness(l float64) float64 {
	return math.Pow(10, (l-Offset)/10)
}

// Factor turns a gate in dB into an energy multiplier.
func Factor(db float64) float64 {
	return math.Pow(10, db/10)
}

// Percentile returns the nearest-rank index for fraction p in a population of n values (n > 0).
// The rank is rounded half up, not interpolated.
func Percentile(n uint64, p float64) uint64 {
	return uint64(float64(n-1)*p + 0.5)
}
