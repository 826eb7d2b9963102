// Package histogram stores block energies as counts in the fixed logarithmic buckets of package tables.
//
// Memory use is constant regardless of stream length, at the cost of approximating every energy by the
// representative value of its bucket (0.1 dB resolution).
package histogram

import (
	"github.com/farcloser/lufs/internal/energy"
	"github.com/farcloser/lufs/internal/tables"
)

// Counts holds one counter per bucket.
type Counts [tables.Buckets]uint64

// Merge adds other's counters into c.
func (c *Counts) Merge(other *Counts) {
	for i, n := range other {
		c[i] += n
	}
}

// Total returns the sum of all counters.
func (c *Counts) Total() uint64 {
	var total uint64
	for _, n := range c {
		total += n
	}

	return total
}

// Histogram counts block energies per bucket.
type Histogram struct {
	counts Counts
}

// New returns an empty histogram.
func New() *Histogram {
	tables.Init()

	return &Histogram{}
}

// Add counts energy in its bucket. Energies below tables.Floor must be filtered by the caller.
func (h *Histogram) Add(e float64) {
	h.counts[tables.FindIndex(e)]++
}

// Counts exposes the counters. The caller must not modify them.
func (h *Histogram) Counts() *Counts {
	return &h.counts
}

// Len returns the number of energies counted.
func (h *Histogram) Len() uint64 {
	return h.counts.Total()
}

// Reset clears all counters.
func (h *Histogram) Reset() {
	h.counts = Counts{}
}

// RelativeThreshold returns the number of energies counted and the sum of their representative energies.
func (h *Histogram) RelativeThreshold() (uint64, float64) {
	var (
		count uint64
		sum   float64
	)

	for i, e := range tables.Energies() {
		sum += float64(h.counts[i]) * e
		count += h.counts[i]
	}

	return count, sum
}

// Accumulate adds the counts and energies of every bucket at or above threshold to the running totals.
func (h *Histogram) Accumulate(threshold float64, count uint64, sum float64) (uint64, float64) {
	energies := tables.Energies()

	for i := tables.GateIndex(threshold); i < tables.Buckets; i++ {
		sum += float64(h.counts[i]) * energies[i]
		count += h.counts[i]
	}

	return count, sum
}

// LoudnessRange computes the EBU Tech 3342 loudness range, in LU, of the energies counted in c.
func LoudnessRange(c *Counts) float64 {
	energies := tables.Energies()

	var (
		size  uint64
		power float64
	)

	for i, e := range energies {
		size += c[i]
		power += float64(c[i]) * e
	}

	if size == 0 {
		return 0
	}

	power /= float64(size)
	integrated := energy.Factor(energy.RangeGate) * power

	index := tables.GateIndex(integrated)

	var gated uint64
	for _, n := range c[index:] {
		gated += n
	}

	if gated == 0 {
		return 0
	}

	low := energy.Percentile(gated, energy.RangeLow)
	high := energy.Percentile(gated, energy.RangeHigh)

	j := index
	seen := uint64(0)

	for seen <= low {
		seen += c[j]
		j++
	}

	lowEnergy := energies[j-1]

	for seen <= high {
		seen += c[j]
		j++
	}

	highEnergy := energies[j-1]

	return energy.ToLoudness(highEnergy) - energy.ToLoudness(lowEnergy)
}
