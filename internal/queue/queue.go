// Package queue stores raw block energies in a bounded FIFO window.
package queue

import (
	"github.com/farcloser/lufs/internal/energy"
)

const initialCapacity = 5000

// Queue is a ring buffer of energies in arrival order. Once full, every Add evicts the oldest value.
type Queue struct {
	buf  []float64
	head int
	size int
	max  int
}

// New returns an empty queue holding at most maxSize energies.
func New(maxSize int) *Queue {
	maxSize = max(maxSize, 0)

	return &Queue{
		buf: make([]float64, min(maxSize, initialCapacity)),
		max: maxSize,
	}
}

// Len returns the number of energies held.
func (q *Queue) Len() int {
	return q.size
}

// Max returns the capacity bound.
func (q *Queue) Max() int {
	return q.max
}

// Add appends e, evicting from the front as needed to stay within the bound.
func (q *Queue) Add(e float64) {
	if q.max == 0 {
		q.Reset()

		return
	}

	for q.size >= q.max {
		q.pop()
	}

	if q.size == len(q.buf) {
		q.grow(min(max(2*q.size, 64), q.max))
	}

	q.buf[(q.head+q.size)%len(q.buf)] = e
	q.size++
}

// SetMaxSize changes the bound. Growing beyond the current length pads the window with zero energies.
// Shrinking leaves the excess in place until the next Add, which drops all of it at once, oldest first.
func (q *Queue) SetMaxSize(maxSize int) {
	maxSize = max(maxSize, 0)

	if q.size < maxSize {
		q.grow(maxSize)
		// grow leaves the tail zeroed
		q.size = maxSize
	}

	q.max = maxSize
}

// Reset drops every energy, keeping the bound.
func (q *Queue) Reset() {
	q.head = 0
	q.size = 0
}

// AppendTo appends the energies, oldest first, to dst.
func (q *Queue) AppendTo(dst []float64) []float64 {
	first, second := q.segments()

	return append(append(dst, first...), second...)
}

// Values returns a copy of the energies, oldest first.
func (q *Queue) Values() []float64 {
	return q.AppendTo(make([]float64, 0, q.size))
}

// RelativeThreshold returns the number of energies and their sum.
func (q *Queue) RelativeThreshold() (uint64, float64) {
	var sum float64

	first, second := q.segments()
	for _, e := range first {
		sum += e
	}

	for _, e := range second {
		sum += e
	}

	return uint64(q.size), sum
}

// Accumulate adds every energy at or above threshold to the running totals.
func (q *Queue) Accumulate(threshold float64, count uint64, sum float64) (uint64, float64) {
	first, second := q.segments()

	for _, seg := range [2][]float64{first, second} {
		for _, e := range seg {
			if e >= threshold {
				count++
				sum += e
			}
		}
	}

	return count, sum
}

// LoudnessRange computes the EBU Tech 3342 loudness range, in LU, of sorted (ascending) energies.
func LoudnessRange(sorted []float64) float64 {
	if len(sorted) == 0 {
		return 0
	}

	var power float64
	for _, e := range sorted {
		power += e
	}

	power /= float64(len(sorted))
	integrated := energy.Factor(energy.RangeGate) * power

	start := 0
	for start < len(sorted) && sorted[start] < integrated {
		start++
	}

	gated := sorted[start:]
	if len(gated) == 0 {
		return 0
	}

	n := uint64(len(gated))
	high := gated[energy.Percentile(n, energy.RangeHigh)]
	low := gated[energy.Percentile(n, energy.RangeLow)]

	return energy.ToLoudness(high) - energy.ToLoudness(low)
}

// segments returns the ring contents as two slices, oldest first.
func (q *Queue) segments() ([]float64, []float64) {
	if q.size == 0 {
		return nil, nil
	}

	end := q.head + q.size
	if end <= len(q.buf) {
		return q.buf[q.head:end], nil
	}

	return q.buf[q.head:], q.buf[:end-len(q.buf)]
}

func (q *Queue) pop() {
	q.head = (q.head + 1) % len(q.buf)
	q.size--
}

// grow linearizes the ring into a buffer of length capacity. Slots past size are zero.
func (q *Queue) grow(capacity int) {
	buf := make([]float64, capacity)

	first, second := q.segments()
	copy(buf[copy(buf, first):], second)

	q.buf = buf
	q.head = 0
}
