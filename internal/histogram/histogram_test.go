package histogram

import (
	"testing"

	"github.com/zeebo/assert"
	"gonum.org/v1/gonum/floats/scalar"

	"github.com/farcloser/lufs/internal/energy"
	"github.com/farcloser/lufs/internal/tables"
)

func TestHistogram(t *testing.T) {
	t.Run("Add", func(t *testing.T) {
		h := New()
		energies := tables.Energies()

		h.Add(energies[10])
		h.Add(energies[10])
		h.Add(energies[999])
		h.Add(1e6)

		assert.Equal(t, h.Counts()[10], uint64(2))
		assert.Equal(t, h.Counts()[999], uint64(2))
		assert.Equal(t, h.Len(), uint64(4))

		h.Reset()
		assert.Equal(t, h.Len(), uint64(0))
	})

	t.Run("RelativeThreshold", func(t *testing.T) {
		h := New()
		energies := tables.Energies()

		count, sum := h.RelativeThreshold()
		assert.Equal(t, count, uint64(0))
		assert.Equal(t, sum, 0.)

		h.Add(energies[100])
		h.Add(energies[200])
		h.Add(energies[200])

		count, sum = h.RelativeThreshold()
		assert.Equal(t, count, uint64(3))
		assert.Equal(t, sum, energies[100]+2*energies[200])
	})

	t.Run("Accumulate", func(t *testing.T) {
		h := New()
		energies := tables.Energies()

		h.Add(energies[100])
		h.Add(energies[200])
		h.Add(energies[300])

		count, sum := h.Accumulate(energies[200], 0, 0)
		assert.Equal(t, count, uint64(2))
		assert.Equal(t, sum, energies[200]+energies[300])

		// just above a representative value skips its bucket
		count, _ = h.Accumulate(energies[200]*1.0001, 0, 0)
		assert.Equal(t, count, uint64(1))

		// running totals are carried
		count, sum = h.Accumulate(0, 5, 1)
		assert.Equal(t, count, uint64(8))
		assert.That(t, sum > 1)
	})

	t.Run("Merge", func(t *testing.T) {
		a, b := New(), New()

		a.Add(tables.Energies()[1])
		b.Add(tables.Energies()[1])
		b.Add(tables.Energies()[2])

		var combined Counts
		combined.Merge(a.Counts())
		combined.Merge(b.Counts())

		assert.Equal(t, combined[1], uint64(2))
		assert.Equal(t, combined[2], uint64(1))
		assert.Equal(t, combined.Total(), uint64(3))
	})
}

func TestLoudnessRange(t *testing.T) {
	energies := tables.Energies()

	t.Run("Empty", func(t *testing.T) {
		assert.Equal(t, LoudnessRange(&Counts{}), 0.)
	})

	t.Run("Constant", func(t *testing.T) {
		var c Counts
		c[500] = 10

		assert.Equal(t, LoudnessRange(&c), 0.)
	})

	t.Run("Spread", func(t *testing.T) {
		// 100 energies, one per bucket from 600 to 699 (-10 to -0.1 LUFS)
		var c Counts
		for i := 600; i < 700; i++ {
			c[i] = 1
		}

		// N=100: low rank 10, high rank 94
		got := LoudnessRange(&c)
		want := energy.ToLoudness(energies[694]) - energy.ToLoudness(energies[610])

		assert.Equal(t, got, want)
		assert.That(t, scalar.EqualWithinAbs(got, 8.4, 1e-9))
	})

	t.Run("Gated", func(t *testing.T) {
		// a quiet outlier 40 dB down is excluded by the -20 dB gate
		var c Counts
		c[100] = 1
		c[500] = 5
		c[510] = 5

		assert.That(t, scalar.EqualWithinAbs(LoudnessRange(&c), 1, 1e-9))
	})
}
