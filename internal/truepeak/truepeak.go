// Package truepeak estimates inter-sample peaks by polyphase oversampling, per ITU-R BS.1770 annex 2.
package truepeak

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

const (
	tapsPerPhase = 12  // filter taps per phase
	kaiserBeta   = 5.0 // Kaiser window parameter
)

// FactorFor returns the oversampling factor for a sample rate: 4x below 96 kHz, 2x below 192 kHz, none above.
func FactorFor(sampleRate int) int {
	switch {
	case sampleRate < 96000:
		return 4
	case sampleRate < 192000:
		return 2
	default:
		return 1
	}
}

// Interpolator reconstructs the signal between samples and reports its peak, one channel at a time.
type Interpolator struct {
	factor  int
	coeffs  [][]float64 // [phase][tap]
	history [][]float64 // [channel][tap], newest last
}

// New returns an interpolator oversampling channels channels by factor.
func New(factor, channels int) *Interpolator {
	factor = max(factor, 1)

	interp := &Interpolator{
		factor:  factor,
		coeffs:  polyphase(factor),
		history: make([][]float64, channels),
	}

	for ch := range interp.history {
		interp.history[ch] = make([]float64, tapsPerPhase)
	}

	return interp
}

// Factor returns the oversampling factor.
func (p *Interpolator) Factor() int {
	return p.factor
}

// Process pushes one sample of channel ch and returns the largest absolute interpolated value it produced.
func (p *Interpolator) Process(ch int, sample float64) float64 {
	if p.factor == 1 {
		return math.Abs(sample)
	}

	history := p.history[ch]
	copy(history, history[1:])
	history[tapsPerPhase-1] = sample

	var peak float64

	for _, phase := range p.coeffs {
		if v := math.Abs(floats.Dot(history, phase)); v > peak {
			peak = v
		}
	}

	return peak
}

// Reset clears the filter memory of every channel.
func (p *Interpolator) Reset() {
	for _, h := range p.history {
		clear(h)
	}
}

// polyphase splits a Kaiser-windowed sinc lowpass at the original Nyquist into factor phases of unity gain.
func polyphase(factor int) [][]float64 {
	totalTaps := factor * tapsPerPhase
	center := float64(totalTaps-1) / 2

	coeffs := make([][]float64, factor)

	for phase := range coeffs {
		coeffs[phase] = make([]float64, tapsPerPhase)

		for tap := range tapsPerPhase {
			n := tap*factor + phase
			x := float64(n) - center

			sinc := 1.0
			if math.Abs(x) >= 1e-10 {
				sinc = math.Sin(math.Pi*x/float64(factor)) / (math.Pi * x / float64(factor))
			}

			alpha := x / center
			if math.Abs(alpha) <= 1 {
				window := bessel0(kaiserBeta*math.Sqrt(1-alpha*alpha)) / bessel0(kaiserBeta)
				coeffs[phase][tap] = sinc * window * float64(factor)
			}
		}

		floats.Scale(1/floats.Sum(coeffs[phase]), coeffs[phase])
	}

	return coeffs
}

// bessel0 is the modified Bessel function of the first kind, order 0.
func bessel0(x float64) float64 {
	sum, term := 1.0, 1.0

	for k := 1; k <= 25; k++ {
		term *= (x * x) / (4 * float64(k) * float64(k))
		sum += term

		if term < 1e-12 {
			break
		}
	}

	return sum
}
