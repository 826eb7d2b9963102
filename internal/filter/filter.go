// Package filter implements the BS.1770 K-weighting: a high-shelf pre-filter modelling the head, followed by
// the RLB high-pass.
package filter

import "math"

// Biquad filter coefficients for a0 == 1.
type Biquad struct {
	B0, B1, B2 float64
	A1, A2     float64
}

// State of one biquad in transposed direct form II.
type State struct {
	z1, z2 float64
}

// Process filters one sample.
func (s *State) Process(b *Biquad, in float64) float64 {
	out := b.B0*in + s.z1
	s.z1 = b.B1*in - b.A1*out + s.z2
	s.z2 = b.B2*in - b.A2*out

	return out
}

// Reset clears the filter memory.
func (s *State) Reset() {
	s.z1, s.z2 = 0, 0
}

// KWeighting returns the pre-filter and RLB coefficients for sampleRate.
// They are computed from the analog prototypes, so any sample rate is supported.
func KWeighting(sampleRate int) (pre, rlb Biquad) {
	fs := float64(sampleRate)

	// Pre-filter (high shelf)
	f0 := 1681.974450955533
	G := 3.999843853973347
	Q := 0.7071752369554196

	K := math.Tan(math.Pi * f0 / fs)
	Vh := math.Pow(10, G/20)
	Vb := math.Pow(Vh, 0.4996667741545416)

	a0 := 1 + K/Q + K*K
	pre.B0 = (Vh + Vb*K/Q + K*K) / a0
	pre.B1 = 2 * (K*K - Vh) / a0
	pre.B2 = (Vh - Vb*K/Q + K*K) / a0
	pre.A1 = 2 * (K*K - 1) / a0
	pre.A2 = (1 - K/Q + K*K) / a0

	// RLB weighting (high pass)
	f0 = 38.13547087602444
	Q = 0.5003270373238773

	K = math.Tan(math.Pi * f0 / fs)

	// BS.1770 keeps the RLB numerator at 1, -2, 1; only the poles are normalized.
	a0 = 1 + K/Q + K*K
	rlb.B0, rlb.B1, rlb.B2 = 1, -2, 1
	rlb.A1 = 2 * (K*K - 1) / a0
	rlb.A2 = (1 - K/Q + K*K) / a0

	return pre, rlb
}

// Channel is a K-weighting chain for one channel.
type Channel struct {
	pre, rlb           *Biquad
	preState, rlbState State
}

// Bank holds one K-weighting chain per channel, sharing coefficients.
type Bank struct {
	pre, rlb Biquad
	channels []Channel
}

// NewBank returns a filter bank for channels channels at sampleRate.
func NewBank(channels, sampleRate int) *Bank {
	bank := &Bank{channels: make([]Channel, channels)}
	bank.pre, bank.rlb = KWeighting(sampleRate)

	for i := range bank.channels {
		bank.channels[i].pre = &bank.pre
		bank.channels[i].rlb = &bank.rlb
	}

	return bank
}

// Process K-weights one sample of channel ch.
func (b *Bank) Process(ch int, in float64) float64 {
	c := &b.channels[ch]
	out := c.preState.Process(c.pre, in)

	return c.rlbState.Process(c.rlb, out)
}

// Reset clears every channel.
func (b *Bank) Reset() {
	for i := range b.channels {
		b.channels[i].preState.Reset()
		b.channels[i].rlbState.Reset()
	}
}
