package lufs

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/zeebo/assert"
	"gonum.org/v1/gonum/floats/scalar"
)

const testRate = 48000

// sine returns seconds of a 997 Hz tone, the same on every channel.
func sine(channels int, amplitude, seconds float64) []float64 {
	frames := int(seconds * testRate)
	out := make([]float64, frames*channels)

	for i := range frames {
		v := amplitude * math.Sin(2*math.Pi*997*float64(i)/testRate)
		for ch := range channels {
			out[i*channels+ch] = v
		}
	}

	return out
}

func feed(t *testing.T, m *Meter, src []float64) {
	t.Helper()

	// uneven chunks so that block boundaries fall inside calls
	step := 4801 * m.Channels()
	for len(src) > 0 {
		n := min(step, len(src))
		assert.NoError(t, m.AddFramesF64(src[:n]))
		src = src[n:]
	}
}

func TestNewMeterArguments(t *testing.T) {
	_, err := NewMeter(0, testRate, ModeI)
	assert.That(t, errors.Is(err, ErrInvalidArgument))

	_, err = NewMeter(65, testRate, ModeI)
	assert.That(t, errors.Is(err, ErrInvalidArgument))

	_, err = NewMeter(2, 5, ModeI)
	assert.That(t, errors.Is(err, ErrInvalidArgument))

	m, err := NewMeter(2, testRate, ModeLRA|ModeTruePeak)
	assert.NoError(t, err)
	assert.Equal(t, m.Mode(), ModeM|ModeS|ModeLRA|ModeSamplePeak|ModeTruePeak)
	assert.Equal(t, m.Mode().String(), "momentary,short-term,loudness-range,sample-peak,true-peak")
	assert.Equal(t, m.Channels(), 2)
	assert.Equal(t, m.SampleRate(), testRate)
}

func TestMeterSine(t *testing.T) {
	for name, mode := range map[string]Mode{"Queue": 0, "Histogram": ModeHistogram} {
		t.Run(name, func(t *testing.T) {
			m, err := NewMeter(2, testRate, ModeI|ModeLRA|ModeTruePeak|mode)
			assert.NoError(t, err)

			feed(t, m, sine(2, 0.1, 10))

			// -20 dBFS mean square per channel, +0.691 dB of K-weighting gain at 997 Hz
			global, err := m.LoudnessGlobal()
			assert.NoError(t, err)
			assert.That(t, scalar.EqualWithinAbs(global, -20, 0.01))

			momentary, err := m.LoudnessMomentary()
			assert.NoError(t, err)
			assert.That(t, scalar.EqualWithinAbs(momentary, -20, 0.01))

			shortTerm, err := m.LoudnessShortTerm()
			assert.NoError(t, err)
			assert.That(t, scalar.EqualWithinAbs(shortTerm, -20, 0.01))

			threshold, err := m.RelativeThreshold()
			assert.NoError(t, err)
			assert.That(t, scalar.EqualWithinAbs(threshold, -30, 0.01))

			lra, err := m.LoudnessRange()
			assert.NoError(t, err)
			assert.That(t, scalar.EqualWithinAbs(lra, 0, 0.2))

			for ch := range 2 {
				sp, err := m.SamplePeak(ch)
				assert.NoError(t, err)
				assert.That(t, sp > 0.099 && sp <= 0.1)

				tp, err := m.TruePeak(ch)
				assert.NoError(t, err)
				assert.That(t, tp >= sp)
				assert.That(t, tp < 0.11)
			}
		})
	}
}

func TestMeterDualMono(t *testing.T) {
	stereo, err := NewMeter(2, testRate, ModeI)
	assert.NoError(t, err)
	feed(t, stereo, sine(2, 0.1, 5))

	mono, err := NewMeter(1, testRate, ModeI)
	assert.NoError(t, err)
	assert.NoError(t, mono.SetChannel(0, ChannelDualMono))
	feed(t, mono, sine(1, 0.1, 5))

	want, err := stereo.LoudnessGlobal()
	assert.NoError(t, err)

	got, err := mono.LoudnessGlobal()
	assert.NoError(t, err)

	assert.That(t, scalar.EqualWithinAbs(got, want, 1e-9))
}

func TestMeterUnusedChannel(t *testing.T) {
	m, err := NewMeter(2, testRate, ModeI)
	assert.NoError(t, err)
	assert.NoError(t, m.SetChannel(0, ChannelUnused))
	assert.NoError(t, m.SetChannel(1, ChannelUnused))

	feed(t, m, sine(2, 0.5, 2))

	global, err := m.LoudnessGlobal()
	assert.NoError(t, err)
	assert.That(t, math.IsInf(global, -1))
}

func TestMeterSilence(t *testing.T) {
	m, err := NewMeter(2, testRate, ModeI|ModeLRA)
	assert.NoError(t, err)

	feed(t, m, make([]float64, 2*testRate*5))

	momentary, err := m.LoudnessMomentary()
	assert.NoError(t, err)
	assert.That(t, math.IsInf(momentary, -1))

	global, err := m.LoudnessGlobal()
	assert.NoError(t, err)
	assert.That(t, math.IsInf(global, -1))

	threshold, err := m.RelativeThreshold()
	assert.NoError(t, err)
	assert.Equal(t, threshold, -70.)

	lra, err := m.LoudnessRange()
	assert.NoError(t, err)
	assert.Equal(t, lra, 0.)
}

func TestMeterModes(t *testing.T) {
	m, err := NewMeter(2, testRate, ModeM)
	assert.NoError(t, err)

	_, err = m.LoudnessShortTerm()
	assert.That(t, errors.Is(err, ErrInvalidMode))

	_, err = m.LoudnessGlobal()
	assert.That(t, errors.Is(err, ErrInvalidMode))

	_, err = m.RelativeThreshold()
	assert.That(t, errors.Is(err, ErrInvalidMode))

	_, err = m.LoudnessRange()
	assert.That(t, errors.Is(err, ErrInvalidMode))

	_, err = m.SamplePeak(0)
	assert.That(t, errors.Is(err, ErrInvalidMode))

	_, err = m.TruePeak(0)
	assert.That(t, errors.Is(err, ErrInvalidMode))
}

func TestMeterChannelIndex(t *testing.T) {
	m, err := NewMeter(2, testRate, ModeSamplePeak)
	assert.NoError(t, err)

	assert.That(t, errors.Is(m.SetChannel(2, ChannelLeft), ErrInvalidChannelIndex))
	assert.That(t, errors.Is(m.SetChannel(-1, ChannelLeft), ErrInvalidChannelIndex))

	_, err = m.SamplePeak(2)
	assert.That(t, errors.Is(err, ErrInvalidChannelIndex))

	assert.That(t, errors.Is(m.AddFramesF64(make([]float64, 3)), ErrInvalidArgument))
}

func TestMeterWindow(t *testing.T) {
	m, err := NewMeter(1, testRate, ModeM)
	assert.NoError(t, err)

	_, err = m.LoudnessWindow(3000)
	assert.That(t, errors.Is(err, ErrInvalidArgument))

	_, err = m.LoudnessWindow(0)
	assert.That(t, errors.Is(err, ErrInvalidArgument))

	assert.That(t, errors.Is(m.SetMaxWindow(0), ErrInvalidArgument))
	assert.NoError(t, m.SetMaxWindow(5000))

	feed(t, m, sine(1, 0.1, 6))

	window, err := m.LoudnessWindow(5000)
	assert.NoError(t, err)
	assert.That(t, scalar.EqualWithinAbs(window, -23, 0.2))

	_, err = m.LoudnessWindow(5100)
	assert.That(t, errors.Is(err, ErrInvalidArgument))

	// cannot shrink below the momentary window
	assert.NoError(t, m.SetMaxWindow(100))

	_, err = m.LoudnessMomentary()
	assert.NoError(t, err)
}

func TestMeterLowSampleRate(t *testing.T) {
	for _, rate := range []int{minSampleRate, 17, 25} {
		for name, mode := range map[string]Mode{"Integrated": ModeI, "Range": ModeI | ModeLRA} {
			t.Run(fmt.Sprintf("%s/%d", name, rate), func(t *testing.T) {
				m, err := NewMeter(1, rate, mode)
				assert.NoError(t, err)

				src := make([]float64, 5*rate)
				for i := range src {
					src[i] = 0.5 * math.Sin(2*math.Pi*float64(i)/7)
				}

				// one frame at a time, then all at once
				for i := range src {
					assert.NoError(t, m.AddFramesF64(src[i:i+1]))
				}

				assert.NoError(t, m.AddFramesF64(src))

				_, err = m.LoudnessMomentary()
				assert.NoError(t, err)

				_, err = m.LoudnessGlobal()
				assert.NoError(t, err)

				if mode&ModeS != 0 {
					_, err = m.LoudnessShortTerm()
					assert.NoError(t, err)

					_, err = m.LoudnessRange()
					assert.NoError(t, err)
				}
			})
		}
	}
}

func TestMeterMaxHistory(t *testing.T) {
	m, err := NewMeter(1, testRate, ModeI)
	assert.NoError(t, err)
	assert.That(t, errors.Is(m.SetMaxHistory(0), ErrInvalidArgument))
	assert.NoError(t, m.SetMaxHistory(2000))

	feed(t, m, sine(1, 0.5, 5))
	feed(t, m, sine(1, 0.05, 5))

	// only the last 2 s, all of them quiet, are considered
	global, err := m.LoudnessGlobal()
	assert.NoError(t, err)
	assert.That(t, scalar.EqualWithinAbs(global, -29, 0.2))
}

func TestMeterIntegerFrames(t *testing.T) {
	m, err := NewMeter(2, testRate, ModeSamplePeak)
	assert.NoError(t, err)

	i16 := make([]int16, 2*testRate)
	for i := range i16 {
		i16[i] = 16384
	}

	assert.NoError(t, m.AddFramesI16(i16))

	peak, err := m.SamplePeak(0)
	assert.NoError(t, err)
	assert.Equal(t, peak, 0.5)

	i32 := []int32{math.MinInt32, 0}
	assert.NoError(t, m.AddFramesI32(i32))

	prev, err := m.PrevSamplePeak(0)
	assert.NoError(t, err)
	assert.Equal(t, prev, 1.)

	prev, err = m.PrevSamplePeak(1)
	assert.NoError(t, err)
	assert.Equal(t, prev, 0.)

	peak, err = m.SamplePeak(1)
	assert.NoError(t, err)
	assert.Equal(t, peak, 0.5)

	assert.NoError(t, m.AddFramesF32([]float32{0.25, -0.75}))

	prev, err = m.PrevSamplePeak(1)
	assert.NoError(t, err)
	assert.Equal(t, prev, 0.75)
}

func TestMeterReset(t *testing.T) {
	m, err := NewMeter(2, testRate, ModeI|ModeTruePeak)
	assert.NoError(t, err)

	feed(t, m, sine(2, 0.1, 2))
	m.Reset()

	global, err := m.LoudnessGlobal()
	assert.NoError(t, err)
	assert.That(t, math.IsInf(global, -1))

	tp, err := m.TruePeak(0)
	assert.NoError(t, err)
	assert.Equal(t, tp, 0.)

	feed(t, m, sine(2, 0.1, 2))

	global, err = m.LoudnessGlobal()
	assert.NoError(t, err)
	assert.That(t, scalar.EqualWithinAbs(global, -20, 0.2))
}

func TestMeterMultiple(t *testing.T) {
	loud, err := NewMeter(2, testRate, ModeI|ModeLRA)
	assert.NoError(t, err)
	feed(t, loud, sine(2, 0.1, 10))

	quiet, err := NewMeter(2, testRate, ModeI|ModeLRA)
	assert.NoError(t, err)
	feed(t, quiet, sine(2, 0.05, 10))

	global, err := LoudnessGlobalMultiple(loud, quiet)
	assert.NoError(t, err)
	assert.That(t, global < -20 && global > -26)

	lra, err := LoudnessRangeMultipleMeters(loud, quiet)
	assert.NoError(t, err)
	assert.That(t, scalar.EqualWithinAbs(lra, 6, 0.3))

	hist, err := NewMeter(2, testRate, ModeI|ModeLRA|ModeHistogram)
	assert.NoError(t, err)
	feed(t, hist, sine(2, 0.1, 10))

	// integrated loudness tolerates mixed storage, loudness range does not
	_, err = LoudnessGlobalMultiple(loud, hist)
	assert.NoError(t, err)

	_, err = LoudnessRangeMultipleMeters(loud, hist)
	assert.That(t, errors.Is(err, ErrVariantMismatch))

	momentaryOnly, err := NewMeter(2, testRate, ModeM)
	assert.NoError(t, err)

	_, err = LoudnessGlobalMultiple(loud, momentaryOnly)
	assert.That(t, errors.Is(err, ErrInvalidMode))
}
