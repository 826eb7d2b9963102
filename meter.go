package lufs

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/farcloser/lufs/internal/energy"
	"github.com/farcloser/lufs/internal/filter"
	"github.com/farcloser/lufs/internal/truepeak"
)

var (
	// ErrInvalidArgument is returned for out-of-range parameters and malformed frame buffers.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInvalidMode is returned when a query needs a mode the meter was not created with.
	ErrInvalidMode = errors.New("measurement mode not enabled")
	// ErrInvalidChannelIndex is returned for a channel index at or beyond Channels.
	ErrInvalidChannelIndex = errors.New("invalid channel index")
)

const (
	maxChannels   = 64
	minSampleRate = 16
	maxSampleRate = 2822400

	momentaryMs = 400
	shortTermMs = 3000

	unlimited = math.MaxInt
)

// Mode selects what a Meter measures.
type Mode uint

const (
	// ModeM enables momentary loudness (400 ms window). Every other mode implies it.
	ModeM Mode = 1 << iota
	// ModeS enables short-term loudness (3 s window).
	ModeS
	// ModeI enables integrated (gated) loudness.
	ModeI
	// ModeLRA enables loudness range. Implies ModeS.
	ModeLRA
	// ModeSamplePeak enables per-channel sample peaks.
	ModeSamplePeak
	// ModeTruePeak enables per-channel true peaks. Implies ModeSamplePeak.
	ModeTruePeak
	// ModeHistogram stores block energies in histograms instead of queues: constant memory, 0.1 dB resolution.
	ModeHistogram
)

func (m Mode) normalize() Mode {
	if m&ModeLRA != 0 {
		m |= ModeS
	}

	if m&ModeTruePeak != 0 {
		m |= ModeSamplePeak
	}

	return m | ModeM
}

func (m Mode) String() string {
	names := []string{}

	for _, flag := range []struct {
		mode Mode
		name string
	}{
		{ModeM, "momentary"},
		{ModeS, "short-term"},
		{ModeI, "integrated"},
		{ModeLRA, "loudness-range"},
		{ModeSamplePeak, "sample-peak"},
		{ModeTruePeak, "true-peak"},
		{ModeHistogram, "histogram"},
	} {
		if m&flag.mode != 0 {
			names = append(names, flag.name)
		}
	}

	return strings.Join(names, ",")
}

// Meter measures EBU R128 loudness of interleaved PCM frames.
//
// Samples are K-weighted into a ring buffer long enough for the largest window. Every 100 ms, once 400 ms are
// available, the 400 ms block energy is recorded for integrated loudness; once per second, after the first 3 s,
// the 3 s energy is recorded for loudness range.
// A Meter is not safe for concurrent use.
type Meter struct {
	mode       Mode
	channels   int
	sampleRate int
	channelMap []Channel

	filters *filter.Bank
	interp  *truepeak.Interpolator

	// K-weighted samples, interleaved, audioFrames frames
	audio        []float64
	audioFrames  int
	audioIndex   int
	neededFrames int

	samplesIn100ms   int
	shortTermCounter int

	blocks    *History
	shortTerm *History

	samplePeak     []float64
	prevSamplePeak []float64
	truePeak       []float64
	prevTruePeak   []float64

	windowMs int
}

// NewMeter returns a Meter for channels channels at sampleRate Hz.
func NewMeter(channels uint, sampleRate int, mode Mode) (*Meter, error) {
	if channels == 0 || channels > maxChannels {
		return nil, fmt.Errorf("%w: %d channels", ErrInvalidArgument, channels)
	}

	if sampleRate < minSampleRate || sampleRate > maxSampleRate {
		return nil, fmt.Errorf("%w: sample rate %d", ErrInvalidArgument, sampleRate)
	}

	mode = mode.normalize()
	count := int(channels)

	meter := &Meter{
		mode:           mode,
		channels:       count,
		sampleRate:     sampleRate,
		channelMap:     DefaultChannelMap(count),
		filters:        filter.NewBank(count, sampleRate),
		samplesIn100ms: (sampleRate + 5) / 10,
		samplePeak:     make([]float64, count),
		prevSamplePeak: make([]float64, count),
		truePeak:       make([]float64, count),
		prevTruePeak:   make([]float64, count),
	}

	if mode&ModeTruePeak != 0 {
		meter.interp = truepeak.New(truepeak.FactorFor(sampleRate), count)
	}

	useHistogram := mode&ModeHistogram != 0
	meter.blocks = NewHistory(useHistogram, unlimited/100)
	meter.shortTerm = NewHistory(useHistogram, unlimited/shortTermMs)

	windowMs := momentaryMs
	if mode&ModeS != 0 {
		windowMs = shortTermMs
	}

	meter.allocateWindow(windowMs)

	return meter, nil
}

// Mode returns the measurement modes in effect, implied ones included.
func (m *Meter) Mode() Mode {
	return m.mode
}

// Channels returns the channel count.
func (m *Meter) Channels() int {
	return m.channels
}

// SampleRate returns the sample rate in Hz.
func (m *Meter) SampleRate() int {
	return m.sampleRate
}

// SetChannel assigns a role to channel ch.
func (m *Meter) SetChannel(ch int, kind Channel) error {
	if ch < 0 || ch >= m.channels {
		return fmt.Errorf("%w: %d", ErrInvalidChannelIndex, ch)
	}

	m.channelMap[ch] = kind

	return nil
}

// SetMaxWindow sets the longest window, in milliseconds, LoudnessWindow may be asked for. It cannot go below what
// the enabled modes need. Buffered audio is discarded.
func (m *Meter) SetMaxWindow(ms int) error {
	if ms <= 0 {
		return fmt.Errorf("%w: window %d ms", ErrInvalidArgument, ms)
	}

	switch {
	case m.mode&ModeS != 0:
		ms = max(ms, shortTermMs)
	default:
		ms = max(ms, momentaryMs)
	}

	if ms == m.windowMs {
		return nil
	}

	if ms > math.MaxInt/m.sampleRate/m.channels {
		return fmt.Errorf("%w: window %d ms", ErrInvalidArgument, ms)
	}

	m.allocateWindow(ms)

	return nil
}

// SetMaxHistory bounds, in milliseconds, how much past audio integrated loudness and loudness range consider.
// It has no effect with ModeHistogram.
func (m *Meter) SetMaxHistory(ms int) error {
	if ms <= 0 {
		return fmt.Errorf("%w: history %d ms", ErrInvalidArgument, ms)
	}

	switch {
	case m.mode&ModeLRA != 0:
		ms = max(ms, shortTermMs)
	default:
		ms = max(ms, momentaryMs)
	}

	m.blocks.SetMaxSize(ms / 100)
	m.shortTerm.SetMaxSize(ms / shortTermMs)

	return nil
}

// Reset forgets all audio and statistics, keeping configuration.
func (m *Meter) Reset() {
	m.filters.Reset()

	if m.interp != nil {
		m.interp.Reset()
	}

	clear(m.audio)
	m.audioIndex = 0
	m.neededFrames = m.samplesIn100ms * 4
	m.shortTermCounter = 0

	m.blocks.Reset()
	m.shortTerm.Reset()

	clear(m.samplePeak)
	clear(m.prevSamplePeak)
	clear(m.truePeak)
	clear(m.prevTruePeak)
}

type sample interface {
	~int16 | ~int32 | ~float32 | ~float64
}

// AddFramesF64 feeds interleaved float frames in [-1, 1].
func (m *Meter) AddFramesF64(src []float64) error {
	return addFrames(m, src, 1)
}

// AddFramesF32 feeds interleaved float frames in [-1, 1].
func (m *Meter) AddFramesF32(src []float32) error {
	return addFrames(m, src, 1)
}

// AddFramesI16 feeds interleaved signed 16-bit frames.
func (m *Meter) AddFramesI16(src []int16) error {
	return addFrames(m, src, 1.0/32768)
}

// AddFramesI32 feeds interleaved signed 32-bit frames.
func (m *Meter) AddFramesI32(src []int32) error {
	return addFrames(m, src, 1.0/2147483648)
}

func addFrames[T sample](m *Meter, src []T, scale float64) error {
	if len(src)%m.channels != 0 {
		return fmt.Errorf("%w: %d samples do not split into %d channels", ErrInvalidArgument, len(src), m.channels)
	}

	clear(m.prevSamplePeak)
	clear(m.prevTruePeak)

	frames := len(src) / m.channels

	for frames > 0 {
		if frames < m.neededFrames {
			filterFrames(m, src, frames, scale)
			m.audioIndex += frames

			if m.mode&ModeLRA != 0 {
				m.shortTermCounter += frames
			}

			m.neededFrames -= frames

			break
		}

		n := m.neededFrames
		filterFrames(m, src, n, scale)
		src = src[n*m.channels:]
		frames -= n
		m.audioIndex += n

		if m.mode&ModeI != 0 {
			m.blocks.Add(m.blockEnergy(m.samplesIn100ms * 4))
		}

		if m.mode&ModeLRA != 0 {
			m.shortTermCounter += n
			if m.shortTermCounter == m.samplesIn100ms*30 {
				m.shortTerm.Add(m.blockEnergy(m.samplesIn100ms * 30))
				m.shortTermCounter = m.samplesIn100ms * 20
			}
		}

		m.neededFrames = m.samplesIn100ms

		if m.audioIndex == m.audioFrames {
			m.audioIndex = 0
		}
	}

	for ch := range m.channels {
		m.samplePeak[ch] = max(m.samplePeak[ch], m.prevSamplePeak[ch])
		m.truePeak[ch] = max(m.truePeak[ch], m.prevTruePeak[ch])
	}

	return nil
}

// filterFrames K-weights the first frames frames of src into the ring, tracking peaks on the way.
func filterFrames[T sample](m *Meter, src []T, frames int, scale float64) {
	base := m.audioIndex * m.channels

	for i := range frames {
		for ch := range m.channels {
			x := float64(src[i*m.channels+ch]) * scale

			if m.mode&ModeSamplePeak != 0 {
				m.prevSamplePeak[ch] = max(m.prevSamplePeak[ch], math.Abs(x))
			}

			if m.interp != nil {
				m.prevTruePeak[ch] = max(m.prevTruePeak[ch], m.interp.Process(ch, x))
			}

			m.audio[base+i*m.channels+ch] = m.filters.Process(ch, x)
		}
	}
}

// blockEnergy returns the weighted mean-square energy of the last frames frames.
func (m *Meter) blockEnergy(frames int) float64 {
	var sum float64

	for ch, kind := range m.channelMap {
		weight := kind.Weight()
		if weight == 0 {
			continue
		}

		var channelSum float64

		if m.audioIndex < frames {
			for i := range m.audioIndex {
				v := m.audio[i*m.channels+ch]
				channelSum += v * v
			}

			for i := m.audioFrames - (frames - m.audioIndex); i < m.audioFrames; i++ {
				v := m.audio[i*m.channels+ch]
				channelSum += v * v
			}
		} else {
			for i := m.audioIndex - frames; i < m.audioIndex; i++ {
				v := m.audio[i*m.channels+ch]
				channelSum += v * v
			}
		}

		sum += channelSum * weight
	}

	return sum / float64(frames)
}

func (m *Meter) allocateWindow(ms int) {
	frames := m.sampleRate * ms / 1000

	// whole 100 ms steps, rounded up
	if rem := frames % m.samplesIn100ms; rem != 0 {
		frames += m.samplesIn100ms - rem
	}

	// at low rates the rounded 100 ms step outgrows ms, and blocks must still fit
	frames = max(frames, m.samplesIn100ms*4)
	if m.mode&ModeS != 0 {
		frames = max(frames, m.samplesIn100ms*30)
	}

	m.windowMs = ms
	m.audioFrames = frames
	m.audio = make([]float64, frames*m.channels)
	m.audioIndex = 0
	m.neededFrames = m.samplesIn100ms * 4
	m.shortTermCounter = 0
}

func (m *Meter) energyInInterval(frames int) (float64, error) {
	if frames > m.audioFrames {
		return 0, fmt.Errorf("%w: interval of %d frames exceeds the %d frame window", ErrInvalidArgument, frames, m.audioFrames)
	}

	return m.blockEnergy(frames), nil
}

func loudnessOf(e float64) float64 {
	if e <= 0 {
		return math.Inf(-1)
	}

	return energy.ToLoudness(e)
}

// LoudnessMomentary returns the loudness of the last 400 ms in LUFS.
func (m *Meter) LoudnessMomentary() (float64, error) {
	e, err := m.energyInInterval(m.samplesIn100ms * 4)
	if err != nil {
		return 0, err
	}

	return loudnessOf(e), nil
}

// LoudnessShortTerm returns the loudness of the last 3 s in LUFS.
func (m *Meter) LoudnessShortTerm() (float64, error) {
	if m.mode&ModeS == 0 {
		return 0, fmt.Errorf("%w: short-term", ErrInvalidMode)
	}

	e, err := m.energyInInterval(m.samplesIn100ms * 30)
	if err != nil {
		return 0, err
	}

	return loudnessOf(e), nil
}

// LoudnessWindow returns the loudness of the last ms milliseconds in LUFS. The window must fit in SetMaxWindow.
func (m *Meter) LoudnessWindow(ms int) (float64, error) {
	if ms <= 0 {
		return 0, fmt.Errorf("%w: window %d ms", ErrInvalidArgument, ms)
	}

	e, err := m.energyInInterval(m.sampleRate * ms / 1000)
	if err != nil {
		return 0, err
	}

	return loudnessOf(e), nil
}

// LoudnessGlobal returns the integrated loudness in LUFS, or -Inf for silence.
func (m *Meter) LoudnessGlobal() (float64, error) {
	return LoudnessGlobalMultiple(m)
}

// LoudnessGlobalMultiple returns the integrated loudness of several meters taken as one program,
// for example the tracks of an album.
func LoudnessGlobalMultiple(meters ...*Meter) (float64, error) {
	histories := make([]*History, 0, len(meters))

	for _, m := range meters {
		if m.mode&ModeI == 0 {
			return 0, fmt.Errorf("%w: integrated", ErrInvalidMode)
		}

		histories = append(histories, m.blocks)
	}

	return GatedLoudnessMultiple(histories...), nil
}

// RelativeThreshold returns the relative gate of integrated loudness in LUFS.
func (m *Meter) RelativeThreshold() (float64, error) {
	if m.mode&ModeI == 0 {
		return 0, fmt.Errorf("%w: integrated", ErrInvalidMode)
	}

	return m.blocks.RelativeThreshold(), nil
}

// LoudnessRange returns the loudness range in LU.
func (m *Meter) LoudnessRange() (float64, error) {
	return LoudnessRangeMultipleMeters(m)
}

// LoudnessRangeMultipleMeters returns the loudness range of several meters taken as one program. All meters must
// agree on ModeHistogram.
func LoudnessRangeMultipleMeters(meters ...*Meter) (float64, error) {
	histories := make([]*History, 0, len(meters))

	for _, m := range meters {
		if m.mode&ModeLRA == 0 {
			return 0, fmt.Errorf("%w: loudness range", ErrInvalidMode)
		}

		histories = append(histories, m.shortTerm)
	}

	return LoudnessRangeMultiple(histories...)
}

func (m *Meter) peak(ch int, mode Mode, values []float64) (float64, error) {
	if m.mode&mode == 0 {
		return 0, fmt.Errorf("%w: %s", ErrInvalidMode, mode)
	}

	if ch < 0 || ch >= m.channels {
		return 0, fmt.Errorf("%w: %d", ErrInvalidChannelIndex, ch)
	}

	return values[ch], nil
}

// SamplePeak returns the largest absolute sample of channel ch so far.
func (m *Meter) SamplePeak(ch int) (float64, error) {
	return m.peak(ch, ModeSamplePeak, m.samplePeak)
}

// PrevSamplePeak returns the largest absolute sample of channel ch in the last AddFrames call.
func (m *Meter) PrevSamplePeak(ch int) (float64, error) {
	return m.peak(ch, ModeSamplePeak, m.prevSamplePeak)
}

// TruePeak returns the largest reconstructed absolute value of channel ch so far. It is never below the sample peak.
func (m *Meter) TruePeak(ch int) (float64, error) {
	tp, err := m.peak(ch, ModeTruePeak, m.truePeak)
	if err != nil {
		return 0, err
	}

	return max(tp, m.samplePeak[ch]), nil
}

// PrevTruePeak is TruePeak restricted to the last AddFrames call.
func (m *Meter) PrevTruePeak(ch int) (float64, error) {
	tp, err := m.peak(ch, ModeTruePeak, m.prevTruePeak)
	if err != nil {
		return 0, err
	}

	return max(tp, m.prevSamplePeak[ch]), nil
}
