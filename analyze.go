package lufs

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"

	"github.com/farcloser/lufs/internal/dynamics"
	"github.com/farcloser/lufs/internal/pcm"
	"github.com/farcloser/lufs/internal/types"
)

/*
Usage:

result, err := lufs.Analyze(file, types.PCMFormat{SampleRate: 48000, BitDepth: types.Depth24, Channels: 2},
	lufs.DefaultOptions())
fmt.Printf("%.1f LUFS, LRA %.1f LU\n", result.IntegratedLUFS, result.LoudnessRange)

// Constant memory for very long programs
opts := lufs.DefaultOptions()
opts.UseHistogram = true

// Album loudness
album, err := lufs.AnalyzeMultiple([]lufs.ReaderFactory{openTrack1, openTrack2}, format, opts)
*/

const (
	analysisMode = ModeI | ModeLRA | ModeTruePeak

	// reported for maxima and peaks that never rose above silence
	floorDb = -120.0
)

// Analyze measures the loudness of one program of raw PCM.
func Analyze(r io.Reader, format types.PCMFormat, opts Options) (*types.LoudnessResult, error) {
	slog.Debug("lufs.Analyze", "sample rate", format.SampleRate, "channels", format.Channels, "stage", "start")

	prog, err := measure(r, format, opts)
	if err != nil {
		slog.Debug("lufs.Analyze", "stage", "error")

		return nil, err
	}

	result, err := prog.result()
	if err != nil {
		return nil, err
	}

	slog.Debug("lufs.Analyze", "frames", result.Frames, "integrated", result.IntegratedLUFS, "stage", "done")

	return result, nil
}

// AnalyzeMultiple measures several programs, for example the tracks of an album, and the loudness of all of them
// taken as one.
func AnalyzeMultiple(factories []ReaderFactory, format types.PCMFormat, opts Options) (*types.AlbumResult, error) {
	slog.Debug("lufs.AnalyzeMultiple", "programs", len(factories), "stage", "start")

	album := &types.AlbumResult{
		Tracks:       make([]*types.LoudnessResult, 0, len(factories)),
		SamplePeakDb: floorDb,
		TruePeakDb:   floorDb,
	}

	meters := make([]*Meter, 0, len(factories))

	for i, factory := range factories {
		r, err := factory()
		if err != nil {
			return nil, fmt.Errorf("program %d: %w", i, err)
		}

		prog, err := measure(r, format, opts)

		if closer, ok := r.(io.Closer); ok {
			err = errors.Join(err, closer.Close())
		}

		if err != nil {
			return nil, fmt.Errorf("program %d: %w", i, err)
		}

		track, err := prog.result()
		if err != nil {
			return nil, fmt.Errorf("program %d: %w", i, err)
		}

		album.Tracks = append(album.Tracks, track)
		album.Frames += track.Frames
		album.SamplePeakDb = max(album.SamplePeakDb, track.SamplePeakDb)
		album.TruePeakDb = max(album.TruePeakDb, track.TruePeakDb)

		meters = append(meters, prog.meter)
	}

	var err error

	if album.IntegratedLUFS, err = LoudnessGlobalMultiple(meters...); err != nil {
		return nil, err
	}

	if album.LoudnessRange, err = LoudnessRangeMultipleMeters(meters...); err != nil {
		return nil, err
	}

	slog.Debug("lufs.AnalyzeMultiple", "frames", album.Frames, "integrated", album.IntegratedLUFS, "stage", "done")

	return album, nil
}

// program is a finished measurement.
type program struct {
	meter    *Meter
	dynamics *dynamics.Tracker

	momentaryMax float64
	shortTermMax float64
	frames       uint64
}

func newMeter(format types.PCMFormat, opts Options) (*Meter, error) {
	mode := analysisMode
	if opts.UseHistogram {
		mode |= ModeHistogram
	}

	meter, err := NewMeter(format.Channels, format.SampleRate, mode)
	if err != nil {
		return nil, err
	}

	if opts.Channels != nil {
		if uint(len(opts.Channels)) != format.Channels {
			return nil, fmt.Errorf("%w: %d channel roles for %d channels", ErrInvalidArgument, len(opts.Channels),
				format.Channels)
		}

		for ch, kind := range opts.Channels {
			if err = meter.SetChannel(ch, kind); err != nil {
				return nil, err
			}
		}
	}

	if opts.MaxHistory > 0 {
		if err = meter.SetMaxHistory(int(opts.MaxHistory.Milliseconds())); err != nil {
			return nil, err
		}
	}

	return meter, nil
}

// measure feeds r to a new Meter in 100 ms steps, sampling momentary and short-term loudness after each.
func measure(r io.Reader, format types.PCMFormat, opts Options) (*program, error) {
	reader, err := pcm.NewReader(r, format)
	if err != nil {
		return nil, err
	}

	meter, err := newMeter(format, opts)
	if err != nil {
		return nil, err
	}

	prog := &program{
		meter:        meter,
		dynamics:     dynamics.New(format.SampleRate, meter.Channels()),
		momentaryMax: math.Inf(-1),
		shortTermMax: math.Inf(-1),
	}

	step := make([]float64, meter.samplesIn100ms*meter.Channels())
	filled := 0

	for {
		n, readErr := reader.Read(step[filled:])
		filled += n

		if filled == len(step) || (errors.Is(readErr, io.EOF) && filled > 0) {
			if err = prog.add(step[:filled]); err != nil {
				return nil, err
			}

			filled = 0
		}

		if errors.Is(readErr, io.EOF) {
			break
		}

		if readErr != nil {
			return nil, readErr
		}
	}

	prog.frames = reader.Frames()

	return prog, nil
}

func (p *program) add(samples []float64) error {
	if err := p.meter.AddFramesF64(samples); err != nil {
		return err
	}

	p.dynamics.Add(samples)

	momentary, err := p.meter.LoudnessMomentary()
	if err != nil {
		return err
	}

	shortTerm, err := p.meter.LoudnessShortTerm()
	if err != nil {
		return err
	}

	p.momentaryMax = max(p.momentaryMax, momentary)
	p.shortTermMax = max(p.shortTermMax, shortTerm)

	return nil
}

func (p *program) result() (*types.LoudnessResult, error) {
	m := p.meter

	integrated, err := m.LoudnessGlobal()
	if err != nil {
		return nil, err
	}

	threshold, err := m.RelativeThreshold()
	if err != nil {
		return nil, err
	}

	lra, err := m.LoudnessRange()
	if err != nil {
		return nil, err
	}

	var samplePeak, truePeak float64

	for ch := range m.Channels() {
		sp, err := m.SamplePeak(ch)
		if err != nil {
			return nil, err
		}

		tp, err := m.TruePeak(ch)
		if err != nil {
			return nil, err
		}

		samplePeak = max(samplePeak, sp)
		truePeak = max(truePeak, tp)
	}

	return &types.LoudnessResult{
		IntegratedLUFS:        integrated,
		RelativeThresholdLUFS: threshold,
		LoudnessRange:         lra,
		MomentaryMax:          max(p.momentaryMax, floorDb),
		ShortTermMax:          max(p.shortTermMax, floorDb),
		SamplePeakDb:          amplitudeToDb(samplePeak),
		TruePeakDb:            amplitudeToDb(truePeak),
		Dynamics:              p.dynamics.Result(),
		Frames:                p.frames,
		Strategy:              m.blocks.Strategy().String(),
	}, nil
}

func amplitudeToDb(v float64) float64 {
	if v <= 0 {
		return floorDb
	}

	return max(20*math.Log10(v), floorDb)
}
