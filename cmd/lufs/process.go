//nolint:wrapcheck
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/farcloser/lufs"
	"github.com/farcloser/lufs/internal/integration/ffmpeg"
	"github.com/farcloser/lufs/internal/integration/ffprobe"
	"github.com/farcloser/lufs/internal/types"
)

var errProcessArgs = errors.New("expected exactly one argument: file path")

func streamFlag() cli.Flag {
	return &cli.IntFlag{
		Name:  "stream",
		Usage: "Audio stream index (0-based)",
		Value: 0,
	}
}

func processCommand() *cli.Command {
	return &cli.Command{
		Name:      "process",
		Usage:     "Extract PCM from an audio file with ffmpeg and measure its loudness",
		ArgsUsage: "<file>",
		Flags:     append([]cli.Flag{streamFlag()}, measurementFlags()...),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() != 1 {
				return fmt.Errorf("%w: got %d", errProcessArgs, cmd.NArg())
			}

			set, err := parseSettings(cmd)
			if err != nil {
				return err
			}

			filePath := cmd.Args().First()
			streamIndex := cmd.Int("stream")

			format, err := probeFormat(ctx, filePath, streamIndex)
			if err != nil {
				return err
			}

			input, err := extract(ctx, filePath, streamIndex, format)
			if err != nil {
				return err
			}

			result, err := lufs.Analyze(input, format, set.opts)

			if err = errors.Join(err, input.Close()); err != nil {
				return fmt.Errorf("analysis failed: %w", err)
			}

			return outputResult(filePath, result, set)
		},
	}
}

// probeFormat returns the extraction format of a stream: its own rate and channels, as 32-bit PCM.
func probeFormat(ctx context.Context, filePath string, streamIndex int) (types.PCMFormat, error) {
	probeResult, err := ffprobe.Probe(ctx, filePath)
	if err != nil {
		return types.PCMFormat{}, fmt.Errorf("probing file: %w", err)
	}

	stream, err := probeResult.AudioStream(streamIndex)
	if err != nil {
		return types.PCMFormat{}, err
	}

	sampleRate, err := stream.Rate()
	if err != nil {
		return types.PCMFormat{}, err
	}

	if stream.Channels <= 0 {
		return types.PCMFormat{}, fmt.Errorf("%w: channel count %d", ffprobe.ErrInvalidStream, stream.Channels)
	}

	return types.PCMFormat{
		SampleRate: sampleRate,
		BitDepth:   types.Depth32,
		Channels:   uint(stream.Channels), //nolint:gosec // validated positive value
	}, nil
}

// extraction closes both the ffmpeg stream and the file feeding it.
type extraction struct {
	*ffmpeg.Stream

	file *os.File
}

func (e *extraction) Close() error {
	return errors.Join(e.Stream.Close(), e.file.Close())
}

// extract starts converting a stream of filePath to format.
func extract(ctx context.Context, filePath string, streamIndex int, format types.PCMFormat) (io.ReadCloser, error) {
	file, err := os.Open(filePath) //nolint:gosec // CLI tool opens user-specified audio files
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}

	stream, err := ffmpeg.ExtractStream(ctx, file, streamIndex, format)
	if err != nil {
		_ = file.Close()

		return nil, fmt.Errorf("extracting PCM: %w", err)
	}

	return &extraction{Stream: stream, file: file}, nil
}
