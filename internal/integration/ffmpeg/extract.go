package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"

	"github.com/farcloser/primordium/fault"

	"github.com/farcloser/lufs/internal/integration/binary"
	"github.com/farcloser/lufs/internal/types"
)

// Stream is raw PCM being extracted by a running ffmpeg process.
type Stream struct {
	io.Reader

	cmd    *exec.Cmd
	cancel context.CancelFunc
	stderr *bytes.Buffer
	ctx    context.Context //nolint:containedctx // tied to the lifetime of the process
}

// Close discards whatever PCM is left, waits for ffmpeg to exit and reports how it did.
func (s *Stream) Close() error {
	defer s.cancel()

	_, _ = io.Copy(io.Discard, s.Reader)

	if err := s.cmd.Wait(); err != nil {
		if errors.Is(s.ctx.Err(), context.DeadlineExceeded) {
			slog.Debug("ffmpeg.Stream.Close", "stage", "timeout")

			return fmt.Errorf("%w: after %v", fault.ErrTimeout, timeout)
		}

		slog.Debug("ffmpeg.Stream.Close", "stage", "error")

		return fmt.Errorf("%w: %s: %w", fault.ErrCommandFailure, s.stderr.String(), err)
	}

	slog.Debug("ffmpeg.Stream.Close", "stage", "done")

	return nil
}

// ExtractStream starts extracting a specific audio stream from a container as interleaved PCM in format.
// A zero SampleRate or Channels keeps those of the source. The caller must Close the returned Stream.
func ExtractStream(
	ctx context.Context,
	input io.Reader,
	streamIndex int,
	format types.PCMFormat,
) (*Stream, error) {
	slog.Debug("ffmpeg.ExtractStream", "stream index", streamIndex, "stage", "start")

	ffmpegPath, err := binary.Require(name)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)

	//nolint:gosec // arguments are built from validated values
	cmd := exec.CommandContext(ctx, ffmpegPath, arguments(streamIndex, format)...)
	cmd.Stdin = input

	var stderr bytes.Buffer

	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()

		return nil, fmt.Errorf("%w: %w", fault.ErrCommandFailure, err)
	}

	if err = cmd.Start(); err != nil {
		cancel()

		return nil, fmt.Errorf("%w: %w", fault.ErrCommandFailure, err)
	}

	return &Stream{
		Reader: stdout,
		cmd:    cmd,
		cancel: cancel,
		stderr: &stderr,
		ctx:    ctx,
	}, nil
}
