package ffmpeg

import (
	"strconv"

	"github.com/farcloser/lufs/internal/types"
)

// sampleFormat returns the raw muxer name for bitDepth: s16le, s24le or s32le.
func sampleFormat(bitDepth types.BitDepth) string {
	//nolint:gosec // we fine, gosec
	return "s" + strconv.Itoa(int(bitDepth)) + "le"
}

// codec returns the matching PCM encoder.
func codec(bitDepth types.BitDepth) string {
	return "pcm_" + sampleFormat(bitDepth)
}

func arguments(streamIndex int, format types.PCMFormat) []string {
	args := []string{
		"-v", "error",
		"-i", "-",
		"-map", "0:a:" + strconv.Itoa(streamIndex),
		"-f", sampleFormat(format.BitDepth),
		"-acodec", codec(format.BitDepth),
	}

	if format.SampleRate > 0 {
		args = append(args, "-ar", strconv.Itoa(format.SampleRate))
	}

	if format.Channels > 0 {
		args = append(args, "-ac", strconv.FormatUint(uint64(format.Channels), 10))
	}

	return append(args, "-")
}
