package ffmpeg

import "time"

const (
	name = "ffmpeg"
	// Extraction runs for as long as the measurement consumes the stream, so this only guards against a stuck decoder
	// on very long programs.
	timeout = 30 * time.Minute
)
