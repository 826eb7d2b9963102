package lufs

import (
	"io"
	"time"
)

// Options configures Analyze and AnalyzeMultiple.
type Options struct {
	// UseHistogram stores block energies in histograms: constant memory, 0.1 LU resolution.
	UseHistogram bool

	// MaxHistory bounds how much past audio integrated loudness and loudness range consider (0: everything).
	// Ignored with UseHistogram.
	MaxHistory time.Duration

	// Channels overrides the default channel layout. Its length must match the channel count.
	Channels []Channel
}

// DefaultOptions returns exact, unbounded measurement with the default channel layout.
func DefaultOptions() Options {
	return Options{}
}

// ReaderFactory provides a fresh reader per program. Readers implementing io.Closer are closed once measured.
type ReaderFactory func() (io.Reader, error)
