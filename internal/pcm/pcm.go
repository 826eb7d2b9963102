// Package pcm decodes interleaved little-endian signed PCM into normalized float64 frames.
package pcm

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/farcloser/primordium/fault"

	"github.com/farcloser/lufs/internal/types"
)

const (
	MaxValue16 = 32768.0      // 2^15: 16-bit signed PCM normalization divisor
	MaxValue24 = 8388608.0    // 2^23: 24-bit signed PCM normalization divisor
	MaxValue32 = 2147483648.0 // 2^31: 32-bit signed PCM normalization divisor

	bufferFrames = 4096
)

var ErrUnsupportedFormat = errors.New("unsupported PCM format")

// Reader yields whole frames of normalized samples. Bytes of a frame split across two reads of the underlying
// reader are kept until the frame completes.
type Reader struct {
	source   io.Reader
	format   types.PCMFormat
	width    int
	frame    int
	buf      []byte
	buffered int
	frames   uint64
}

// NewReader validates format and wraps r.
func NewReader(r io.Reader, format types.PCMFormat) (*Reader, error) {
	switch format.BitDepth {
	case types.Depth16, types.Depth24, types.Depth32:
	default:
		return nil, fmt.Errorf("%w: %d-bit", ErrUnsupportedFormat, format.BitDepth)
	}

	if format.Channels == 0 {
		return nil, fmt.Errorf("%w: no channels", ErrUnsupportedFormat)
	}

	if format.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate %d", ErrUnsupportedFormat, format.SampleRate)
	}

	width := format.BitDepth.BytesPerSample()
	frame := width * int(format.Channels) //nolint:gosec // channel counts are small

	return &Reader{
		source: r,
		format: format,
		width:  width,
		frame:  frame,
		buf:    make([]byte, frame*bufferFrames),
	}, nil
}

// Format returns the format being decoded.
func (r *Reader) Format() types.PCMFormat {
	return r.format
}

// Frames returns the number of frames decoded so far.
func (r *Reader) Frames() uint64 {
	return r.frames
}

// Read decodes up to len(dst)/channels frames into dst and returns the number of samples written, always a multiple
// of the channel count. It returns io.EOF once the source is drained; trailing bytes short of a frame are dropped.
func (r *Reader) Read(dst []float64) (int, error) {
	channels := int(r.format.Channels) //nolint:gosec // channel counts are small

	want := min(len(dst)/channels, bufferFrames) * r.frame
	if want == 0 {
		return 0, nil
	}

	for r.buffered < r.frame {
		n, err := r.source.Read(r.buf[r.buffered:want])
		r.buffered += n

		if err == nil {
			continue
		}

		if errors.Is(err, io.EOF) {
			if r.buffered < r.frame {
				return 0, io.EOF
			}

			break
		}

		return 0, fmt.Errorf("%w: %w", fault.ErrReadFailure, err)
	}

	complete := r.buffered / r.frame * r.frame
	samples := r.decode(r.buf[:complete], dst)

	r.buffered = copy(r.buf, r.buf[complete:r.buffered])
	r.frames += uint64(complete / r.frame) //nolint:gosec // positive

	return samples, nil
}

func (r *Reader) decode(data []byte, dst []float64) int {
	samples := len(data) / r.width

	switch r.format.BitDepth {
	case types.Depth16:
		for i := range samples {
			dst[i] = float64(int16(binary.LittleEndian.Uint16(data[i*2:]))) / MaxValue16
		}
	case types.Depth24:
		for i := range samples {
			b := data[i*3:]
			// sign-extend through the top byte of an int32
			v := int32(uint32(b[0])<<8|uint32(b[1])<<16|uint32(b[2])<<24) >> 8
			dst[i] = float64(v) / MaxValue24
		}
	case types.Depth32:
		for i := range samples {
			dst[i] = float64(int32(binary.LittleEndian.Uint32(data[i*4:]))) / MaxValue32
		}
	}

	return samples
}
