package lufs

import (
	"fmt"
	"strings"
)

// Channel describes the role of an input channel, which decides its weight in the block energy.
type Channel int

const (
	ChannelUnused Channel = iota
	ChannelLeft
	ChannelRight
	ChannelCenter
	ChannelLeftSurround
	ChannelRightSurround
	// ChannelDualMono is a mono signal meant to be played on both speakers of a stereo pair.
	ChannelDualMono
)

// Weight returns the BS.1770 channel weight. Surround channels are boosted by about 1.5 dB.
func (c Channel) Weight() float64 {
	switch c {
	case ChannelLeft, ChannelRight, ChannelCenter:
		return 1
	case ChannelLeftSurround, ChannelRightSurround:
		return 1.41
	case ChannelDualMono:
		return 2
	case ChannelUnused:
	}

	return 0
}

func (c Channel) String() string {
	switch c {
	case ChannelUnused:
		return "unused"
	case ChannelLeft:
		return "left"
	case ChannelRight:
		return "right"
	case ChannelCenter:
		return "center"
	case ChannelLeftSurround:
		return "left_surround"
	case ChannelRightSurround:
		return "right_surround"
	case ChannelDualMono:
		return "dual_mono"
	}

	return "unknown"
}

// ParseChannel is the reverse of Channel.String. "lfe" is accepted as an alias of unused.
func ParseChannel(name string) (Channel, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "unused", "lfe":
		return ChannelUnused, nil
	case "left", "l":
		return ChannelLeft, nil
	case "right", "r":
		return ChannelRight, nil
	case "center", "c":
		return ChannelCenter, nil
	case "left_surround", "ls":
		return ChannelLeftSurround, nil
	case "right_surround", "rs":
		return ChannelRightSurround, nil
	case "dual_mono":
		return ChannelDualMono, nil
	}

	return ChannelUnused, fmt.Errorf("%w: unknown channel %q", ErrInvalidArgument, name)
}

// DefaultChannelMap returns the channel layout assumed for a given channel count.
func DefaultChannelMap(channels int) []Channel {
	switch channels {
	case 4:
		return []Channel{ChannelLeft, ChannelRight, ChannelLeftSurround, ChannelRightSurround}
	case 5:
		return []Channel{ChannelLeft, ChannelRight, ChannelCenter, ChannelLeftSurround, ChannelRightSurround}
	}

	// L, R, C, LFE, Ls, Rs
	layout := []Channel{
		ChannelLeft, ChannelRight, ChannelCenter, ChannelUnused, ChannelLeftSurround, ChannelRightSurround,
	}

	out := make([]Channel, channels)
	copy(out, layout)

	return out
}
