//nolint:wrapcheck
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/farcloser/lufs"
	"github.com/farcloser/lufs/internal/config"
	"github.com/farcloser/lufs/internal/types"
)

var errInvalidBitDepth = errors.New("must be 16, 24, or 32")

// measurementFlags are shared by every command.
func measurementFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "histogram",
			Usage: "Store block energies in histograms: constant memory, 0.1 LU resolution",
		},
		&cli.DurationFlag{
			Name:  "max-history",
			Usage: "Only consider this much past audio for integrated loudness and range (e.g. 10m, 0 = everything)",
		},
		&cli.StringFlag{
			Name:  "layout",
			Usage: "Comma-separated channel roles: left, right, center, lfe, left_surround, right_surround, dual_mono",
		},
		&cli.StringFlag{
			Name:    "profile",
			Aliases: []string{"p"},
			Usage:   "YAML measurement profile; flags override its values",
		},
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Output format: console, json, markdown",
			Value:   "console",
		},
		&cli.BoolFlag{
			Name:    "debug",
			Aliases: []string{"D"},
			Usage:   "Include all raw measurements in output",
		},
		&cli.BoolFlag{
			Name:  "verbose",
			Usage: "Log progress to stderr",
		},
	}
}

// settings are the resolved measurement options and output format.
type settings struct {
	opts   lufs.Options
	format string
	debug  bool
}

func parseSettings(cmd *cli.Command) (*settings, error) {
	if cmd.Bool("verbose") {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	profile := &config.Profile{Format: "console"}

	if path := cmd.String("profile"); path != "" {
		var err error

		profile, err = config.Load(path)
		if err != nil {
			return nil, err
		}
	}

	if cmd.IsSet("histogram") {
		profile.Histogram = cmd.Bool("histogram")
	}

	if cmd.IsSet("max-history") {
		profile.MaxHistory = cmd.Duration("max-history")
	}

	if cmd.IsSet("layout") {
		profile.Channels = splitList(cmd.String("layout"))
	}

	if cmd.IsSet("format") {
		profile.Format = cmd.String("format")
	}

	opts, err := profile.Options()
	if err != nil {
		return nil, err
	}

	return &settings{opts: opts, format: profile.Format, debug: cmd.Bool("debug")}, nil
}

func splitList(raw string) []string {
	var out []string

	for name := range strings.SplitSeq(raw, ",") {
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, name)
		}
	}

	return out
}

func toBitDepth(v int) (types.BitDepth, error) {
	switch v {
	case 16:
		return types.Depth16, nil
	case 24:
		return types.Depth24, nil
	case 32:
		return types.Depth32, nil
	default:
		return 0, fmt.Errorf("%w: got %d", errInvalidBitDepth, v)
	}
}
