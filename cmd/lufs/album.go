//nolint:wrapcheck
package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/urfave/cli/v3"

	"github.com/farcloser/lufs"
)

var errAlbumArgs = errors.New("expected at least one file path")

func albumCommand() *cli.Command {
	return &cli.Command{
		Name:      "album",
		Usage:     "Measure several audio files as the tracks of one album",
		ArgsUsage: "<file>...",
		Flags:     append([]cli.Flag{streamFlag()}, measurementFlags()...),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() == 0 {
				return errAlbumArgs
			}

			set, err := parseSettings(cmd)
			if err != nil {
				return err
			}

			paths := cmd.Args().Slice()
			streamIndex := cmd.Int("stream")

			// every track is converted to the rate and layout of the first
			format, err := probeFormat(ctx, paths[0], streamIndex)
			if err != nil {
				return fmt.Errorf("%s: %w", paths[0], err)
			}

			factories := make([]lufs.ReaderFactory, 0, len(paths))
			for _, path := range paths {
				factories = append(factories, func() (io.Reader, error) {
					return extract(ctx, path, streamIndex, format)
				})
			}

			result, err := lufs.AnalyzeMultiple(factories, format, set.opts)
			if err != nil {
				return fmt.Errorf("analysis failed: %w", err)
			}

			return outputAlbum(paths, result, set)
		},
	}
}
