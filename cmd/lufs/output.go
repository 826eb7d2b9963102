//nolint:wrapcheck
package main

import (
	"fmt"
	"math"
	"os"

	"github.com/farcloser/primordium/format"

	"github.com/farcloser/lufs/internal/output"
	"github.com/farcloser/lufs/internal/types"
)

func outputResult(filePath string, result *types.LoudnessResult, set *settings) error {
	formatter, err := format.GetFormatter(set.format)
	if err != nil {
		return err
	}

	var meta map[string]any
	if set.debug {
		meta = output.ResultToMap(result)
	} else {
		meta = buildFriendlyOutput(result)
	}

	data := &format.Data{
		Object: filePath,
		Meta:   meta,
	}

	return formatter.PrintAll([]*format.Data{data}, os.Stdout)
}

func outputAlbum(paths []string, result *types.AlbumResult, set *settings) error {
	formatter, err := format.GetFormatter(set.format)
	if err != nil {
		return err
	}

	if set.debug {
		return formatter.PrintAll([]*format.Data{{
			Object: "album",
			Meta:   output.AlbumToMap(result, paths),
		}}, os.Stdout)
	}

	all := make([]*format.Data, 0, len(result.Tracks)+1)

	for i, track := range result.Tracks {
		all = append(all, &format.Data{
			Object: paths[i],
			Meta:   buildFriendlyOutput(track),
		})
	}

	all = append(all, &format.Data{
		Object: "album",
		Meta: map[string]any{
			"summary": summary(result.IntegratedLUFS, result.LoudnessRange),
			"properties": map[string]any{
				"integrated": lufsLabel(result.IntegratedLUFS),
				"range":      fmt.Sprintf("%.1f LU", result.LoudnessRange),
				"true_peak":  fmt.Sprintf("%.1f dBTP", result.TruePeakDb),
				"tracks":     len(result.Tracks),
			},
		},
	})

	return formatter.PrintAll(all, os.Stdout)
}

// buildFriendlyOutput creates a user-friendly summary of the measurement.
func buildFriendlyOutput(result *types.LoudnessResult) map[string]any {
	return map[string]any{
		"summary": summary(result.IntegratedLUFS, result.LoudnessRange),
		"properties": map[string]any{
			"integrated":     lufsLabel(result.IntegratedLUFS),
			"range":          fmt.Sprintf("%.1f LU", result.LoudnessRange),
			"momentary_max":  lufsLabel(result.MomentaryMax),
			"short_term_max": lufsLabel(result.ShortTermMax),
			"true_peak":      fmt.Sprintf("%.1f dBTP", result.TruePeakDb),
			"sample_peak":    fmt.Sprintf("%.1f dBFS", result.SamplePeakDb),
			"dynamic_range":  fmt.Sprintf("DR%d", result.Dynamics.Score),
		},
	}
}

func summary(integrated, lra float64) string {
	if math.IsInf(integrated, -1) {
		return "silent: nothing above the -70 LUFS gate"
	}

	return fmt.Sprintf("%s, %s", lufsLabel(integrated), dynamicsLabel(lra))
}

func lufsLabel(v float64) string {
	if math.IsInf(v, -1) {
		return "-inf LUFS"
	}

	return fmt.Sprintf("%.1f LUFS", v)
}

func dynamicsLabel(lra float64) string {
	switch {
	case lra < 5:
		return "very compressed"
	case lra < 10:
		return "moderate dynamics"
	case lra < 15:
		return "good dynamics"
	case lra < 25:
		return "wide dynamics"
	default:
		return "extreme dynamics"
	}
}
