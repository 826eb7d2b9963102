// Package output provides shared result serialization for lufs JSON output.
package output

import (
	"math"

	"github.com/farcloser/lufs/internal/types"
)

// ResultToMap converts a loudness result into the canonical map structure
// used for JSON and JSONL serialization.
func ResultToMap(result *types.LoudnessResult) map[string]any {
	return map[string]any{
		"loudness": map[string]any{
			"integrated_lufs":    Level(result.IntegratedLUFS),
			"relative_threshold": Level(result.RelativeThresholdLUFS),
			"loudness_range":     result.LoudnessRange,
			"momentary_max":      Level(result.MomentaryMax),
			"short_term_max":     Level(result.ShortTermMax),
			"strategy":           result.Strategy,
		},
		"peaks": map[string]any{
			"sample_peak_db": result.SamplePeakDb,
			"true_peak_db":   result.TruePeakDb,
		},
		"dynamics": DynamicsToMap(result.Dynamics),
		"frames":   result.Frames,
	}
}

// DynamicsToMap converts a dynamic range score to a map.
func DynamicsToMap(dr types.DynamicRange) map[string]any {
	return map[string]any{
		"dr_score": dr.Score,
		"dr_value": dr.Value,
		"peak_db":  dr.PeakDb,
		"rms_db":   dr.RmsDb,
	}
}

// AlbumToMap converts album results to a map, tracks keyed by the given names.
func AlbumToMap(result *types.AlbumResult, names []string) map[string]any {
	tracks := make([]any, 0, len(result.Tracks))

	for i, track := range result.Tracks {
		entry := ResultToMap(track)
		if i < len(names) {
			entry["track"] = names[i]
		}

		tracks = append(tracks, entry)
	}

	return map[string]any{
		"album": map[string]any{
			"integrated_lufs": Level(result.IntegratedLUFS),
			"loudness_range":  result.LoudnessRange,
			"sample_peak_db":  result.SamplePeakDb,
			"true_peak_db":    result.TruePeakDb,
			"frames":          result.Frames,
		},
		"tracks": tracks,
	}
}

// Level keeps finite levels as numbers. JSON has no infinities, so silence is rendered as "-inf".
func Level(v float64) any {
	if math.IsInf(v, -1) {
		return "-inf"
	}

	return v
}
