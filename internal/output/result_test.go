package output

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/zeebo/assert"

	"github.com/farcloser/lufs/internal/types"
)

func TestResultToMapSilence(t *testing.T) {
	meta := ResultToMap(&types.LoudnessResult{
		IntegratedLUFS:        math.Inf(-1),
		RelativeThresholdLUFS: -70,
		MomentaryMax:          -120,
		ShortTermMax:          -120,
		SamplePeakDb:          -120,
		TruePeakDb:            -120,
		Strategy:              "queue",
	})

	loudness, _ := meta["loudness"].(map[string]any)
	assert.Equal(t, loudness["integrated_lufs"], any("-inf"))
	assert.Equal(t, loudness["relative_threshold"], any(-70.))

	// must survive the JSON formatter
	_, err := json.Marshal(meta)
	assert.NoError(t, err)
}

func TestAlbumToMap(t *testing.T) {
	track := &types.LoudnessResult{IntegratedLUFS: -14, Frames: 10}

	meta := AlbumToMap(&types.AlbumResult{
		Tracks:         []*types.LoudnessResult{track, track},
		IntegratedLUFS: -14,
		Frames:         20,
	}, []string{"a.flac"})

	tracks, _ := meta["tracks"].([]any)
	assert.Equal(t, len(tracks), 2)

	first, _ := tracks[0].(map[string]any)
	assert.Equal(t, first["track"], any("a.flac"))

	second, _ := tracks[1].(map[string]any)
	_, named := second["track"]
	assert.That(t, !named)

	album, _ := meta["album"].(map[string]any)
	assert.Equal(t, album["frames"], any(uint64(20)))
}
