//nolint:staticcheck // too dumb on Db vs. DB
package types

type BitDepth uint

const (
	Depth16 BitDepth = 16
	Depth24 BitDepth = 24
	Depth32 BitDepth = 32
)

// BytesPerSample returns the width of one sample on the wire.
func (b BitDepth) BytesPerSample() int {
	return int(b / 8) //nolint:gosec // bit depths are small constants
}

// PCMFormat describes interleaved, little-endian, signed PCM.
type PCMFormat struct {
	SampleRate int
	BitDepth   BitDepth
	Channels   uint
}

/*
Loudness Interpretation

## Integrated Loudness (LUFS)

| IntegratedLUFS | Context                                 |
|----------------|----------------------------------------|
| -23 to -18     | Broadcast/streaming target range       |
| -16 to -14     | Typical modern pop/rock master         |
| -12 to -10     | Loud/compressed master                 |
| -9 to -6       | Extremely loud                         |

## Relative Threshold

The relative gate sits 10 LU below the ungated mean of every 400 ms block above -70 LUFS.
Blocks below it do not count toward IntegratedLUFS. A threshold of exactly -70 means no block
passed the absolute gate.

## Loudness Range (LRA)

| LRA (LU) | Interpretation                          |
|----------|----------------------------------------|
| < 5      | Very compressed, little dynamics        |
| 5-10     | Moderate dynamics, typical pop/rock     |
| 10-15    | Good dynamics, well-mastered            |
| 15-25    | Wide dynamics, classical/jazz           |
| > 25     | Extreme dynamics                        |

## Storage

| Strategy  | Memory              | Resolution                        |
|-----------|---------------------|-----------------------------------|
| queue     | grows with duration | exact                             |
| histogram | constant            | 0.1 LU, block energies quantized  |

## Dynamic Range (DR Score)

| DR Score | Interpretation                          |
|----------|----------------------------------------|
| DR1-DR4  | Severely crushed.                       |
| DR5-DR7  | Compressed. Typical modern loud master. |
| DR8-DR10 | Moderate. Acceptable for most genres.   |
| DR11-DR14| Good dynamics. Well-mastered.           |
| DR15+    | Excellent dynamics.                     |
*/

// LoudnessResult contains the EBU R128 measurements of one program.
type LoudnessResult struct {
	IntegratedLUFS        float64 // gated loudness, -Inf for silence
	RelativeThresholdLUFS float64 // relative gate, -70 when nothing passed the absolute gate
	LoudnessRange         float64 // LRA in LU
	MomentaryMax          float64 // max 400ms window
	ShortTermMax          float64 // max 3s window

	SamplePeakDb float64 // max absolute sample, dBFS
	TruePeakDb   float64 // max reconstructed level, dBTP

	Dynamics DynamicRange

	Frames   uint64
	Strategy string // storage strategy of the block histories
}

// DynamicRange is the crest factor of the loudest 3s blocks.
type DynamicRange struct {
	Score  int     // DR1-DR20
	Value  float64 // raw DR value before rounding
	PeakDb float64 // second highest block peak
	RmsDb  float64 // mean RMS of the loudest 20% of blocks
}

// AlbumResult contains per-track measurements and the measurements of all tracks taken as one program.
type AlbumResult struct {
	Tracks []*LoudnessResult

	IntegratedLUFS float64
	LoudnessRange  float64
	SamplePeakDb   float64
	TruePeakDb     float64
	Frames         uint64
}
