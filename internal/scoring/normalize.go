package scoring

// Fixed normalization bounds. Sub-metrics are rescaled to [0,1] with these
// clip ranges before weighting, so no unnormalized value dominates by scale.
// The bounds are applied identically across a scoring run; relative ranking
// is therefore stable regardless of the cross-section being scored.
const (
	// Raw and smoothed momentum clip to [-100%, +200%].
	momentumClipLo = -1.0
	momentumClipHi = 2.0

	// Sharpe-like volatility-adjusted return clips to [-3, +3].
	volAdjClipLo = -3.0
	volAdjClipHi = 3.0

	// Relative volume caps at 2x the long-run average.
	volumeRatioCap = 2.0
)

// normalizeMomentum rescales a raw return into [0,1].
func normalizeMomentum(x float64) float64 {
	return Clamp01((x - momentumClipLo) / (momentumClipHi - momentumClipLo))
}

// normalizeVolAdj rescales a volatility-adjusted return into [0,1].
func normalizeVolAdj(x float64) float64 {
	return Clamp01((x - volAdjClipLo) / (volAdjClipHi - volAdjClipLo))
}

// normalizeVolumeRatio caps a relative volume ratio and rescales to [0,1].
func normalizeVolumeRatio(ratio float64) float64 {
	if ratio < 0 {
		return 0
	}
	if ratio > volumeRatioCap {
		ratio = volumeRatioCap
	}
	return ratio / volumeRatioCap
}

// Clamp01 bounds x to [0,1].
func Clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
