// ABOUTME: Intensity arbitration across audio, pattern, and manual sources
// ABOUTME: Max-combination so any active stimulus can reach its own level
package engine

// Combine arbitrates between the three intensity sources. Active
// channels contribute their value; the manual level always participates,
// so it can raise the floor but never suppress an active source. With
// both channels inactive the manual level passes through directly.
func Combine(audio, pattern, manual float64, audioActive, patternActive bool) float64 {
	combined := manual
	if audioActive && audio > combined {
		combined = audio
	}
	if patternActive && pattern > combined {
		combined = pattern
	}
	return combined
}
