package orchestrate

// Gate policy. Both values are fixed; no pipeline can override them.
const (
	QualityFloor     = 0.78 // scores below this trigger regeneration
	MaxRegenerations = 2    // cap on copy→qa retries
)

// needsRegeneration reports whether another copy attempt is allowed.
func needsRegeneration(score float64, done int) bool {
	return score < QualityFloor && done < MaxRegenerations
}
