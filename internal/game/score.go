package game

import "nihilism/server/internal/models"

const (
	// MinScore and MaxScore bound the nihilism score.
	MinScore = -100
	MaxScore = 100

	// DefaultScoreDelta is how far one dark or light choice moves the score.
	DefaultScoreDelta = 5
)

// ApplyScore folds a polarity into the score. Dark adds delta, light
// subtracts it, neutral leaves it alone. The result saturates at the bounds.
func ApplyScore(score int, p models.Polarity, delta int) int {
	if delta < 0 {
		delta = -delta
	}
	score = clampScore(score)
	switch p {
	case models.PolarityDark:
		if score > MaxScore-delta {
			return MaxScore
		}
		return score + delta
	case models.PolarityLight:
		if score < MinScore+delta {
			return MinScore
		}
		return score - delta
	default:
		return score
	}
}

func clampScore(score int) int {
	if score > MaxScore {
		return MaxScore
	}
	if score < MinScore {
		return MinScore
	}
	return score
}

// ScoreBand describes the score the way the narrator is told about it.
func ScoreBand(score int) string {
	switch {
	case score > 30:
		return "Descending into darkness"
	case score < -30:
		return "Finding meaning"
	default:
		return "Balanced on the edge"
	}
}
