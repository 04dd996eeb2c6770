package game

import (
	"strings"

	"nihilism/server/internal/models"
)

var darkKeywords = []string{
	"dark",
	"hurt",
	"ignore",
	"nihil",
	"cruel",
	"abandon",
	"kill",
	"nothing matters",
	"don't care",
	"meaningless",
	"leave them",
	"walk away",
}

var lightKeywords = []string{
	"help",
	"hope",
	"comfort",
	"forgive",
	"protect",
	"listen",
	"kind",
	"embrace",
	"stay",
	"beauty",
	"meaning",
	"connect",
	"save",
	"share",
	"thank",
}

// Classify returns the polarity of a choice. An explicit tag supplied by the
// narrator wins; otherwise a keyword heuristic runs over the choice id, text
// and hint. The moment is accepted for context but the heuristic only reads
// the choice. Classification never fails: anything unrecognised is neutral.
func Classify(choice models.Choice, _ *models.NarrativeMoment) models.Polarity {
	if p, ok := models.ParsePolarity(string(choice.Polarity)); ok {
		return p
	}
	return classifyText(choice.ID + " " + choice.Text + " " + choice.ConsequenceHint)
}

func classifyText(s string) models.Polarity {
	s = strings.ToLower(s)
	// "meaningless" contains "meaning", so dark is checked first.
	for _, kw := range darkKeywords {
		if strings.Contains(s, kw) {
			return models.PolarityDark
		}
	}
	for _, kw := range lightKeywords {
		if strings.Contains(s, kw) {
			return models.PolarityLight
		}
	}
	return models.PolarityNeutral
}
