package game

import (
	"testing"

	"nihilism/server/internal/models"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		choice models.Choice
		want   models.Polarity
	}{
		{"explicit dark tag", models.Choice{ID: "a", Text: "Help her up", Polarity: models.PolarityDark}, models.PolarityDark},
		{"explicit light tag", models.Choice{ID: "a", Text: "Walk away", Polarity: "LIGHT"}, models.PolarityLight},
		{"explicit neutral tag", models.Choice{ID: "a", Text: "Kill the lights", Polarity: models.PolarityNeutral}, models.PolarityNeutral},
		{"unknown tag falls back to text", models.Choice{ID: "a", Text: "Walk away", Polarity: "chaotic"}, models.PolarityDark},
		{"dark keyword in id", models.Choice{ID: "abandon_friend", Text: "Go"}, models.PolarityDark},
		{"dark keyword in text", models.Choice{ID: "c1", Text: "Nothing matters anyway"}, models.PolarityDark},
		{"meaningless is dark not light", models.Choice{ID: "c1", Text: "It is all meaningless"}, models.PolarityDark},
		{"light keyword", models.Choice{ID: "c2", Text: "Listen to the stranger"}, models.PolarityLight},
		{"light keyword in hint", models.Choice{ID: "c3", Text: "Wait", ConsequenceHint: "a chance to comfort someone"}, models.PolarityLight},
		{"no keyword is neutral", models.Choice{ID: "continue", Text: "Continue..."}, models.PolarityNeutral},
		{"empty choice is neutral", models.Choice{}, models.PolarityNeutral},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.choice, nil); got != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	choice := models.Choice{ID: "x", Text: "Protect the child, or ignore her"}
	first := Classify(choice, nil)
	for i := 0; i < 100; i++ {
		if got := Classify(choice, nil); got != first {
			t.Fatalf("run %d: expected %s, got %s", i, first, got)
		}
	}
}
