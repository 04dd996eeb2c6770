package models

import (
	"time"
)

// Choice is a single option offered by a narrative moment.
type Choice struct {
	ID              string `json:"id"`
	Text            string `json:"text"`
	ConsequenceHint string `json:"consequence_hint,omitempty"`
	// Polarity is the collaborator's optional dark/light tag. Empty when untagged.
	Polarity Polarity `json:"polarity,omitempty"`
}

// NarrativeMoment is one piece of narration shown to the player.
type NarrativeMoment struct {
	ID         string `json:"id"`
	LoopNumber int    `json:"loop_number"`
	Text       string `json:"text"`
	Speaker    string `json:"speaker,omitempty"`
	Mood       Mood   `json:"mood"`
	// Significant overrides the mood-derived significance when set.
	Significant *bool     `json:"significant,omitempty"`
	Choices     []Choice  `json:"choices"`
	Timestamp   time.Time `json:"timestamp"`
}

// FindChoice returns the offered choice with the given id.
func (m *NarrativeMoment) FindChoice(id string) (Choice, bool) {
	for _, c := range m.Choices {
		if c.ID == id {
			return c, true
		}
	}
	return Choice{}, false
}

// IsTerminal reports whether the moment offers no further choices.
func (m *NarrativeMoment) IsTerminal() bool {
	return len(m.Choices) == 0
}

// Clone returns a deep copy of the moment.
func (m NarrativeMoment) Clone() NarrativeMoment {
	out := m
	if m.Significant != nil {
		v := *m.Significant
		out.Significant = &v
	}
	if m.Choices != nil {
		out.Choices = make([]Choice, len(m.Choices))
		copy(out.Choices, m.Choices)
	}
	return out
}
