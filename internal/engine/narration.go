package engine

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"nihilism/server/internal/interfaces"
	"nihilism/server/internal/models"
)

// narrationReply is the JSON shape the narrator is asked to produce
type narrationReply struct {
	Text        string        `json:"text"`
	Speaker     *string       `json:"speaker"`
	Mood        string        `json:"mood"`
	Significant *bool         `json:"significant"`
	Choices     []choiceReply `json:"choices"`
	Deaths      []string      `json:"deaths"`
	Truths      []string      `json:"truths"`
}

type choiceReply struct {
	ID              string  `json:"id"`
	Text            string  `json:"text"`
	ConsequenceHint *string `json:"consequence_hint"`
	Polarity        string  `json:"polarity"`
}

// ParseNarration turns raw narrator output into a narration. Output that is
// not the expected JSON degrades to a neutral moment with continue and reset
// choices; it never fails
func ParseNarration(content string, now time.Time) *interfaces.Narration {
	reply, ok := decodeReply(content)
	if !ok {
		return fallbackNarration(content, now)
	}

	moment := models.NarrativeMoment{
		ID:          uuid.NewString(),
		Text:        strings.TrimSpace(reply.Text),
		Mood:        models.ParseMood(reply.Mood),
		Significant: reply.Significant,
		Timestamp:   now.UTC(),
	}
	if reply.Speaker != nil {
		moment.Speaker = strings.TrimSpace(*reply.Speaker)
	}

	choices := make([]models.Choice, 0, len(reply.Choices))
	for _, c := range reply.Choices {
		choice := models.Choice{
			ID:   strings.TrimSpace(c.ID),
			Text: strings.TrimSpace(c.Text),
		}
		if choice.ID == "" && choice.Text == "" {
			continue
		}
		if c.ConsequenceHint != nil {
			choice.ConsequenceHint = strings.TrimSpace(*c.ConsequenceHint)
		}
		if p, ok := models.ParsePolarity(c.Polarity); ok {
			choice.Polarity = p
		}
		choices = append(choices, choice)
	}
	moment.Choices = NormalizeChoices(choices)

	return &interfaces.Narration{
		Moment: moment,
		Deaths: reply.Deaths,
		Truths: reply.Truths,
	}
}

func decodeReply(content string) (*narrationReply, bool) {
	raw := extractJSON(content)
	if raw == "" {
		return nil, false
	}
	var reply narrationReply
	if err := json.Unmarshal([]byte(raw), &reply); err != nil {
		return nil, false
	}
	if strings.TrimSpace(reply.Text) == "" {
		return nil, false
	}
	return &reply, true
}

// extractJSON returns the outermost object in content, tolerating code fences
// and prose around it
func extractJSON(content string) string {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return ""
	}
	return content[start : end+1]
}

func fallbackNarration(content string, now time.Time) *interfaces.Narration {
	text := strings.TrimSpace(content)
	if text == "" {
		text = "The loop flickers. Something should have been said here, but the silence holds."
	}
	return &interfaces.Narration{
		Moment: models.NarrativeMoment{
			ID:        uuid.NewString(),
			Text:      text,
			Mood:      models.MoodNeutral,
			Choices:   FallbackChoices(),
			Timestamp: now.UTC(),
		},
	}
}

// FallbackChoices are offered when the narrator reply cannot be understood
func FallbackChoices() []models.Choice {
	return []models.Choice{
		{ID: "continue", Text: "Continue..."},
		{ID: "reset", Text: "Let the loop reset...", ConsequenceHint: "End this iteration"},
	}
}

// NormalizeChoices makes choice ids usable as references: blanks become
// choice_N, duplicates get a numeric suffix, and an empty list gets the
// default continue choice
func NormalizeChoices(choices []models.Choice) []models.Choice {
	if len(choices) == 0 {
		return []models.Choice{{ID: "continue", Text: "Continue..."}}
	}

	seen := make(map[string]bool, len(choices))
	out := make([]models.Choice, 0, len(choices))
	for i, c := range choices {
		if c.ID == "" {
			c.ID = fmt.Sprintf("choice_%d", i+1)
		}
		if c.Text == "" {
			c.Text = c.ID
		}
		if seen[c.ID] {
			base := c.ID
			for n := 2; seen[c.ID]; n++ {
				c.ID = fmt.Sprintf("%s_%d", base, n)
			}
		}
		seen[c.ID] = true
		out = append(out, c)
	}
	return out
}
