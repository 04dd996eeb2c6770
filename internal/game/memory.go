package game

import (
	"strings"

	"nihilism/server/internal/models"
)

// DefaultKeyMemoryCap bounds the key memory log.
const DefaultKeyMemoryCap = 50

// Aggregator folds choices and narrative events into persistent memory.
type Aggregator struct {
	ScoreDelta   int
	KeyMemoryCap int
}

// DefaultAggregator returns an aggregator with the default delta and cap.
func DefaultAggregator() Aggregator {
	return Aggregator{
		ScoreDelta:   DefaultScoreDelta,
		KeyMemoryCap: DefaultKeyMemoryCap,
	}
}

// IsSignificant reports whether a moment should leave a key memory. An
// explicit flag from the narrator wins over the mood.
func IsSignificant(m *models.NarrativeMoment) bool {
	if m == nil {
		return false
	}
	if m.Significant != nil {
		return *m.Significant
	}
	switch m.Mood {
	case models.MoodDark, models.MoodNihilistic, models.MoodTranscendent:
		return true
	default:
		return false
	}
}

// RecordChoice counts one choice, moves the score and, for significant
// moments, appends the choice text to the key memories.
func (a Aggregator) RecordChoice(mem *models.PersistentMemory, choice models.Choice, p models.Polarity, significant bool) {
	mem.TotalChoices++
	switch p {
	case models.PolarityDark:
		mem.DarkChoices++
	case models.PolarityLight:
		mem.LightChoices++
	default:
		mem.NeutralChoices++
	}
	mem.NihilismScore = ApplyScore(mem.NihilismScore, p, a.delta())

	if significant {
		text := strings.TrimSpace(choice.Text)
		if text == "" {
			text = choice.ID
		}
		a.AppendKeyMemory(mem, text)
	}
}

// AppendKeyMemory appends an entry, evicting the oldest beyond the cap.
func (a Aggregator) AppendKeyMemory(mem *models.PersistentMemory, text string) {
	mem.KeyMemories = append(mem.KeyMemories, text)
	if limit := a.keyMemoryCap(); len(mem.KeyMemories) > limit {
		mem.KeyMemories = append([]string{}, mem.KeyMemories[len(mem.KeyMemories)-limit:]...)
	}
}

// RecordDeath increments the death count for a character. Blank names are ignored.
func (a Aggregator) RecordDeath(mem *models.PersistentMemory, character string) {
	character = strings.TrimSpace(character)
	if character == "" {
		return
	}
	if mem.CharacterDeaths == nil {
		mem.CharacterDeaths = map[string]int{}
	}
	mem.CharacterDeaths[character]++
}

// RecordTruth adds a discovered fact. Inserting a known fact is a no-op.
func (a Aggregator) RecordTruth(mem *models.PersistentMemory, factID string) {
	factID = strings.TrimSpace(factID)
	if factID == "" {
		return
	}
	for _, t := range mem.TruthsDiscovered {
		if t == factID {
			return
		}
	}
	mem.TruthsDiscovered = append(mem.TruthsDiscovered, factID)
}

func (a Aggregator) delta() int {
	if a.ScoreDelta == 0 {
		return DefaultScoreDelta
	}
	return a.ScoreDelta
}

func (a Aggregator) keyMemoryCap() int {
	if a.KeyMemoryCap <= 0 {
		return DefaultKeyMemoryCap
	}
	return a.KeyMemoryCap
}
