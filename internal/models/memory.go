package models

// PersistentMemory is the cross-loop memory of a player. It is never
// replaced, only mutated in place by the memory aggregator.
type PersistentMemory struct {
	TotalLoops       int            `json:"total_loops"`
	TotalChoices     int            `json:"total_choices"`
	DarkChoices      int            `json:"dark_choices"`
	LightChoices     int            `json:"light_choices"`
	NeutralChoices   int            `json:"neutral_choices"`
	KeyMemories      []string       `json:"key_memories"`
	CharacterDeaths  map[string]int `json:"character_deaths"`
	TruthsDiscovered []string       `json:"truths_discovered"`
	// NihilismScore is kept within [-100, 100].
	NihilismScore int `json:"nihilism_score"`
}

// NewPersistentMemory returns zeroed memory for a player whose first loop has started.
func NewPersistentMemory() PersistentMemory {
	return PersistentMemory{
		TotalLoops:       1,
		KeyMemories:      []string{},
		CharacterDeaths:  map[string]int{},
		TruthsDiscovered: []string{},
	}
}

// RecentKeyMemories returns up to n of the newest key memories, oldest first.
func (m *PersistentMemory) RecentKeyMemories(n int) []string {
	if n <= 0 || len(m.KeyMemories) == 0 {
		return nil
	}
	start := len(m.KeyMemories) - n
	if start < 0 {
		start = 0
	}
	return append([]string(nil), m.KeyMemories[start:]...)
}

// Clone returns a deep copy of the memory.
func (m PersistentMemory) Clone() PersistentMemory {
	out := m
	if m.KeyMemories != nil {
		out.KeyMemories = append([]string{}, m.KeyMemories...)
	}
	if m.TruthsDiscovered != nil {
		out.TruthsDiscovered = append([]string{}, m.TruthsDiscovered...)
	}
	if m.CharacterDeaths != nil {
		out.CharacterDeaths = make(map[string]int, len(m.CharacterDeaths))
		for k, v := range m.CharacterDeaths {
			out.CharacterDeaths[k] = v
		}
	}
	return out
}
