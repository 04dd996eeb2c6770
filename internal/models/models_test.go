package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseMood(t *testing.T) {
	tests := map[string]Mood{
		"":             MoodNeutral,
		"Dark":         MoodDark,
		" hopeful ":    MoodHopeful,
		"NIHILISTIC":   MoodNihilistic,
		"transcendent": MoodTranscendent,
		"melancholic":  MoodUnknown,
	}
	for in, want := range tests {
		if got := ParseMood(in); got != want {
			t.Fatalf("ParseMood(%q): expected %q, got %q", in, want, got)
		}
	}
}

func TestMomentUnmarshalNormalisesMood(t *testing.T) {
	var m NarrativeMoment
	if err := json.Unmarshal([]byte(`{"id":"m1","text":"x","mood":"Wistful","choices":[]}`), &m); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Mood != MoodUnknown {
		t.Fatalf("expected unknown mood, got %q", m.Mood)
	}
}

func TestPlayerCloneIsIndependent(t *testing.T) {
	p := NewPlayer("Alex", time.Now())
	p.NarrativeHistory = append(p.NarrativeHistory, NarrativeMoment{
		ID:         "m1",
		LoopNumber: 1,
		Choices:    []Choice{{ID: "a", Text: "A"}},
	})
	p.Memory.KeyMemories = append(p.Memory.KeyMemories, "first")
	p.Memory.CharacterDeaths["Mira"] = 1
	p.PendingChoice = &Choice{ID: "a"}

	c := p.Clone()
	c.NarrativeHistory[0].Choices[0].ID = "changed"
	c.Memory.KeyMemories[0] = "changed"
	c.Memory.CharacterDeaths["Mira"] = 9
	c.PendingChoice.ID = "changed"
	c.CurrentLoop.ChoicesMade = append(c.CurrentLoop.ChoicesMade, "x")

	if p.NarrativeHistory[0].Choices[0].ID != "a" || p.Memory.KeyMemories[0] != "first" ||
		p.Memory.CharacterDeaths["Mira"] != 1 || p.PendingChoice.ID != "a" || len(p.CurrentLoop.ChoicesMade) != 0 {
		t.Fatalf("clone shares state with the original: %+v", p)
	}
}

func TestCurrentMomentIsLoopAware(t *testing.T) {
	p := NewPlayer("", time.Now())
	if p.CurrentMoment() != nil {
		t.Fatalf("expected no current moment for a fresh player")
	}
	p.NarrativeHistory = append(p.NarrativeHistory, NarrativeMoment{ID: "m1", LoopNumber: 1})
	if m := p.CurrentMoment(); m == nil || m.ID != "m1" {
		t.Fatalf("expected m1, got %+v", m)
	}
	p.CurrentLoop = NewLoop(2, time.Now())
	if p.CurrentMoment() != nil {
		t.Fatalf("moment of loop 1 must not be current in loop 2")
	}
	if p.LatestMoment() == nil {
		t.Fatalf("latest moment must survive the loop change")
	}
}
