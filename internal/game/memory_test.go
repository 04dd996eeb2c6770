package game

import (
	"fmt"
	"testing"

	"nihilism/server/internal/models"
)

func boolPtr(v bool) *bool { return &v }

func TestRecordChoiceKeepsPartition(t *testing.T) {
	agg := DefaultAggregator()
	mem := models.NewPersistentMemory()
	polarities := []models.Polarity{
		models.PolarityDark, models.PolarityLight, models.PolarityNeutral,
		models.PolarityDark, models.PolarityNeutral, models.PolarityDark,
	}
	for i, p := range polarities {
		agg.RecordChoice(&mem, models.Choice{ID: fmt.Sprintf("c%d", i)}, p, false)
		if mem.TotalChoices != mem.DarkChoices+mem.LightChoices+mem.NeutralChoices {
			t.Fatalf("step %d: partition broken: %+v", i, mem)
		}
	}
	if mem.DarkChoices != 3 || mem.LightChoices != 1 || mem.NeutralChoices != 2 {
		t.Fatalf("unexpected counts: %+v", mem)
	}
	if mem.NihilismScore != 10 {
		t.Fatalf("expected score 10, got %d", mem.NihilismScore)
	}
	if len(mem.KeyMemories) != 0 {
		t.Fatalf("expected no key memories, got %v", mem.KeyMemories)
	}
}

func TestKeyMemoriesEvictOldest(t *testing.T) {
	agg := Aggregator{ScoreDelta: 5, KeyMemoryCap: 3}
	mem := models.NewPersistentMemory()
	for i := 0; i < 5; i++ {
		agg.RecordChoice(&mem, models.Choice{ID: fmt.Sprintf("c%d", i), Text: fmt.Sprintf("memory %d", i)}, models.PolarityNeutral, true)
	}
	want := []string{"memory 2", "memory 3", "memory 4"}
	if fmt.Sprint(mem.KeyMemories) != fmt.Sprint(want) {
		t.Fatalf("expected %v, got %v", want, mem.KeyMemories)
	}
	if got := mem.RecentKeyMemories(2); fmt.Sprint(got) != "[memory 3 memory 4]" {
		t.Fatalf("unexpected recent memories %v", got)
	}
}

func TestIsSignificant(t *testing.T) {
	tests := []struct {
		name   string
		moment *models.NarrativeMoment
		want   bool
	}{
		{"nil moment", nil, false},
		{"neutral mood", &models.NarrativeMoment{Mood: models.MoodNeutral}, false},
		{"hopeful mood", &models.NarrativeMoment{Mood: models.MoodHopeful}, false},
		{"dark mood", &models.NarrativeMoment{Mood: models.MoodDark}, true},
		{"nihilistic mood", &models.NarrativeMoment{Mood: models.MoodNihilistic}, true},
		{"transcendent mood", &models.NarrativeMoment{Mood: models.MoodTranscendent}, true},
		{"explicit flag overrides mood", &models.NarrativeMoment{Mood: models.MoodDark, Significant: boolPtr(false)}, false},
		{"explicit flag on neutral", &models.NarrativeMoment{Mood: models.MoodNeutral, Significant: boolPtr(true)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsSignificant(tt.moment); got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestRecordDeathAndTruth(t *testing.T) {
	agg := DefaultAggregator()
	mem := models.NewPersistentMemory()

	agg.RecordDeath(&mem, "Mira")
	agg.RecordDeath(&mem, " Mira ")
	agg.RecordDeath(&mem, "")
	if mem.CharacterDeaths["Mira"] != 2 || len(mem.CharacterDeaths) != 1 {
		t.Fatalf("unexpected deaths %v", mem.CharacterDeaths)
	}

	agg.RecordTruth(&mem, "the_clock_is_broken")
	agg.RecordTruth(&mem, "the_clock_is_broken")
	agg.RecordTruth(&mem, "  ")
	if len(mem.TruthsDiscovered) != 1 {
		t.Fatalf("expected one truth, got %v", mem.TruthsDiscovered)
	}
	if mem.TotalChoices != 0 || mem.NihilismScore != 0 {
		t.Fatalf("events must not touch choice accounting: %+v", mem)
	}
}
