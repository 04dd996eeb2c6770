package storage

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"nihilism/server/internal/config"
	"nihilism/server/internal/interfaces"
	"nihilism/server/internal/models"
)

func samplePlayer(name string) *models.Player {
	start := time.Date(2026, 2, 3, 4, 5, 6, 789, time.UTC)
	p := models.NewPlayer(name, start)
	significant := true
	ended := start.Add(30 * time.Minute)

	p.NarrativeHistory = append(p.NarrativeHistory,
		models.NarrativeMoment{
			ID:          "m1",
			LoopNumber:  1,
			Text:        "The clock tower strikes twelve.",
			Speaker:     "Narrator",
			Mood:        models.MoodDark,
			Significant: &significant,
			Choices: []models.Choice{
				{ID: "stay", Text: "Stay", ConsequenceHint: "she notices", Polarity: models.PolarityLight},
				{ID: "leave", Text: "Leave"},
			},
			Timestamp: start,
		},
		models.NarrativeMoment{
			ID:         "m2",
			LoopNumber: 2,
			Text:       "Again.",
			Mood:       models.MoodHopeful,
			Choices:    []models.Choice{},
			Timestamp:  ended,
		},
	)
	p.CurrentLoop = models.Loop{
		Number:      2,
		StartedAt:   ended,
		ChoicesMade: []string{"stay"},
	}
	p.Memory.TotalLoops = 2
	p.Memory.TotalChoices = 3
	p.Memory.DarkChoices = 1
	p.Memory.LightChoices = 1
	p.Memory.NeutralChoices = 1
	p.Memory.KeyMemories = []string{"Stay"}
	p.Memory.CharacterDeaths = map[string]int{"Mira": 2}
	p.Memory.TruthsDiscovered = []string{"loop_is_real"}
	p.Memory.NihilismScore = -15
	p.PendingChoice = &models.Choice{ID: "stay", Text: "Stay"}
	p.Ending = &models.EndingRecord{Kind: models.EndingAcceptance, LoopNumber: 2, ReachedAt: ended}
	return p
}

func TestCodecRoundTrip(t *testing.T) {
	for _, p := range []*models.Player{models.NewPlayer("", time.Now()), samplePlayer("Alex")} {
		data, err := Encode(p)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		got, err := Decode(data)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if !reflect.DeepEqual(p, got) {
			t.Fatalf("round trip mismatch:\nexpected %+v\ngot      %+v", p, got)
		}
	}
}

func TestDecodeRejectsUnknownFormat(t *testing.T) {
	if _, err := Decode([]byte(`{"format_version":2,"player":{"id":"x"}}`)); err == nil {
		t.Fatalf("expected error for unknown format version")
	}
	if _, err := Decode([]byte(`{"format_version":1}`)); err == nil {
		t.Fatalf("expected error for missing player")
	}
	if _, err := Decode([]byte(`not json`)); err == nil {
		t.Fatalf("expected error for malformed snapshot")
	}
}

func TestDecodeFillsNullCollections(t *testing.T) {
	p, err := Decode([]byte(`{"format_version":1,"player":{"id":"abc","narrative_history":null,"memory":{"key_memories":null}}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.NarrativeHistory == nil || p.Memory.KeyMemories == nil || p.Memory.CharacterDeaths == nil {
		t.Fatalf("expected collections to be filled: %+v", p)
	}
}

func testSnapshotStore(t *testing.T, store interfaces.SnapshotStore) {
	t.Helper()
	ctx := context.Background()

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	a := samplePlayer("Alex")
	b := models.NewPlayer("Blair", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	for _, p := range []*models.Player{a, b} {
		if err := store.Put(ctx, p); err != nil {
			t.Fatalf("put %s: %v", p.ID, err)
		}
	}

	got, err := store.Get(ctx, a.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !reflect.DeepEqual(a, got) {
		t.Fatalf("loaded player differs:\nexpected %+v\ngot      %+v", a, got)
	}
	if got == a {
		t.Fatalf("expected a freshly constructed player")
	}

	a.Memory.NihilismScore = 40
	if err := store.Put(ctx, a); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, _ = store.Get(ctx, a.ID)
	if got.Memory.NihilismScore != 40 {
		t.Fatalf("expected overwritten score 40, got %d", got.Memory.NihilismScore)
	}

	ids, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 ids, got %v", ids)
	}

	if err := store.Delete(ctx, a.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.Delete(ctx, a.ID); err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if _, err := store.Get(ctx, a.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	ids, _ = store.List(ctx)
	if len(ids) != 1 || ids[0] != b.ID {
		t.Fatalf("expected only %s, got %v", b.ID, ids)
	}
}

func TestMemoryStore(t *testing.T) {
	testSnapshotStore(t, NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "saves"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	testSnapshotStore(t, store)

	if _, err := store.Get(context.Background(), "../etc/passwd"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected path-like ids to be rejected, got %v", err)
	}
}

func TestSQLiteStore(t *testing.T) {
	store, err := OpenSQLite(filepath.Join(t.TempDir(), "nihilism.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()
	testSnapshotStore(t, store)
}

func TestOpenSelectsBackend(t *testing.T) {
	cfg := config.Default().Persistence
	cfg.Backend = config.BackendMemory
	store, err := Open(cfg, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := store.(*MemoryStore); !ok {
		t.Fatalf("expected memory store, got %T", store)
	}

	cfg.Backend = "tape"
	if _, err := Open(cfg, false); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}
