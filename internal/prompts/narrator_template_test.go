package prompts

import (
	"strings"
	"testing"

	"nihilism/server/internal/interfaces"
	"nihilism/server/internal/models"
)

func TestDigest(t *testing.T) {
	req := &interfaces.NarrativeRequest{
		LoopNumber:      3,
		NihilismScore:   45,
		RecentMemories:  []string{"You let the bird go"},
		ChoicesThisLoop: []string{"walk_away"},
	}
	got := Digest(req)
	for _, want := range []string{
		"Loop #3\n",
		"Nihilism Score: 45 (Descending into darkness)\n",
		"Memories that persist:\n- You let the bird go\n",
		"Choices this loop:\n- walk_away\n",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected digest to contain %q, got:\n%s", want, got)
		}
	}

	empty := Digest(&interfaces.NarrativeRequest{LoopNumber: 1})
	if strings.Contains(empty, "Memories") || strings.Contains(empty, "Choices") {
		t.Fatalf("expected empty sections to be omitted, got:\n%s", empty)
	}
}

func TestBuildMessages(t *testing.T) {
	engine := NewTemplateEngine()

	system, user, err := engine.BuildMessages(&interfaces.NarrativeRequest{LoopNumber: 2, NihilismScore: -40})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(system, "Nihilism Score: -40 (Finding meaning)") {
		t.Fatalf("system prompt is missing the digest:\n%s", system)
	}
	if strings.Contains(system, "{{") {
		t.Fatalf("system prompt has unrendered variables:\n%s", system)
	}
	if user != "Begin loop 2 for the player. The world has reset; you have not." {
		t.Fatalf("unexpected opening prompt %q", user)
	}

	_, user, err = engine.BuildMessages(&interfaces.NarrativeRequest{
		LoopNumber: 2,
		TotalLoops: 2,
		Choice:     &models.Choice{ID: "stay", Text: "Stay with her"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(user, "The player chose: 'Stay with her'") || !strings.Contains(user, "all 2 loops") {
		t.Fatalf("unexpected continuation prompt %q", user)
	}
}

func TestRenderKeepsUnknownPlaceholders(t *testing.T) {
	engine := NewTemplateEngine()
	engine.RegisterTemplate(&Template{Name: "custom", Content: "{{loop_number}} {{mystery}} {{flavour}}"})

	got, err := engine.Render("custom", &TemplateContext{LoopNumber: 4, Custom: map[string]string{"flavour": "salt"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "4 {{mystery}} salt" {
		t.Fatalf("unexpected render %q", got)
	}

	tmpl, _ := engine.GetTemplate("custom")
	if strings.Join(tmpl.Variables, ",") != "loop_number,mystery,flavour" {
		t.Fatalf("unexpected variables %v", tmpl.Variables)
	}
	if _, err := engine.Render("missing", &TemplateContext{}); err == nil {
		t.Fatalf("expected error for unknown template")
	}
}
