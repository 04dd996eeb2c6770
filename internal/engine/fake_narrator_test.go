package engine

import (
	"context"
	"fmt"
	"sync"

	"nihilism/server/internal/interfaces"
	"nihilism/server/internal/models"
)

// fakeNarrator returns a neutral moment offering the configured choices.
type fakeNarrator struct {
	mu      sync.Mutex
	calls   []*interfaces.NarrativeRequest
	err     error
	wait    bool
	choices []models.Choice
	deaths  []string
}

func newFakeNarrator() *fakeNarrator {
	return &fakeNarrator{
		choices: []models.Choice{
			{ID: "wait", Text: "Wait"},
			{ID: "walk_away", Text: "Walk away"},
			{ID: "help", Text: "Help the stranger"},
		},
	}
}

func (f *fakeNarrator) Generate(ctx context.Context, req *interfaces.NarrativeRequest) (*interfaces.Narration, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	n := len(f.calls)
	err, wait := f.err, f.wait
	choices := append([]models.Choice(nil), f.choices...)
	deaths := f.deaths
	f.mu.Unlock()

	if wait {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}
	return &interfaces.Narration{
		Moment: models.NarrativeMoment{
			Text:    fmt.Sprintf("moment %d", n),
			Mood:    models.MoodNeutral,
			Choices: choices,
		},
		Deaths: deaths,
	}, nil
}

func (f *fakeNarrator) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func (f *fakeNarrator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeNarrator) lastCall() *interfaces.NarrativeRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return nil
	}
	return f.calls[len(f.calls)-1]
}

// failingStore is a snapshot store whose writes always fail.
type failingStore struct{}

func (failingStore) Put(ctx context.Context, p *models.Player) error {
	return fmt.Errorf("disk full")
}

func (failingStore) Get(ctx context.Context, id string) (*models.Player, error) {
	return nil, fmt.Errorf("disk unreadable")
}

func (failingStore) List(ctx context.Context) ([]string, error) {
	return nil, fmt.Errorf("disk unreadable")
}

func (failingStore) Delete(ctx context.Context, id string) error {
	return fmt.Errorf("disk full")
}

func (failingStore) Close() error { return nil }
