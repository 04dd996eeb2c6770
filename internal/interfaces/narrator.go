package interfaces

import (
	"context"

	"nihilism/server/internal/models"
)

// NarrativeRequest is the session context handed to the narrator
type NarrativeRequest struct {
	PlayerID      string
	PlayerName    string
	LoopNumber    int
	TotalLoops    int
	NihilismScore int
	// RecentMemories holds the newest key memories, oldest first.
	RecentMemories  []string
	ChoicesThisLoop []string
	PreviousText    string
	// Choice is the choice just made, nil for an opening moment.
	Choice   *models.Choice
	Polarity models.Polarity
}

// IsOpening reports whether the request asks for the first moment of a loop
func (r *NarrativeRequest) IsOpening() bool {
	return r.Choice == nil
}

// Narration is what the narrator produced for one request
type Narration struct {
	Moment models.NarrativeMoment
	// Deaths and Truths are narrative events reported alongside the moment.
	Deaths []string
	Truths []string
}

// Narrator defines the narrative-generation collaborator
type Narrator interface {
	// Generate returns the next moment for the session described by req
	Generate(ctx context.Context, req *NarrativeRequest) (*Narration, error)
}
