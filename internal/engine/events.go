package engine

import (
	"time"

	"nihilism/server/internal/game"
	"nihilism/server/internal/models"
)

// EventType names something that happened to a session
type EventType string

const (
	EventPlayerCreated   EventType = "player_created"
	EventMomentAdded     EventType = "moment_added"
	EventChoiceMade      EventType = "choice_made"
	EventLoopReset       EventType = "loop_reset"
	EventEndingReached   EventType = "ending_reached"
	EventNarrationFailed EventType = "narration_failed"
	EventSaved           EventType = "saved"
	EventLoaded          EventType = "loaded"
	EventDeleted         EventType = "deleted"
)

// Event is published to observers after a session operation has released
// the player
type Event struct {
	Type          EventType               `json:"type"`
	PlayerID      string                  `json:"player_id"`
	LoopNumber    int                     `json:"loop_number"`
	TotalLoops    int                     `json:"total_loops"`
	TotalChoices  int                     `json:"total_choices"`
	NihilismScore int                     `json:"nihilism_score"`
	Choice        *models.Choice          `json:"choice,omitempty"`
	Polarity      models.Polarity         `json:"polarity,omitempty"`
	Moment        *models.NarrativeMoment `json:"moment,omitempty"`
	Ending        *game.EndingView        `json:"ending,omitempty"`
	Error         string                  `json:"error,omitempty"`
	At            time.Time               `json:"at"`
}

// Observer receives session events. Notify runs on the caller's goroutine
// and must not call back into the store while holding its own locks
type Observer interface {
	Notify(ev Event)
}

// ObserverFunc adapts a function to Observer
type ObserverFunc func(ev Event)

func (f ObserverFunc) Notify(ev Event) { f(ev) }

func newEvent(t EventType, p *models.Player, at time.Time) Event {
	return Event{
		Type:          t,
		PlayerID:      p.ID,
		LoopNumber:    p.CurrentLoop.Number,
		TotalLoops:    p.Memory.TotalLoops,
		TotalChoices:  p.Memory.TotalChoices,
		NihilismScore: p.Memory.NihilismScore,
		At:            at.UTC(),
	}
}
