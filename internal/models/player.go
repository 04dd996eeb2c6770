package models

import (
	"time"

	"github.com/google/uuid"
)

// OutcomeManualReset is recorded on a loop that was reset before any ending.
const OutcomeManualReset = "manually reset"

// Loop is one playthrough attempt. It is active while EndedAt is nil.
type Loop struct {
	Number      int        `json:"number"`
	StartedAt   time.Time  `json:"started_at"`
	EndedAt     *time.Time `json:"ended_at,omitempty"`
	ChoicesMade []string   `json:"choices_made"`
	Outcome     string     `json:"outcome,omitempty"`
}

// NewLoop starts loop number n at the given time.
func NewLoop(n int, now time.Time) Loop {
	return Loop{
		Number:      n,
		StartedAt:   now,
		ChoicesMade: []string{},
	}
}

// IsActive reports whether choices can still be made in the loop.
func (l *Loop) IsActive() bool {
	return l.EndedAt == nil
}

// Clone returns a deep copy of the loop.
func (l Loop) Clone() Loop {
	out := l
	if l.EndedAt != nil {
		t := *l.EndedAt
		out.EndedAt = &t
	}
	if l.ChoicesMade != nil {
		out.ChoicesMade = append([]string{}, l.ChoicesMade...)
	}
	return out
}

// EndingRecord marks the session as concluded.
type EndingRecord struct {
	Kind       EndingKind `json:"kind"`
	LoopNumber int        `json:"loop_number"`
	ReachedAt  time.Time  `json:"reached_at"`
}

// Player is the aggregate owned by the session store.
type Player struct {
	ID               string            `json:"id"`
	Name             string            `json:"name,omitempty"`
	CurrentLoop      Loop              `json:"current_loop"`
	Memory           PersistentMemory  `json:"memory"`
	NarrativeHistory []NarrativeMoment `json:"narrative_history"`
	// PendingChoice is the committed choice still waiting for its follow-up moment.
	PendingChoice *Choice       `json:"pending_choice,omitempty"`
	Ending        *EndingRecord `json:"ending,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
}

// NewPlayer creates a player with zeroed memory and loop 1 started.
func NewPlayer(name string, now time.Time) *Player {
	now = now.UTC()
	return &Player{
		ID:               uuid.NewString(),
		Name:             name,
		CurrentLoop:      NewLoop(1, now),
		Memory:           NewPersistentMemory(),
		NarrativeHistory: []NarrativeMoment{},
		CreatedAt:        now,
	}
}

// LatestMoment returns the most recent moment ever shown, or nil.
func (p *Player) LatestMoment() *NarrativeMoment {
	if len(p.NarrativeHistory) == 0 {
		return nil
	}
	return &p.NarrativeHistory[len(p.NarrativeHistory)-1]
}

// CurrentMoment returns the latest moment of the current loop, or nil when
// the loop has not been opened yet.
func (p *Player) CurrentMoment() *NarrativeMoment {
	m := p.LatestMoment()
	if m == nil || m.LoopNumber != p.CurrentLoop.Number {
		return nil
	}
	return m
}

// Concluded reports whether an ending has been reached for this session.
func (p *Player) Concluded() bool {
	return p.Ending != nil
}

// Clone returns a deep copy safe to hand out of the session store.
func (p *Player) Clone() *Player {
	if p == nil {
		return nil
	}
	out := *p
	out.CurrentLoop = p.CurrentLoop.Clone()
	out.Memory = p.Memory.Clone()
	if p.NarrativeHistory != nil {
		out.NarrativeHistory = make([]NarrativeMoment, len(p.NarrativeHistory))
		for i, m := range p.NarrativeHistory {
			out.NarrativeHistory[i] = m.Clone()
		}
	}
	if p.PendingChoice != nil {
		c := *p.PendingChoice
		out.PendingChoice = &c
	}
	if p.Ending != nil {
		e := *p.Ending
		out.Ending = &e
	}
	return &out
}
