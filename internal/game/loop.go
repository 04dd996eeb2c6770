package game

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	apperrors "nihilism/server/internal/errors"
	"nihilism/server/internal/models"
)

// Rules bundles the tunable parts of the loop state machine.
type Rules struct {
	Aggregator Aggregator
	Thresholds Thresholds
}

// DefaultRules returns rules with the default aggregator and ending table.
func DefaultRules() Rules {
	return Rules{
		Aggregator: DefaultAggregator(),
		Thresholds: DefaultThresholds(),
	}
}

// ChoiceOutcome is what a committed choice did to the player.
type ChoiceOutcome struct {
	Choice   models.Choice
	Polarity models.Polarity
	// Ending is set when the choice concluded the session.
	Ending *models.EndingKind
	// Terminal is the closing moment appended for an ending.
	Terminal *models.NarrativeMoment
}

// MakeChoice commits the choice with the given id against the current moment.
// It requires an active loop, no pending choice and a choice id offered by the
// current moment. On success the choice is recorded into memory and the
// ending table is evaluated; nothing is mutated on failure.
func (r Rules) MakeChoice(p *models.Player, choiceID string, now time.Time) (*ChoiceOutcome, error) {
	if p.Concluded() || !p.CurrentLoop.IsActive() {
		return nil, apperrors.New(apperrors.CodeInvalidState, "no active loop")
	}
	if p.PendingChoice != nil {
		return nil, apperrors.WithMetadata(apperrors.CodeInvalidState, "previous choice is awaiting narration",
			map[string]string{"choice_id": p.PendingChoice.ID})
	}
	moment := p.CurrentMoment()
	if moment == nil {
		return nil, apperrors.New(apperrors.CodeInvalidState, "narrative has not started for this loop")
	}
	choice, ok := moment.FindChoice(choiceID)
	if !ok {
		return nil, apperrors.WithMetadata(apperrors.CodeValidation,
			fmt.Sprintf("choice %q is not offered by the current moment", choiceID),
			map[string]string{"choice_id": choiceID, "moment_id": moment.ID})
	}

	polarity := Classify(choice, moment)
	p.CurrentLoop.ChoicesMade = append(p.CurrentLoop.ChoicesMade, choice.ID)
	r.Aggregator.RecordChoice(&p.Memory, choice, polarity, IsSignificant(moment))

	out := &ChoiceOutcome{Choice: choice, Polarity: polarity}
	if kind, ok := EvaluateEnding(&p.Memory, &p.CurrentLoop, r.Thresholds); ok {
		terminal := r.conclude(p, kind, now)
		out.Ending = &kind
		out.Terminal = &terminal
		return out, nil
	}

	pending := choice
	p.PendingChoice = &pending
	return out, nil
}

// conclude ends the current loop with the ending as outcome and appends the
// terminal moment.
func (r Rules) conclude(p *models.Player, kind models.EndingKind, now time.Time) models.NarrativeMoment {
	now = now.UTC()
	ended := now
	p.CurrentLoop.EndedAt = &ended
	p.CurrentLoop.Outcome = string(kind)
	p.Ending = &models.EndingRecord{
		Kind:       kind,
		LoopNumber: p.CurrentLoop.Number,
		ReachedAt:  now,
	}
	p.PendingChoice = nil

	terminal := models.NarrativeMoment{
		ID:         uuid.NewString(),
		LoopNumber: p.CurrentLoop.Number,
		Text:       EndingDescription(kind),
		Speaker:    EndingTitle(kind),
		Mood:       EndingMood(kind),
		Choices:    []models.Choice{},
		Timestamp:  now,
	}
	p.NarrativeHistory = append(p.NarrativeHistory, terminal)
	return terminal
}

// ResetLoop ends the current loop and starts the next one. Memory and
// narrative history are kept. Resetting a concluded session is refused.
func (r Rules) ResetLoop(p *models.Player, now time.Time) error {
	if p.Concluded() {
		return apperrors.New(apperrors.CodeInvalidState, "session has reached an ending")
	}
	now = now.UTC()
	if p.CurrentLoop.EndedAt == nil {
		ended := now
		p.CurrentLoop.EndedAt = &ended
	}
	if p.CurrentLoop.Outcome == "" {
		p.CurrentLoop.Outcome = models.OutcomeManualReset
	}

	if last := p.LatestMoment(); last != nil && last.Text != "" && !containsString(p.Memory.KeyMemories, last.Text) {
		r.Aggregator.AppendKeyMemory(&p.Memory, last.Text)
	}

	p.Memory.TotalLoops++
	p.CurrentLoop = models.NewLoop(p.CurrentLoop.Number+1, now)
	p.PendingChoice = nil
	return nil
}

// MomentNeed says what kind of moment a player is waiting for.
type MomentNeed int

const (
	// NeedNone means the current moment stands and nothing must be generated.
	NeedNone MomentNeed = iota
	// NeedOpening means the current loop has no moment yet.
	NeedOpening
	// NeedContinuation means a committed choice is waiting for its follow-up.
	NeedContinuation
)

// NextMomentNeed reports whether the player is waiting on the narrator.
func NextMomentNeed(p *models.Player) MomentNeed {
	switch {
	case p.Concluded() || !p.CurrentLoop.IsActive():
		return NeedNone
	case p.PendingChoice != nil:
		return NeedContinuation
	case p.CurrentMoment() == nil:
		return NeedOpening
	default:
		return NeedNone
	}
}

// AppendMoment records a generated moment for the current loop, applies the
// narrative events that came with it and clears the pending choice.
func (r Rules) AppendMoment(p *models.Player, moment models.NarrativeMoment, deaths, truths []string) models.NarrativeMoment {
	moment.LoopNumber = p.CurrentLoop.Number
	if moment.ID == "" {
		moment.ID = uuid.NewString()
	}
	if moment.Choices == nil {
		moment.Choices = []models.Choice{}
	}
	for _, name := range deaths {
		r.Aggregator.RecordDeath(&p.Memory, name)
	}
	for _, fact := range truths {
		r.Aggregator.RecordTruth(&p.Memory, fact)
	}
	p.NarrativeHistory = append(p.NarrativeHistory, moment)
	p.PendingChoice = nil
	return moment
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
