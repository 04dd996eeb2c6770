package engine

import (
	"context"
	"log"
	"time"

	"go.uber.org/atomic"
)

// Saver is the part of the session store the autosaver needs
type Saver interface {
	Save(ctx context.Context, id string) error
}

// Autosaver saves a player on creation, on reset, on an ending and every
// interval choices. Failures are logged and never undo the mutation that
// triggered them
type Autosaver struct {
	saver    Saver
	interval int
	timeout  time.Duration

	failures atomic.Int64
}

// NewAutosaver creates an autosaver saving every interval choices
func NewAutosaver(saver Saver, interval int) *Autosaver {
	if interval <= 0 {
		interval = 1
	}
	return &Autosaver{
		saver:    saver,
		interval: interval,
		timeout:  10 * time.Second,
	}
}

// Notify implements Observer
func (a *Autosaver) Notify(ev Event) {
	if !a.due(ev) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()
	if err := a.saver.Save(ctx, ev.PlayerID); err != nil {
		a.failures.Inc()
		log.Printf("[Autosave] Warning: failed to save %s after %s: %v", ev.PlayerID, ev.Type, err)
	}
}

func (a *Autosaver) due(ev Event) bool {
	switch ev.Type {
	case EventPlayerCreated, EventLoopReset, EventEndingReached:
		return true
	case EventChoiceMade:
		// The ending event of the same choice saves it.
		if ev.Ending != nil {
			return false
		}
		return ev.TotalChoices > 0 && ev.TotalChoices%a.interval == 0
	default:
		return false
	}
}

// Failures returns how many autosaves have failed
func (a *Autosaver) Failures() int64 {
	return a.failures.Load()
}
