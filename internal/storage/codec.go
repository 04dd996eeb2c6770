package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"nihilism/server/internal/models"
)

// FormatVersion is written into every snapshot envelope.
const FormatVersion = 1

// ErrNotFound is returned when no snapshot exists for an id.
var ErrNotFound = errors.New("snapshot not found")

type envelope struct {
	FormatVersion int            `json:"format_version"`
	Player        *models.Player `json:"player"`
}

// Encode serialises a player into a self-describing snapshot.
func Encode(p *models.Player) ([]byte, error) {
	if p == nil {
		return nil, fmt.Errorf("cannot encode nil player")
	}
	data, err := json.Marshal(envelope{FormatVersion: FormatVersion, Player: p})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return data, nil
}

// Decode builds a fresh player from a snapshot produced by Encode.
func Decode(data []byte) (*models.Player, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	if env.FormatVersion != FormatVersion {
		return nil, fmt.Errorf("unsupported snapshot format version %d", env.FormatVersion)
	}
	if env.Player == nil || env.Player.ID == "" {
		return nil, fmt.Errorf("snapshot has no player")
	}
	normalize(env.Player)
	return env.Player, nil
}

// normalize fills collections a hand-edited snapshot may have left null.
func normalize(p *models.Player) {
	if p.NarrativeHistory == nil {
		p.NarrativeHistory = []models.NarrativeMoment{}
	}
	for i := range p.NarrativeHistory {
		if p.NarrativeHistory[i].Choices == nil {
			p.NarrativeHistory[i].Choices = []models.Choice{}
		}
	}
	if p.CurrentLoop.ChoicesMade == nil {
		p.CurrentLoop.ChoicesMade = []string{}
	}
	if p.Memory.KeyMemories == nil {
		p.Memory.KeyMemories = []string{}
	}
	if p.Memory.TruthsDiscovered == nil {
		p.Memory.TruthsDiscovered = []string{}
	}
	if p.Memory.CharacterDeaths == nil {
		p.Memory.CharacterDeaths = map[string]int{}
	}
}

// validID rejects ids that cannot be used as storage keys or file names.
func validID(id string) bool {
	return id != "" && len(id) <= 64 && !strings.ContainsAny(id, `/\.:`+"\x00")
}
