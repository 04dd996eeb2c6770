package models

import (
	"encoding/json"
	"strings"
)

// Mood is the closed set of moods a narrative moment can carry.
type Mood string

const (
	MoodNeutral      Mood = "neutral"
	MoodHopeful      Mood = "hopeful"
	MoodDark         Mood = "dark"
	MoodNihilistic   Mood = "nihilistic"
	MoodTranscendent Mood = "transcendent"
	// MoodUnknown holds any collaborator-supplied mood outside the known set.
	MoodUnknown Mood = "unknown"
)

// ParseMood maps free text to a Mood. Unrecognised values become MoodUnknown.
func ParseMood(s string) Mood {
	switch m := Mood(strings.ToLower(strings.TrimSpace(s))); m {
	case MoodNeutral, MoodHopeful, MoodDark, MoodNihilistic, MoodTranscendent:
		return m
	case "":
		return MoodNeutral
	default:
		return MoodUnknown
	}
}

// UnmarshalJSON normalises the stored string through ParseMood.
func (m *Mood) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*m = ParseMood(s)
	return nil
}

// Polarity is the moral classification of a choice.
type Polarity string

const (
	PolarityNeutral Polarity = "neutral"
	PolarityDark    Polarity = "dark"
	PolarityLight   Polarity = "light"
)

// ParsePolarity maps a collaborator tag to a Polarity. ok is false when the
// tag is empty or not one of the known values.
func ParsePolarity(s string) (p Polarity, ok bool) {
	switch p := Polarity(strings.ToLower(strings.TrimSpace(s))); p {
	case PolarityNeutral, PolarityDark, PolarityLight:
		return p, true
	default:
		return PolarityNeutral, false
	}
}

// EndingKind identifies one of the fixed endings.
type EndingKind string

const (
	EndingVoidEmbrace       EndingKind = "void_embrace"
	EndingTranscendence     EndingKind = "transcendence"
	EndingTinyPerfectThings EndingKind = "tiny_perfect_things"
	EndingMiddlePath        EndingKind = "the_middle_path"
	EndingJustYou           EndingKind = "just_you"
	EndingAcceptance        EndingKind = "acceptance"
	EndingWatcher           EndingKind = "the_watcher"
	// EndingUnknown is read back for identifiers this build does not know.
	EndingUnknown EndingKind = "unknown"
)

// ParseEndingKind maps a stored identifier to an EndingKind.
func ParseEndingKind(s string) EndingKind {
	switch k := EndingKind(strings.ToLower(strings.TrimSpace(s))); k {
	case EndingVoidEmbrace, EndingTranscendence, EndingTinyPerfectThings,
		EndingMiddlePath, EndingJustYou, EndingAcceptance, EndingWatcher:
		return k
	default:
		return EndingUnknown
	}
}

// UnmarshalJSON normalises the stored string through ParseEndingKind.
func (k *EndingKind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*k = ParseEndingKind(s)
	return nil
}
