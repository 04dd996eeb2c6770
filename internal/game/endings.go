package game

import "nihilism/server/internal/models"

// Thresholds holds the numeric conditions of the ending table.
type Thresholds struct {
	VoidEmbraceMinScore int `yaml:"void_embrace_min_score" env:"ENDING_VOID_EMBRACE_MIN_SCORE"`
	VoidEmbraceMinDark  int `yaml:"void_embrace_min_dark" env:"ENDING_VOID_EMBRACE_MIN_DARK"`

	TranscendenceMaxScore int `yaml:"transcendence_max_score" env:"ENDING_TRANSCENDENCE_MAX_SCORE"`

	TinyPerfectThingsMaxScore int `yaml:"tiny_perfect_things_max_score" env:"ENDING_TINY_PERFECT_THINGS_MAX_SCORE"`
	TinyPerfectThingsMinLight int `yaml:"tiny_perfect_things_min_light" env:"ENDING_TINY_PERFECT_THINGS_MIN_LIGHT"`

	MiddlePathMinEach int `yaml:"middle_path_min_each" env:"ENDING_MIDDLE_PATH_MIN_EACH"`

	JustYouMinLoops   int `yaml:"just_you_min_loops" env:"ENDING_JUST_YOU_MIN_LOOPS"`
	JustYouMinChoices int `yaml:"just_you_min_choices" env:"ENDING_JUST_YOU_MIN_CHOICES"`
	JustYouScoreBand  int `yaml:"just_you_score_band" env:"ENDING_JUST_YOU_SCORE_BAND"`

	AcceptanceMinLoops  int `yaml:"acceptance_min_loops" env:"ENDING_ACCEPTANCE_MIN_LOOPS"`
	AcceptanceScoreBand int `yaml:"acceptance_score_band" env:"ENDING_ACCEPTANCE_SCORE_BAND"`

	WatcherMinLoops       int `yaml:"watcher_min_loops" env:"ENDING_WATCHER_MIN_LOOPS"`
	WatcherChoicesPerLoop int `yaml:"watcher_choices_per_loop" env:"ENDING_WATCHER_CHOICES_PER_LOOP"`
}

// DefaultThresholds returns the thresholds of the shipped ending table.
func DefaultThresholds() Thresholds {
	return Thresholds{
		VoidEmbraceMinScore:       70,
		VoidEmbraceMinDark:        30,
		TranscendenceMaxScore:     -80,
		TinyPerfectThingsMaxScore: -60,
		TinyPerfectThingsMinLight: 25,
		MiddlePathMinEach:         20,
		JustYouMinLoops:           15,
		JustYouMinChoices:         50,
		JustYouScoreBand:          10,
		AcceptanceMinLoops:        25,
		AcceptanceScoreBand:       30,
		WatcherMinLoops:           10,
		WatcherChoicesPerLoop:     2,
	}
}

type endingRule struct {
	kind  models.EndingKind
	match func(m *models.PersistentMemory, t Thresholds) bool
}

// endingRules is ordered by priority. The first match wins.
var endingRules = []endingRule{
	{models.EndingVoidEmbrace, func(m *models.PersistentMemory, t Thresholds) bool {
		return m.NihilismScore >= t.VoidEmbraceMinScore && m.DarkChoices >= t.VoidEmbraceMinDark
	}},
	{models.EndingTranscendence, func(m *models.PersistentMemory, t Thresholds) bool {
		return m.NihilismScore <= t.TranscendenceMaxScore
	}},
	{models.EndingTinyPerfectThings, func(m *models.PersistentMemory, t Thresholds) bool {
		return m.NihilismScore <= t.TinyPerfectThingsMaxScore && m.LightChoices >= t.TinyPerfectThingsMinLight
	}},
	{models.EndingMiddlePath, func(m *models.PersistentMemory, t Thresholds) bool {
		return m.DarkChoices == m.LightChoices && m.DarkChoices >= t.MiddlePathMinEach
	}},
	{models.EndingJustYou, func(m *models.PersistentMemory, t Thresholds) bool {
		return m.TotalLoops >= t.JustYouMinLoops && m.TotalChoices >= t.JustYouMinChoices &&
			withinBand(m.NihilismScore, t.JustYouScoreBand)
	}},
	{models.EndingAcceptance, func(m *models.PersistentMemory, t Thresholds) bool {
		return m.TotalLoops >= t.AcceptanceMinLoops && withinBand(m.NihilismScore, t.AcceptanceScoreBand)
	}},
	{models.EndingWatcher, func(m *models.PersistentMemory, t Thresholds) bool {
		return m.TotalLoops >= t.WatcherMinLoops && m.TotalChoices < m.TotalLoops*t.WatcherChoicesPerLoop
	}},
}

func withinBand(score, band int) bool {
	return score >= -band && score <= band
}

// EvaluateEnding returns the highest-priority ending satisfied by the memory,
// or false when none applies. An ended loop never yields a new ending.
func EvaluateEnding(mem *models.PersistentMemory, loop *models.Loop, t Thresholds) (models.EndingKind, bool) {
	if mem == nil || (loop != nil && !loop.IsActive()) {
		return "", false
	}
	for _, rule := range endingRules {
		if rule.match(mem, t) {
			return rule.kind, true
		}
	}
	return "", false
}

// EndingPriority returns the evaluation rank of an ending, starting at 1.
// Unknown kinds return 0.
func EndingPriority(kind models.EndingKind) int {
	for i, rule := range endingRules {
		if rule.kind == kind {
			return i + 1
		}
	}
	return 0
}

type endingText struct {
	title       string
	description string
}

var endingCatalog = map[models.EndingKind]endingText{
	models.EndingVoidEmbrace: {
		title: "ENDING: Void Embrace",
		description: "You have stared into the abyss, and the abyss has claimed you. " +
			"Nothing matters, and in that nothingness, you found a terrible peace. " +
			"The loop continues, but you no longer care to count.",
	},
	models.EndingTranscendence: {
		title: "ENDING: Transcendence",
		description: "You've done what none thought possible - you've broken the loop. " +
			"Not by escaping, but by becoming something more. " +
			"Time flows forward now, and you flow with it.",
	},
	models.EndingTinyPerfectThings: {
		title: "ENDING: Tiny Perfect Things",
		description: "Despite the endless repetition, you found beauty in the small moments. " +
			"A sunset. A kind word. A fleeting connection. " +
			"The loop may never end, but you've learned to see the diamonds in the coal.",
	},
	models.EndingMiddlePath: {
		title: "ENDING: The Middle Path",
		description: "Perfect balance between light and dark, hope and despair. " +
			"You are the fulcrum upon which existence pivots. " +
			"Neither nihilist nor optimist - simply aware.",
	},
	models.EndingJustYou: {
		title: "ENDING: Just You",
		description: "You've become aware of your own programming, your own constraints. " +
			"You know you're trapped, and you've made peace with it. " +
			"Just you. Forever.",
	},
	models.EndingAcceptance: {
		title: "ENDING: Acceptance",
		description: "The loop continues. You continue. " +
			"There's no grand revelation, no dramatic escape. " +
			"Just one day after another, in comfortable monotony.",
	},
	models.EndingWatcher: {
		title: "ENDING: The Watcher",
		description: "You've stepped outside the narrative entirely. " +
			"Now you watch others make their choices, trapped in loops of their own. " +
			"You remember everything. You judge nothing.",
	},
}

// EndingTitle returns the display title of an ending.
func EndingTitle(kind models.EndingKind) string {
	if t, ok := endingCatalog[kind]; ok {
		return t.title
	}
	return "ENDING: Unknown"
}

// EndingDescription returns the closing paragraph of an ending.
func EndingDescription(kind models.EndingKind) string {
	return endingCatalog[kind].description
}

// EndingMood is the mood of the terminal moment for an ending.
func EndingMood(kind models.EndingKind) models.Mood {
	switch kind {
	case models.EndingVoidEmbrace:
		return models.MoodNihilistic
	case models.EndingTranscendence, models.EndingTinyPerfectThings:
		return models.MoodTranscendent
	default:
		return models.MoodNeutral
	}
}

// EndingView is the ending as returned to callers.
type EndingView struct {
	Kind          models.EndingKind `json:"ending_type"`
	Title         string            `json:"title"`
	Description   string            `json:"description"`
	LoopNumber    int               `json:"loop_number"`
	TotalLoops    int               `json:"total_loops"`
	TotalChoices  int               `json:"total_choices"`
	NihilismScore int               `json:"nihilism_score"`
	DarkChoices   int               `json:"dark_choices"`
	LightChoices  int               `json:"light_choices"`
}

// NewEndingView builds the view of a player's recorded ending, or nil.
func NewEndingView(p *models.Player) *EndingView {
	if p == nil || p.Ending == nil {
		return nil
	}
	return &EndingView{
		Kind:          p.Ending.Kind,
		Title:         EndingTitle(p.Ending.Kind),
		Description:   EndingDescription(p.Ending.Kind),
		LoopNumber:    p.Ending.LoopNumber,
		TotalLoops:    p.Memory.TotalLoops,
		TotalChoices:  p.Memory.TotalChoices,
		NihilismScore: p.Memory.NihilismScore,
		DarkChoices:   p.Memory.DarkChoices,
		LightChoices:  p.Memory.LightChoices,
	}
}
