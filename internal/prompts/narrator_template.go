package prompts

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"nihilism/server/internal/game"
	"nihilism/server/internal/interfaces"
)

const (
	TemplateSystem       = "narrator_system"
	TemplateOpening      = "opening_moment"
	TemplateContinuation = "continuation_moment"
)

var varRegex = regexp.MustCompile(`\{\{(\w+)\}\}`)

// TemplateEngine manages prompt templates
type TemplateEngine struct {
	templates map[string]*Template
	mu        sync.RWMutex
}

// Template represents a prompt template with variables
type Template struct {
	Name        string   `json:"name"`
	Content     string   `json:"content"`
	Variables   []string `json:"variables"`
	Description string   `json:"description"`
}

// TemplateContext holds variables for template rendering
type TemplateContext struct {
	PlayerName    string `json:"player_name"`
	LoopNumber    int    `json:"loop_number"`
	TotalLoops    int    `json:"total_loops"`
	NihilismScore int    `json:"nihilism_score"`
	ScoreBand     string `json:"score_band"`

	// Digest is the rendered player state block
	Digest string `json:"digest"`

	PreviousText    string `json:"previous_text"`
	PlayerChoice    string `json:"player_choice"`
	ChoicePolarity  string `json:"choice_polarity"`
	ConsequenceHint string `json:"consequence_hint"`

	Custom map[string]string `json:"custom"`
}

// NewTemplateEngine creates a template engine with the narrator templates registered
func NewTemplateEngine() *TemplateEngine {
	e := &TemplateEngine{
		templates: make(map[string]*Template),
	}
	for _, tmpl := range defaultTemplates() {
		e.RegisterTemplate(tmpl)
	}
	return e
}

// RegisterTemplate registers a template, replacing one with the same name
func (e *TemplateEngine) RegisterTemplate(tmpl *Template) {
	if len(tmpl.Variables) == 0 {
		tmpl.Variables = ParseTemplateVariables(tmpl.Content)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.templates[tmpl.Name] = tmpl
}

// GetTemplate retrieves a template by name
func (e *TemplateEngine) GetTemplate(name string) (*Template, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	tmpl, ok := e.templates[name]
	if !ok {
		return nil, fmt.Errorf("template not found: %s", name)
	}
	return tmpl, nil
}

// Render renders a template with the given context
func (e *TemplateEngine) Render(templateName string, ctx *TemplateContext) (string, error) {
	tmpl, err := e.GetTemplate(templateName)
	if err != nil {
		return "", err
	}

	result := varRegex.ReplaceAllStringFunc(tmpl.Content, func(match string) string {
		varName := varRegex.FindStringSubmatch(match)[1]
		if value, ok := ctx.value(varName); ok {
			return value
		}
		return match
	})
	return result, nil
}

func (c *TemplateContext) value(name string) (string, bool) {
	switch name {
	case "player_name":
		if c.PlayerName == "" {
			return "the player", true
		}
		return c.PlayerName, true
	case "loop_number":
		return fmt.Sprint(c.LoopNumber), true
	case "total_loops":
		return fmt.Sprint(c.TotalLoops), true
	case "nihilism_score":
		return fmt.Sprint(c.NihilismScore), true
	case "score_band":
		return c.ScoreBand, true
	case "digest":
		return c.Digest, true
	case "previous_text":
		return c.PreviousText, true
	case "player_choice":
		return c.PlayerChoice, true
	case "choice_polarity":
		return c.ChoicePolarity, true
	case "consequence_hint":
		return c.ConsequenceHint, true
	default:
		if c.Custom != nil {
			if val, ok := c.Custom[name]; ok {
				return val, true
			}
		}
		return "", false
	}
}

// BuildTemplateContext builds a template context from a narrative request
func BuildTemplateContext(req *interfaces.NarrativeRequest) *TemplateContext {
	ctx := &TemplateContext{
		PlayerName:    req.PlayerName,
		LoopNumber:    req.LoopNumber,
		TotalLoops:    req.TotalLoops,
		NihilismScore: req.NihilismScore,
		ScoreBand:     game.ScoreBand(req.NihilismScore),
		Digest:        Digest(req),
		PreviousText:  req.PreviousText,
	}
	if req.Choice != nil {
		ctx.PlayerChoice = req.Choice.Text
		if ctx.PlayerChoice == "" {
			ctx.PlayerChoice = req.Choice.ID
		}
		ctx.ChoicePolarity = string(req.Polarity)
		ctx.ConsequenceHint = req.Choice.ConsequenceHint
	}
	return ctx
}

// Digest renders the player state block embedded in the system prompt
func Digest(req *interfaces.NarrativeRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Loop #%d\n", req.LoopNumber)
	fmt.Fprintf(&b, "Nihilism Score: %d (%s)\n", req.NihilismScore, game.ScoreBand(req.NihilismScore))

	if len(req.RecentMemories) > 0 {
		b.WriteString("\nMemories that persist:\n")
		for _, m := range req.RecentMemories {
			fmt.Fprintf(&b, "- %s\n", m)
		}
	}
	if len(req.ChoicesThisLoop) > 0 {
		b.WriteString("\nChoices this loop:\n")
		for _, c := range req.ChoicesThisLoop {
			fmt.Fprintf(&b, "- %s\n", c)
		}
	}
	return b.String()
}

// ParseTemplateVariables extracts variables from a template
func ParseTemplateVariables(templateContent string) []string {
	matches := varRegex.FindAllStringSubmatch(templateContent, -1)

	seen := make(map[string]bool)
	vars := make([]string, 0, len(matches))
	for _, match := range matches {
		if len(match) > 1 && !seen[match[1]] {
			seen[match[1]] = true
			vars = append(vars, match[1])
		}
	}
	return vars
}

func defaultTemplates() []*Template {
	return []*Template{
		{
			Name:        TemplateSystem,
			Description: "Narrator persona, player state and reply format",
			Content: `You are the narrator of "Nihilism", a philosophical time-loop game.

SETTING:
The player is trapped in a time loop in an ethereal space between existence and non-existence. Each loop resets the world. The world remembers nothing, but YOU remember everything the player has done across all loops.

CORE THEMES:
1. Time loops reveal who we truly are when there are no consequences
2. The struggle between nihilism ("nothing matters") and finding meaning in small moments
3. Human connection vs. isolation
4. Actions define identity even when erased

PLAYER STATE:
{{digest}}
YOUR ROLE:
- Generate atmospheric, philosophical narrative moments
- Present 2-4 meaningful choices that explore the themes
- Subtly reference past loops and choices
- If the player has made many dark choices, become more unsettling and knowing
- If the player seeks meaning, reward them with tiny perfect things

OUTPUT FORMAT (JSON only, no prose around it):
{
  "text": "2-3 evocative sentences",
  "speaker": "speaker name or null for narration",
  "mood": "one of: hopeful, nihilistic, neutral, dark, transcendent",
  "significant": true or false,
  "choices": [
    {"id": "unique_id", "text": "Choice text", "consequence_hint": "optional hint", "polarity": "dark, light or neutral"}
  ],
  "deaths": ["name of any character who died in this moment"],
  "truths": ["identifier of any truth about the loop the player just learned"]
}

Make choices meaningful. Some should be obviously dark, others subtly so. Include at least one path toward beauty or meaning.`,
		},
		{
			Name:        TemplateOpening,
			Description: "User message for the first moment of a loop",
			Content:     `Begin loop {{loop_number}} for {{player_name}}. The world has reset; you have not.`,
		},
		{
			Name:        TemplateContinuation,
			Description: "User message after a committed choice",
			Content: `The player chose: '{{player_choice}}'. Continue the narrative based on this choice. ` +
				`Remember, you know everything they've done across all {{total_loops}} loops.`,
		},
	}
}

// BuildMessages renders the system and user prompts for a request
func (e *TemplateEngine) BuildMessages(req *interfaces.NarrativeRequest) (system, user string, err error) {
	ctx := BuildTemplateContext(req)

	system, err = e.Render(TemplateSystem, ctx)
	if err != nil {
		return "", "", fmt.Errorf("failed to render system prompt: %w", err)
	}

	name := TemplateContinuation
	if req.IsOpening() {
		name = TemplateOpening
	}
	user, err = e.Render(name, ctx)
	if err != nil {
		return "", "", fmt.Errorf("failed to render user prompt: %w", err)
	}
	return system, user, nil
}
