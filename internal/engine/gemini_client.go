package engine

import (
	"context"
	"fmt"
	"log"
	"time"

	"google.golang.org/genai"

	"nihilism/server/internal/config"
	"nihilism/server/internal/interfaces"
	"nihilism/server/internal/prompts"
)

// GeminiNarrator generates moments with the Gemini API
type GeminiNarrator struct {
	client      *genai.Client
	prompts     *prompts.TemplateEngine
	model       string
	temperature float32
	maxTokens   int32
	debug       bool
}

// NewGeminiNarrator creates a Gemini client from the llm config
func NewGeminiNarrator(ctx context.Context, cfg config.LLMConfig, tmpl *prompts.TemplateEngine, debug bool) (*GeminiNarrator, error) {
	apiKey := cfg.GeminiAPIKey
	if apiKey == "" {
		apiKey = cfg.APIKey
	}
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}
	return &GeminiNarrator{
		client:      client,
		prompts:     tmpl,
		model:       model,
		temperature: cfg.Temperature,
		maxTokens:   int32(cfg.MaxTokens),
		debug:       debug,
	}, nil
}

// Generate asks Gemini for the next moment as JSON
func (n *GeminiNarrator) Generate(ctx context.Context, req *interfaces.NarrativeRequest) (*interfaces.Narration, error) {
	system, user, err := n.prompts.BuildMessages(req)
	if err != nil {
		return nil, err
	}

	genConfig := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		ResponseMIMEType:  "application/json",
		Temperature:       genai.Ptr(n.temperature),
	}
	if n.maxTokens > 0 {
		genConfig.MaxOutputTokens = n.maxTokens
	}

	resp, err := n.client.Models.GenerateContent(ctx, n.model,
		[]*genai.Content{genai.NewContentFromText(user, genai.RoleUser)},
		genConfig)
	if err != nil {
		return nil, fmt.Errorf("gemini generate content: %w", err)
	}

	content := resp.Text()
	if n.debug {
		log.Printf("[Narrator] Raw gemini reply for %s: %s", req.PlayerID, content)
	}
	return ParseNarration(content, time.Now()), nil
}
