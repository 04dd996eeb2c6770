package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"

	"nihilism/server/internal/config"
	"nihilism/server/internal/interfaces"
	"nihilism/server/internal/prompts"
)

const (
	maxRetries = 3
	retryDelay = 1 * time.Second
)

// OpenAINarrator talks to any OpenAI-compatible chat completion endpoint
type OpenAINarrator struct {
	client      *openai.Client
	prompts     *prompts.TemplateEngine
	model       string
	temperature float32
	maxTokens   int
	jsonMode    bool
	debug       bool
	retryDelay  time.Duration
}

// NewOpenAINarrator creates a narrator for the configured endpoint
func NewOpenAINarrator(cfg config.LLMConfig, tmpl *prompts.TemplateEngine, debug bool) *OpenAINarrator {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	clientConfig.HTTPClient = &http.Client{
		Timeout: cfg.RequestTimeout,
	}

	return &OpenAINarrator{
		client:      openai.NewClientWithConfig(clientConfig),
		prompts:     tmpl,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		jsonMode:    cfg.JSONMode,
		debug:       debug,
		retryDelay:  retryDelay,
	}
}

// Generate renders the prompts, calls the endpoint and parses the reply
func (n *OpenAINarrator) Generate(ctx context.Context, req *interfaces.NarrativeRequest) (*interfaces.Narration, error) {
	system, user, err := n.prompts.BuildMessages(req)
	if err != nil {
		return nil, err
	}

	chatReq := openai.ChatCompletionRequest{
		Model: n.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: n.temperature,
		MaxTokens:   n.maxTokens,
	}
	if n.jsonMode {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	content, err := n.chat(ctx, chatReq)
	if err != nil {
		return nil, err
	}
	if n.debug {
		log.Printf("[Narrator] Raw reply for %s: %s", req.PlayerID, content)
	}
	return ParseNarration(content, time.Now()), nil
}

// chat sends the request, retrying rate limits and server errors
func (n *OpenAINarrator) chat(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(n.retryDelay * time.Duration(attempt)):
			}
		}

		resp, err := n.client.CreateChatCompletion(ctx, req)
		if err == nil {
			if len(resp.Choices) == 0 {
				return "", fmt.Errorf("no choices returned from model")
			}
			return resp.Choices[0].Message.Content, nil
		}

		lastErr = err
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if !isRetryableError(err) {
			break
		}
		log.Printf("[Narrator] Attempt %d failed, retrying: %v", attempt+1, err)
	}

	return "", fmt.Errorf("chat completion failed: %w", lastErr)
}

// isRetryableError reports whether the endpoint asked us to come back later
func isRetryableError(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests || reqErr.HTTPStatusCode >= 500
	}
	return false
}
