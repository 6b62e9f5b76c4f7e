package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/windoze95/saltybytes-voice/internal/config"
	"github.com/windoze95/saltybytes-voice/internal/logger"
	"github.com/windoze95/saltybytes-voice/internal/util"
	"go.uber.org/zap"
)

const recipeSystemPrompt = "You are a Korean home-cooking assistant. Answer in Korean and follow the requested output format exactly."

// AnthropicProvider implements TextProvider using Claude. Video analysis
// stays on Gemini.
type AnthropicProvider struct {
	client  anthropic.Client
	model   anthropic.Model
	prompts *config.PromptSet
}

// NewAnthropicProvider creates a new AnthropicProvider with the given API key
// and prompt configuration.
func NewAnthropicProvider(apiKey string, prompts *config.PromptSet) *AnthropicProvider {
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &AnthropicProvider{
		client:  client,
		model:   anthropic.ModelClaude3_5Sonnet20241022,
		prompts: prompts,
	}
}

// newUserMessage creates a user message param with the given content blocks.
func newUserMessage(blocks ...anthropic.ContentBlockParamUnion) anthropic.MessageParam {
	return anthropic.MessageParam{
		Role:    anthropic.MessageParamRoleUser,
		Content: blocks,
	}
}

// createMessageWithRetry wraps the Claude API call with exponential backoff.
func (p *AnthropicProvider) createMessageWithRetry(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error) {
	const maxRetries = 5
	var lastErr error

	for i := 0; i < maxRetries; i++ {
		resp, err := p.client.Messages.New(ctx, params)
		if err == nil {
			return resp, nil
		}

		lastErr = err
		shouldRetry, waitTime := classifyAnthropicError(err)
		if !shouldRetry {
			return nil, fmt.Errorf("claude API error: %w", err)
		}

		logger.Get().Warn("claude API error, retrying",
			zap.Error(err),
			zap.Int("attempt", i+1),
		)

		backoff := waitTime * time.Duration(i+1)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}

	return nil, fmt.Errorf("claude API: exhausted %d retries: %w", maxRetries, lastErr)
}

// classifyAnthropicError determines whether to retry and the base wait duration.
func classifyAnthropicError(err error) (shouldRetry bool, waitTime time.Duration) {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusTooManyRequests:
			return true, 2 * time.Second
		case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
			return true, 2 * time.Second
		default:
			return false, 0
		}
	}
	return false, 0
}

// extractTextContent returns the concatenated text blocks from a Claude response.
func extractTextContent(msg *anthropic.Message) (string, error) {
	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	if text == "" {
		return "", errors.New("no text content in Claude response")
	}
	return text, nil
}

// ask sends one rendered prompt as a single user turn.
func (p *AnthropicProvider) ask(ctx context.Context, prompt string, maxTokens int64) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     p.model,
		MaxTokens: maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: recipeSystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			newUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}

	resp, err := p.createMessageWithRetry(ctx, params)
	if err != nil {
		return "", err
	}
	return extractTextContent(resp)
}

// --- TextProvider implementation ---

// RecipeByName generates recipe text for a dish name.
func (p *AnthropicProvider) RecipeByName(ctx context.Context, menuName string) (string, error) {
	prompt, err := config.RenderPrompt(p.prompts.Current().Recipe.ByName, map[string]interface{}{
		"MenuName": menuName,
	})
	if err != nil {
		return "", fmt.Errorf("render recipe prompt: %w", err)
	}
	return p.ask(ctx, prompt, 4096)
}

// EstimateCookingTime asks for a total cooking time in minutes. A reply
// without a number yields 0.
func (p *AnthropicProvider) EstimateCookingTime(ctx context.Context, recipeText string) (int, error) {
	prompt, err := config.RenderPrompt(p.prompts.Current().Recipe.EstimateTime, map[string]interface{}{
		"Recipe": recipeText,
	})
	if err != nil {
		return 0, fmt.Errorf("render estimate prompt: %w", err)
	}
	reply, err := p.ask(ctx, prompt, 64)
	if err != nil {
		return 0, err
	}
	minutes, _ := util.FirstInteger(reply)
	return minutes, nil
}

// IngredientsByMenu returns the raw categorized-ingredient JSON for a dish.
func (p *AnthropicProvider) IngredientsByMenu(ctx context.Context, menuName string) (string, error) {
	prompt, err := config.RenderPrompt(p.prompts.Current().Ingredients.ByMenu, map[string]interface{}{
		"MenuName": menuName,
	})
	if err != nil {
		return "", fmt.Errorf("render ingredients prompt: %w", err)
	}
	return p.ask(ctx, prompt, 2048)
}
