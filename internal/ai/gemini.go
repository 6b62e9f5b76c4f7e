package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/windoze95/saltybytes-voice/internal/config"
	"github.com/windoze95/saltybytes-voice/internal/logger"
	"github.com/windoze95/saltybytes-voice/internal/util"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

const videoMIMEType = "video/mp4"

// geminiAPI is the slice of the genai client the provider uses.
type geminiAPI interface {
	generate(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (string, error)
	upload(ctx context.Context, path, mimeType string) (*genai.File, error)
	getFile(ctx context.Context, name string) (*genai.File, error)
	deleteFile(ctx context.Context, name string) error
}

type genaiClient struct {
	client *genai.Client
}

func (c *genaiClient) generate(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (string, error) {
	resp, err := c.client.Models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

func (c *genaiClient) upload(ctx context.Context, path, mimeType string) (*genai.File, error) {
	return c.client.Files.UploadFromPath(ctx, path, &genai.UploadFileConfig{MIMEType: mimeType})
}

func (c *genaiClient) getFile(ctx context.Context, name string) (*genai.File, error) {
	return c.client.Files.Get(ctx, name, nil)
}

func (c *genaiClient) deleteFile(ctx context.Context, name string) error {
	_, err := c.client.Files.Delete(ctx, name, nil)
	return err
}

// GeminiProvider implements TextProvider and VideoProvider using Gemini.
type GeminiProvider struct {
	api     geminiAPI
	model   string
	prompts *config.PromptSet

	uploadAttempts int
	uploadBackoff  time.Duration
	pollInterval   time.Duration
}

// NewGeminiProvider creates a GeminiProvider backed by the Gemini API.
func NewGeminiProvider(ctx context.Context, apiKey, model string, prompts *config.PromptSet) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return newGeminiProvider(&genaiClient{client: client}, model, prompts), nil
}

func newGeminiProvider(api geminiAPI, model string, prompts *config.PromptSet) *GeminiProvider {
	return &GeminiProvider{
		api:            api,
		model:          model,
		prompts:        prompts,
		uploadAttempts: 5,
		uploadBackoff:  2 * time.Second,
		pollInterval:   2 * time.Second,
	}
}

// generateWithRetry wraps the Gemini API call with linear backoff.
func (p *GeminiProvider) generateWithRetry(ctx context.Context, contents []*genai.Content, cfg *genai.GenerateContentConfig) (string, error) {
	const maxRetries = 3
	var lastErr error

	for i := 0; i < maxRetries; i++ {
		text, err := p.api.generate(ctx, p.model, contents, cfg)
		if err == nil {
			if text == "" {
				return "", errors.New("Gemini returned empty text")
			}
			return text, nil
		}

		lastErr = err
		shouldRetry, waitTime := classifyGeminiError(err)
		if !shouldRetry {
			return "", fmt.Errorf("Gemini API error: %w", err)
		}

		logger.Get().Warn("Gemini API error, retrying",
			zap.Error(err),
			zap.Int("attempt", i+1),
		)

		if i < maxRetries-1 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(waitTime * time.Duration(i+1)):
			}
		}
	}

	return "", fmt.Errorf("Gemini API: exhausted %d retries: %w", maxRetries, lastErr)
}

// classifyGeminiError determines whether a Gemini API error is retryable.
func classifyGeminiError(err error) (shouldRetry bool, waitTime time.Duration) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
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

// uploadWithRetry uploads a local video, retrying transient failures at a
// fixed interval.
func (p *GeminiProvider) uploadWithRetry(ctx context.Context, path string) (*genai.File, error) {
	var lastErr error
	for i := 0; i < p.uploadAttempts; i++ {
		file, err := p.api.upload(ctx, path, videoMIMEType)
		if err == nil {
			return file, nil
		}
		lastErr = err
		logger.Get().Warn("video upload failed, retrying",
			zap.String("path", path),
			zap.Error(err),
			zap.Int("attempt", i+1),
		)
		if i < p.uploadAttempts-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(p.uploadBackoff):
			}
		}
	}
	return nil, fmt.Errorf("video upload: exhausted %d attempts: %w", p.uploadAttempts, lastErr)
}

// waitForActive polls an uploaded file until the service finishes
// processing it.
func (p *GeminiProvider) waitForActive(ctx context.Context, file *genai.File) (*genai.File, error) {
	for {
		switch file.State {
		case genai.FileStateActive:
			return file, nil
		case genai.FileStateFailed:
			return nil, fmt.Errorf("video processing failed for %s", file.Name)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(p.pollInterval):
		}

		next, err := p.api.getFile(ctx, file.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to poll uploaded video: %w", err)
		}
		file = next
	}
}

// generateFromVideo runs prompt against a local video. The remote upload is
// always deleted before returning.
func (p *GeminiProvider) generateFromVideo(ctx context.Context, videoPath, prompt string, cfg *genai.GenerateContentConfig) (string, error) {
	file, err := p.uploadWithRetry(ctx, videoPath)
	if err != nil {
		return "", err
	}
	defer p.deleteRemote(file.Name)

	file, err = p.waitForActive(ctx, file)
	if err != nil {
		return "", err
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromURI(file.URI, file.MIMEType),
			genai.NewPartFromText(prompt),
		}, genai.RoleUser),
	}
	return p.generateWithRetry(ctx, contents, cfg)
}

func (p *GeminiProvider) deleteRemote(name string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := p.api.deleteFile(ctx, name); err != nil {
		logger.Get().Warn("failed to delete uploaded video", zap.String("file", name), zap.Error(err))
	}
}

// --- TextProvider implementation ---

// RecipeByName generates recipe text for a dish name.
func (p *GeminiProvider) RecipeByName(ctx context.Context, menuName string) (string, error) {
	prompt, err := config.RenderPrompt(p.prompts.Current().Recipe.ByName, map[string]interface{}{
		"MenuName": menuName,
	})
	if err != nil {
		return "", fmt.Errorf("render recipe prompt: %w", err)
	}
	return p.generateWithRetry(ctx, genai.Text(prompt), nil)
}

// EstimateCookingTime asks for a total cooking time in minutes. A reply
// without a number yields 0.
func (p *GeminiProvider) EstimateCookingTime(ctx context.Context, recipeText string) (int, error) {
	prompt, err := config.RenderPrompt(p.prompts.Current().Recipe.EstimateTime, map[string]interface{}{
		"Recipe": recipeText,
	})
	if err != nil {
		return 0, fmt.Errorf("render estimate prompt: %w", err)
	}
	reply, err := p.generateWithRetry(ctx, genai.Text(prompt), nil)
	if err != nil {
		return 0, err
	}
	minutes, _ := util.FirstInteger(reply)
	return minutes, nil
}

// IngredientsByMenu returns the raw categorized-ingredient JSON for a dish.
func (p *GeminiProvider) IngredientsByMenu(ctx context.Context, menuName string) (string, error) {
	prompt, err := config.RenderPrompt(p.prompts.Current().Ingredients.ByMenu, map[string]interface{}{
		"MenuName": menuName,
	})
	if err != nil {
		return "", fmt.Errorf("render ingredients prompt: %w", err)
	}
	return p.generateWithRetry(ctx, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
}

// --- VideoProvider implementation ---

// RecipeFromVideo extracts recipe text from a local cooking video.
func (p *GeminiProvider) RecipeFromVideo(ctx context.Context, videoPath string) (string, error) {
	return p.generateFromVideo(ctx, videoPath, p.prompts.Current().Recipe.ByVideo, nil)
}

// IngredientsFromVideo returns the raw categorized-ingredient JSON for the
// dish shown in a local cooking video.
func (p *GeminiProvider) IngredientsFromVideo(ctx context.Context, videoPath string) (string, error) {
	return p.generateFromVideo(ctx, videoPath, p.prompts.Current().Ingredients.ByVideo, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
}
