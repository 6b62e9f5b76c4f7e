package ai

import (
	"context"
	"errors"
	"fmt"
)

// TextProvider handles text-only recipe tasks (Gemini or Claude).
type TextProvider interface {
	RecipeByName(ctx context.Context, menuName string) (string, error)
	EstimateCookingTime(ctx context.Context, recipeText string) (int, error)
	IngredientsByMenu(ctx context.Context, menuName string) (string, error)
}

// VideoProvider handles recipe tasks that read a local cooking video (Gemini).
type VideoProvider interface {
	RecipeFromVideo(ctx context.Context, videoPath string) (string, error)
	IngredientsFromVideo(ctx context.Context, videoPath string) (string, error)
}

// SpeechProvider handles speech-to-text (Whisper).
type SpeechProvider interface {
	TranscribeAudio(ctx context.Context, audioData []byte, filename string) (string, error)
}

// VideoDownloader fetches a remote cooking video into dir and returns the
// local file path. The caller owns the file.
type VideoDownloader interface {
	Download(ctx context.Context, videoURL, dir string) (string, error)
}

// ErrProviderNotConfigured is returned by providers whose credentials are
// missing.
var ErrProviderNotConfigured = errors.New("AI provider is not configured")

// UnconfiguredProvider stands in for a text and video provider that could
// not be created, so the server still starts and fails per request.
type UnconfiguredProvider struct {
	Name string
}

func (p UnconfiguredProvider) err() error {
	return fmt.Errorf("%s: %w", p.Name, ErrProviderNotConfigured)
}

func (p UnconfiguredProvider) RecipeByName(context.Context, string) (string, error) {
	return "", p.err()
}

func (p UnconfiguredProvider) EstimateCookingTime(context.Context, string) (int, error) {
	return 0, p.err()
}

func (p UnconfiguredProvider) IngredientsByMenu(context.Context, string) (string, error) {
	return "", p.err()
}

func (p UnconfiguredProvider) RecipeFromVideo(context.Context, string) (string, error) {
	return "", p.err()
}

func (p UnconfiguredProvider) IngredientsFromVideo(context.Context, string) (string, error) {
	return "", p.err()
}

var (
	_ TextProvider  = UnconfiguredProvider{}
	_ VideoProvider = UnconfiguredProvider{}
)
