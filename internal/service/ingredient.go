package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/windoze95/saltybytes-voice/internal/ai"
	"github.com/windoze95/saltybytes-voice/internal/config"
	"github.com/windoze95/saltybytes-voice/internal/models"
	"github.com/windoze95/saltybytes-voice/internal/util"
)

// ErrMalformedIngredients is returned when the model output does not match
// the categorized ingredient shape.
var ErrMalformedIngredients = errors.New("model output does not match the ingredient format")

// IngredientService extracts categorized shopping lists.
type IngredientService struct {
	Cfg           *config.Config
	TextProvider  ai.TextProvider
	VideoProvider ai.VideoProvider
	Downloader    ai.VideoDownloader
}

// NewIngredientService creates a new IngredientService.
func NewIngredientService(cfg *config.Config, textProvider ai.TextProvider, videoProvider ai.VideoProvider, downloader ai.VideoDownloader) *IngredientService {
	return &IngredientService{
		Cfg:           cfg,
		TextProvider:  textProvider,
		VideoProvider: videoProvider,
		Downloader:    downloader,
	}
}

// IngredientsByMenu lists the ingredients for a dish name. The menu name in
// the result is always the one the caller sent.
func (s *IngredientService) IngredientsByMenu(ctx context.Context, foodName string) (*models.IngredientsResponse, error) {
	raw, err := s.TextProvider.IngredientsByMenu(ctx, foodName)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ingredients: %w", err)
	}

	resp, err := parseIngredients(raw)
	if err != nil {
		return nil, err
	}
	for i := range resp.Ingredients {
		resp.Ingredients[i].FoodName = foodName
	}
	return resp, nil
}

// IngredientsByLink lists the ingredients of the dish shown in a cooking
// video.
func (s *IngredientService) IngredientsByLink(ctx context.Context, link string) (*models.IngredientsResponse, error) {
	raw, err := downloadAndRun(ctx, s.Downloader, s.Cfg.EnvVars.VideoDir, link, s.VideoProvider.IngredientsFromVideo)
	if err != nil {
		return nil, fmt.Errorf("failed to extract ingredients from video: %w", err)
	}
	return parseIngredients(raw)
}

// parseIngredients accepts either {"ingredients": [...]} or a bare array of
// categories, optionally wrapped in a code fence.
func parseIngredients(raw string) (*models.IngredientsResponse, error) {
	cleaned := util.StripCodeFence(raw)

	var resp models.IngredientsResponse
	if len(cleaned) > 0 && cleaned[0] == '[' {
		if err := json.Unmarshal([]byte(cleaned), &resp.Ingredients); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedIngredients, err)
		}
	} else if err := util.DecodeModelJSON(cleaned, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedIngredients, err)
	}

	if len(resp.Ingredients) == 0 {
		return nil, fmt.Errorf("%w: no ingredient categories", ErrMalformedIngredients)
	}
	for i := range resp.Ingredients {
		resp.Ingredients[i].Normalize()
	}
	return &resp, nil
}
