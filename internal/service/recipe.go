package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/windoze95/saltybytes-voice/internal/ai"
	"github.com/windoze95/saltybytes-voice/internal/config"
	"github.com/windoze95/saltybytes-voice/internal/logger"
	"github.com/windoze95/saltybytes-voice/internal/models"
	"github.com/windoze95/saltybytes-voice/internal/repository"
	"go.uber.org/zap"
)

// Archiver stores a copy of acquired recipe text outside the session store.
type Archiver interface {
	ArchiveRecipe(ctx context.Context, sessionID, recipeText string) (string, error)
}

// RecipeService acquires recipes and records them as recipe sessions.
type RecipeService struct {
	Cfg           *config.Config
	Repo          repository.RecipeSessionRepo
	TextProvider  ai.TextProvider
	VideoProvider ai.VideoProvider
	Downloader    ai.VideoDownloader
	Archiver      Archiver // nil disables archiving
}

// RecipeResponse is returned by both acquisition endpoints.
type RecipeResponse struct {
	SessionID     string `json:"session_id"`
	SessionToken  string `json:"session_token"`
	Recipe        string `json:"recipe"`
	EstimatedTime int    `json:"estimated_time"`
}

// NewRecipeService is the constructor function for initializing a new RecipeService
func NewRecipeService(cfg *config.Config, repo repository.RecipeSessionRepo, textProvider ai.TextProvider, videoProvider ai.VideoProvider, downloader ai.VideoDownloader, archiver Archiver) *RecipeService {
	return &RecipeService{
		Cfg:           cfg,
		Repo:          repo,
		TextProvider:  textProvider,
		VideoProvider: videoProvider,
		Downloader:    downloader,
		Archiver:      archiver,
	}
}

// AcquireByName generates a recipe for menuName and stores it.
func (s *RecipeService) AcquireByName(ctx context.Context, menuName string) (*RecipeResponse, error) {
	text, err := s.TextProvider.RecipeByName(ctx, menuName)
	if err != nil {
		return nil, fmt.Errorf("failed to generate recipe: %w", err)
	}

	return s.store(ctx, &models.RecipeSession{
		MenuName: menuName,
		Source:   models.RecipeSourceName,
		Text:     text,
	})
}

// AcquireByVideo downloads videoURL, extracts its recipe and stores it. The
// local download is removed whether or not extraction succeeds.
func (s *RecipeService) AcquireByVideo(ctx context.Context, videoURL string) (*RecipeResponse, error) {
	text, err := downloadAndRun(ctx, s.Downloader, s.Cfg.EnvVars.VideoDir, videoURL, s.VideoProvider.RecipeFromVideo)
	if err != nil {
		return nil, fmt.Errorf("failed to extract recipe from video: %w", err)
	}

	return s.store(ctx, &models.RecipeSession{
		Source:    models.RecipeSourceVideo,
		SourceURL: videoURL,
		Text:      text,
	})
}

// downloadAndRun runs fn against a local copy of videoURL kept in a
// per-request directory under baseDir.
func downloadAndRun(ctx context.Context, downloader ai.VideoDownloader, baseDir, videoURL string, fn func(context.Context, string) (string, error)) (string, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create video dir: %w", err)
	}
	dir, err := os.MkdirTemp(baseDir, "download-*")
	if err != nil {
		return "", fmt.Errorf("failed to create download dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			logger.Get().Warn("failed to remove downloaded video", zap.String("dir", dir), zap.Error(err))
		}
	}()

	path, err := downloader.Download(ctx, videoURL, dir)
	if err != nil {
		return "", fmt.Errorf("failed to download video: %w", err)
	}
	return fn(ctx, path)
}

// store finalizes a freshly generated recipe: it estimates cooking time,
// parses sections, archives, saves and issues a session token.
func (s *RecipeService) store(ctx context.Context, session *models.RecipeSession) (*RecipeResponse, error) {
	session.Text = strings.TrimSpace(session.Text)
	if session.Text == "" {
		return nil, errors.New("model returned an empty recipe")
	}
	session.ID = uuid.New().String()
	session.Ingredients, session.Steps = ParseRecipeText(session.Text)

	log := logger.WithSessionID(session.ID)

	minutes, err := s.TextProvider.EstimateCookingTime(ctx, session.Text)
	if err != nil {
		log.Warn("cooking time estimate failed", zap.Error(err))
		minutes = 0
	}
	session.EstimatedMinutes = minutes

	if s.Archiver != nil {
		location, err := s.Archiver.ArchiveRecipe(ctx, session.ID, session.Text)
		if err != nil {
			log.Warn("recipe archive failed", zap.Error(err))
		} else {
			session.ArchiveURL = location
		}
	}

	if err := s.Repo.SaveRecipeSession(session); err != nil {
		return nil, fmt.Errorf("failed to save recipe session: %w", err)
	}

	token, err := IssueSessionToken(session.ID, s.Cfg.EnvVars.SessionSigningKey)
	if err != nil {
		return nil, err
	}

	log.Info("recipe acquired",
		zap.String("source", string(session.Source)),
		zap.Int("estimated_minutes", session.EstimatedMinutes),
		zap.Int("steps", len(session.Steps)),
	)

	return &RecipeResponse{
		SessionID:     session.ID,
		SessionToken:  token,
		Recipe:        session.Text,
		EstimatedTime: session.EstimatedMinutes,
	}, nil
}

// GetCurrentRecipe returns the most recently acquired recipe session.
func (s *RecipeService) GetCurrentRecipe() (*models.RecipeSession, error) {
	return s.Repo.GetLatestRecipeSession()
}

// GetRecipeSession returns one recipe session by ID.
func (s *RecipeService) GetRecipeSession(sessionID string) (*models.RecipeSession, error) {
	return s.Repo.GetRecipeSession(sessionID)
}

// ResolveRecipeSession picks the session a voice connection should use:
// the one named by sessionID, or the latest when sessionID is empty. A nil
// session with a nil error means nothing has been acquired yet.
func (s *RecipeService) ResolveRecipeSession(sessionID string) (*models.RecipeSession, error) {
	if sessionID != "" {
		return s.Repo.GetRecipeSession(sessionID)
	}
	session, err := s.Repo.GetLatestRecipeSession()
	if repository.IsNotFound(err) {
		return nil, nil
	}
	return session, err
}
