package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/windoze95/saltybytes-voice/internal/models"
	"github.com/windoze95/saltybytes-voice/internal/repository"
)

// --- MockTextProvider ---

// MockTextProvider is a mock implementation of ai.TextProvider.
type MockTextProvider struct {
	RecipeByNameFunc        func(ctx context.Context, menuName string) (string, error)
	EstimateCookingTimeFunc func(ctx context.Context, recipeText string) (int, error)
	IngredientsByMenuFunc   func(ctx context.Context, menuName string) (string, error)
}

func (m *MockTextProvider) RecipeByName(ctx context.Context, menuName string) (string, error) {
	if m.RecipeByNameFunc != nil {
		return m.RecipeByNameFunc(ctx, menuName)
	}
	return "", fmt.Errorf("RecipeByName not configured")
}

func (m *MockTextProvider) EstimateCookingTime(ctx context.Context, recipeText string) (int, error) {
	if m.EstimateCookingTimeFunc != nil {
		return m.EstimateCookingTimeFunc(ctx, recipeText)
	}
	return 0, fmt.Errorf("EstimateCookingTime not configured")
}

func (m *MockTextProvider) IngredientsByMenu(ctx context.Context, menuName string) (string, error) {
	if m.IngredientsByMenuFunc != nil {
		return m.IngredientsByMenuFunc(ctx, menuName)
	}
	return "", fmt.Errorf("IngredientsByMenu not configured")
}

// --- MockVideoProvider ---

// MockVideoProvider is a mock implementation of ai.VideoProvider.
type MockVideoProvider struct {
	RecipeFromVideoFunc      func(ctx context.Context, videoPath string) (string, error)
	IngredientsFromVideoFunc func(ctx context.Context, videoPath string) (string, error)
}

func (m *MockVideoProvider) RecipeFromVideo(ctx context.Context, videoPath string) (string, error) {
	if m.RecipeFromVideoFunc != nil {
		return m.RecipeFromVideoFunc(ctx, videoPath)
	}
	return "", fmt.Errorf("RecipeFromVideo not configured")
}

func (m *MockVideoProvider) IngredientsFromVideo(ctx context.Context, videoPath string) (string, error) {
	if m.IngredientsFromVideoFunc != nil {
		return m.IngredientsFromVideoFunc(ctx, videoPath)
	}
	return "", fmt.Errorf("IngredientsFromVideo not configured")
}

// --- MockSpeechProvider ---

// MockSpeechProvider is a mock implementation of ai.SpeechProvider.
type MockSpeechProvider struct {
	TranscribeAudioFunc func(ctx context.Context, audioData []byte, filename string) (string, error)
}

func (m *MockSpeechProvider) TranscribeAudio(ctx context.Context, audioData []byte, filename string) (string, error) {
	if m.TranscribeAudioFunc != nil {
		return m.TranscribeAudioFunc(ctx, audioData, filename)
	}
	return "", fmt.Errorf("TranscribeAudio not configured")
}

// --- MockVideoDownloader ---

// MockVideoDownloader is a mock implementation of ai.VideoDownloader. When
// DownloadFunc is nil it writes a small placeholder file into dir, so
// cleanup of the local copy can be asserted.
type MockVideoDownloader struct {
	DownloadFunc func(ctx context.Context, videoURL, dir string) (string, error)

	mu    sync.Mutex
	Paths []string
}

func (m *MockVideoDownloader) Download(ctx context.Context, videoURL, dir string) (string, error) {
	var path string
	var err error
	if m.DownloadFunc != nil {
		path, err = m.DownloadFunc(ctx, videoURL, dir)
	} else {
		if err = os.MkdirAll(dir, 0o755); err == nil {
			path = filepath.Join(dir, "video.mp4")
			err = os.WriteFile(path, []byte("fake mp4"), 0o644)
		}
	}
	if err == nil {
		m.mu.Lock()
		m.Paths = append(m.Paths, path)
		m.mu.Unlock()
	}
	return path, err
}

// --- MockArchiver ---

// MockArchiver records archived recipes.
type MockArchiver struct {
	ArchiveRecipeFunc func(ctx context.Context, sessionID, recipeText string) (string, error)

	mu       sync.Mutex
	Archived map[string]string
}

func (m *MockArchiver) ArchiveRecipe(ctx context.Context, sessionID, recipeText string) (string, error) {
	if m.ArchiveRecipeFunc != nil {
		return m.ArchiveRecipeFunc(ctx, sessionID, recipeText)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Archived == nil {
		m.Archived = make(map[string]string)
	}
	m.Archived[sessionID] = recipeText
	return "https://bucket.s3.amazonaws.com/recipes/" + sessionID + "/recipe.txt", nil
}

// --- MockRecipeSessionRepo ---

// MockRecipeSessionRepo is an in-memory repository.RecipeSessionRepo with
// error overrides.
type MockRecipeSessionRepo struct {
	*repository.MemoryRecipeSessionRepository

	// Error overrides: set these to force specific methods to return errors.
	SaveErr   error
	GetErr    error
	LatestErr error
}

// NewMockRecipeSessionRepo creates an empty MockRecipeSessionRepo.
func NewMockRecipeSessionRepo() *MockRecipeSessionRepo {
	return &MockRecipeSessionRepo{MemoryRecipeSessionRepository: repository.NewMemoryRecipeSessionRepository()}
}

func (m *MockRecipeSessionRepo) SaveRecipeSession(session *models.RecipeSession) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	return m.MemoryRecipeSessionRepository.SaveRecipeSession(session)
}

func (m *MockRecipeSessionRepo) GetRecipeSession(sessionID string) (*models.RecipeSession, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	return m.MemoryRecipeSessionRepository.GetRecipeSession(sessionID)
}

func (m *MockRecipeSessionRepo) GetLatestRecipeSession() (*models.RecipeSession, error) {
	if m.LatestErr != nil {
		return nil, m.LatestErr
	}
	return m.MemoryRecipeSessionRepository.GetLatestRecipeSession()
}
