package repository

import "github.com/windoze95/saltybytes-voice/internal/models"

// RecipeSessionRepo is the interface for recipe session storage. A voice
// session looks up its recipe by ID, or falls back to the latest one saved.
type RecipeSessionRepo interface {
	SaveRecipeSession(session *models.RecipeSession) error
	GetRecipeSession(sessionID string) (*models.RecipeSession, error)
	GetLatestRecipeSession() (*models.RecipeSession, error)
}

var (
	_ RecipeSessionRepo = (*RecipeSessionRepository)(nil)
	_ RecipeSessionRepo = (*MemoryRecipeSessionRepository)(nil)
)
