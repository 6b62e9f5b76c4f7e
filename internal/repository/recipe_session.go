package repository

import (
	"errors"
	"time"

	"github.com/windoze95/saltybytes-voice/internal/logger"
	"github.com/windoze95/saltybytes-voice/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RecipeSessionRepository stores recipe sessions in a SQL database.
type RecipeSessionRepository struct {
	DB *gorm.DB
}

// NewRecipeSessionRepository creates a new RecipeSessionRepository.
func NewRecipeSessionRepository(db *gorm.DB) *RecipeSessionRepository {
	return &RecipeSessionRepository{DB: db}
}

// SaveRecipeSession inserts or replaces a recipe session.
func (r *RecipeSessionRepository) SaveRecipeSession(session *models.RecipeSession) error {
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now()
	}
	if err := r.DB.Save(session).Error; err != nil {
		logger.Get().Error("failed to save recipe session",
			zap.String("session_id", session.ID),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// GetRecipeSession retrieves a recipe session by its ID.
func (r *RecipeSessionRepository) GetRecipeSession(sessionID string) (*models.RecipeSession, error) {
	var session models.RecipeSession
	err := r.DB.Where("id = ?", sessionID).First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errSessionNotFound
		}
		return nil, err
	}
	return &session, nil
}

// GetLatestRecipeSession retrieves the most recently saved recipe session.
func (r *RecipeSessionRepository) GetLatestRecipeSession() (*models.RecipeSession, error) {
	var session models.RecipeSession
	err := r.DB.Order("created_at DESC").First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errSessionNotFound
		}
		return nil, err
	}
	return &session, nil
}
