package repository

import (
	"sync"
	"time"

	"github.com/windoze95/saltybytes-voice/internal/models"
)

// MemoryRecipeSessionRepository keeps recipe sessions in process memory.
// Everything is lost on restart.
type MemoryRecipeSessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]models.RecipeSession
	latest   string
}

// NewMemoryRecipeSessionRepository creates an empty in-memory store.
func NewMemoryRecipeSessionRepository() *MemoryRecipeSessionRepository {
	return &MemoryRecipeSessionRepository{sessions: make(map[string]models.RecipeSession)}
}

// SaveRecipeSession stores a copy of session and marks it as the latest.
func (r *MemoryRecipeSessionRepository) SaveRecipeSession(session *models.RecipeSession) error {
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.ID] = cloneSession(*session)
	r.latest = session.ID
	return nil
}

// GetRecipeSession returns a copy of the session stored under sessionID.
func (r *MemoryRecipeSessionRepository) GetRecipeSession(sessionID string) (*models.RecipeSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.sessions[sessionID]
	if !ok {
		return nil, errSessionNotFound
	}
	out := cloneSession(session)
	return &out, nil
}

// GetLatestRecipeSession returns a copy of the most recently saved session.
func (r *MemoryRecipeSessionRepository) GetLatestRecipeSession() (*models.RecipeSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.latest == "" {
		return nil, errSessionNotFound
	}
	out := cloneSession(r.sessions[r.latest])
	return &out, nil
}

func cloneSession(s models.RecipeSession) models.RecipeSession {
	s.Ingredients = append([]string(nil), s.Ingredients...)
	s.Steps = append([]string(nil), s.Steps...)
	return s
}
