package repository

import (
	"testing"
	"time"

	"github.com/windoze95/saltybytes-voice/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newSQLiteRepo(t *testing.T) *RecipeSessionRepository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.RecipeSession{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return NewRecipeSessionRepository(db)
}

func repos(t *testing.T) map[string]RecipeSessionRepo {
	return map[string]RecipeSessionRepo{
		"memory": NewMemoryRecipeSessionRepository(),
		"sqlite": newSQLiteRepo(t),
	}
}

func TestRecipeSessionRepo_EmptyStore(t *testing.T) {
	for name, repo := range repos(t) {
		t.Run(name, func(t *testing.T) {
			_, err := repo.GetLatestRecipeSession()
			if !IsNotFound(err) {
				t.Errorf("GetLatestRecipeSession() error = %v, want NotFoundError", err)
			}
			_, err = repo.GetRecipeSession("missing")
			if !IsNotFound(err) {
				t.Errorf("GetRecipeSession() error = %v, want NotFoundError", err)
			}
		})
	}
}

func TestRecipeSessionRepo_SaveGetLatest(t *testing.T) {
	for name, repo := range repos(t) {
		t.Run(name, func(t *testing.T) {
			base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
			first := &models.RecipeSession{
				ID:          "11111111-1111-1111-1111-111111111111",
				MenuName:    "김치찌개",
				Source:      models.RecipeSourceName,
				Text:        "[재료]\n- 김치 1컵",
				Ingredients: []string{"김치 1컵"},
				CreatedAt:   base,
			}
			second := &models.RecipeSession{
				ID:        "22222222-2222-2222-2222-222222222222",
				MenuName:  "된장찌개",
				Source:    models.RecipeSourceVideo,
				SourceURL: "https://www.youtube.com/watch?v=abc",
				Text:      "[재료]\n- 된장 2큰술",
				CreatedAt: base.Add(time.Minute),
			}
			if err := repo.SaveRecipeSession(first); err != nil {
				t.Fatalf("save first: %v", err)
			}
			if err := repo.SaveRecipeSession(second); err != nil {
				t.Fatalf("save second: %v", err)
			}

			latest, err := repo.GetLatestRecipeSession()
			if err != nil {
				t.Fatalf("GetLatestRecipeSession: %v", err)
			}
			if latest.ID != second.ID {
				t.Errorf("latest ID = %q, want %q", latest.ID, second.ID)
			}

			got, err := repo.GetRecipeSession(first.ID)
			if err != nil {
				t.Fatalf("GetRecipeSession: %v", err)
			}
			if got.Text != first.Text {
				t.Errorf("Text = %q, want %q", got.Text, first.Text)
			}
			if len(got.Ingredients) != 1 || got.Ingredients[0] != "김치 1컵" {
				t.Errorf("Ingredients = %v, want [김치 1컵]", got.Ingredients)
			}
		})
	}
}

func TestRecipeSessionRepo_SaveSetsCreatedAt(t *testing.T) {
	for name, repo := range repos(t) {
		t.Run(name, func(t *testing.T) {
			s := &models.RecipeSession{ID: "33333333-3333-3333-3333-333333333333", Text: "x"}
			if err := repo.SaveRecipeSession(s); err != nil {
				t.Fatalf("save: %v", err)
			}
			if s.CreatedAt.IsZero() {
				t.Error("expected CreatedAt to be set on save")
			}
		})
	}
}

func TestMemoryRecipeSessionRepository_ReturnsCopies(t *testing.T) {
	repo := NewMemoryRecipeSessionRepository()
	s := &models.RecipeSession{ID: "a", Steps: []string{"끓인다"}}
	if err := repo.SaveRecipeSession(s); err != nil {
		t.Fatalf("save: %v", err)
	}
	s.Steps[0] = "mutated"

	got, _ := repo.GetRecipeSession("a")
	if got.Steps[0] != "끓인다" {
		t.Errorf("stored session was mutated through caller slice: %v", got.Steps)
	}
	got.Steps[0] = "mutated again"
	again, _ := repo.GetLatestRecipeSession()
	if again.Steps[0] != "끓인다" {
		t.Errorf("stored session was mutated through returned slice: %v", again.Steps)
	}
}
