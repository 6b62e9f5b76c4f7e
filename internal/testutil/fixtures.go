package testutil

import (
	"time"

	"github.com/lib/pq"
	"github.com/windoze95/saltybytes-voice/internal/config"
	"github.com/windoze95/saltybytes-voice/internal/models"
)

// TestRecipeText is a recipe in the format the recipe prompts ask for.
const TestRecipeText = `[재료]
- 김치 1컵
- 돼지고기 200g
- 두부 1/2모

[조리 단계]
1. 냄비에 돼지고기를 볶는다.
2. 김치를 넣고 5분간 더 볶는다.
3. 물을 붓고 20분간 끓인다.`

// TestIngredientsJSON is a fenced model reply for menu-based extraction.
const TestIngredientsJSON = "```json\n" + `{
  "ingredients": [
    {
      "메뉴명": "김치찌개",
      "과일/채소": [{"name": "양파", "quantity": "1/2개"}],
      "정육": [{"name": "돼지고기", "quantity": "200g"}],
      "쌀/면": [],
      "수산물": [],
      "양념/소스": [{"name": "고춧가루", "quantity": "1큰술"}]
    }
  ]
}` + "\n```"

// TestPrompts returns a complete prompt set with short templates.
func TestPrompts() *config.Prompts {
	return &config.Prompts{
		Realtime: config.RealtimePrompts{
			Instructions:   "You are a cooking assistant.",
			Seed:           "Guide me through this recipe:\n{{.Recipe}}",
			NoRecipe:       "No recipe yet. Ask the user to request one first.",
			TimerAck:       "{{.Seconds}}초 타이머를 시작할게요.",
			TimerDone:      "{{.Seconds}}초 타이머가 끝났어요!",
			TimerElapsed:   "The {{.Seconds}} second timer is done. Move to the next step.",
			ToolStartTimer: "Start a cooking timer.",
		},
		Recipe: config.RecipePrompts{
			ByName:       "Recipe for {{.MenuName}}",
			ByVideo:      "Recipe from this video",
			EstimateTime: "Minutes for:\n{{.Recipe}}",
		},
		Ingredients: config.IngredientPrompts{
			ByMenu:  "Ingredients for {{.MenuName}}",
			ByVideo: "Ingredients in this video",
		},
	}
}

// TestPromptSet wraps TestPrompts in a PromptSet.
func TestPromptSet() *config.PromptSet {
	return config.NewPromptSet(TestPrompts())
}

// TestConfig returns a Config suitable for handler and router tests.
func TestConfig() *config.Config {
	return &config.Config{
		EnvVars: config.EnvVars{
			Port:               "8080",
			OpenAIAPIKey:       "test-openai-key",
			RealtimeURL:        "ws://127.0.0.1:0/v1/realtime",
			RealtimeModel:      "gpt-4o-realtime-preview",
			RealtimeVoice:      "alloy",
			GeminiModel:        "gemini-test",
			RecipeTextProvider: config.TextProviderGemini,
			DBDriver:           config.DBDriverMemory,
			SessionSigningKey:  "test-signing-key",
			RateLimitRPS:       100,
		},
		Prompts: TestPromptSet(),
	}
}

// TestRecipeSession creates a stored recipe session with realistic fields.
func TestRecipeSession() *models.RecipeSession {
	return &models.RecipeSession{
		ID:               "6f1c7a52-3a55-4c7e-9d59-0b6c2f1f8a10",
		MenuName:         "김치찌개",
		Source:           models.RecipeSourceName,
		Text:             TestRecipeText,
		Ingredients:      pq.StringArray{"김치 1컵", "돼지고기 200g", "두부 1/2모"},
		Steps:            pq.StringArray{"냄비에 돼지고기를 볶는다.", "김치를 넣고 5분간 더 볶는다.", "물을 붓고 20분간 끓인다."},
		EstimatedMinutes: 30,
		CreatedAt:        time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}
