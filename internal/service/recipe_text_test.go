package service

import (
	"reflect"
	"testing"

	"github.com/windoze95/saltybytes-voice/internal/testutil"
)

func TestParseRecipeText(t *testing.T) {
	ingredients, steps := ParseRecipeText(testutil.TestRecipeText)

	wantIngredients := []string{"김치 1컵", "돼지고기 200g", "두부 1/2모"}
	if !reflect.DeepEqual(ingredients, wantIngredients) {
		t.Errorf("ingredients = %v, want %v", ingredients, wantIngredients)
	}
	wantSteps := []string{"냄비에 돼지고기를 볶는다.", "김치를 넣고 5분간 더 볶는다.", "물을 붓고 20분간 끓인다."}
	if !reflect.DeepEqual(steps, wantSteps) {
		t.Errorf("steps = %v, want %v", steps, wantSteps)
	}
}

func TestParseRecipeText_MarkdownHeadersAndExtraSections(t *testing.T) {
	text := "**[재료]**\n* 라면 1봉지\n\n**[조리 단계]**\n1) 물을 끓인다\n2) 면을 넣는다\n[팁]\n- 계란을 넣어도 좋다"
	ingredients, steps := ParseRecipeText(text)

	if !reflect.DeepEqual(ingredients, []string{"라면 1봉지"}) {
		t.Errorf("ingredients = %v", ingredients)
	}
	if !reflect.DeepEqual(steps, []string{"물을 끓인다", "면을 넣는다"}) {
		t.Errorf("steps = %v", steps)
	}
}

func TestParseRecipeText_NoSections(t *testing.T) {
	ingredients, steps := ParseRecipeText("그냥 끓이면 됩니다.")
	if len(ingredients) != 0 || len(steps) != 0 {
		t.Errorf("expected empty sections, got %v / %v", ingredients, steps)
	}
	if ingredients == nil || steps == nil {
		t.Error("expected non-nil empty slices")
	}
}
