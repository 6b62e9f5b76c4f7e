package models

// Ingredient is a single ingredient with a free-form quantity ("1/2개", "적당량").
type Ingredient struct {
	Name     string `json:"name"`
	Quantity string `json:"quantity"`
}

// IngredientCategory groups one dish's ingredients by grocery section. The
// JSON keys are the Korean section names the extraction prompts ask for.
type IngredientCategory struct {
	FoodName      string       `json:"메뉴명"`
	FruitsVeggies []Ingredient `json:"과일/채소"`
	Meat          []Ingredient `json:"정육"`
	RiceNoodles   []Ingredient `json:"쌀/면"`
	Seafood       []Ingredient `json:"수산물"`
	Sauce         []Ingredient `json:"양념/소스"`
	Dairy         []Ingredient `json:"우유/유제품"`
}

// Normalize replaces nil sections with empty slices so they encode as [].
func (c *IngredientCategory) Normalize() {
	for _, section := range []*[]Ingredient{
		&c.FruitsVeggies, &c.Meat, &c.RiceNoodles, &c.Seafood, &c.Sauce, &c.Dairy,
	} {
		if *section == nil {
			*section = []Ingredient{}
		}
	}
}

// IngredientsResponse is the envelope returned for menu-based extraction.
type IngredientsResponse struct {
	Ingredients []IngredientCategory `json:"ingredients"`
}
