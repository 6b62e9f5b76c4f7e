package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"text/template"

	"gopkg.in/yaml.v3"
)

// RealtimePrompts holds the texts sent to the realtime voice model and the
// short notices shown to the cooking client.
type RealtimePrompts struct {
	Instructions   string `yaml:"instructions"`
	Seed           string `yaml:"seed"`          // {{.Recipe}}
	NoRecipe       string `yaml:"no_recipe"`     // sent instead of Seed when no recipe is stored
	TimerAck       string `yaml:"timer_ack"`     // {{.Seconds}}
	TimerDone      string `yaml:"timer_done"`    // {{.Seconds}}
	TimerElapsed   string `yaml:"timer_elapsed"` // {{.Seconds}}
	ToolStartTimer string `yaml:"tool_start_timer"`
}

// RecipePrompts holds recipe acquisition prompt templates.
type RecipePrompts struct {
	ByName       string `yaml:"by_name"` // {{.MenuName}}
	ByVideo      string `yaml:"by_video"`
	EstimateTime string `yaml:"estimate_time"` // {{.Recipe}}
}

// IngredientPrompts holds ingredient extraction prompt templates.
type IngredientPrompts struct {
	ByMenu  string `yaml:"by_menu"` // {{.MenuName}}
	ByVideo string `yaml:"by_video"`
}

// Prompts is the top-level prompt configuration loaded from YAML.
type Prompts struct {
	Realtime    RealtimePrompts   `yaml:"realtime"`
	Recipe      RecipePrompts     `yaml:"recipe"`
	Ingredients IngredientPrompts `yaml:"ingredients"`
}

// LoadPrompts reads and parses a YAML prompt configuration file.
func LoadPrompts(path string) (*Prompts, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompts file: %w", err)
	}

	var prompts Prompts
	if err := yaml.Unmarshal(data, &prompts); err != nil {
		return nil, fmt.Errorf("failed to parse prompts YAML: %w", err)
	}

	if err := prompts.Validate(); err != nil {
		return nil, err
	}

	return &prompts, nil
}

// Validate checks that every template the runtime depends on is present.
func (p *Prompts) Validate() error {
	required := map[string]string{
		"realtime.instructions":  p.Realtime.Instructions,
		"realtime.seed":          p.Realtime.Seed,
		"realtime.no_recipe":     p.Realtime.NoRecipe,
		"realtime.timer_ack":     p.Realtime.TimerAck,
		"realtime.timer_done":    p.Realtime.TimerDone,
		"realtime.timer_elapsed": p.Realtime.TimerElapsed,
		"recipe.by_name":         p.Recipe.ByName,
		"recipe.by_video":        p.Recipe.ByVideo,
		"recipe.estimate_time":   p.Recipe.EstimateTime,
	}
	var missing []string
	for key, value := range required {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return errors.New("prompts missing required keys: " + strings.Join(missing, ", "))
	}
	return nil
}

// RenderPrompt executes Go template interpolation on a prompt string.
// The data map provides values for template placeholders like {{.Recipe}},
// {{.MenuName}}, and {{.Seconds}}.
func RenderPrompt(tmpl string, data map[string]interface{}) (string, error) {
	t, err := template.New("prompt").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("failed to parse prompt template: %w", err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render prompt template: %w", err)
	}

	return strings.TrimSpace(buf.String()), nil
}

// PromptSet is a goroutine-safe holder for the active Prompts. Readers take
// a snapshot with Current; the file watcher swaps in reloaded prompts.
type PromptSet struct {
	mu      sync.RWMutex
	current *Prompts
}

// NewPromptSet returns a PromptSet holding p.
func NewPromptSet(p *Prompts) *PromptSet {
	return &PromptSet{current: p}
}

// Current returns the active prompts.
func (s *PromptSet) Current() *Prompts {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Replace swaps the active prompts.
func (s *PromptSet) Replace(p *Prompts) {
	s.mu.Lock()
	s.current = p
	s.mu.Unlock()
}
